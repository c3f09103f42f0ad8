package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/types"
)

// wireTime accepts RFC 3339 strings or epoch milliseconds.
type wireTime struct {
	time.Time
	Set bool
}

func (w *wireTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			w.Time, w.Set = time.UnixMilli(ms).UTC(), true
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q", raw)
		}
		w.Time, w.Set = t.UTC(), true
		return nil
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid timestamp %s", data)
	}
	w.Time, w.Set = time.UnixMilli(int64(ms)).UTC(), true
	return nil
}

func (w wireTime) or(fallback time.Time) time.Time {
	if !w.Set {
		return fallback
	}
	return w.Time
}

type wireUser struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	Role                  string   `json:"role"`
	AvatarRef             *string  `json:"avatarRef"`
	Online                *bool    `json:"online"`
	LastActiveAt          wireTime `json:"lastActiveAt"`
	IsFollowing           *bool    `json:"isFollowing"`
	IsFollower            *bool    `json:"isFollower"`
	MutualConnectionCount *int64   `json:"mutualConnectionCount"`
	Bio                   *string  `json:"bio"`
}

type wireParticipant struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarRef *string `json:"avatarRef"`
	Online    bool    `json:"online"`
}

type wireLastMessage struct {
	Content   string   `json:"content"`
	Timestamp wireTime `json:"timestamp"`
	SenderID  string   `json:"senderId"`
}

type wireConversation struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Participants []wireParticipant `json:"participants"`
	LastMessage  *wireLastMessage  `json:"lastMessage"`
	UnreadCount  *int64            `json:"unreadCount"`
	IsPinned     bool              `json:"isPinned"`
	IsMuted      bool              `json:"isMuted"`
	GroupName    *string           `json:"groupName"`
}

type wireReplyTo struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderName string `json:"senderName"`
}

type wireMessage struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversationId"`
	SenderID       string              `json:"senderId"`
	Content        string              `json:"content"`
	Timestamp      wireTime            `json:"timestamp"`
	Type           string              `json:"type"`
	Edited         bool                `json:"edited"`
	ReplyTo        *wireReplyTo        `json:"replyTo"`
	Reactions      map[string][]string `json:"reactions"`
}

// parser converts wire payloads into typed records, dropping what cannot be
// repaired and defaulting what can.
type parser struct {
	now  time.Time
	drop func(kind, reason string, raw json.RawMessage)
}

func (p parser) user(w wireUser) (types.User, error) {
	id := strings.TrimSpace(w.ID)
	if id == "" {
		return types.User{}, fmt.Errorf("missing id")
	}
	user := types.User{
		ID:           id,
		Name:         strings.TrimSpace(w.Name),
		Role:         parseRole(w.Role),
		AvatarRef:    nonBlank(w.AvatarRef),
		LastActiveAt: w.LastActiveAt.or(p.now),
	}
	if w.Online != nil {
		user.Online = *w.Online
	}
	if user.Name == "" {
		user.Name = id
	}
	return user, nil
}

func (p parser) contact(w wireUser) (types.Contact, error) {
	user, err := p.user(w)
	if err != nil {
		return types.Contact{}, err
	}
	contact := types.Contact{User: user, Bio: nonBlank(w.Bio)}
	if w.IsFollowing != nil {
		contact.IsFollowing = *w.IsFollowing
	}
	if w.IsFollower != nil {
		contact.IsFollower = *w.IsFollower
	}
	if w.MutualConnectionCount != nil && *w.MutualConnectionCount > 0 {
		contact.MutualConnectionCount = uint(*w.MutualConnectionCount)
	}
	return contact, nil
}

func (p parser) conversation(w wireConversation) (types.Conversation, error) {
	id := strings.TrimSpace(w.ID)
	if id == "" {
		return types.Conversation{}, fmt.Errorf("missing id")
	}
	conv := types.Conversation{
		ID:        id,
		IsPinned:  w.IsPinned,
		IsMuted:   w.IsMuted,
		GroupName: nonBlank(w.GroupName),
	}

	seen := make(map[string]struct{}, len(w.Participants))
	for _, wp := range w.Participants {
		pid := strings.TrimSpace(wp.ID)
		if pid == "" {
			continue
		}
		if _, dup := seen[pid]; dup {
			continue
		}
		seen[pid] = struct{}{}
		name := strings.TrimSpace(wp.Name)
		if name == "" {
			name = pid
		}
		conv.Participants = append(conv.Participants, types.Participant{
			ID:        pid,
			Name:      name,
			AvatarRef: nonBlank(wp.AvatarRef),
			Online:    wp.Online,
		})
	}

	switch types.ConversationType(strings.ToLower(strings.TrimSpace(w.Type))) {
	case types.ConversationDirect:
		conv.Type = types.ConversationDirect
	case types.ConversationGroup:
		conv.Type = types.ConversationGroup
	default:
		if len(conv.Participants) == 2 && conv.GroupName == nil {
			conv.Type = types.ConversationDirect
		} else {
			conv.Type = types.ConversationGroup
		}
	}
	if conv.Type == types.ConversationDirect && len(conv.Participants) != 2 {
		return types.Conversation{}, fmt.Errorf("direct conversation with %d participants", len(conv.Participants))
	}

	if w.LastMessage != nil {
		conv.LastMessage = types.LastMessage{
			Content:   w.LastMessage.Content,
			Timestamp: w.LastMessage.Timestamp.Time,
			SenderID:  w.LastMessage.SenderID,
		}
	}
	if w.UnreadCount != nil && *w.UnreadCount > 0 {
		conv.UnreadCount = uint(*w.UnreadCount)
	}
	return conv, nil
}

func (p parser) message(w wireMessage, conversationID string) (types.Message, error) {
	id := strings.TrimSpace(w.ID)
	if id == "" {
		return types.Message{}, fmt.Errorf("missing id")
	}
	if strings.TrimSpace(w.SenderID) == "" {
		return types.Message{}, fmt.Errorf("missing senderId")
	}
	msg := types.Message{
		ID:             id,
		ConversationID: strings.TrimSpace(w.ConversationID),
		SenderID:       strings.TrimSpace(w.SenderID),
		Content:        w.Content,
		Timestamp:      w.Timestamp.or(p.now),
		Type:           parseMessageType(w.Type),
		Edited:         w.Edited,
		Reactions:      core.NormalizeReactions(w.Reactions),
	}
	if msg.ConversationID == "" {
		msg.ConversationID = conversationID
	}
	if w.ReplyTo != nil && strings.TrimSpace(w.ReplyTo.ID) != "" {
		msg.ReplyTo = &types.ReplyTo{
			ID:         strings.TrimSpace(w.ReplyTo.ID),
			Content:    w.ReplyTo.Content,
			SenderName: w.ReplyTo.SenderName,
		}
	}
	return msg, nil
}

// decodeList decodes a JSON array element by element so that one malformed
// record does not discard the whole list.
func decodeList[W any, T any](p parser, kind string, data []json.RawMessage, convert func(W) (T, error)) []T {
	out := make([]T, 0, len(data))
	for _, raw := range data {
		var w W
		if err := json.Unmarshal(raw, &w); err != nil {
			p.drop(kind, err.Error(), raw)
			continue
		}
		item, err := convert(w)
		if err != nil {
			p.drop(kind, err.Error(), raw)
			continue
		}
		out = append(out, item)
	}
	return out
}

func parseRole(raw string) types.Role {
	switch role := types.Role(strings.ToLower(strings.TrimSpace(raw))); role {
	case types.RoleStudent, types.RoleInstructor, types.RoleAdmin:
		return role
	default:
		return types.RoleStudent
	}
}

func parseMessageType(raw string) types.MessageType {
	switch mt := types.MessageType(strings.ToLower(strings.TrimSpace(raw))); mt {
	case types.MessageTypeText, types.MessageTypeImage, types.MessageTypeFile:
		return mt
	default:
		return types.MessageTypeText
	}
}

func nonBlank(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
