package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adamavenir/agora/internal/types"
	"go.uber.org/zap"
)

// CreateConversationRequest asks the backend to create or return a conversation.
type CreateConversationRequest struct {
	ID             string                 `json:"id"`
	Type           types.ConversationType `json:"type"`
	ParticipantIDs []string               `json:"participantIds"`
	GroupName      *string                `json:"groupName,omitempty"`
}

// ConversationPatch updates per-user conversation flags.
type ConversationPatch struct {
	IsPinned *bool `json:"isPinned,omitempty"`
	IsMuted  *bool `json:"isMuted,omitempty"`
}

// SendMessageRequest posts a new message.
type SendMessageRequest struct {
	ClientID string            `json:"clientId"`
	Content  string            `json:"content"`
	Type     types.MessageType `json:"type"`
	ReplyTo  *types.ReplyTo    `json:"replyTo,omitempty"`
}

type editMessageRequest struct {
	Content string `json:"content"`
}

// Contacts fetches people with shared conversation history.
func (c *Client) Contacts(ctx context.Context) ([]types.Contact, error) {
	return c.contactList(ctx, "/api/contacts", nil)
}

// Following fetches users the current user follows.
func (c *Client) Following(ctx context.Context) ([]types.Contact, error) {
	return c.contactList(ctx, "/api/users/following", nil)
}

// SearchUsers fetches users matching a free-text query.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]types.Contact, error) {
	values := url.Values{}
	values.Set("q", query)
	return c.contactList(ctx, "/api/users/search", values)
}

// Follow follows a user.
func (c *Client) Follow(ctx context.Context, userID string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/users/"+url.PathEscape(userID)+"/follow", nil, nil, nil)
}

// Unfollow unfollows a user.
func (c *Client) Unfollow(ctx context.Context, userID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(userID)+"/follow", nil, nil, nil)
}

// Conversations fetches the authoritative conversation list.
func (c *Client) Conversations(ctx context.Context) ([]types.Conversation, error) {
	var raw []json.RawMessage
	if err := c.get(ctx, "/api/conversations", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList(c.parser(), "conversation", raw, c.parser().conversation), nil
}

// CreateConversation creates a conversation or returns the existing one with that id.
func (c *Client) CreateConversation(ctx context.Context, req CreateConversationRequest) (types.Conversation, error) {
	var w wireConversation
	if err := c.doJSON(ctx, http.MethodPost, "/api/conversations", nil, req, &w); err != nil {
		return types.Conversation{}, err
	}
	return c.parser().conversation(w)
}

// UpdateConversation patches pinned/muted flags.
func (c *Client) UpdateConversation(ctx context.Context, conversationID string, patch ConversationPatch) (types.Conversation, error) {
	var w wireConversation
	if err := c.doJSON(ctx, http.MethodPatch, "/api/conversations/"+url.PathEscape(conversationID), nil, patch, &w); err != nil {
		return types.Conversation{}, err
	}
	return c.parser().conversation(w)
}

// MarkRead tells the backend the conversation was read.
func (c *Client) MarkRead(ctx context.Context, conversationID string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/conversations/"+url.PathEscape(conversationID)+"/read", nil, nil, nil)
}

// Messages fetches the message history of one conversation, oldest first.
func (c *Client) Messages(ctx context.Context, conversationID string) ([]types.Message, error) {
	var raw []json.RawMessage
	if err := c.get(ctx, "/api/conversations/"+url.PathEscape(conversationID)+"/messages", nil, &raw); err != nil {
		return nil, err
	}
	p := c.parser()
	return decodeList(p, "message", raw, func(w wireMessage) (types.Message, error) {
		return p.message(w, conversationID)
	}), nil
}

// SendMessage posts a message and returns the server-confirmed record.
func (c *Client) SendMessage(ctx context.Context, conversationID string, req SendMessageRequest) (types.Message, error) {
	var w wireMessage
	if err := c.doJSON(ctx, http.MethodPost, "/api/conversations/"+url.PathEscape(conversationID)+"/messages", nil, req, &w); err != nil {
		return types.Message{}, err
	}
	return c.parser().message(w, conversationID)
}

// EditMessage replaces the content of a message.
func (c *Client) EditMessage(ctx context.Context, messageID, content string) (types.Message, error) {
	var w wireMessage
	if err := c.doJSON(ctx, http.MethodPatch, "/api/messages/"+url.PathEscape(messageID), nil, editMessageRequest{Content: content}, &w); err != nil {
		return types.Message{}, err
	}
	return c.parser().message(w, "")
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/messages/"+url.PathEscape(messageID), nil, nil, nil)
}

// SetReaction puts or removes the current user's reaction. The request names
// the target state, so retries are safe.
func (c *Client) SetReaction(ctx context.Context, messageID, emoji string, member bool) (types.Message, error) {
	method := http.MethodPut
	if !member {
		method = http.MethodDelete
	}
	path := "/api/messages/" + url.PathEscape(messageID) + "/reactions/" + url.PathEscape(emoji)
	var w wireMessage
	if err := c.doJSON(ctx, method, path, nil, nil, &w); err != nil {
		return types.Message{}, err
	}
	return c.parser().message(w, "")
}

func (c *Client) contactList(ctx context.Context, path string, query url.Values) ([]types.Contact, error) {
	var raw []json.RawMessage
	if err := c.get(ctx, path, query, &raw); err != nil {
		return nil, err
	}
	return decodeList(c.parser(), "contact", raw, c.parser().contact), nil
}

func (c *Client) parser() parser {
	return parser{now: time.Now().UTC(), drop: c.logDrop}
}

func (c *Client) logDrop(kind, reason string, raw json.RawMessage) {
	snippet := strings.TrimSpace(string(raw))
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	c.logger.Warn("dropped malformed record", zap.String("kind", kind), zap.String("reason", reason), zap.String("payload", snippet))
}
