package messenger

import (
	"context"
	"fmt"
	"strings"

	"github.com/adamavenir/agora/internal/action"
	"github.com/adamavenir/agora/internal/api"
	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/directory"
	"github.com/adamavenir/agora/internal/thread"
	"github.com/adamavenir/agora/internal/types"
)

// BeginStart opens the conversation the given users share with the current
// user, creating it optimistically when it is not known yet. A nil op means
// the conversation already existed and was simply selected.
func (m *Messenger) BeginStart(userIDs []string, groupName string) (*action.Op, string, error) {
	target, err := directory.ResolveTarget(m.Self(), userIDs)
	if err != nil {
		return nil, "", err
	}
	existing := target.ID
	if target.Type == types.ConversationDirect {
		if conv, ok := m.store.FindDirect(target.ParticipantIDs[0]); ok {
			existing = conv.ID
		}
	}
	if _, ok := m.store.Get(existing); ok {
		if err := m.Select(existing); err != nil {
			return nil, "", err
		}
		m.directory.ClearSelection()
		return nil, existing, nil
	}

	conv := m.draftConversation(target, groupName)
	req := api.CreateConversationRequest{
		ID:             target.ID,
		Type:           target.Type,
		ParticipantIDs: target.ParticipantIDs,
		GroupName:      conv.GroupName,
	}
	op := m.ledger.Begin(action.Mutation{
		Kind:  action.KindStart,
		Scope: listScope,
		Apply: func() {
			m.store.Upsert(conv)
			_ = m.Select(conv.ID)
		},
		Revert: func() {
			wasActive := m.store.IsActive(conv.ID)
			m.store.Remove(conv.ID)
			if wasActive {
				m.thread.Reset()
			}
		},
		Request: func(ctx context.Context) (func(), error) {
			created, err := m.client.CreateConversation(ctx, req)
			if err != nil {
				return nil, err
			}
			return func() { m.adoptCreated(conv.ID, created) }, nil
		},
	})
	m.directory.ClearSelection()
	return op, conv.ID, nil
}

// adoptCreated swaps the draft for the server record. Focus moves to the
// server id only if the draft is still the open conversation.
func (m *Messenger) adoptCreated(draftID string, created types.Conversation) {
	wasActive := m.store.IsActive(draftID)
	if created.ID != draftID {
		m.store.Remove(draftID)
	}
	if wasActive {
		created.UnreadCount = 0
	}
	m.store.Upsert(created)
	if wasActive && created.ID != draftID {
		_ = m.Select(created.ID)
	}
}

func (m *Messenger) draftConversation(target directory.Target, groupName string) types.Conversation {
	conv := types.Conversation{
		ID:   target.ID,
		Type: target.Type,
		Participants: []types.Participant{
			{ID: m.Self(), Name: m.identity.Name(), Online: true},
		},
		LastMessage: types.LastMessage{Timestamp: m.now()},
	}
	for _, id := range target.ParticipantIDs {
		p := types.Participant{ID: id, Name: id}
		if c, ok := m.directory.Lookup(id); ok {
			p.Name, p.AvatarRef, p.Online = c.Name, c.AvatarRef, c.Online
		}
		conv.Participants = append(conv.Participants, p)
	}
	if name := strings.TrimSpace(groupName); name != "" && target.Type == types.ConversationGroup {
		conv.GroupName = &name
	}
	return conv
}

// StartConversation opens or creates the conversation with userIDs and loads
// its history.
func (m *Messenger) StartConversation(ctx context.Context, userIDs []string, groupName string) (types.Conversation, error) {
	op, id, err := m.BeginStart(userIDs, groupName)
	if err != nil {
		return types.Conversation{}, err
	}
	if op != nil {
		if err := m.run(ctx, op); err != nil {
			return types.Conversation{}, err
		}
		if active := m.store.ActiveID(); active != "" {
			id = active
		}
	}
	m.MarkRead(ctx, id)
	if err := m.LoadThread(ctx, id); err != nil {
		return types.Conversation{}, err
	}
	conv, ok := m.store.Get(id)
	if !ok {
		return types.Conversation{}, fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	return conv, nil
}

// BeginSend appends a message with a temporary id to the open thread.
func (m *Messenger) BeginSend(content string) (*action.Op, error) {
	return m.beginSend(content, nil, nil)
}

// BeginReply sends content as a reply to a message in the open thread. The
// reply carries a snapshot of the target taken now.
func (m *Messenger) BeginReply(targetID, content string) (*action.Op, error) {
	snapshot, err := m.replySnapshot(targetID)
	if err != nil {
		return nil, err
	}
	return m.beginSend(content, snapshot, nil)
}

func (m *Messenger) replySnapshot(targetID string) (*types.ReplyTo, error) {
	conv, ok := m.Active()
	if !ok {
		return nil, ErrNoActiveConversation
	}
	target, ok := m.thread.Find(targetID)
	if !ok {
		return nil, fmt.Errorf("reply target %s: %w", targetID, thread.ErrNotFound)
	}
	snapshot := core.ReplySnapshot(target, core.SenderName(conv, target.SenderID))
	return &snapshot, nil
}

func (m *Messenger) beginSend(content string, reply *types.ReplyTo, confirmed *types.Message) (*action.Op, error) {
	conv, ok := m.Active()
	if !ok {
		return nil, ErrNoActiveConversation
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	tmp := types.Message{
		ID:             core.NewTempID(),
		ConversationID: conv.ID,
		SenderID:       m.Self(),
		Content:        content,
		Timestamp:      m.now(),
		Type:           types.MessageTypeText,
		ReplyTo:        reply,
		Reactions:      types.Reactions{},
	}
	prevLast := conv.LastMessage
	req := api.SendMessageRequest{
		ClientID: tmp.ID,
		Content:  content,
		Type:     tmp.Type,
		ReplyTo:  reply,
	}
	return m.ledger.Begin(action.Mutation{
		Kind:  action.KindSend,
		Scope: threadScope(conv.ID),
		Apply: func() {
			m.thread.Append(tmp)
			m.store.ObserveMessage(tmp)
		},
		Revert: func() {
			m.removeIfOpen(conv.ID, tmp.ID)
			m.store.SetLastMessage(conv.ID, prevLast)
		},
		Request: func(ctx context.Context) (func(), error) {
			sent, err := m.client.SendMessage(ctx, conv.ID, req)
			if err != nil {
				return nil, err
			}
			return func() {
				if m.thread.ConversationID() == conv.ID {
					m.thread.Replace(tmp.ID, sent)
				}
				m.store.ObserveMessage(sent)
				if confirmed != nil {
					*confirmed = sent
				}
			}, nil
		},
	}), nil
}

// Send posts a message to the open conversation.
func (m *Messenger) Send(ctx context.Context, content string) (types.Message, error) {
	return m.send(ctx, content, nil)
}

// Reply posts content as a reply to targetID in the open conversation.
func (m *Messenger) Reply(ctx context.Context, targetID, content string) (types.Message, error) {
	snapshot, err := m.replySnapshot(targetID)
	if err != nil {
		return types.Message{}, err
	}
	return m.send(ctx, content, snapshot)
}

func (m *Messenger) send(ctx context.Context, content string, reply *types.ReplyTo) (types.Message, error) {
	var sent types.Message
	op, err := m.beginSend(content, reply, &sent)
	if err != nil {
		return types.Message{}, err
	}
	if err := m.run(ctx, op); err != nil {
		return types.Message{}, err
	}
	return sent, nil
}

// BeginEdit replaces the content of one of the user's own messages.
func (m *Messenger) BeginEdit(messageID, content string) (*action.Op, error) {
	convID := m.thread.ConversationID()
	if convID == "" {
		return nil, ErrNoActiveConversation
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := m.ownConfirmed(messageID); err != nil {
		return nil, err
	}
	var prev types.Message
	return m.ledger.Begin(action.Mutation{
		Kind:  action.KindEdit,
		Scope: threadScope(convID),
		Apply: func() {
			prev, _ = m.thread.Edit(messageID, content)
			m.syncLastMessage(convID)
		},
		Revert: func() {
			if m.thread.ConversationID() == convID {
				m.thread.Replace(messageID, prev)
				m.syncLastMessage(convID)
			}
		},
		Request: func(ctx context.Context) (func(), error) {
			edited, err := m.client.EditMessage(ctx, messageID, content)
			if err != nil {
				return nil, err
			}
			return func() {
				if m.thread.ConversationID() == convID {
					m.thread.Replace(messageID, edited)
					m.syncLastMessage(convID)
				}
			}, nil
		},
	}), nil
}

// Edit replaces the content of one of the user's own messages.
func (m *Messenger) Edit(ctx context.Context, messageID, content string) error {
	op, err := m.BeginEdit(messageID, content)
	if err != nil {
		return err
	}
	return m.run(ctx, op)
}

// BeginDelete removes one of the user's own messages from the thread.
func (m *Messenger) BeginDelete(messageID string) (*action.Op, error) {
	convID := m.thread.ConversationID()
	if convID == "" {
		return nil, ErrNoActiveConversation
	}
	if _, err := m.ownConfirmed(messageID); err != nil {
		return nil, err
	}
	var (
		removed types.Message
		index   int
	)
	return m.ledger.Begin(action.Mutation{
		Kind:  action.KindDelete,
		Scope: threadScope(convID),
		Apply: func() {
			removed, index, _ = m.thread.Remove(messageID)
			m.syncLastMessage(convID)
		},
		Revert: func() {
			if m.thread.ConversationID() == convID {
				m.thread.Insert(index, removed)
				m.syncLastMessage(convID)
			}
		},
		Request: func(ctx context.Context) (func(), error) {
			err := m.client.DeleteMessage(ctx, messageID)
			if api.IsNotFound(err) {
				err = nil
			}
			return nil, err
		},
	}), nil
}

// Delete removes one of the user's own messages.
func (m *Messenger) Delete(ctx context.Context, messageID string) error {
	op, err := m.BeginDelete(messageID)
	if err != nil {
		return err
	}
	return m.run(ctx, op)
}

// BeginReact toggles the user's reaction on a message in the open thread.
func (m *Messenger) BeginReact(messageID, emoji string) (*action.Op, error) {
	convID := m.thread.ConversationID()
	if convID == "" {
		return nil, ErrNoActiveConversation
	}
	key, ok := core.NormalizeReaction(emoji)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReaction, emoji)
	}
	msg, found := m.thread.Find(messageID)
	if !found {
		return nil, fmt.Errorf("message %s: %w", messageID, thread.ErrNotFound)
	}
	if core.IsTempID(msg.ID) {
		return nil, ErrUnconfirmed
	}
	member := !msg.Reactions.Has(key, m.Self())
	return m.ledger.Begin(action.Mutation{
		Kind:  action.KindReact,
		Scope: threadScope(convID),
		Apply: func() {
			_ = m.thread.SetReaction(messageID, key, member)
		},
		Revert: func() {
			if m.thread.ConversationID() == convID {
				_ = m.thread.SetReaction(messageID, key, !member)
			}
		},
		Request: func(ctx context.Context) (func(), error) {
			updated, err := m.client.SetReaction(ctx, messageID, key, member)
			if err != nil {
				return nil, err
			}
			return func() {
				if m.thread.ConversationID() == convID {
					m.thread.SetReactions(messageID, updated.Reactions)
				}
			}, nil
		},
	}), nil
}

// React toggles the user's reaction on a message in the open thread.
func (m *Messenger) React(ctx context.Context, messageID, emoji string) error {
	op, err := m.BeginReact(messageID, emoji)
	if err != nil {
		return err
	}
	return m.run(ctx, op)
}

// BeginPin sets the pinned flag of a conversation.
func (m *Messenger) BeginPin(conversationID string, pinned bool) (*action.Op, error) {
	return m.beginFlag(action.KindPin, conversationID, m.store.SetPinned, api.ConversationPatch{IsPinned: &pinned}, pinned,
		func(c types.Conversation) bool { return c.IsPinned })
}

// BeginMute sets the muted flag of a conversation.
func (m *Messenger) BeginMute(conversationID string, muted bool) (*action.Op, error) {
	return m.beginFlag(action.KindMute, conversationID, m.store.SetMuted, api.ConversationPatch{IsMuted: &muted}, muted,
		func(c types.Conversation) bool { return c.IsMuted })
}

// Pin sets the pinned flag of a conversation.
func (m *Messenger) Pin(ctx context.Context, conversationID string, pinned bool) error {
	op, err := m.BeginPin(conversationID, pinned)
	if err != nil {
		return err
	}
	return m.run(ctx, op)
}

// Mute sets the muted flag of a conversation.
func (m *Messenger) Mute(ctx context.Context, conversationID string, muted bool) error {
	op, err := m.BeginMute(conversationID, muted)
	if err != nil {
		return err
	}
	return m.run(ctx, op)
}

func (m *Messenger) beginFlag(kind action.Kind, id string, set func(string, bool) (bool, bool), patch api.ConversationPatch, value bool, read func(types.Conversation) bool) (*action.Op, error) {
	if _, ok := m.store.Get(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	var prev bool
	return m.ledger.Begin(action.Mutation{
		Kind:   kind,
		Scope:  listScope,
		Apply:  func() { prev, _ = set(id, value) },
		Revert: func() { set(id, prev) },
		Request: func(ctx context.Context) (func(), error) {
			updated, err := m.client.UpdateConversation(ctx, id, patch)
			if err != nil {
				return nil, err
			}
			return func() { set(id, read(updated)) }, nil
		},
	}), nil
}

func (m *Messenger) ownConfirmed(messageID string) (types.Message, error) {
	msg, err := m.thread.CheckOwner(messageID)
	if err != nil {
		return types.Message{}, err
	}
	if core.IsTempID(msg.ID) {
		return types.Message{}, ErrUnconfirmed
	}
	return msg, nil
}

func (m *Messenger) removeIfOpen(conversationID, messageID string) {
	if m.thread.ConversationID() == conversationID {
		m.thread.Remove(messageID)
	}
}

// syncLastMessage keeps the list summary in step with the newest message of
// the open thread after an edit or delete. An emptied thread clears it.
func (m *Messenger) syncLastMessage(conversationID string) {
	if m.thread.ConversationID() != conversationID {
		return
	}
	last, ok := m.thread.Last()
	if !ok {
		m.store.SetLastMessage(conversationID, types.LastMessage{})
		return
	}
	m.store.SetLastMessage(conversationID, types.LastMessage{Content: last.Content, Timestamp: last.Timestamp, SenderID: last.SenderID})
}
