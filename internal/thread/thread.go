// Package thread owns the message array of the open conversation and derives
// its display plan.
package thread

import (
	"errors"
	"sync"

	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/types"
)

var (
	// ErrNotOwner is returned when a user edits or deletes someone else's message.
	ErrNotOwner = errors.New("message belongs to another user")
	// ErrNotFound is returned when a message id is not in the thread.
	ErrNotFound = errors.New("message not found")
)

// Thread is the chronologically ordered messages of one conversation.
type Thread struct {
	mu             sync.RWMutex
	self           string
	conversationID string
	messages       []types.Message
}

// New returns an empty thread owned by the user self.
func New(self string) *Thread {
	return &Thread{self: self}
}

// ConversationID returns the conversation the thread currently holds.
func (t *Thread) ConversationID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conversationID
}

// Load replaces the thread with a server history.
func (t *Thread) Load(conversationID string, messages []types.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conversationID = conversationID
	t.messages = make([]types.Message, 0, len(messages))
	for _, m := range messages {
		t.messages = append(t.messages, m.Clone())
	}
}

// Reset empties the thread.
func (t *Thread) Reset() {
	t.Load("", nil)
}

// Messages returns a copy of the message array.
func (t *Thread) Messages() []types.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.Message, len(t.messages))
	for i, m := range t.messages {
		out[i] = m.Clone()
	}
	return out
}

// IDs returns the message ids in order.
func (t *Thread) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.messages))
	for i, m := range t.messages {
		out[i] = m.ID
	}
	return out
}

// Len returns the number of messages.
func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Find returns a copy of one message.
func (t *Thread) Find(id string) (types.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.indexLocked(id); i >= 0 {
		return t.messages[i].Clone(), true
	}
	return types.Message{}, false
}

// Last returns the newest message.
func (t *Thread) Last() (types.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return types.Message{}, false
	}
	return t.messages[len(t.messages)-1].Clone(), true
}

// Append adds a message to the end. Messages for another conversation are
// ignored.
func (t *Thread) Append(msg types.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if msg.ConversationID != t.conversationID || t.indexLocked(msg.ID) >= 0 {
		return false
	}
	t.messages = append(t.messages, msg.Clone())
	return true
}

// Replace swaps the message stored under id for msg, which may carry a new id.
// If msg.ID is already present elsewhere, the entry under id is dropped.
func (t *Thread) Replace(id string, msg types.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexLocked(id)
	if i < 0 {
		return false
	}
	if msg.ID != id && t.indexLocked(msg.ID) >= 0 {
		t.messages = append(t.messages[:i], t.messages[i+1:]...)
		return true
	}
	t.messages[i] = msg.Clone()
	return true
}

// Remove deletes a message and returns it with its former position.
func (t *Thread) Remove(id string) (types.Message, int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexLocked(id)
	if i < 0 {
		return types.Message{}, -1, false
	}
	removed := t.messages[i]
	t.messages = append(t.messages[:i], t.messages[i+1:]...)
	return removed, i, true
}

// Insert puts msg back at index, clamped to the array bounds.
func (t *Thread) Insert(index int, msg types.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.indexLocked(msg.ID) >= 0 || msg.ConversationID != t.conversationID {
		return
	}
	if index < 0 {
		index = 0
	}
	if index > len(t.messages) {
		index = len(t.messages)
	}
	t.messages = append(t.messages, types.Message{})
	copy(t.messages[index+1:], t.messages[index:])
	t.messages[index] = msg.Clone()
}

// CheckOwner returns the message if the current user sent it.
func (t *Thread) CheckOwner(id string) (types.Message, error) {
	msg, ok := t.Find(id)
	if !ok {
		return types.Message{}, ErrNotFound
	}
	if msg.SenderID != t.self {
		return types.Message{}, ErrNotOwner
	}
	return msg, nil
}

// Edit replaces the content of one of the current user's messages and marks it
// edited. It returns the message as it was before.
func (t *Thread) Edit(id, content string) (types.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexLocked(id)
	if i < 0 {
		return types.Message{}, ErrNotFound
	}
	if t.messages[i].SenderID != t.self {
		return types.Message{}, ErrNotOwner
	}
	prev := t.messages[i].Clone()
	t.messages[i].Content = content
	t.messages[i].Edited = true
	return prev, nil
}

// ToggleReaction flips the current user's membership for emoji on a message
// and reports whether the user is now a member.
func (t *Thread) ToggleReaction(id, emoji string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexLocked(id)
	if i < 0 {
		return false, ErrNotFound
	}
	var member bool
	t.messages[i].Reactions, member = core.ToggleReaction(t.messages[i].Reactions, emoji, t.self)
	return member, nil
}

// SetReaction forces the current user's membership for emoji on a message.
func (t *Thread) SetReaction(id, emoji string, member bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	t.messages[i].Reactions = core.SetReaction(t.messages[i].Reactions, emoji, t.self, member)
	return nil
}

// SetReactions installs the server's reaction set for a message, leaving the
// rest of the message alone.
func (t *Thread) SetReactions(id string, reactions types.Reactions) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexLocked(id)
	if i < 0 {
		return false
	}
	t.messages[i].Reactions = reactions.Clone()
	return true
}

func (t *Thread) indexLocked(id string) int {
	for i := range t.messages {
		if t.messages[i].ID == id {
			return i
		}
	}
	return -1
}
