// Package conversations owns the conversation list, its unread counters and
// the orderings used to display it.
package conversations

import (
	"sort"
	"strings"
	"sync"

	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/types"
	"github.com/gobwas/glob"
)

// Store holds the conversation list. Only its methods write unread counts or
// participants.
type Store struct {
	mu     sync.RWMutex
	self   string
	items  map[string]types.Conversation
	active string
}

// NewStore returns an empty store for the user self.
func NewStore(self string) *Store {
	return &Store{self: self, items: map[string]types.Conversation{}}
}

// Self returns the current user id.
func (s *Store) Self() string { return s.self }

// Replace installs a full server list. Server values win over any local
// optimism, including unread counts of the open conversation.
func (s *Store) Replace(list []types.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]types.Conversation, len(list))
	for _, conv := range list {
		s.items[conv.ID] = conv.Clone()
	}
}

// Upsert inserts or replaces one conversation.
func (s *Store) Upsert(conv types.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[conv.ID] = conv.Clone()
}

// Remove drops a conversation, clearing the active pointer if it was open.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	if s.active == id {
		s.active = ""
	}
}

// Get returns a copy of one conversation.
func (s *Store) Get(id string) (types.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.items[id]
	if !ok {
		return types.Conversation{}, false
	}
	return conv.Clone(), true
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Open makes id the active conversation and zeroes its unread count
// immediately. It returns the count that was cleared.
func (s *Store) Open(id string) (uint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.items[id]
	if !ok {
		return 0, false
	}
	cleared := conv.UnreadCount
	conv.UnreadCount = 0
	s.items[id] = conv
	s.active = id
	return cleared, true
}

// Close clears the active conversation.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = ""
}

// ActiveID returns the open conversation, or "".
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// IsActive reports whether id is the open conversation.
func (s *Store) IsActive(id string) bool {
	return id != "" && s.ActiveID() == id
}

// ObserveMessage folds a newly seen message into the list: the last message
// advances and, for inbound messages outside the open conversation, the
// unread count goes up by one.
func (s *Store) ObserveMessage(msg types.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.items[msg.ConversationID]
	if !ok {
		return false
	}
	if !msg.Timestamp.Before(conv.LastMessage.Timestamp) {
		conv.LastMessage = types.LastMessage{Content: msg.Content, Timestamp: msg.Timestamp, SenderID: msg.SenderID}
	}
	if msg.SenderID != s.self && msg.ConversationID != s.active {
		conv.UnreadCount++
	}
	s.items[conv.ID] = conv
	return true
}

// SetLastMessage overwrites the last message summary, used when the newest
// message of the open thread changes through an edit or delete.
func (s *Store) SetLastMessage(id string, last types.LastMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.items[id]; ok {
		conv.LastMessage = last
		s.items[id] = conv
	}
}

// SetPinned sets the pinned flag and returns the previous value.
func (s *Store) SetPinned(id string, pinned bool) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.items[id]
	if !ok {
		return false, false
	}
	prev := conv.IsPinned
	conv.IsPinned = pinned
	s.items[id] = conv
	return prev, true
}

// SetMuted sets the muted flag and returns the previous value.
func (s *Store) SetMuted(id string, muted bool) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.items[id]
	if !ok {
		return false, false
	}
	prev := conv.IsMuted
	conv.IsMuted = muted
	s.items[id] = conv
	return prev, true
}

// FindDirect returns the direct conversation shared with userID, if any.
func (s *Store) FindDirect(userID string) (types.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found []types.Conversation
	for _, conv := range s.items {
		if conv.Type != types.ConversationDirect {
			continue
		}
		if _, ok := conv.Participant(userID); ok {
			found = append(found, conv)
		}
	}
	if len(found) == 0 {
		return types.Conversation{}, false
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found[0].Clone(), true
}

// Ordered returns the list in display order.
func (s *Store) Ordered() []types.Conversation {
	list := s.snapshot()
	SortForDisplay(list)
	return list
}

// ByPriority returns the list in badge order.
func (s *Store) ByPriority() []types.Conversation {
	list := s.snapshot()
	SortByPriority(list)
	return list
}

// UnreadTotal sums unread counts over unmuted conversations.
func (s *Store) UnreadTotal() uint {
	var total uint
	for _, conv := range s.ByPriority() {
		if conv.UnreadCount == 0 {
			break
		}
		if !conv.IsMuted {
			total += conv.UnreadCount
		}
	}
	return total
}

// Filter returns conversations in display order whose display name matches
// the glob pattern, case-insensitively. A pattern without wildcards matches
// as a substring.
func (s *Store) Filter(pattern string) ([]types.Conversation, error) {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return s.Ordered(), nil
	}
	if !strings.ContainsAny(pattern, "*?[{") {
		pattern = "*" + pattern + "*"
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}
	var out []types.Conversation
	for _, conv := range s.Ordered() {
		if g.Match(strings.ToLower(core.DisplayName(conv, s.self))) {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (s *Store) snapshot() []types.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Conversation, 0, len(s.items))
	for _, conv := range s.items {
		out = append(out, conv.Clone())
	}
	return out
}
