// Package fakeapi is an in-memory implementation of the platform backend's
// messaging endpoints. It backs integration tests and `agora dev-server`.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/logging"
	"github.com/adamavenir/agora/internal/types"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type conversationState struct {
	conv     types.Conversation
	pinned   map[string]bool
	muted    map[string]bool
	unread   map[string]uint
	messages []types.Message
}

type failure struct {
	status int
	count  int
}

// Server is the in-memory backend.
type Server struct {
	mu            sync.Mutex
	router        *mux.Router
	logger        *zap.Logger
	now           func() time.Time
	tokens        map[string]string
	users         map[string]types.User
	follows       map[string]map[string]bool
	conversations map[string]*conversationState
	messageIndex  map[string]string
	clientIDs     map[string]string
	failures      map[string]*failure
	requests      map[string]int
	seq           int
}

// New returns an empty backend.
func New(logger *zap.Logger) *Server {
	s := &Server{
		logger:        logging.OrNop(logger),
		now:           func() time.Time { return time.Now().UTC() },
		tokens:        map[string]string{},
		users:         map[string]types.User{},
		follows:       map[string]map[string]bool{},
		conversations: map[string]*conversationState{},
		messageIndex:  map[string]string{},
		clientIDs:     map[string]string{},
		failures:      map[string]*failure{},
		requests:      map[string]int{},
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetClock overrides the server clock.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddUser registers a user reachable with token.
func (s *Server) AddUser(user types.User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	if token != "" {
		s.tokens[token] = user.ID
	}
}

// SetFollow records that follower follows followee.
func (s *Server) SetFollow(follower, followee string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setFollowLocked(follower, followee, on)
}

// AddConversation stores a conversation. Participants must already exist.
func (s *Server) AddConversation(conv types.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = &conversationState{
		conv:   conv.Clone(),
		pinned: map[string]bool{},
		muted:  map[string]bool{},
		unread: map[string]uint{},
	}
}

// AddMessage appends a message as if it had been sent.
func (s *Server) AddMessage(msg types.Message) types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.conversations[msg.ConversationID]
	if !ok {
		panic(fmt.Sprintf("fakeapi: unknown conversation %s", msg.ConversationID))
	}
	if msg.ID == "" {
		msg.ID = s.nextIDLocked("msg")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	if msg.Type == "" {
		msg.Type = types.MessageTypeText
	}
	s.appendLocked(state, msg)
	return msg.Clone()
}

// SetUnread overrides the unread counter of a conversation for one user.
func (s *Server) SetUnread(conversationID, userID string, count uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.conversations[conversationID]; ok {
		state.unread[userID] = count
	}
}

// FailNext makes the next count requests to the named route fail with status.
func (s *Server) FailNext(route string, status, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = &failure{status: status, count: count}
}

// Requests returns how many requests reached the named route.
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[route]
}

// Messages returns a copy of a conversation's stored messages.
func (s *Server) Messages(conversationID string) []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.conversations[conversationID]
	if !ok {
		return nil
	}
	out := make([]types.Message, len(state.messages))
	for i, m := range state.messages {
		out[i] = m.Clone()
	}
	return out
}

func (s *Server) setFollowLocked(follower, followee string, on bool) {
	if s.follows[follower] == nil {
		s.follows[follower] = map[string]bool{}
	}
	if on {
		s.follows[follower][followee] = true
	} else {
		delete(s.follows[follower], followee)
	}
}

func (s *Server) nextIDLocked(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *Server) appendLocked(state *conversationState, msg types.Message) {
	state.messages = append(state.messages, msg.Clone())
	s.messageIndex[msg.ID] = state.conv.ID
	state.conv.LastMessage = types.LastMessage{
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
		SenderID:  msg.SenderID,
	}
	for _, p := range state.conv.Participants {
		if p.ID != msg.SenderID {
			state.unread[p.ID]++
		}
	}
}

func (s *Server) refreshLastMessageLocked(state *conversationState) {
	if len(state.messages) == 0 {
		state.conv.LastMessage = types.LastMessage{}
		return
	}
	last := state.messages[len(state.messages)-1]
	state.conv.LastMessage = types.LastMessage{Content: last.Content, Timestamp: last.Timestamp, SenderID: last.SenderID}
}

func (s *Server) viewLocked(state *conversationState, userID string) types.Conversation {
	conv := state.conv.Clone()
	conv.IsPinned = state.pinned[userID]
	conv.IsMuted = state.muted[userID]
	conv.UnreadCount = state.unread[userID]
	for i, p := range conv.Participants {
		if u, ok := s.users[p.ID]; ok {
			conv.Participants[i].Online = u.Online
		}
	}
	return conv
}

func (s *Server) contactLocked(viewer string, user types.User) types.Contact {
	contact := types.Contact{
		User:        user,
		IsFollowing: s.follows[viewer][user.ID],
		IsFollower:  s.follows[user.ID][viewer],
	}
	for followee := range s.follows[viewer] {
		if followee != user.ID && s.follows[user.ID][followee] {
			contact.MutualConnectionCount++
		}
	}
	return contact
}

func (s *Server) usersSorted(ids map[string]struct{}) []types.User {
	out := make([]types.User, 0, len(ids))
	for id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func isParticipant(conv types.Conversation, userID string) bool {
	_, ok := conv.Participant(userID)
	return ok
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// NewDemo returns a backend seeded with a small campus and the token for the
// signed-in demo student.
func NewDemo(logger *zap.Logger) (*Server, string) {
	s := New(logger)
	now := time.Now().UTC()
	users := []types.User{
		{ID: "u-ada", Name: "Ada Lovelace", Role: types.RoleStudent, Online: true, LastActiveAt: now},
		{ID: "u-grace", Name: "Grace Hopper", Role: types.RoleInstructor, Online: true, LastActiveAt: now},
		{ID: "u-alan", Name: "Alan Turing", Role: types.RoleStudent, LastActiveAt: now.Add(-2 * time.Hour)},
		{ID: "u-edsger", Name: "Edsger Dijkstra", Role: types.RoleAdmin, LastActiveAt: now.Add(-26 * time.Hour)},
	}
	for _, u := range users {
		s.AddUser(u, "token-"+strings.TrimPrefix(u.ID, "u-"))
	}
	s.SetFollow("u-ada", "u-grace", true)
	s.SetFollow("u-alan", "u-ada", true)
	s.SetFollow("u-alan", "u-grace", true)

	direct := types.Conversation{
		ID:   core.DirectConversationID("u-ada", "u-grace"),
		Type: types.ConversationDirect,
		Participants: []types.Participant{
			{ID: "u-ada", Name: "Ada Lovelace"},
			{ID: "u-grace", Name: "Grace Hopper"},
		},
	}
	s.AddConversation(direct)
	s.AddMessage(types.Message{ConversationID: direct.ID, SenderID: "u-grace", Content: "Assignment 3 is posted.", Timestamp: now.Add(-40 * time.Minute)})
	s.AddMessage(types.Message{ConversationID: direct.ID, SenderID: "u-grace", Content: "Due Friday.", Timestamp: now.Add(-39 * time.Minute)})
	s.AddMessage(types.Message{ConversationID: direct.ID, SenderID: "u-ada", Content: "Thanks! Is recursion allowed?", Timestamp: now.Add(-10 * time.Minute)})

	members := []string{"u-ada", "u-alan", "u-edsger"}
	name := "Algorithms study group"
	group := types.Conversation{
		ID:        core.GroupConversationID(members),
		Type:      types.ConversationGroup,
		GroupName: &name,
		Participants: []types.Participant{
			{ID: "u-ada", Name: "Ada Lovelace"},
			{ID: "u-alan", Name: "Alan Turing"},
			{ID: "u-edsger", Name: "Edsger Dijkstra"},
		},
	}
	s.AddConversation(group)
	s.AddMessage(types.Message{ConversationID: group.ID, SenderID: "u-alan", Content: "Shortest paths tonight?", Timestamp: now.Add(-3 * time.Hour)})
	s.AddMessage(types.Message{ConversationID: group.ID, SenderID: "u-edsger", Content: "```go\nfunc relax(u, v int) {}\n```", Timestamp: now.Add(-2 * time.Hour)})
	return s, "token-ada"
}
