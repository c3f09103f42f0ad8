package fakeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/types"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type ctxKey struct{}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.countRequests, s.injectFailures, s.authenticate)

	api.HandleFunc("/contacts", s.handleContacts).Methods(http.MethodGet).Name("contacts")
	api.HandleFunc("/users/following", s.handleFollowing).Methods(http.MethodGet).Name("following")
	api.HandleFunc("/users/search", s.handleSearch).Methods(http.MethodGet).Name("search")
	api.HandleFunc("/users/{id}/follow", s.handleFollow(true)).Methods(http.MethodPost).Name("follow")
	api.HandleFunc("/users/{id}/follow", s.handleFollow(false)).Methods(http.MethodDelete).Name("unfollow")

	api.HandleFunc("/conversations", s.handleConversations).Methods(http.MethodGet).Name("conversations")
	api.HandleFunc("/conversations", s.handleCreateConversation).Methods(http.MethodPost).Name("createConversation")
	api.HandleFunc("/conversations/{id}", s.handleUpdateConversation).Methods(http.MethodPatch).Name("updateConversation")
	api.HandleFunc("/conversations/{id}/read", s.handleMarkRead).Methods(http.MethodPost).Name("markRead")
	api.HandleFunc("/conversations/{id}/messages", s.handleMessages).Methods(http.MethodGet).Name("messages")
	api.HandleFunc("/conversations/{id}/messages", s.handleSendMessage).Methods(http.MethodPost).Name("sendMessage")

	api.HandleFunc("/messages/{id}", s.handleEditMessage).Methods(http.MethodPatch).Name("editMessage")
	api.HandleFunc("/messages/{id}", s.handleDeleteMessage).Methods(http.MethodDelete).Name("deleteMessage")
	api.HandleFunc("/messages/{id}/reactions/{emoji}", s.handleReaction(true)).Methods(http.MethodPut).Name("addReaction")
	api.HandleFunc("/messages/{id}/reactions/{emoji}", s.handleReaction(false)).Methods(http.MethodDelete).Name("removeReaction")
	return r
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		return route.GetName()
	}
	return ""
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[routeName(r)]++
		s.mu.Unlock()
		s.logger.Debug("fakeapi request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f := s.failures[routeName(r)]
		status := 0
		if f != nil && f.count > 0 {
			f.count--
			status = f.status
		}
		s.mu.Unlock()
		if status != 0 {
			writeError(w, status, "injected_failure", "forced failure for "+routeName(r))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		userID, ok := s.tokens[bearerToken(r)]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or unknown bearer token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
	})
}

func currentUser(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := map[string]struct{}{}
	for _, state := range s.conversations {
		if !isParticipant(state.conv, me) {
			continue
		}
		for _, p := range state.conv.Participants {
			if p.ID != me {
				ids[p.ID] = struct{}{}
			}
		}
	}
	out := []types.Contact{}
	for _, u := range s.usersSorted(ids) {
		out = append(out, s.contactLocked(me, u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := map[string]struct{}{}
	for id := range s.follows[me] {
		ids[id] = struct{}{}
	}
	// Plain user records: the client tags following state itself.
	writeJSON(w, http.StatusOK, s.usersSorted(ids))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := map[string]struct{}{}
	for id, u := range s.users {
		if query == "" || strings.Contains(strings.ToLower(u.Name), query) || strings.Contains(strings.ToLower(id), query) {
			ids[id] = struct{}{}
		}
	}
	out := []types.Contact{}
	for _, u := range s.usersSorted(ids) {
		out = append(out, s.contactLocked(me, u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFollow(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me := currentUser(r)
		target := mux.Vars(r)["id"]
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.users[target]; !ok || target == me {
			writeError(w, http.StatusNotFound, "not_found", "unknown user")
			return
		}
		s.setFollowLocked(me, target, on)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []types.Conversation{}
	for _, state := range s.conversations {
		if isParticipant(state.conv, me) {
			out = append(out, s.viewLocked(state, me))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

type createConversationBody struct {
	ID             string                 `json:"id"`
	Type           types.ConversationType `json:"type"`
	ParticipantIDs []string               `json:"participantIds"`
	GroupName      *string                `json:"groupName"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	var body createConversationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	members := core.CanonicalMembers(append(body.ParticipantIDs, me))

	s.mu.Lock()
	defer s.mu.Unlock()
	if body.ID == "" {
		if body.Type == types.ConversationDirect && len(members) == 2 {
			body.ID = core.DirectConversationID(members[0], members[1])
		} else {
			body.ID = core.GroupConversationID(members)
		}
	}
	if state, ok := s.conversations[body.ID]; ok {
		if !isParticipant(state.conv, me) {
			writeError(w, http.StatusForbidden, "forbidden", "not a participant")
			return
		}
		writeJSON(w, http.StatusOK, s.viewLocked(state, me))
		return
	}
	if body.Type == types.ConversationDirect && len(members) != 2 {
		writeError(w, http.StatusBadRequest, "bad_request", "direct conversations need exactly two participants")
		return
	}
	conv := types.Conversation{ID: body.ID, Type: body.Type, GroupName: body.GroupName}
	for _, id := range members {
		u, ok := s.users[id]
		if !ok {
			writeError(w, http.StatusBadRequest, "bad_request", "unknown participant "+id)
			return
		}
		conv.Participants = append(conv.Participants, types.Participant{ID: u.ID, Name: u.Name, AvatarRef: u.AvatarRef, Online: u.Online})
	}
	state := &conversationState{conv: conv, pinned: map[string]bool{}, muted: map[string]bool{}, unread: map[string]uint{}}
	s.conversations[conv.ID] = state
	writeJSON(w, http.StatusCreated, s.viewLocked(state, me))
}

type patchConversationBody struct {
	IsPinned *bool `json:"isPinned"`
	IsMuted  *bool `json:"isMuted"`
}

func (s *Server) conversationFor(w http.ResponseWriter, r *http.Request) (*conversationState, string, bool) {
	me := currentUser(r)
	state, ok := s.conversations[mux.Vars(r)["id"]]
	if !ok || !isParticipant(state.conv, me) {
		writeError(w, http.StatusNotFound, "not_found", "unknown conversation")
		return nil, me, false
	}
	return state, me, true
}

func (s *Server) handleUpdateConversation(w http.ResponseWriter, r *http.Request) {
	var body patchConversationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, me, ok := s.conversationFor(w, r)
	if !ok {
		return
	}
	if body.IsPinned != nil {
		state.pinned[me] = *body.IsPinned
	}
	if body.IsMuted != nil {
		state.muted[me] = *body.IsMuted
	}
	writeJSON(w, http.StatusOK, s.viewLocked(state, me))
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, me, ok := s.conversationFor(w, r)
	if !ok {
		return
	}
	state.unread[me] = 0
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, _, ok := s.conversationFor(w, r)
	if !ok {
		return
	}
	out := make([]types.Message, len(state.messages))
	for i, m := range state.messages {
		out[i] = m.Clone()
	}
	writeJSON(w, http.StatusOK, out)
}

type sendMessageBody struct {
	ClientID string            `json:"clientId"`
	Content  string            `json:"content"`
	Type     types.MessageType `json:"type"`
	ReplyTo  *types.ReplyTo    `json:"replyTo"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var body sendMessageBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if strings.TrimSpace(body.Content) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "content is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, me, ok := s.conversationFor(w, r)
	if !ok {
		return
	}
	if existing, ok := s.clientMessageLocked(state, me, body.ClientID); ok {
		writeJSON(w, http.StatusOK, existing)
		return
	}
	if body.Type == "" {
		body.Type = types.MessageTypeText
	}
	msg := types.Message{
		ID:             s.nextIDLocked("msg"),
		ConversationID: state.conv.ID,
		SenderID:       me,
		Content:        body.Content,
		Timestamp:      s.now(),
		Type:           body.Type,
		ReplyTo:        body.ReplyTo,
		Reactions:      types.Reactions{},
	}
	s.appendLocked(state, msg)
	if body.ClientID != "" {
		s.clientIDs[me+"/"+body.ClientID] = msg.ID
	}
	writeJSON(w, http.StatusCreated, msg)
}

// clientMessageLocked finds a message already created for a retried send.
func (s *Server) clientMessageLocked(state *conversationState, sender, clientID string) (types.Message, bool) {
	if clientID == "" {
		return types.Message{}, false
	}
	id, ok := s.clientIDs[sender+"/"+clientID]
	if !ok {
		return types.Message{}, false
	}
	for _, m := range state.messages {
		if m.ID == id {
			return m.Clone(), true
		}
	}
	return types.Message{}, false
}

func (s *Server) messageFor(w http.ResponseWriter, r *http.Request) (*conversationState, int, string, bool) {
	me := currentUser(r)
	id := mux.Vars(r)["id"]
	state, ok := s.conversations[s.messageIndex[id]]
	if !ok || !isParticipant(state.conv, me) {
		writeError(w, http.StatusNotFound, "not_found", "unknown message")
		return nil, -1, me, false
	}
	for i, m := range state.messages {
		if m.ID == id {
			return state, i, me, true
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "unknown message")
	return nil, -1, me, false
}

func (s *Server) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, idx, me, ok := s.messageFor(w, r)
	if !ok {
		return
	}
	if state.messages[idx].SenderID != me {
		writeError(w, http.StatusForbidden, "forbidden", "only the sender can edit")
		return
	}
	state.messages[idx].Content = body.Content
	state.messages[idx].Edited = true
	s.refreshLastMessageLocked(state)
	writeJSON(w, http.StatusOK, state.messages[idx].Clone())
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, idx, me, ok := s.messageFor(w, r)
	if !ok {
		return
	}
	if state.messages[idx].SenderID != me {
		writeError(w, http.StatusForbidden, "forbidden", "only the sender can delete")
		return
	}
	delete(s.messageIndex, state.messages[idx].ID)
	state.messages = append(state.messages[:idx], state.messages[idx+1:]...)
	s.refreshLastMessageLocked(state)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReaction(member bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		emoji, ok := core.NormalizeReaction(mux.Vars(r)["emoji"])
		if !ok {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid emoji")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		state, idx, me, found := s.messageFor(w, r)
		if !found {
			return
		}
		state.messages[idx].Reactions = core.SetReaction(state.messages[idx].Reactions, emoji, me, member)
		writeJSON(w, http.StatusOK, state.messages[idx].Clone())
	}
}
