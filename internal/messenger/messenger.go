// Package messenger wires the directory, conversation store, thread and action
// ledger into the surface the CLI and TUI bind to: an ordered conversation
// list, a per-message display plan, and imperative actions.
//
// Actions come in two shapes. Blocking methods (Send, Edit, ...) run the whole
// mutation and suit the CLI. Begin methods apply the optimistic change and
// return an *action.Op whose Do runs off the UI goroutine; its result goes
// back through Settle on the UI goroutine.
package messenger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/adamavenir/agora/internal/action"
	"github.com/adamavenir/agora/internal/api"
	"github.com/adamavenir/agora/internal/conversations"
	"github.com/adamavenir/agora/internal/directory"
	"github.com/adamavenir/agora/internal/logging"
	"github.com/adamavenir/agora/internal/thread"
	"github.com/adamavenir/agora/internal/types"
	"go.uber.org/zap"
)

var (
	ErrNoActiveConversation = errors.New("no conversation is open")
	ErrEmptyMessage         = errors.New("message is empty")
	ErrUnconfirmed          = errors.New("message is still sending")
	ErrInvalidReaction      = errors.New("invalid reaction")
	ErrUnknownConversation  = errors.New("conversation not found")
	ErrAmbiguous            = errors.New("conversation reference is ambiguous")
)

const listScope = "conversations"

func threadScope(conversationID string) string {
	return "thread:" + conversationID
}

// Identity is the signed-in user as reported by the session.
type Identity interface {
	UserID() string
	Name() string
}

// Backend is the slice of the API client the messenger uses.
type Backend interface {
	directory.API
	Conversations(ctx context.Context) ([]types.Conversation, error)
	CreateConversation(ctx context.Context, req api.CreateConversationRequest) (types.Conversation, error)
	UpdateConversation(ctx context.Context, conversationID string, patch api.ConversationPatch) (types.Conversation, error)
	MarkRead(ctx context.Context, conversationID string) error
	Messages(ctx context.Context, conversationID string) ([]types.Message, error)
	SendMessage(ctx context.Context, conversationID string, req api.SendMessageRequest) (types.Message, error)
	EditMessage(ctx context.Context, messageID, content string) (types.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	SetReaction(ctx context.Context, messageID, emoji string, member bool) (types.Message, error)
}

// Options tune a Messenger.
type Options struct {
	MutationTimeout time.Duration
	Logger          *zap.Logger
	Now             func() time.Time
}

// Messenger is the messaging core for one signed-in user.
type Messenger struct {
	identity  Identity
	client    Backend
	store     *conversations.Store
	thread    *thread.Thread
	directory *directory.Directory
	ledger    *action.Ledger
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	listState types.LoadState
	listErr   error
}

// New builds the messaging core.
func New(identity Identity, client Backend, opts Options) *Messenger {
	logger := logging.OrNop(opts.Logger)
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	ledger := action.NewLedger(opts.MutationTimeout, logger.Named("action"))
	self := identity.UserID()
	return &Messenger{
		identity:  identity,
		client:    client,
		store:     conversations.NewStore(self),
		thread:    thread.New(self),
		directory: directory.New(client, self, ledger, logger.Named("directory")),
		ledger:    ledger,
		logger:    logger,
		now:       now,
	}
}

// Self returns the current user id.
func (m *Messenger) Self() string { return m.identity.UserID() }

// Directory exposes the contact directory.
func (m *Messenger) Directory() *directory.Directory { return m.directory }

// Ledger exposes the mutation ledger.
func (m *Messenger) Ledger() *action.Ledger { return m.ledger }

// Settle finishes a mutation started by a Begin method.
func (m *Messenger) Settle(res action.Result) (action.Outcome, error) {
	outcome := m.ledger.Settle(res)
	if outcome == action.Superseded {
		return outcome, nil
	}
	return outcome, res.Err
}

func (m *Messenger) run(ctx context.Context, op *action.Op) error {
	_, err := m.Settle(op.Do(ctx))
	return err
}

// Conversations returns the list in display order.
func (m *Messenger) Conversations() []types.Conversation {
	return m.store.Ordered()
}

// ConversationsByPriority returns the list in badge order.
func (m *Messenger) ConversationsByPriority() []types.Conversation {
	return m.store.ByPriority()
}

// FilterConversations returns conversations whose name matches pattern.
func (m *Messenger) FilterConversations(pattern string) ([]types.Conversation, error) {
	return m.store.Filter(pattern)
}

// UnreadTotal is the badge count across unmuted conversations.
func (m *Messenger) UnreadTotal() uint {
	return m.store.UnreadTotal()
}

// ListState reports the state of the conversation list load.
func (m *Messenger) ListState() (types.LoadState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listState, m.listErr
}

// Conversation returns one conversation.
func (m *Messenger) Conversation(id string) (types.Conversation, bool) {
	return m.store.Get(id)
}

// Active returns the open conversation.
func (m *Messenger) Active() (types.Conversation, bool) {
	id := m.store.ActiveID()
	if id == "" {
		return types.Conversation{}, false
	}
	return m.store.Get(id)
}

// Messages returns the open thread.
func (m *Messenger) Messages() []types.Message {
	return m.thread.Messages()
}

// Plan returns the display plan of the open thread.
func (m *Messenger) Plan() []thread.Entry {
	conv, ok := m.Active()
	if !ok {
		return nil
	}
	return thread.BuildPlan(conv, m.thread.Messages(), m.Self())
}

// Resolve finds a conversation by exact id, unique id prefix, or unique
// display-name match.
func (m *Messenger) Resolve(ref string) (types.Conversation, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return types.Conversation{}, ErrUnknownConversation
	}
	if conv, ok := m.store.Get(ref); ok {
		return conv, nil
	}
	var matches []types.Conversation
	for _, conv := range m.store.Ordered() {
		if strings.HasPrefix(conv.ID, ref) {
			matches = append(matches, conv)
		}
	}
	if len(matches) == 0 {
		byName, err := m.store.Filter(ref)
		if err != nil {
			return types.Conversation{}, err
		}
		matches = byName
	}
	switch len(matches) {
	case 0:
		return types.Conversation{}, fmt.Errorf("%w: %s", ErrUnknownConversation, ref)
	case 1:
		return matches[0], nil
	default:
		return types.Conversation{}, fmt.Errorf("%w: %s matches %d conversations", ErrAmbiguous, ref, len(matches))
	}
}

// FetchConversations reads the server list without touching local state.
func (m *Messenger) FetchConversations(ctx context.Context) ([]types.Conversation, error) {
	m.mu.Lock()
	m.listState = types.LoadLoading
	m.mu.Unlock()
	return m.client.Conversations(ctx)
}

// ApplyConversations installs a fetched list and supersedes every pending
// list mutation. A failed read degrades to an empty list in LoadFailed state,
// so the caller can tell it apart from a list that loaded empty.
func (m *Messenger) ApplyConversations(list []types.Conversation, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.logger.Warn("conversation list load failed", zap.Error(err))
		list = nil
	}
	if n := m.ledger.Supersede(listScope); n > 0 {
		m.logger.Debug("refresh superseded pending mutations", zap.Int("count", n))
	}
	active := m.store.ActiveID()
	m.store.Replace(list)
	if active != "" {
		if _, ok := m.store.Get(active); !ok {
			m.store.Close()
			m.thread.Reset()
		}
	}
	if err != nil {
		m.listState, m.listErr = types.LoadFailed, err
		return
	}
	m.listState, m.listErr = types.LoadLoaded, nil
}

// RefreshConversations fetches and installs the server list.
func (m *Messenger) RefreshConversations(ctx context.Context) error {
	list, err := m.FetchConversations(ctx)
	m.ApplyConversations(list, err)
	return err
}

// Select makes id the open conversation locally: unread drops to zero at once
// and the thread is cleared until its history arrives.
func (m *Messenger) Select(id string) error {
	if _, ok := m.store.Open(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	if m.thread.ConversationID() != id {
		m.thread.Load(id, nil)
	}
	return nil
}

// MarkRead tells the server the conversation was read. Failure is logged and
// left for the next refresh to reconcile.
func (m *Messenger) MarkRead(ctx context.Context, id string) {
	if err := m.client.MarkRead(ctx, id); err != nil {
		m.logger.Warn("mark read failed", zap.String("conversation", id), zap.Error(err))
	}
}

// FetchThread reads a conversation history without touching local state.
func (m *Messenger) FetchThread(ctx context.Context, id string) ([]types.Message, error) {
	return m.client.Messages(ctx, id)
}

// ApplyThread installs a fetched history if id is still the open
// conversation. A failed read degrades to an empty thread.
func (m *Messenger) ApplyThread(id string, messages []types.Message, err error) bool {
	if !m.store.IsActive(id) {
		return false
	}
	if err != nil {
		m.logger.Warn("thread load failed", zap.String("conversation", id), zap.Error(err))
		messages = nil
	}
	m.ledger.Supersede(threadScope(id))
	m.thread.Load(id, messages)
	if err == nil && len(messages) > 0 {
		last := messages[len(messages)-1]
		m.store.SetLastMessage(id, types.LastMessage{Content: last.Content, Timestamp: last.Timestamp, SenderID: last.SenderID})
	}
	return true
}

// LoadThread fetches and installs a conversation history.
func (m *Messenger) LoadThread(ctx context.Context, id string) error {
	messages, err := m.FetchThread(ctx, id)
	m.ApplyThread(id, messages, err)
	return err
}

// Open selects a conversation, marks it read and loads its history.
func (m *Messenger) Open(ctx context.Context, id string) error {
	if err := m.Select(id); err != nil {
		return err
	}
	m.MarkRead(ctx, id)
	return m.LoadThread(ctx, id)
}

// Observe folds a message pushed from outside a fetch into local state.
func (m *Messenger) Observe(msg types.Message) {
	m.store.ObserveMessage(msg)
	if m.store.IsActive(msg.ConversationID) && msg.SenderID != m.Self() {
		m.thread.Append(msg)
	}
}

// CatchUp fetches the open thread and merges it with MergeThread.
func (m *Messenger) CatchUp(ctx context.Context) ([]types.Message, error) {
	id := m.store.ActiveID()
	if id == "" {
		return nil, ErrNoActiveConversation
	}
	messages, err := m.client.Messages(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.MergeThread(id, messages), nil
}

// MergeThread folds every fetched message the open thread does not hold yet
// through Observe and returns those messages oldest first. Unlike ApplyThread
// it never drops local messages, so pending mutations survive it.
func (m *Messenger) MergeThread(id string, messages []types.Message) []types.Message {
	if !m.store.IsActive(id) {
		return nil
	}
	var fresh []types.Message
	for _, msg := range messages {
		if _, ok := m.thread.Find(msg.ID); ok {
			continue
		}
		m.Observe(msg)
		if msg.SenderID == m.Self() {
			// Sent from another session. A local send confirming with the
			// same id later collapses onto this copy.
			m.thread.Append(msg)
		}
		fresh = append(fresh, msg)
	}
	return fresh
}

// BeginFollow flips the follow flag for userID in the directory and returns
// the pending request.
func (m *Messenger) BeginFollow(userID string, on bool) *action.Op {
	return m.directory.BeginFollow(userID, on)
}

// Follow follows a user through the directory.
func (m *Messenger) Follow(ctx context.Context, userID string) error {
	return m.directory.Follow(ctx, userID)
}

// Unfollow unfollows a user through the directory.
func (m *Messenger) Unfollow(ctx context.Context, userID string) error {
	return m.directory.Unfollow(ctx, userID)
}
