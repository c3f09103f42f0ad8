package chat

import (
	"time"

	"github.com/adamavenir/agora/internal/action"
	"github.com/adamavenir/agora/internal/directory"
	"github.com/adamavenir/agora/internal/types"
	tea "github.com/charmbracelet/bubbletea"
)

type conversationsMsg struct {
	list []types.Conversation
	err  error
}

type threadMsg struct {
	id       string
	messages []types.Message
	err      error
	// merge folds in new messages only, leaving pending local changes alone.
	merge bool
}

type peopleMsg struct {
	tab  peopleTab
	view directory.View
}

type opResultMsg struct {
	label string
	res   action.Result
}

type tickMsg time.Time

// Requests run off the update loop; their results come back as messages and
// are applied in Update, so local state only changes on one goroutine.

func (m *Model) fetchConversations() tea.Cmd {
	ctx, msgr := m.ctx, m.messenger
	return func() tea.Msg {
		list, err := msgr.FetchConversations(ctx)
		return conversationsMsg{list: list, err: err}
	}
}

func (m *Model) fetchThread(id string, markRead bool) tea.Cmd {
	ctx, msgr := m.ctx, m.messenger
	return func() tea.Msg {
		if markRead {
			msgr.MarkRead(ctx, id)
		}
		messages, err := msgr.FetchThread(ctx, id)
		return threadMsg{id: id, messages: messages, err: err}
	}
}

// mergeThread polls the open thread while local mutations are in flight.
func (m *Model) mergeThread(id string) tea.Cmd {
	ctx, msgr := m.ctx, m.messenger
	return func() tea.Msg {
		messages, err := msgr.FetchThread(ctx, id)
		return threadMsg{id: id, messages: messages, err: err, merge: true}
	}
}

func (m *Model) loadPeople(tab peopleTab, query string) tea.Cmd {
	ctx, dir := m.ctx, m.messenger.Directory()
	return func() tea.Msg {
		switch tab {
		case tabFollowing:
			return peopleMsg{tab: tab, view: dir.LoadFollowing(ctx)}
		case tabSearch:
			return peopleMsg{tab: tab, view: dir.Search(ctx, query)}
		default:
			return peopleMsg{tab: tab, view: dir.LoadContacts(ctx)}
		}
	}
}

func (m *Model) runOp(label string, op *action.Op) tea.Cmd {
	if op == nil {
		return nil
	}
	m.pending++
	ctx := m.ctx
	return func() tea.Msg {
		return opResultMsg{label: label, res: op.Do(ctx)}
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
