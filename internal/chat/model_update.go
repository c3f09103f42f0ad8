package chat

import (
	"fmt"

	"github.com/adamavenir/agora/internal/action"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	case peopleMsg:
		return m.handlePeopleMsg(msg)
	case conversationsMsg:
		return m.handleConversationsMsg(msg)
	case threadMsg:
		return m.handleThreadMsg(msg)
	case opResultMsg:
		return m.handleOpResultMsg(msg)
	case tickMsg:
		return m.handleTickMsg()
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) handleConversationsMsg(msg conversationsMsg) (tea.Model, tea.Cmd) {
	m.messenger.ApplyConversations(msg.list, msg.err)
	m.clampListIndex()
	if msg.err != nil {
		m.status = fmt.Sprintf("Could not refresh conversations: %v", msg.err)
		m.selected = -1
		m.refreshViewport(false)
		return m, nil
	}
	if m.openRef != "" {
		ref := m.openRef
		m.openRef = ""
		conv, err := m.messenger.Resolve(ref)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		return m, m.openConversation(conv.ID)
	}
	if _, ok := m.messenger.Active(); !ok && m.selected >= 0 {
		m.selected = -1
		m.refreshViewport(false)
	}
	return m, nil
}

func (m *Model) handleThreadMsg(msg threadMsg) (tea.Model, tea.Cmd) {
	if msg.merge {
		if msg.err != nil {
			m.logger.Debug("thread poll failed", zap.String("conversation", msg.id), zap.Error(msg.err))
			return m, nil
		}
		if fresh := m.messenger.MergeThread(msg.id, msg.messages); len(fresh) > 0 {
			m.refreshViewport(m.selected < 0)
		}
		return m, nil
	}
	if !m.messenger.ApplyThread(msg.id, msg.messages, msg.err) {
		return m, nil
	}
	if msg.err != nil {
		m.status = fmt.Sprintf("Could not load messages: %v", msg.err)
	}
	m.clampSelection()
	m.refreshViewport(m.selected < 0)
	return m, nil
}

func (m *Model) handleOpResultMsg(msg opResultMsg) (tea.Model, tea.Cmd) {
	if m.pending > 0 {
		m.pending--
	}
	outcome, err := m.messenger.Settle(msg.res)
	switch outcome {
	case action.Confirmed:
		if m.status != "" && m.pending == 0 {
			m.status = ""
		}
	case action.TimedOut:
		m.status = fmt.Sprintf("%s timed out; change undone", msg.label)
	case action.Rejected:
		m.status = fmt.Sprintf("%s failed: %v", msg.label, err)
	case action.Superseded:
		m.logger.Debug("result arrived after refresh", zap.String("op", msg.label))
	}
	m.clampListIndex()
	m.clampSelection()
	m.refreshViewport(m.selected < 0)

	if outcome != action.Confirmed {
		return m, nil
	}
	switch msg.res.Op.Kind {
	case action.KindStart:
		if conv, ok := m.messenger.Active(); ok {
			return m, m.fetchThread(conv.ID, false)
		}
	case action.KindFollow, action.KindUnfollow:
		return m, m.loadPeople(tabFollowing, "")
	}
	return m, nil
}

func (m *Model) handleTickMsg() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.fetchConversations(), m.tick()}
	if conv, ok := m.messenger.Active(); ok {
		if m.pending == 0 {
			cmds = append(cmds, m.fetchThread(conv.ID, false))
		} else {
			cmds = append(cmds, m.mergeThread(conv.ID))
		}
	}
	return m, tea.Batch(cmds...)
}

// openConversation selects id locally and loads its history.
func (m *Model) openConversation(id string) tea.Cmd {
	if err := m.messenger.Select(id); err != nil {
		m.status = err.Error()
		return nil
	}
	m.selected = -1
	m.resetMode()
	m.syncListIndex(id)
	m.refreshViewport(true)
	return m.fetchThread(id, true)
}
