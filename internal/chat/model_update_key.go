package chat

import (
	"strings"

	"github.com/adamavenir/agora/internal/action"
	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.focus == focusInput && (m.input.Value() != "" || m.mode != modeCompose) {
			m.resetMode()
			return m, nil
		}
		return m, tea.Quit
	case tea.KeyCtrlR:
		return m, m.handleRefresh()
	case tea.KeyTab:
		m.cycleFocus()
		return m, nil
	case tea.KeyEsc:
		if m.mode != modeCompose || m.input.Value() != "" {
			m.resetMode()
			if m.people {
				m.setFocus(focusList)
			}
			return m, nil
		}
		if m.focus == focusList && m.people {
			m.closePeople()
			return m, nil
		}
		m.setFocus(focusList)
		return m, nil
	}

	switch m.focus {
	case focusList:
		if m.people {
			return m.handlePeopleKey(msg)
		}
		return m.handleListKey(msg)
	case focusThread:
		return m.handleThreadKey(msg)
	default:
		return m.handleInputKey(msg)
	}
}

func (m *Model) handleRefresh() tea.Cmd {
	cmds := []tea.Cmd{m.fetchConversations()}
	if conv, ok := m.messenger.Active(); ok {
		cmds = append(cmds, m.fetchThread(conv.ID, false))
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	list := m.listConversations()
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.listIndex > 0 {
			m.listIndex--
		}
	case "down", "j":
		if m.listIndex < len(list)-1 {
			m.listIndex++
		}
	case "enter", "right", "l":
		if m.listIndex < len(list) {
			cmd := m.openConversation(list[m.listIndex].ID)
			m.setFocus(focusInput)
			return m, cmd
		}
	case "p":
		if m.listIndex < len(list) {
			conv := list[m.listIndex]
			op, err := m.messenger.BeginPin(conv.ID, !conv.IsPinned)
			if err != nil {
				m.status = err.Error()
				return m, nil
			}
			m.syncListIndex(conv.ID)
			return m, m.runOp(opLabel(action.KindPin), op)
		}
	case "m":
		if m.listIndex < len(list) {
			conv := list[m.listIndex]
			op, err := m.messenger.BeginMute(conv.ID, !conv.IsMuted)
			if err != nil {
				m.status = err.Error()
				return m, nil
			}
			return m, m.runOp(opLabel(action.KindMute), op)
		}
	case "n":
		m.enterMode(modeStart, "")
	case "u":
		return m, m.openPeople()
	case "/":
		m.enterMode(modeFilter, m.filter)
	}
	return m, nil
}

func (m *Model) handleThreadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	messages := m.messenger.Messages()
	switch msg.String() {
	case "up", "k":
		if m.selected < 0 {
			m.selected = len(messages)
		}
		if m.selected > 0 {
			m.selected--
		}
		m.refreshViewport(false)
	case "down", "j":
		if m.selected >= 0 && m.selected < len(messages)-1 {
			m.selected++
		} else {
			m.selected = -1
		}
		m.refreshViewport(m.selected < 0)
	case "pgup":
		m.viewport.SetYOffset(m.viewport.YOffset - m.viewport.Height/2)
	case "pgdown":
		m.viewport.SetYOffset(m.viewport.YOffset + m.viewport.Height/2)
	case "left", "h":
		m.setFocus(focusList)
	case "i":
		m.setFocus(focusInput)
	case "r":
		if target, ok := m.selectedMessage(); ok {
			m.targetID = target.ID
			m.enterMode(modeReply, "")
		}
	case "e":
		if target, ok := m.selectedMessage(); ok {
			if target.SenderID != m.messenger.Self() {
				m.status = "You can only edit your own messages"
				return m, nil
			}
			m.targetID = target.ID
			m.enterMode(modeEdit, target.Content)
		}
	case "+":
		if target, ok := m.selectedMessage(); ok {
			m.targetID = target.ID
			m.enterMode(modeReact, "")
		}
	case "d":
		if target, ok := m.selectedMessage(); ok {
			op, err := m.messenger.BeginDelete(target.ID)
			if err != nil {
				m.status = err.Error()
				return m, nil
			}
			m.clampSelection()
			m.refreshViewport(false)
			return m, m.runOp(opLabel(action.KindDelete), op)
		}
	case "y":
		if target, ok := m.selectedMessage(); ok {
			if err := copyToClipboard(target.Content); err != nil {
				m.status = "Copy failed: " + err.Error()
			} else {
				m.status = "Copied message"
			}
		}
	}
	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter && !msg.Alt {
		return m, m.submit()
	}
	if msg.Type == tea.KeyEnter && msg.Alt {
		m.input.InsertString("\n")
		m.resize()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeFilter {
		m.filter = strings.TrimSpace(m.input.Value())
		m.clampListIndex()
	}
	m.resize()
	return m, cmd
}

func (m *Model) cycleFocus() {
	switch m.focus {
	case focusList:
		m.setFocus(focusThread)
	case focusThread:
		m.setFocus(focusInput)
	default:
		m.setFocus(focusList)
	}
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	if f != focusThread && m.selected >= 0 && m.mode == modeCompose {
		m.selected = -1
		m.refreshViewport(false)
	}
}
