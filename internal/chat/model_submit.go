package chat

import (
	"strings"

	"github.com/adamavenir/agora/internal/action"
	"github.com/adamavenir/agora/internal/types"
	tea "github.com/charmbracelet/bubbletea"
)

func opLabel(kind action.Kind) string {
	switch kind {
	case action.KindSend:
		return "Send"
	case action.KindEdit:
		return "Edit"
	case action.KindDelete:
		return "Delete"
	case action.KindReact:
		return "Reaction"
	case action.KindPin:
		return "Pin"
	case action.KindMute:
		return "Mute"
	case action.KindStart:
		return "New conversation"
	case action.KindFollow:
		return "Follow"
	case action.KindUnfollow:
		return "Unfollow"
	default:
		return string(kind)
	}
}

func (m *Model) submit() tea.Cmd {
	value := strings.TrimSpace(m.input.Value())
	mode, target := m.mode, m.targetID

	switch mode {
	case modeFilter:
		m.filter = value
		m.mode = modeCompose
		m.input.Reset()
		m.setFocus(focusList)
		m.clampListIndex()
		return nil
	case modeSearch:
		m.resetMode()
		m.peopleTab = tabSearch
		m.peopleIndex = 0
		m.setFocus(focusList)
		return m.loadPeople(tabSearch, value)
	case modeGroupName:
		target, err := m.messenger.Directory().StartTarget()
		if err != nil {
			m.resetMode()
			m.setFocus(focusList)
			m.status = err.Error()
			return nil
		}
		return m.beginStart(target.ParticipantIDs, value)
	}
	if value == "" {
		if mode != modeCompose {
			m.resetMode()
		}
		return nil
	}

	var (
		op  *action.Op
		err error
	)
	switch mode {
	case modeStart:
		return m.beginStart(parseStartInput(value))
	case modeReply:
		op, err = m.messenger.BeginReply(target, value)
	case modeEdit:
		op, err = m.messenger.BeginEdit(target, value)
	case modeReact:
		op, err = m.messenger.BeginReact(target, value)
	default:
		op, err = m.messenger.BeginSend(value)
	}
	if err != nil {
		m.status = err.Error()
		return nil
	}

	m.resetMode()
	if mode == modeCompose || mode == modeReply {
		m.selected = -1
	}
	m.refreshViewport(m.selected < 0)
	return m.runOp(opLabel(op.Kind), op)
}

// parseStartInput reads "u-1 u-2 | Group name".
func parseStartInput(value string) ([]string, string) {
	ids, name, _ := strings.Cut(value, "|")
	fields := strings.FieldsFunc(ids, func(r rune) bool { return r == ' ' || r == ',' })
	return fields, strings.TrimSpace(name)
}

func (m *Model) enterMode(mode inputMode, prefill string) {
	m.mode = mode
	m.input.Reset()
	if prefill != "" {
		m.input.SetValue(prefill)
	}
	m.input.Placeholder = placeholderFor(mode)
	m.setFocus(focusInput)
	m.resize()
}

func (m *Model) resetMode() {
	m.mode = modeCompose
	m.targetID = ""
	m.input.Reset()
	m.input.Placeholder = placeholderFor(modeCompose)
	m.resize()
}

func placeholderFor(mode inputMode) string {
	switch mode {
	case modeReply:
		return "Reply…"
	case modeEdit:
		return "Edit message…"
	case modeReact:
		return "Emoji, e.g. 👍"
	case modeStart:
		return "user ids, then | group name (optional)"
	case modeFilter:
		return "Filter conversations (glob or text)"
	case modeSearch:
		return "Search people by name"
	case modeGroupName:
		return "Group name (optional)"
	default:
		return "Message…"
	}
}

func (m *Model) selectedMessage() (types.Message, bool) {
	messages := m.messenger.Messages()
	if m.selected < 0 || m.selected >= len(messages) {
		return types.Message{}, false
	}
	return messages[m.selected], true
}

func (m *Model) clampSelection() {
	if n := len(m.messenger.Messages()); m.selected >= n {
		m.selected = n - 1
	}
}
