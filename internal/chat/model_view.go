package chat

import (
	"fmt"
	"strings"

	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading…"
	}
	main := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderModeLine(),
		m.input.View(),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), " ", main)
	return m.zoneManager.Scan(lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusLine()))
}

func (m *Model) renderHeader() string {
	conv, ok := m.messenger.Active()
	if !ok {
		return titleStyle.Render("agora")
	}
	header := titleStyle.Render(core.DisplayName(conv, m.messenger.Self()))
	if detail := participantSummary(conv, m.messenger.Self()); detail != "" {
		header += statusStyle.Render("  " + detail)
	}
	return ansi.Truncate(header, m.mainWidth(), "…")
}

func participantSummary(conv types.Conversation, self string) string {
	if conv.Type == types.ConversationDirect {
		if other, ok := core.OtherParticipant(conv, self); ok && other.Online {
			return "online"
		}
		return ""
	}
	online := 0
	for _, p := range conv.Participants {
		if p.Online {
			online++
		}
	}
	return fmt.Sprintf("%d members, %d online", len(conv.Participants), online)
}

// renderModeLine names what the input will do when it is not plain compose.
func (m *Model) renderModeLine() string {
	var label string
	switch m.mode {
	case modeReply:
		label = "replying to " + m.targetPreview()
	case modeEdit:
		label = "editing message"
	case modeReact:
		label = "reacting to " + m.targetPreview()
	case modeStart:
		label = "new conversation"
	case modeFilter:
		label = "filter"
	case modeSearch:
		label = "search people"
	case modeGroupName:
		label = fmt.Sprintf("name the group of %d", len(m.messenger.Directory().Selected())+1)
	default:
		return ""
	}
	return modeStyle.Render(ansi.Truncate(label+"  (esc to cancel)", m.mainWidth(), "…"))
}

func (m *Model) targetPreview() string {
	for _, msg := range m.messenger.Messages() {
		if msg.ID == m.targetID {
			conv, _ := m.messenger.Active()
			return core.SenderName(conv, msg.SenderID) + ": " + core.Truncate(msg.Content, 40)
		}
	}
	return "message"
}

func (m *Model) renderStatusLine() string {
	if m.status != "" {
		return errorStyle.Render(ansi.Truncate(m.status, m.width, "…"))
	}
	var hints []string
	switch m.focus {
	case focusList:
		if m.people {
			hints = []string{"space select", "enter start", "f follow", "/ search", "1-3 tabs", "u close"}
			break
		}
		hints = []string{"enter open", "p pin", "m mute", "u people", "n new", "/ filter", "q quit"}
	case focusThread:
		hints = []string{"↑↓ select", "r reply", "e edit", "d delete", "+ react", "y copy", "tab focus"}
	default:
		hints = []string{"enter send", "alt+enter newline", "tab focus", "ctrl+r refresh", "ctrl+c quit"}
	}
	line := strings.Join(hints, " · ")
	if m.pending > 0 {
		line = fmt.Sprintf("sending %d… · %s", m.pending, line)
	}
	return statusStyle.Render(ansi.Truncate(line, m.width, "…"))
}
