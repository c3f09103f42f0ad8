package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/adamavenir/agora/internal/render"
	"github.com/adamavenir/agora/internal/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// listConversations is the list as shown: display order, narrowed by the
// active filter. A bad pattern shows the whole list.
func (m *Model) listConversations() []types.Conversation {
	if m.filter == "" {
		return m.messenger.Conversations()
	}
	list, err := m.messenger.FilterConversations(m.filter)
	if err != nil {
		return m.messenger.Conversations()
	}
	return list
}

func (m *Model) clampListIndex() {
	n := len(m.listConversations())
	if m.listIndex >= n {
		m.listIndex = n - 1
	}
	if m.listIndex < 0 {
		m.listIndex = 0
	}
}

// syncListIndex moves the cursor to follow id after the list reorders.
func (m *Model) syncListIndex(id string) {
	for i, conv := range m.listConversations() {
		if conv.ID == id {
			m.listIndex = i
			return
		}
	}
	m.clampListIndex()
}

func convZoneID(id string) string { return "conv-" + id }

func (m *Model) renderSidebar() string {
	width := m.sidebarWidth()
	height := m.height - statusHeight
	if height < 1 {
		height = 1
	}

	var lines []string
	if m.people {
		lines = m.peopleLines(width, height)
	} else {
		lines = m.conversationLines(width, height)
	}

	border := borderColor
	if m.focus == focusList {
		border = focusedColor
	}
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(border).
		Render(strings.Join(lines, "\n"))
}

func (m *Model) conversationLines(width, height int) []string {
	title := "Conversations"
	if total := m.messenger.UnreadTotal(); total > 0 {
		title = fmt.Sprintf("Conversations (%d)", total)
	}
	lines := []string{titleStyle.Render(ansi.Truncate(title, width, "…"))}
	if m.filter != "" {
		lines = append(lines, statusStyle.Render(ansi.Truncate("filter: "+m.filter, width, "…")))
	}

	list := m.listConversations()
	if len(list) == 0 {
		state, _ := m.messenger.ListState()
		switch {
		case state == types.LoadLoading || state == types.LoadIdle:
			lines = append(lines, statusStyle.Render("Loading…"))
		case state == types.LoadFailed:
			lines = append(lines, errorStyle.Render("Could not load"), statusStyle.Render("ctrl+r to retry"))
		case m.filter != "":
			lines = append(lines, statusStyle.Render("No matches"))
		default:
			lines = append(lines, statusStyle.Render("No conversations"), statusStyle.Render("n or u to start one"))
		}
	}

	opts := render.Options{Width: width - 1, Color: true, Now: time.Now(), Self: m.messenger.Self()}
	active, _ := m.messenger.Active()
	start := 0
	visible := height - len(lines)
	if visible > 0 && m.listIndex >= visible {
		start = m.listIndex - visible + 1
	}
	for i := start; i < len(list) && len(lines) < height; i++ {
		conv := list[i]
		line := render.ConversationLine(conv, opts)
		if conv.ID == active.ID {
			line = "▌" + line
		} else {
			line = " " + line
		}
		if i == m.listIndex && m.focus == focusList {
			line = selectedStyle.Width(width).Render(ansi.Strip(line))
		}
		lines = append(lines, m.zoneManager.Mark(convZoneID(conv.ID), line))
	}
	return lines
}
