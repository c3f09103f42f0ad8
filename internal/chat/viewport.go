package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/render"
	"github.com/adamavenir/agora/internal/thread"
	"github.com/charmbracelet/x/ansi"
)

// refreshViewport re-renders the open thread. Each plan entry is rendered on
// its own so the selected message can be highlighted.
func (m *Model) refreshViewport(scrollToBottom bool) {
	conv, ok := m.messenger.Active()
	if !ok {
		m.entryLines = nil
		m.viewport.SetContent(statusStyle.Render("Select a conversation with enter, or press n to start one."))
		return
	}
	plan := m.messenger.Plan()
	if len(plan) == 0 {
		m.entryLines = nil
		m.viewport.SetContent(statusStyle.Render("No messages yet. Say hello."))
		return
	}

	opts := render.Options{Width: m.viewport.Width, Color: true, Now: time.Now(), Self: m.messenger.Self(), CodeStyle: m.codeStyle}
	var lines []string
	m.entryLines = make([]int, len(plan))
	for i, entry := range plan {
		m.entryLines[i] = len(lines)
		rendered := render.ThreadLines(conv, []thread.Entry{entry}, opts)
		if i == m.selected {
			for j, line := range rendered {
				rendered[j] = selectedStyle.Width(m.viewport.Width).Render(ansi.Strip(line))
			}
		}
		for j, line := range rendered {
			if m.pendingEntry(entry) {
				line = statusStyle.Render(ansi.Strip(line))
			}
			rendered[j] = m.zoneManager.Mark(lineZoneID(i, j), line)
		}
		lines = append(lines, rendered...)
	}
	m.lineCount = len(lines)
	m.viewport.SetContent(strings.Join(lines, "\n"))

	switch {
	case scrollToBottom:
		m.viewport.GotoBottom()
	case m.selected >= 0 && m.selected < len(m.entryLines):
		m.scrollToLine(m.entryLines[m.selected])
	}
}

// lineZoneID names line j of thread entry i for mouse hit tests.
func lineZoneID(entry, line int) string { return fmt.Sprintf("line-%d-%d", entry, line) }

// entryHeight is the number of viewport lines entry i occupies.
func (m *Model) entryHeight(i int) int {
	if i+1 < len(m.entryLines) {
		return m.entryLines[i+1] - m.entryLines[i]
	}
	return m.lineCount - m.entryLines[i]
}

func (m *Model) pendingEntry(entry thread.Entry) bool {
	return entry.IsOwn && core.IsTempID(entry.Message.ID)
}

func (m *Model) scrollToLine(line int) {
	if line < m.viewport.YOffset {
		m.viewport.SetYOffset(line)
		return
	}
	if bottom := m.viewport.YOffset + m.viewport.Height - 1; line > bottom {
		m.viewport.SetYOffset(line - m.viewport.Height + 1)
	}
}
