package chat

import "strings"

const (
	inputMaxHeight  = 6
	headerHeight    = 1
	statusHeight    = 1
	minSidebarWidth = 24
	maxSidebarWidth = 40
)

func (m *Model) sidebarWidth() int {
	width := m.width / 3
	if width < minSidebarWidth {
		width = minSidebarWidth
	}
	if width > maxSidebarWidth {
		width = maxSidebarWidth
	}
	if width > m.width/2 {
		width = m.width / 2
	}
	return width
}

func (m *Model) mainWidth() int {
	width := m.width - m.sidebarWidth() - 1
	if width < 1 {
		width = 1
	}
	return width
}

func (m *Model) inputHeight() int {
	lines := strings.Count(m.input.Value(), "\n") + 1
	if lines > inputMaxHeight {
		lines = inputMaxHeight
	}
	return lines
}

func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	width := m.mainWidth()
	m.input.SetWidth(width)
	m.input.SetHeight(m.inputHeight())

	height := m.height - headerHeight - m.inputHeight() - statusHeight - 1
	if height < 1 {
		height = 1
	}
	m.viewport.Width = width
	m.viewport.Height = height
	m.refreshViewport(false)
}
