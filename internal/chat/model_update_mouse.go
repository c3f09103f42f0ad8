package chat

import tea "github.com/charmbracelet/bubbletea"

func (m *Model) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		if handled, cmd := m.handleMouseClick(msg); handled {
			return m, cmd
		}
		return m, nil
	}
	if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
		if msg.X < m.sidebarWidth() {
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleMouseClick resolves a left click against the zones marked in the last
// render.
func (m *Model) handleMouseClick(msg tea.MouseMsg) (bool, tea.Cmd) {
	if m.people {
		for _, tab := range peopleTabs {
			if m.zoneManager.Get(tabZoneID(tab)).InBounds(msg) {
				return true, m.switchTab(tab)
			}
		}
		for i, c := range m.peopleView().Items {
			if m.zoneManager.Get(personZoneID(c.ID)).InBounds(msg) {
				m.clickPerson(i)
				return true, nil
			}
		}
	} else {
		for _, conv := range m.listConversations() {
			if m.zoneManager.Get(convZoneID(conv.ID)).InBounds(msg) {
				return true, m.clickConversation(conv.ID)
			}
		}
	}

	for i := range m.entryLines {
		for j := 0; j < m.entryHeight(i); j++ {
			if m.zoneManager.Get(lineZoneID(i, j)).InBounds(msg) {
				m.clickMessage(i)
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *Model) clickConversation(id string) tea.Cmd {
	cmd := m.openConversation(id)
	m.setFocus(focusInput)
	return cmd
}

// clickMessage selects a thread entry; clicking the selected one clears it.
func (m *Model) clickMessage(i int) {
	if i == m.selected {
		m.selected = -1
		m.refreshViewport(false)
		return
	}
	m.setFocus(focusThread)
	m.selected = i
	m.refreshViewport(false)
}

// clickPerson moves the cursor to row i and toggles that person.
func (m *Model) clickPerson(i int) {
	m.setFocus(focusList)
	m.peopleIndex = i
	if c, ok := m.currentPerson(); ok {
		m.messenger.Directory().Toggle(c.ID)
	}
}
