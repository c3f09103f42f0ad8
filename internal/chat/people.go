package chat

import (
	"fmt"
	"time"

	"github.com/adamavenir/agora/internal/action"
	"github.com/adamavenir/agora/internal/directory"
	"github.com/adamavenir/agora/internal/render"
	"github.com/adamavenir/agora/internal/types"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

type peopleTab int

const (
	tabContacts peopleTab = iota
	tabFollowing
	tabSearch
)

var peopleTabs = []peopleTab{tabContacts, tabFollowing, tabSearch}

func (t peopleTab) String() string {
	switch t {
	case tabFollowing:
		return "Following"
	case tabSearch:
		return "Search"
	default:
		return "Contacts"
	}
}

func tabZoneID(t peopleTab) string { return fmt.Sprintf("tab-%d", t) }

func personZoneID(id string) string { return "person-" + id }

// openPeople shows the people picker and refreshes both directory lists.
func (m *Model) openPeople() tea.Cmd {
	m.people = true
	m.peopleIndex = 0
	m.setFocus(focusList)
	return tea.Batch(m.loadPeople(tabContacts, ""), m.loadPeople(tabFollowing, ""))
}

func (m *Model) closePeople() {
	m.people = false
	m.messenger.Directory().ClearSelection()
}

func (m *Model) peopleView() directory.View {
	dir := m.messenger.Directory()
	switch m.peopleTab {
	case tabFollowing:
		return dir.Following()
	case tabSearch:
		view, _ := dir.Results()
		return view
	default:
		return dir.Contacts()
	}
}

func (m *Model) currentPerson() (types.Contact, bool) {
	items := m.peopleView().Items
	if m.peopleIndex < 0 || m.peopleIndex >= len(items) {
		return types.Contact{}, false
	}
	return items[m.peopleIndex], true
}

func (m *Model) clampPeopleIndex() {
	n := len(m.peopleView().Items)
	if m.peopleIndex >= n {
		m.peopleIndex = n - 1
	}
	if m.peopleIndex < 0 {
		m.peopleIndex = 0
	}
}

func (m *Model) switchTab(tab peopleTab) tea.Cmd {
	m.peopleTab = tab
	m.peopleIndex = 0
	if tab == tabSearch {
		if _, query := m.messenger.Directory().Results(); query == "" {
			m.enterMode(modeSearch, "")
		}
	}
	return nil
}

func (m *Model) handlePeopleMsg(msg peopleMsg) (tea.Model, tea.Cmd) {
	if msg.view.State == types.LoadFailed && msg.tab == m.peopleTab && m.people {
		m.status = fmt.Sprintf("Could not load %s: %v", msg.tab, msg.view.Err)
	}
	m.clampPeopleIndex()
	return m, nil
}

func (m *Model) handlePeopleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.peopleView().Items
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "u":
		m.closePeople()
	case "up", "k":
		if m.peopleIndex > 0 {
			m.peopleIndex--
		}
	case "down", "j":
		if m.peopleIndex < len(items)-1 {
			m.peopleIndex++
		}
	case "1", "2", "3":
		return m, m.switchTab(peopleTabs[msg.String()[0]-'1'])
	case "]", "right", "l":
		return m, m.switchTab(peopleTabs[(int(m.peopleTab)+1)%len(peopleTabs)])
	case "[", "left", "h":
		return m, m.switchTab(peopleTabs[(int(m.peopleTab)+len(peopleTabs)-1)%len(peopleTabs)])
	case " ", "x":
		if c, ok := m.currentPerson(); ok {
			m.messenger.Directory().Toggle(c.ID)
		}
	case "f":
		if c, ok := m.currentPerson(); ok {
			op := m.messenger.BeginFollow(c.ID, !c.IsFollowing)
			return m, m.runOp(opLabel(op.Kind), op)
		}
	case "/":
		_, query := m.messenger.Directory().Results()
		m.peopleTab = tabSearch
		m.enterMode(modeSearch, query)
	case "r":
		_, query := m.messenger.Directory().Results()
		return m, m.loadPeople(m.peopleTab, query)
	case "enter":
		return m, m.startFromPeople()
	}
	return m, nil
}

// startFromPeople starts a conversation with the selected people, or with the
// person under the cursor when nobody is selected. A new group asks for an
// optional name first.
func (m *Model) startFromPeople() tea.Cmd {
	dir := m.messenger.Directory()
	if len(dir.Selected()) == 0 {
		if c, ok := m.currentPerson(); ok {
			dir.Toggle(c.ID)
		}
	}
	target, err := dir.StartTarget()
	if err != nil {
		m.status = err.Error()
		return nil
	}
	if target.Type == types.ConversationGroup {
		if _, ok := m.messenger.Conversation(target.ID); !ok {
			m.enterMode(modeGroupName, "")
			return nil
		}
	}
	return m.beginStart(target.ParticipantIDs, "")
}

// beginStart opens or optimistically creates the conversation with ids.
func (m *Model) beginStart(ids []string, groupName string) tea.Cmd {
	op, id, err := m.messenger.BeginStart(ids, groupName)
	if err != nil {
		m.status = err.Error()
		return nil
	}
	m.people = false
	m.resetMode()
	m.syncListIndex(id)
	m.selected = -1
	m.setFocus(focusInput)
	m.refreshViewport(true)
	if op == nil {
		return m.fetchThread(id, true)
	}
	return m.runOp(opLabel(action.KindStart), op)
}

func (m *Model) peopleLines(width, height int) []string {
	dir := m.messenger.Directory()
	lines := []string{titleStyle.Render("People")}

	tabs := ""
	for i, tab := range peopleTabs {
		label := tab.String()
		if tab == m.peopleTab {
			label = titleStyle.Render(label)
		} else {
			label = statusStyle.Render(label)
		}
		if i > 0 {
			tabs += statusStyle.Render(" · ")
		}
		tabs += m.zoneManager.Mark(tabZoneID(tab), label)
	}
	lines = append(lines, ansi.Truncate(tabs, width, "…"))

	if n := len(dir.Selected()); n > 0 {
		lines = append(lines, modeStyle.Render(ansi.Truncate(fmt.Sprintf("%d selected · enter to start", n), width, "…")))
	}
	_, query := dir.Results()
	if m.peopleTab == tabSearch && query != "" {
		lines = append(lines, statusStyle.Render(ansi.Truncate("search: "+query, width, "…")))
	}

	view := m.peopleView()
	switch {
	case view.State == types.LoadIdle && m.peopleTab == tabSearch:
		lines = append(lines, statusStyle.Render("/ to search"))
	case view.State == types.LoadIdle || view.State == types.LoadLoading:
		lines = append(lines, statusStyle.Render("Loading…"))
	case view.State == types.LoadFailed:
		lines = append(lines, errorStyle.Render("Could not load"))
	case view.Empty():
		lines = append(lines, statusStyle.Render(emptyPeopleText(m.peopleTab, query)))
	}

	opts := render.Options{Width: width, Color: true, Now: time.Now(), Self: m.messenger.Self()}
	start := 0
	visible := height - len(lines)
	if visible > 0 && m.peopleIndex >= visible {
		start = m.peopleIndex - visible + 1
	}
	for i := start; i < len(view.Items) && len(lines) < height; i++ {
		c := view.Items[i]
		line := render.ContactLine(c, dir.IsSelected(c.ID), opts)
		if i == m.peopleIndex && m.focus == focusList {
			line = selectedStyle.Width(width).Render(ansi.Strip(line))
		}
		lines = append(lines, m.zoneManager.Mark(personZoneID(c.ID), line))
	}
	return lines
}

func emptyPeopleText(tab peopleTab, query string) string {
	switch tab {
	case tabFollowing:
		return "Not following anyone"
	case tabSearch:
		if query == "" {
			return "/ to search"
		}
		return "Nobody matches"
	default:
		return "No contacts yet"
	}
}
