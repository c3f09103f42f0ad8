package chat

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/adamavenir/agora/internal/api"
	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/fakeapi"
	"github.com/adamavenir/agora/internal/messenger"
	"github.com/adamavenir/agora/internal/session"
	"github.com/adamavenir/agora/internal/types"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

func newTestModel(t *testing.T) (*fakeapi.Server, *Model) {
	t.Helper()
	srv, token := fakeapi.NewDemo(nil)
	httpSrv := httptest.NewServer(srv)
	t.Cleanup(httpSrv.Close)

	sess, err := session.New(session.Credentials{Token: token, UserID: "u-ada", Name: "Ada Lovelace"})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	client, err := api.NewClient(httpSrv.URL, sess, api.Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	msgr := messenger.New(sess, client, messenger.Options{MutationTimeout: 5 * time.Second})
	m := NewModel(Options{Messenger: msgr, Session: sess, RefreshInterval: time.Hour})
	t.Cleanup(m.Close)

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	feed(t, m, m.fetchConversations())
	return srv, m
}

// feed runs cmd and hands its message to Update. Follow-up commands are
// dropped so timers never start.
func feed(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c != nil {
				feed(t, m, c)
			}
		}
		return
	}
	m.Update(msg)
}

func press(m *Model, key string) tea.Cmd {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

func directID() string { return core.DirectConversationID("u-ada", "u-grace") }

func groupID() string { return core.GroupConversationID([]string{"u-ada", "u-alan", "u-edsger"}) }

func openDirect(t *testing.T, m *Model) {
	t.Helper()
	if got := m.listConversations()[0].ID; got != directID() {
		t.Fatalf("expected direct conversation first, got %s", got)
	}
	feed(t, m, press(m, "enter"))
}

func TestOpenConversationLoadsThread(t *testing.T) {
	srv, m := newTestModel(t)
	openDirect(t, m)

	conv, ok := m.messenger.Active()
	if !ok || conv.ID != directID() {
		t.Fatalf("expected direct conversation open, got %+v", conv)
	}
	if conv.UnreadCount != 0 {
		t.Fatalf("expected unread cleared, got %d", conv.UnreadCount)
	}
	if srv.Requests("markRead") != 1 {
		t.Fatalf("expected one mark-read request, got %d", srv.Requests("markRead"))
	}
	view := ansi.Strip(m.viewport.View())
	if !strings.Contains(view, "Due Friday.") {
		t.Fatalf("expected thread in viewport, got:\n%s", view)
	}
	if m.focus != focusInput {
		t.Fatalf("expected input focus after open")
	}
}

func TestSendShowsPendingThenConfirms(t *testing.T) {
	srv, m := newTestModel(t)
	openDirect(t, m)

	m.input.SetValue("see you at 5")
	cmd := press(m, "enter")

	messages := m.messenger.Messages()
	last := messages[len(messages)-1]
	if !core.IsTempID(last.ID) || last.Content != "see you at 5" {
		t.Fatalf("expected optimistic message, got %+v", last)
	}
	if m.input.Value() != "" {
		t.Fatalf("expected input cleared")
	}

	feed(t, m, cmd)
	messages = m.messenger.Messages()
	last = messages[len(messages)-1]
	if core.IsTempID(last.ID) {
		t.Fatalf("expected server id after confirm, got %s", last.ID)
	}
	stored := srv.Messages(directID())
	if stored[len(stored)-1].Content != "see you at 5" {
		t.Fatalf("expected message on server")
	}
	if m.pending != 0 {
		t.Fatalf("expected no pending ops, got %d", m.pending)
	}
}

func TestRejectedSendRollsBackAndReports(t *testing.T) {
	srv, m := newTestModel(t)
	openDirect(t, m)
	before := len(m.messenger.Messages())

	srv.FailNext("sendMessage", http.StatusInternalServerError, 1)
	m.input.SetValue("lost")
	feed(t, m, press(m, "enter"))

	if got := len(m.messenger.Messages()); got != before {
		t.Fatalf("expected %d messages after rollback, got %d", before, got)
	}
	if !strings.HasPrefix(m.status, "Send failed") {
		t.Fatalf("expected failure status, got %q", m.status)
	}
}

func TestPinMovesConversationAndKeepsCursor(t *testing.T) {
	_, m := newTestModel(t)

	press(m, "j")
	if got := m.listConversations()[m.listIndex].ID; got != groupID() {
		t.Fatalf("expected cursor on group, got %s", got)
	}
	cmd := press(m, "p")
	list := m.listConversations()
	if list[0].ID != groupID() || !list[0].IsPinned {
		t.Fatalf("expected pinned group first, got %+v", list[0])
	}
	if m.listIndex != 0 {
		t.Fatalf("expected cursor to follow the pinned conversation, got %d", m.listIndex)
	}
	feed(t, m, cmd)
	conv, _ := m.messenger.Conversation(groupID())
	if !conv.IsPinned {
		t.Fatalf("expected pin confirmed")
	}
}

func TestEditOwnMessageFromThread(t *testing.T) {
	_, m := newTestModel(t)
	openDirect(t, m)

	m.setFocus(focusThread)
	press(m, "k")
	target, ok := m.selectedMessage()
	if !ok || target.SenderID != "u-ada" {
		t.Fatalf("expected own message selected, got %+v", target)
	}
	press(m, "e")
	if m.mode != modeEdit || m.input.Value() != target.Content {
		t.Fatalf("expected edit mode prefilled, got mode=%d value=%q", m.mode, m.input.Value())
	}
	m.input.SetValue("Is recursion allowed in part 2?")
	feed(t, m, press(m, "enter"))

	got, _ := m.selectedMessage()
	if got.Content != "Is recursion allowed in part 2?" || !got.Edited {
		t.Fatalf("expected edited message, got %+v", got)
	}
}

func TestEditOthersMessageIsRefused(t *testing.T) {
	_, m := newTestModel(t)
	openDirect(t, m)

	m.setFocus(focusThread)
	press(m, "k")
	press(m, "k")
	press(m, "e")
	if m.mode == modeEdit {
		t.Fatalf("should not edit someone else's message")
	}
	if m.status == "" {
		t.Fatalf("expected a status explaining the refusal")
	}
}

func TestFilterNarrowsList(t *testing.T) {
	_, m := newTestModel(t)

	press(m, "/")
	if m.mode != modeFilter {
		t.Fatalf("expected filter mode")
	}
	m.input.SetValue("algo")
	press(m, "enter")

	list := m.listConversations()
	if len(list) != 1 || list[0].ID != groupID() {
		t.Fatalf("expected only the study group, got %d conversations", len(list))
	}
	if m.focus != focusList {
		t.Fatalf("expected focus back on list")
	}
}

func TestStartReusesDirectConversation(t *testing.T) {
	srv, m := newTestModel(t)

	press(m, "n")
	m.input.SetValue("u-grace")
	feed(t, m, press(m, "enter"))

	conv, ok := m.messenger.Active()
	if !ok || conv.ID != directID() {
		t.Fatalf("expected existing direct conversation, got %+v", conv)
	}
	if srv.Requests("createConversation") != 0 {
		t.Fatalf("expected no create request")
	}
}

func TestParseStartInput(t *testing.T) {
	cases := []struct {
		in    string
		ids   []string
		group string
	}{
		{in: "u-1", ids: []string{"u-1"}},
		{in: "u-1, u-2 u-3", ids: []string{"u-1", "u-2", "u-3"}},
		{in: "u-1 u-2 | Study group ", ids: []string{"u-1", "u-2"}, group: "Study group"},
	}
	for _, tc := range cases {
		ids, group := parseStartInput(tc.in)
		if !reflect.DeepEqual(ids, tc.ids) || group != tc.group {
			t.Fatalf("parseStartInput(%q) = %v, %q", tc.in, ids, group)
		}
	}
}

// clickZone renders the model and clicks the top-left cell of zone id once
// the zone manager has recorded it.
func clickZone(t *testing.T, m *Model, id string) tea.Cmd {
	t.Helper()
	m.View()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if z := m.zoneManager.Get(id); !z.IsZero() {
			_, cmd := m.Update(tea.MouseMsg{X: z.StartX, Y: z.StartY, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
			return cmd
		}
		if time.Now().After(deadline) {
			t.Fatalf("zone %s never registered", id)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func openPeople(t *testing.T, m *Model) {
	t.Helper()
	feed(t, m, press(m, "u"))
	if !m.people {
		t.Fatalf("expected people picker open")
	}
	if n := len(m.peopleView().Items); n != 3 {
		t.Fatalf("expected 3 contacts, got %d", n)
	}
}

func TestClickConversationOpensIt(t *testing.T) {
	_, m := newTestModel(t)

	feed(t, m, clickZone(t, m, convZoneID(groupID())))
	conv, ok := m.messenger.Active()
	if !ok || conv.ID != groupID() {
		t.Fatalf("expected group open after click, got %+v", conv)
	}
	if m.focus != focusInput {
		t.Fatalf("expected input focus after click")
	}
}

func TestClickMessageSelectsIt(t *testing.T) {
	_, m := newTestModel(t)
	openDirect(t, m)

	if cmd := clickZone(t, m, lineZoneID(1, 0)); cmd != nil {
		t.Fatalf("selecting a message should not issue a command")
	}
	if m.selected != 1 || m.focus != focusThread {
		t.Fatalf("expected message 1 selected in thread focus, got %d focus=%d", m.selected, m.focus)
	}
	got, _ := m.selectedMessage()
	if got.Content != "Due Friday." {
		t.Fatalf("unexpected selection %+v", got)
	}
}

func TestPeoplePickerOpensExistingDirect(t *testing.T) {
	srv, m := newTestModel(t)
	openPeople(t, m)

	press(m, "j")
	press(m, "j")
	if c, _ := m.currentPerson(); c.ID != "u-grace" {
		t.Fatalf("expected cursor on grace, got %s", c.ID)
	}
	feed(t, m, press(m, "enter"))

	conv, ok := m.messenger.Active()
	if !ok || conv.ID != directID() {
		t.Fatalf("expected existing direct conversation, got %+v", conv)
	}
	if m.people || srv.Requests("createConversation") != 0 {
		t.Fatalf("expected picker closed without a create request")
	}
}

func TestPeoplePickerStartsNamedGroup(t *testing.T) {
	srv, m := newTestModel(t)
	openPeople(t, m)

	press(m, " ")
	press(m, "j")
	press(m, "j")
	press(m, " ")
	if got := m.messenger.Directory().Selected(); !reflect.DeepEqual(got, []string{"u-alan", "u-grace"}) {
		t.Fatalf("unexpected selection %v", got)
	}
	press(m, "enter")
	if m.mode != modeGroupName {
		t.Fatalf("a new group should ask for a name, got mode %d", m.mode)
	}
	m.input.SetValue("Office hours")
	cmd := press(m, "enter")

	conv, ok := m.messenger.Active()
	if !ok || conv.GroupName == nil || *conv.GroupName != "Office hours" {
		t.Fatalf("expected optimistic named group, got %+v", conv)
	}
	feed(t, m, cmd)
	if srv.Requests("createConversation") != 1 {
		t.Fatalf("expected one create request, got %d", srv.Requests("createConversation"))
	}
	if len(m.messenger.Directory().Selected()) != 0 {
		t.Fatalf("selection should clear after starting")
	}
}

func TestFollowFromPickerReloadsFollowing(t *testing.T) {
	srv, m := newTestModel(t)
	openPeople(t, m)
	before := srv.Requests("following")

	cmd := press(m, "f")
	if c, _ := m.currentPerson(); c.ID != "u-alan" || !c.IsFollowing {
		t.Fatalf("expected alan flipped to following at once, got %+v", c)
	}
	if srv.Requests("following") != before {
		t.Fatalf("following must not reload before the follow is confirmed")
	}
	_, reload := m.Update(cmd())
	feed(t, m, reload)

	if srv.Requests("following") != before+1 {
		t.Fatalf("expected one following reload, got %d", srv.Requests("following")-before)
	}
	following := m.messenger.Directory().Following().Items
	if len(following) != 2 || following[0].ID != "u-alan" {
		t.Fatalf("expected alan and grace followed, got %+v", following)
	}
}

func TestFailedRefreshShowsEmptyFailedList(t *testing.T) {
	srv, m := newTestModel(t)
	openDirect(t, m)

	srv.FailNext("conversations", http.StatusInternalServerError, 1)
	feed(t, m, m.fetchConversations())

	if len(m.listConversations()) != 0 {
		t.Fatalf("failed refresh should leave no conversations")
	}
	if !strings.HasPrefix(m.status, "Could not refresh") {
		t.Fatalf("expected refresh failure status, got %q", m.status)
	}
	if view := ansi.Strip(m.View()); !strings.Contains(view, "Could not load") {
		t.Fatalf("sidebar should report the failure:\n%s", view)
	}
}

func TestPollWhileSendingKeepsPendingMessage(t *testing.T) {
	srv, m := newTestModel(t)
	openDirect(t, m)

	m.input.SetValue("on my way")
	send := press(m, "enter")
	srv.AddMessage(types.Message{ConversationID: directID(), SenderID: "u-grace", Content: "Office hours moved"})

	feed(t, m, m.mergeThread(directID()))
	view := ansi.Strip(m.viewport.View())
	if !strings.Contains(view, "Office hours moved") || !strings.Contains(view, "on my way") {
		t.Fatalf("expected incoming and pending messages, got:\n%s", view)
	}

	feed(t, m, send)
	if n := len(m.messenger.Messages()); n != 5 {
		t.Fatalf("expected 5 messages after confirm, got %d", n)
	}
}
