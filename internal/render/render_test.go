package render

import (
	"strings"
	"testing"
	"time"

	"github.com/adamavenir/agora/internal/thread"
	"github.com/adamavenir/agora/internal/types"
)

var now = time.Date(2024, 3, 1, 15, 0, 0, 0, time.Local)

func groupConversation() types.Conversation {
	name := "Study group"
	return types.Conversation{
		ID:        "grp-1",
		Type:      types.ConversationGroup,
		GroupName: &name,
		Participants: []types.Participant{
			{ID: "me", Name: "Ada Lovelace"},
			{ID: "g", Name: "Grace Hopper"},
		},
		LastMessage: types.LastMessage{Content: "see you\nthere", SenderID: "g", Timestamp: now.Add(-3 * time.Minute)},
		UnreadCount: 2,
	}
}

func TestConversationLine(t *testing.T) {
	conv := groupConversation()
	conv.IsPinned = true
	line := ConversationLine(conv, Options{Self: "me", Now: now, ShowIDs: true})
	for _, want := range []string{"^ ", "Study group", "(2)", "Grace: see you there", "3 minutes ago", "grp-1"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
	if got := ConversationLine(conv, Options{Self: "me", Now: now, Width: 10}); len([]rune(got)) > 10 {
		t.Fatalf("line not truncated to width: %q", got)
	}
}

func TestThreadLinesSuppressesAvatarWithoutRelayout(t *testing.T) {
	conv := groupConversation()
	messages := []types.Message{
		{ID: "1", ConversationID: conv.ID, SenderID: "g", Content: "first", Timestamp: now.Add(-10 * time.Minute)},
		{ID: "2", ConversationID: conv.ID, SenderID: "g", Content: "second", Timestamp: now.Add(-9 * time.Minute), Edited: true},
		{ID: "3", ConversationID: conv.ID, SenderID: "me", Content: "mine", Timestamp: now.Add(-8 * time.Minute),
			Reactions: types.Reactions{"👍": {"g", "me"}}},
	}
	plan := thread.BuildPlan(conv, messages, "me")
	lines := ThreadLines(conv, plan, Options{Self: "me", Now: now, Width: 60, ShowIDs: true})

	joined := strings.Join(lines, "\n")
	if strings.Count(joined, "[GH]") != 1 {
		t.Fatalf("expected one avatar for the merged run:\n%s", joined)
	}
	for _, want := range []string{"Today", "Grace Hopper", "     second  (edited) #2", "You", "👍 2*"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("output missing %q:\n%s", want, joined)
		}
	}
}

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"Grace Hopper":       "GH",
		"edsger w. dijkstra": "EW",
		"  ":                 "?",
		"Ada":                "A",
	}
	for in, want := range cases {
		if got := Initials(in); got != want {
			t.Fatalf("Initials(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContactLine(t *testing.T) {
	cases := []struct {
		name    string
		contact types.Contact
		checked bool
		want    []string
		absent  []string
	}{
		{
			name:    "online and followed",
			contact: types.Contact{User: types.User{ID: "g", Name: "Grace Hopper", Online: true}, IsFollowing: true},
			checked: true,
			want:    []string{"[x] ", "Grace Hopper", "online · following"},
		},
		{
			name:    "offline shows last seen",
			contact: types.Contact{User: types.User{ID: "a", Name: "Alan Turing", LastActiveAt: now.Add(-2 * time.Hour)}},
			want:    []string{"[ ] ", "Alan Turing", "2 hours ago"},
			absent:  []string{"following", "online"},
		},
		{
			name:    "nameless falls back to id",
			contact: types.Contact{User: types.User{ID: "u-9"}},
			want:    []string{"[ ] u-9"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line := ContactLine(tc.contact, tc.checked, Options{Now: now})
			for _, want := range tc.want {
				if !strings.Contains(line, want) {
					t.Fatalf("line %q missing %q", line, want)
				}
			}
			for _, absent := range tc.absent {
				if strings.Contains(line, absent) {
					t.Fatalf("line %q should not contain %q", line, absent)
				}
			}
		})
	}
}
