package conversations

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/adamavenir/agora/internal/types"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func conv(id string, pinned bool, minute int) types.Conversation {
	return types.Conversation{
		ID:       id,
		Type:     types.ConversationGroup,
		IsPinned: pinned,
		LastMessage: types.LastMessage{
			Timestamp: base.Add(time.Duration(minute) * time.Minute),
		},
	}
}

func ids(list []types.Conversation) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}

func TestSortForDisplayScenario(t *testing.T) {
	list := []types.Conversation{conv("f5", false, 5), conv("t1", true, 1), conv("f10", false, 10)}
	SortForDisplay(list)
	got := fmt.Sprint(ids(list))
	if got != "[t1 f10 f5]" {
		t.Fatalf("unexpected order %s", got)
	}
}

func TestSortForDisplayInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		list := make([]types.Conversation, 20)
		for i := range list {
			list[i] = conv(fmt.Sprintf("c%02d", i), rng.Intn(3) == 0, rng.Intn(10))
		}
		SortForDisplay(list)
		for i := 1; i < len(list); i++ {
			prev, cur := list[i-1], list[i]
			if !prev.IsPinned && cur.IsPinned {
				t.Fatalf("round %d: unpinned before pinned at %d", round, i)
			}
			if prev.IsPinned == cur.IsPinned && prev.LastMessage.Timestamp.Before(cur.LastMessage.Timestamp) {
				t.Fatalf("round %d: recency not descending at %d", round, i)
			}
		}
	}
}

func TestSortByPriorityPutsUnreadFirst(t *testing.T) {
	list := []types.Conversation{conv("pinned", true, 9), conv("unread", false, 1), conv("recent", false, 8)}
	list[1].UnreadCount = 2
	SortByPriority(list)
	if got := fmt.Sprint(ids(list)); got != "[unread pinned recent]" {
		t.Fatalf("unexpected priority order %s", got)
	}

	SortForDisplay(list)
	if got := fmt.Sprint(ids(list)); got != "[pinned recent unread]" {
		t.Fatalf("display order must ignore unread, got %s", got)
	}
}

func TestUnreadReconciledByRefresh(t *testing.T) {
	s := NewStore("me")
	c := conv("c", false, 0)
	c.UnreadCount = 4
	s.Replace([]types.Conversation{c, conv("other", false, 0)})

	if cleared, ok := s.Open("c"); !ok || cleared != 4 {
		t.Fatalf("expected to clear 4, got %d %v", cleared, ok)
	}
	got, _ := s.Get("c")
	if got.UnreadCount != 0 {
		t.Fatalf("open should zero unread")
	}

	s.Close()
	s.ObserveMessage(types.Message{ConversationID: "c", SenderID: "them", Timestamp: base.Add(time.Hour)})
	s.ObserveMessage(types.Message{ConversationID: "c", SenderID: "them", Timestamp: base.Add(2 * time.Hour)})

	server := conv("c", false, 120)
	server.UnreadCount = 1
	s.Replace([]types.Conversation{server})
	got, _ = s.Get("c")
	if got.UnreadCount != 1 {
		t.Fatalf("server count must win, got %d", got.UnreadCount)
	}
}

func TestObserveMessage(t *testing.T) {
	cases := []struct {
		name   string
		active string
		sender string
		want   uint
	}{
		{name: "inbound background", active: "", sender: "them", want: 1},
		{name: "inbound active", active: "c", sender: "them", want: 0},
		{name: "own message", active: "", sender: "me", want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore("me")
			s.Replace([]types.Conversation{conv("c", false, 0)})
			if tc.active != "" {
				s.Open(tc.active)
			}
			at := base.Add(time.Hour)
			s.ObserveMessage(types.Message{ConversationID: "c", SenderID: tc.sender, Content: "hi", Timestamp: at})
			got, _ := s.Get("c")
			if got.UnreadCount != tc.want {
				t.Fatalf("unread %d, want %d", got.UnreadCount, tc.want)
			}
			if !got.LastMessage.Timestamp.Equal(at) || got.LastMessage.Content != "hi" {
				t.Fatalf("last message not advanced: %+v", got.LastMessage)
			}
		})
	}
}

func TestUnreadTotalSkipsMuted(t *testing.T) {
	s := NewStore("me")
	a, b, c := conv("a", false, 1), conv("b", false, 2), conv("c", false, 3)
	a.UnreadCount, b.UnreadCount, c.UnreadCount = 2, 5, 0
	b.IsMuted = true
	s.Replace([]types.Conversation{a, b, c})
	if got := s.UnreadTotal(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestFilter(t *testing.T) {
	s := NewStore("me")
	name := "Algorithms study group"
	g := conv("g", false, 1)
	g.GroupName = &name
	d := types.Conversation{
		ID:   "d",
		Type: types.ConversationDirect,
		Participants: []types.Participant{
			{ID: "me", Name: "Me"},
			{ID: "grace", Name: "Grace Hopper"},
		},
	}
	s.Replace([]types.Conversation{g, d})

	cases := []struct {
		pattern string
		want    string
	}{
		{pattern: "grace", want: "[d]"},
		{pattern: "algo*", want: "[g]"},
		{pattern: "", want: "[g d]"},
	}
	for _, tc := range cases {
		got, err := s.Filter(tc.pattern)
		if err != nil {
			t.Fatalf("filter %q: %v", tc.pattern, err)
		}
		if fmt.Sprint(ids(got)) != tc.want {
			t.Fatalf("filter %q: got %v want %s", tc.pattern, ids(got), tc.want)
		}
	}
}

func TestFindDirect(t *testing.T) {
	s := NewStore("me")
	d := types.Conversation{ID: "d", Type: types.ConversationDirect, Participants: []types.Participant{{ID: "me"}, {ID: "x"}}}
	s.Replace([]types.Conversation{d, conv("g", false, 0)})
	if got, ok := s.FindDirect("x"); !ok || got.ID != "d" {
		t.Fatalf("expected direct conversation, got %+v %v", got, ok)
	}
	if _, ok := s.FindDirect("y"); ok {
		t.Fatalf("unexpected match")
	}
}
