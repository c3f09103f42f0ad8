package thread

import (
	"reflect"
	"testing"
	"time"

	"github.com/adamavenir/agora/internal/types"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func msg(id, sender string, offset time.Duration) types.Message {
	return types.Message{ID: id, ConversationID: "c", SenderID: sender, Content: id, Timestamp: t0.Add(offset)}
}

func group() types.Conversation {
	return types.Conversation{
		ID:   "c",
		Type: types.ConversationGroup,
		Participants: []types.Participant{
			{ID: "a", Name: "Ada"},
			{ID: "b", Name: "Bob"},
			{ID: "me", Name: "Me"},
		},
	}
}

func TestGroupingScenario(t *testing.T) {
	messages := []types.Message{
		msg("1", "a", 0),
		msg("2", "a", 2*time.Minute),
		msg("3", "b", 3*time.Minute),
	}
	plan := BuildPlan(group(), messages, "me")

	want := []struct{ timestamp, avatar bool }{
		{true, true},
		{false, false},
		{false, true},
	}
	for i, w := range want {
		if plan[i].ShowTimestamp != w.timestamp || plan[i].ShowAvatar != w.avatar {
			t.Fatalf("entry %d: got timestamp=%v avatar=%v", i, plan[i].ShowTimestamp, plan[i].ShowAvatar)
		}
		if plan[i].ShowSenderLabel != plan[i].ShowAvatar {
			t.Fatalf("entry %d: sender label must follow avatar in groups", i)
		}
	}
}

func TestDividerBoundary(t *testing.T) {
	cases := []struct {
		name string
		gap  time.Duration
		want bool
	}{
		{name: "4:59", gap: 4*time.Minute + 59*time.Second, want: false},
		{name: "exactly 5:00", gap: 5 * time.Minute, want: false},
		{name: "5:01", gap: 5*time.Minute + time.Second, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			messages := []types.Message{msg("1", "a", 0), msg("2", "a", tc.gap)}
			if got := ShowTimestamp(messages, 1); got != tc.want {
				t.Fatalf("ShowTimestamp = %v, want %v", got, tc.want)
			}
			// A divider also restarts the avatar run for the same sender.
			if got := ShowAvatar(messages, 1); got != tc.want {
				t.Fatalf("ShowAvatar = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDirectConversationsHaveNoSenderLabels(t *testing.T) {
	conv := types.Conversation{ID: "c", Type: types.ConversationDirect, Participants: []types.Participant{{ID: "a"}, {ID: "me"}}}
	plan := BuildPlan(conv, []types.Message{msg("1", "a", 0)}, "me")
	if !plan[0].ShowAvatar || plan[0].ShowSenderLabel {
		t.Fatalf("unexpected flags: %+v", plan[0])
	}
}

func TestBuildPlanIsDeterministicAndPure(t *testing.T) {
	messages := []types.Message{
		msg("1", "a", 0),
		msg("2", "me", time.Minute),
		msg("3", "me", 20*time.Minute),
	}
	messages[1].Reactions = types.Reactions{"👍": {"a", "me"}, "🎉": {"b"}}
	before := make([]types.Message, len(messages))
	for i, m := range messages {
		before[i] = m.Clone()
	}

	first := BuildPlan(group(), messages, "me")
	second := BuildPlan(group(), messages, "me")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("plan is not deterministic")
	}
	if !reflect.DeepEqual(before, messages) {
		t.Fatalf("BuildPlan modified its input")
	}
	if !first[1].IsOwn || first[0].IsOwn {
		t.Fatalf("unexpected ownership flags")
	}
	reactions := first[1].Reactions
	if len(reactions) != 2 || reactions[0].Emoji > reactions[1].Emoji {
		t.Fatalf("reactions not sorted: %+v", reactions)
	}
	for _, r := range reactions {
		if r.Emoji == "👍" && (!r.Includes || r.Count != 2) {
			t.Fatalf("unexpected thumbs summary: %+v", r)
		}
	}
}

func TestBrokenReplyReferenceRenders(t *testing.T) {
	reply := msg("2", "me", time.Minute)
	reply.ReplyTo = &types.ReplyTo{ID: "gone", Content: "original text", SenderName: "Ada"}
	plan := BuildPlan(group(), []types.Message{msg("1", "a", 0), reply}, "me")
	if plan[1].Reply == nil || plan[1].Reply.Resolved {
		t.Fatalf("expected unresolved reply view, got %+v", plan[1].Reply)
	}
	if plan[1].Reply.Content != "original text" {
		t.Fatalf("snapshot content lost")
	}
}

func TestPlanFollowsDeletes(t *testing.T) {
	th := New("me")
	th.Load("c", []types.Message{msg("1", "a", 0), msg("2", "b", time.Minute), msg("3", "a", 2*time.Minute)})
	if _, _, ok := th.Remove("2"); !ok {
		t.Fatalf("remove failed")
	}
	plan := BuildPlan(group(), th.Messages(), "me")
	if plan[1].ShowAvatar {
		t.Fatalf("after delete, consecutive messages from a should merge")
	}
}
