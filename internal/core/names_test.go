package core

import (
	"testing"

	"github.com/adamavenir/agora/internal/types"
)

func TestDisplayName(t *testing.T) {
	named := "CS101 study group"
	blank := "  "
	direct := types.Conversation{
		Type: types.ConversationDirect,
		Participants: []types.Participant{
			{ID: "me", Name: "Me"},
			{ID: "u2", Name: "Ada"},
		},
	}
	tests := []struct {
		name string
		conv types.Conversation
		want string
	}{
		{"direct", direct, "Ada"},
		{"group named", types.Conversation{Type: types.ConversationGroup, GroupName: &named}, named},
		{"group unnamed", types.Conversation{Type: types.ConversationGroup}, "Group Chat"},
		{"group blank", types.Conversation{Type: types.ConversationGroup, GroupName: &blank}, "Group Chat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayName(tt.conv, "me"); got != tt.want {
				t.Errorf("DisplayName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReplySnapshotTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 20; i++ {
		long += "word\nword "
	}
	snap := ReplySnapshot(types.Message{ID: "m1", Content: long}, "Ada")
	if snap.ID != "m1" || snap.SenderName != "Ada" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if n := len([]rune(snap.Content)); n > replySnapshotLength {
		t.Fatalf("snapshot too long: %d runes", n)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"hello world", 6, "hello…"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
