package thread

import (
	"errors"
	"testing"
	"time"

	"github.com/adamavenir/agora/internal/types"
)

func TestEditAndDeleteOwnership(t *testing.T) {
	th := New("me")
	th.Load("c", []types.Message{msg("1", "a", 0), msg("2", "me", time.Minute)})

	if _, err := th.Edit("1", "nope"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := th.CheckOwner("1"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := th.Edit("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	prev, err := th.Edit("2", "updated")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if prev.Content != "2" || prev.Edited {
		t.Fatalf("unexpected previous message %+v", prev)
	}
	got, _ := th.Find("2")
	if got.Content != "updated" || !got.Edited {
		t.Fatalf("edit not applied: %+v", got)
	}
}

func TestReactionToggleIsIdempotent(t *testing.T) {
	th := New("me")
	m := msg("1", "a", 0)
	m.Reactions = types.Reactions{"👍": {"a"}}
	th.Load("c", []types.Message{m})

	on, err := th.ToggleReaction("1", "👍")
	if err != nil || !on {
		t.Fatalf("first toggle: %v %v", on, err)
	}
	on, _ = th.ToggleReaction("1", "👍")
	if on {
		t.Fatalf("second toggle should remove membership")
	}
	got, _ := th.Find("1")
	if len(got.Reactions["👍"]) != 1 || got.Reactions["👍"][0] != "a" {
		t.Fatalf("membership not restored: %+v", got.Reactions)
	}
}

func TestReplaceAndInsert(t *testing.T) {
	th := New("me")
	th.Load("c", []types.Message{msg("1", "a", 0), msg("2", "a", time.Minute)})

	tmp := msg("tmp-x", "me", 2*time.Minute)
	if !th.Append(tmp) {
		t.Fatalf("append failed")
	}
	other := tmp
	other.ConversationID = "elsewhere"
	other.ID = "tmp-y"
	if th.Append(other) {
		t.Fatalf("append to a different conversation must be ignored")
	}

	confirmed := tmp
	confirmed.ID = "srv-3"
	if !th.Replace("tmp-x", confirmed) {
		t.Fatalf("replace failed")
	}
	if ids := th.IDs(); len(ids) != 3 || ids[2] != "srv-3" {
		t.Fatalf("unexpected ids %v", ids)
	}

	removed, idx, _ := th.Remove("1")
	th.Insert(idx, removed)
	if ids := th.IDs(); ids[0] != "1" {
		t.Fatalf("insert did not restore position: %v", ids)
	}
}
