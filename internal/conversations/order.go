package conversations

import (
	"sort"

	"github.com/adamavenir/agora/internal/types"
)

// SortForDisplay orders pinned before unpinned, then newest last message
// first. Ties fall back to id so the order is total.
func SortForDisplay(list []types.Conversation) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		return newerFirst(a, b)
	})
}

// SortByPriority orders conversations with unread messages first, then as
// SortForDisplay does. It backs unread badges, not the main list.
func SortByPriority(list []types.Conversation) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if (a.UnreadCount > 0) != (b.UnreadCount > 0) {
			return a.UnreadCount > 0
		}
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		return newerFirst(a, b)
	})
}

func newerFirst(a, b types.Conversation) bool {
	ta, tb := a.LastMessage.Timestamp, b.LastMessage.Timestamp
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return a.ID < b.ID
}
