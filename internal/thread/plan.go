package thread

import (
	"sort"
	"time"

	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/types"
)

// DividerGap is the silence after which a timestamp divider is shown.
const DividerGap = 5 * time.Minute

// Entry is the display plan for one message.
type Entry struct {
	Message         types.Message
	ShowTimestamp   bool
	ShowAvatar      bool
	ShowSenderLabel bool
	IsOwn           bool
	SenderName      string
	Reply           *ReplyView
	Reactions       []ReactionGroup
}

// ReplyView renders the captured reply snapshot. Resolved is false when the
// original message is no longer in the thread.
type ReplyView struct {
	types.ReplyTo
	Resolved bool
}

// ReactionGroup summarizes one emoji on one message.
type ReactionGroup struct {
	Emoji    string
	Count    int
	UserIDs  []string
	Includes bool
}

// BuildPlan derives display flags for messages. It never modifies its input
// and returns the same plan for the same arguments.
func BuildPlan(conv types.Conversation, messages []types.Message, self string) []Entry {
	present := make(map[string]struct{}, len(messages))
	for _, m := range messages {
		present[m.ID] = struct{}{}
	}
	group := conv.Type == types.ConversationGroup

	plan := make([]Entry, len(messages))
	for i, m := range messages {
		divider := ShowTimestamp(messages, i)
		avatar := ShowAvatar(messages, i)
		entry := Entry{
			Message:         m.Clone(),
			ShowTimestamp:   divider,
			ShowAvatar:      avatar,
			ShowSenderLabel: group && avatar,
			IsOwn:           m.SenderID == self,
			SenderName:      core.SenderName(conv, m.SenderID),
			Reactions:       SummarizeReactions(m.Reactions, self),
		}
		if m.ReplyTo != nil {
			_, ok := present[m.ReplyTo.ID]
			entry.Reply = &ReplyView{ReplyTo: *m.ReplyTo, Resolved: ok}
		}
		plan[i] = entry
	}
	return plan
}

// ShowTimestamp reports whether a divider precedes messages[i].
func ShowTimestamp(messages []types.Message, i int) bool {
	if i == 0 {
		return true
	}
	return messages[i].Timestamp.Sub(messages[i-1].Timestamp) > DividerGap
}

// ShowAvatar reports whether messages[i] starts a new visual group.
func ShowAvatar(messages []types.Message, i int) bool {
	if i == 0 {
		return true
	}
	if messages[i].SenderID != messages[i-1].SenderID {
		return true
	}
	return ShowTimestamp(messages, i)
}

// SummarizeReactions returns reaction groups sorted by emoji.
func SummarizeReactions(reactions types.Reactions, self string) []ReactionGroup {
	if len(reactions) == 0 {
		return nil
	}
	emojis := make([]string, 0, len(reactions))
	for emoji, users := range reactions {
		if len(users) > 0 {
			emojis = append(emojis, emoji)
		}
	}
	sort.Strings(emojis)
	out := make([]ReactionGroup, 0, len(emojis))
	for _, emoji := range emojis {
		users := append([]string(nil), reactions[emoji]...)
		out = append(out, ReactionGroup{
			Emoji:    emoji,
			Count:    len(users),
			UserIDs:  users,
			Includes: reactions.Has(emoji, self),
		})
	}
	return out
}
