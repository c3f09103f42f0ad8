package core

import (
	"strings"
	"unicode/utf8"

	"github.com/adamavenir/agora/internal/types"
)

const (
	replySnapshotLength = 80
	ellipsis            = "…"
)

// DisplayName derives a conversation title for the viewing user.
// Direct conversations show the other participant; groups show their name or
// the fallback.
func DisplayName(conv types.Conversation, currentUserID string) string {
	if conv.Type == types.ConversationGroup {
		if conv.GroupName != nil && strings.TrimSpace(*conv.GroupName) != "" {
			return *conv.GroupName
		}
		return types.GroupNameFallback
	}
	if other, ok := OtherParticipant(conv, currentUserID); ok {
		return other.Name
	}
	return "Unknown"
}

// DisplayAvatar returns the avatar reference shown for a conversation.
func DisplayAvatar(conv types.Conversation, currentUserID string) *string {
	if conv.Type == types.ConversationGroup {
		return nil
	}
	if other, ok := OtherParticipant(conv, currentUserID); ok {
		return other.AvatarRef
	}
	return nil
}

// OtherParticipant returns the first participant that is not the current user.
func OtherParticipant(conv types.Conversation, currentUserID string) (types.Participant, bool) {
	for _, p := range conv.Participants {
		if p.ID != currentUserID {
			return p, true
		}
	}
	return types.Participant{}, false
}

// SenderName resolves a sender id against the conversation participants.
func SenderName(conv types.Conversation, senderID string) string {
	if p, ok := conv.Participant(senderID); ok && p.Name != "" {
		return p.Name
	}
	return senderID
}

// ReplySnapshot captures the reply target as it looks right now.
func ReplySnapshot(target types.Message, senderName string) types.ReplyTo {
	return types.ReplyTo{
		ID:         target.ID,
		Content:    Truncate(collapseWhitespace(target.Content), replySnapshotLength),
		SenderName: senderName,
	}
}

// Truncate shortens text to maxRunes, appending an ellipsis when cut.
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimRight(string(runes[:maxRunes-1]), " ") + ellipsis
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
