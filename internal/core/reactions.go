package core

import (
	"strings"
	"unicode"

	"github.com/adamavenir/agora/internal/types"
	"golang.org/x/text/unicode/norm"
)

const maxReactionRunes = 8

// NormalizeReaction returns the canonical key for an emoji reaction.
// Equivalent encodings of the same emoji collapse to one key.
func NormalizeReaction(raw string) (string, bool) {
	value := norm.NFC.String(strings.TrimSpace(raw))
	if value == "" {
		return "", false
	}
	count := 0
	for _, r := range value {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", false
		}
		count++
	}
	if count > maxReactionRunes {
		return "", false
	}
	return value, true
}

// ToggleReaction adds userID to the emoji set, or removes it if present.
// It returns a new map and whether the user is now a member.
func ToggleReaction(reactions types.Reactions, emoji, userID string) (types.Reactions, bool) {
	out := reactions.Clone()
	if out == nil {
		out = types.Reactions{}
	}
	users := out[emoji]
	for i, id := range users {
		if id == userID {
			users = append(users[:i:i], users[i+1:]...)
			if len(users) == 0 {
				delete(out, emoji)
			} else {
				out[emoji] = users
			}
			return out, false
		}
	}
	out[emoji] = append(users, userID)
	return out, true
}

// SetReaction forces membership of userID in the emoji set.
func SetReaction(reactions types.Reactions, emoji, userID string, member bool) types.Reactions {
	if reactions.Has(emoji, userID) == member {
		return reactions.Clone()
	}
	out, _ := ToggleReaction(reactions, emoji, userID)
	return out
}

// NormalizeReactions drops empty keys and duplicate members.
func NormalizeReactions(in types.Reactions) types.Reactions {
	out := types.Reactions{}
	for raw, users := range in {
		emoji, ok := NormalizeReaction(raw)
		if !ok {
			continue
		}
		members := out[emoji]
		for _, id := range users {
			id = strings.TrimSpace(id)
			if id == "" || containsString(members, id) {
				continue
			}
			members = append(members, id)
		}
		if len(members) > 0 {
			out[emoji] = members
		}
	}
	return out
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
