package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	tempPrefix   = "tmp-"
	groupPrefix  = "grp-"
	directPrefix = "dm-"

	memberSeparator = "|"
	compactIDLength = 16
)

// NewTempID returns a client-generated id for an optimistic message.
func NewTempID() string {
	return tempPrefix + uuid.NewString()
}

// IsTempID reports whether id was produced by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempPrefix)
}

// NewIdempotencyKey returns a key that lets the backend de-duplicate retries.
func NewIdempotencyKey() string {
	return uuid.NewString()
}

// CanonicalMembers sorts and de-duplicates member ids, dropping blanks.
func CanonicalMembers(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// GroupConversationID returns the id for a group with the given members.
// The same member set yields the same id regardless of order or duplicates.
func GroupConversationID(memberIDs []string) string {
	return groupPrefix + compactMemberHash(memberIDs)
}

// DirectConversationID returns the id for a direct conversation between two users.
func DirectConversationID(a, b string) string {
	return directPrefix + compactMemberHash([]string{a, b})
}

func compactMemberHash(ids []string) string {
	joined := strings.Join(CanonicalMembers(ids), memberSeparator)
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])[:compactIDLength]
}
