package directory

import (
	"errors"
	"sort"

	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/types"
)

// ErrEmptySelection is returned when starting a conversation with nobody selected.
var ErrEmptySelection = errors.New("no contacts selected")

// Target describes the conversation a selection resolves to.
type Target struct {
	ID   string
	Type types.ConversationType
	// ParticipantIDs are the selected users, sorted, excluding the current user.
	ParticipantIDs []string
}

// Toggle adds or removes userID from the selection and reports whether it is
// now selected.
func (d *Directory) Toggle(userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if userID == "" || userID == d.self {
		return false
	}
	if _, ok := d.selected[userID]; ok {
		delete(d.selected, userID)
		return false
	}
	d.selected[userID] = struct{}{}
	return true
}

// IsSelected reports whether userID is selected.
func (d *Directory) IsSelected(userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.selected[userID]
	return ok
}

// Selected returns the selected ids in sorted order.
func (d *Directory) Selected() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.selected))
	for id := range d.selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ClearSelection empties the selection.
func (d *Directory) ClearSelection() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = map[string]struct{}{}
}

// StartTarget resolves the current selection.
func (d *Directory) StartTarget() (Target, error) {
	return ResolveTarget(d.self, d.Selected())
}

// ResolveTarget maps a set of users to the conversation they would share
// with self: one user is a direct conversation, more is a group keyed by the
// canonical member set.
func ResolveTarget(self string, userIDs []string) (Target, error) {
	others := make([]string, 0, len(userIDs))
	for _, id := range core.CanonicalMembers(userIDs) {
		if id != self {
			others = append(others, id)
		}
	}
	switch len(others) {
	case 0:
		return Target{}, ErrEmptySelection
	case 1:
		return Target{
			ID:             core.DirectConversationID(self, others[0]),
			Type:           types.ConversationDirect,
			ParticipantIDs: others,
		}, nil
	default:
		return Target{
			ID:             core.GroupConversationID(append([]string{self}, others...)),
			Type:           types.ConversationGroup,
			ParticipantIDs: others,
		}, nil
	}
}
