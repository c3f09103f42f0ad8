// Package directory resolves the people a user can message: existing
// contacts, followed users and ad-hoc search results.
package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/adamavenir/agora/internal/action"
	"github.com/adamavenir/agora/internal/logging"
	"github.com/adamavenir/agora/internal/types"
	"go.uber.org/zap"
)

// View is one materialized pool of people.
type View struct {
	State types.LoadState
	Items []types.Contact
	Err   error
}

// Empty reports whether a finished load produced no entries.
func (v View) Empty() bool {
	return (v.State == types.LoadLoaded || v.State == types.LoadFailed) && len(v.Items) == 0
}

func (v View) clone() View {
	out := v
	out.Items = append([]types.Contact(nil), v.Items...)
	return out
}

// API is the slice of the backend the directory needs.
type API interface {
	Contacts(ctx context.Context) ([]types.Contact, error)
	Following(ctx context.Context) ([]types.Contact, error)
	SearchUsers(ctx context.Context, query string) ([]types.Contact, error)
	Follow(ctx context.Context, userID string) error
	Unfollow(ctx context.Context, userID string) error
}

// Directory holds the three views and the multi-select set.
type Directory struct {
	mu        sync.Mutex
	client    API
	ledger    *action.Ledger
	self      string
	logger    *zap.Logger
	now       func() time.Time
	contacts  View
	following View
	results   View
	query     string
	searchSeq uint64
	selected  map[string]struct{}
	reloads   sync.WaitGroup
}

// New returns a directory for the user self.
func New(client API, self string, ledger *action.Ledger, logger *zap.Logger) *Directory {
	if ledger == nil {
		ledger = action.NewLedger(0, logger)
	}
	return &Directory{
		client:   client,
		ledger:   ledger,
		self:     self,
		logger:   logging.OrNop(logger),
		now:      func() time.Time { return time.Now().UTC() },
		selected: map[string]struct{}{},
	}
}

// LoadContacts fetches people with shared conversation history.
func (d *Directory) LoadContacts(ctx context.Context) View {
	d.mu.Lock()
	d.contacts.State = types.LoadLoading
	d.mu.Unlock()

	items, err := d.client.Contacts(ctx)
	view := d.finish("contacts", dedupe(items), err)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.contacts = view
	return view.clone()
}

// LoadFollowing fetches users the current user follows.
func (d *Directory) LoadFollowing(ctx context.Context) View {
	d.mu.Lock()
	d.following.State = types.LoadLoading
	d.mu.Unlock()

	items, err := d.client.Following(ctx)
	items = dedupe(items)
	now := d.now()
	for i := range items {
		items[i].IsFollowing = true
		if items[i].LastActiveAt.IsZero() {
			items[i].LastActiveAt = now
		}
	}
	view := d.finish("following", items, err)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.following = view
	return view.clone()
}

// Search fetches users matching query. A blank query clears the results
// without a request. A search that finishes after a newer one started is
// discarded.
func (d *Directory) Search(ctx context.Context, query string) View {
	query = strings.TrimSpace(query)
	d.mu.Lock()
	d.searchSeq++
	seq := d.searchSeq
	d.query = query
	if query == "" {
		d.results = View{State: types.LoadLoaded}
		d.mu.Unlock()
		return View{State: types.LoadLoaded}
	}
	d.results.State = types.LoadLoading
	d.mu.Unlock()

	items, err := d.client.SearchUsers(ctx, query)
	filtered := make([]types.Contact, 0, len(items))
	for _, c := range dedupe(items) {
		if c.ID != d.self {
			filtered = append(filtered, c)
		}
	}
	view := d.finish("search", filtered, err)

	d.mu.Lock()
	defer d.mu.Unlock()
	if seq != d.searchSeq {
		return view
	}
	d.results = view
	return view.clone()
}

func (d *Directory) finish(name string, items []types.Contact, err error) View {
	if err != nil {
		d.logger.Warn("directory load failed", zap.String("view", name), zap.Error(err))
		return View{State: types.LoadFailed, Items: []types.Contact{}, Err: err}
	}
	if items == nil {
		items = []types.Contact{}
	}
	return View{State: types.LoadLoaded, Items: items}
}

// Contacts returns the current contacts view.
func (d *Directory) Contacts() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.contacts.clone()
}

// Following returns the current following view.
func (d *Directory) Following() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.following.clone()
}

// Results returns the current search view and the query that produced it.
func (d *Directory) Results() (View, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.results.clone(), d.query
}

// Lookup finds a user in any loaded view.
func (d *Directory) Lookup(userID string) (types.Contact, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, view := range []View{d.results, d.following, d.contacts} {
		for _, c := range view.Items {
			if c.ID == userID {
				return c, true
			}
		}
	}
	return types.Contact{}, false
}

// Follow follows userID.
func (d *Directory) Follow(ctx context.Context, userID string) error {
	return d.setFollow(ctx, userID, true)
}

// Unfollow unfollows userID.
func (d *Directory) Unfollow(ctx context.Context, userID string) error {
	return d.setFollow(ctx, userID, false)
}

// BeginFollow flips the flag in every loaded view and returns the pending
// request. A failure keeps the flipped flag until the next reload; the
// request is idempotent, so the user can simply retry. Once the request is
// confirmed the following view is stale and should be reloaded.
func (d *Directory) BeginFollow(userID string, on bool) *action.Op {
	kind, request := action.KindFollow, d.client.Follow
	if !on {
		kind, request = action.KindUnfollow, d.client.Unfollow
	}
	return d.ledger.Begin(action.Mutation{
		Kind:  kind,
		Scope: "directory",
		Apply: func() { d.markFollowing(userID, on) },
		Request: func(ctx context.Context) (func(), error) {
			return nil, request(ctx, userID)
		},
	})
}

func (d *Directory) setFollow(ctx context.Context, userID string, on bool) error {
	res := d.BeginFollow(userID, on).Do(ctx)
	if d.ledger.Settle(res) == action.Confirmed {
		d.ReloadFollowing(ctx)
	}
	return res.Err
}

// ReloadFollowing refetches the following view in the background. Wait
// blocks until every reload started this way has finished.
func (d *Directory) ReloadFollowing(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	d.reloads.Add(1)
	go func() {
		defer d.reloads.Done()
		d.LoadFollowing(ctx)
	}()
}

// Wait blocks until background reloads finish.
func (d *Directory) Wait() { d.reloads.Wait() }

func (d *Directory) markFollowing(userID string, on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, view := range []*View{&d.results, &d.contacts} {
		for i := range view.Items {
			if view.Items[i].ID == userID {
				view.Items[i].IsFollowing = on
			}
		}
	}
}

func dedupe(items []types.Contact) []types.Contact {
	seen := make(map[string]struct{}, len(items))
	out := make([]types.Contact, 0, len(items))
	for _, c := range items {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
