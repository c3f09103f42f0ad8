// Package action sequences optimistic local mutations with their network
// requests. Every mutation moves through Pending to one terminal state, and a
// full refresh of a scope supersedes whatever is still pending in it.
package action

import (
	"context"
	"sync"
	"time"

	"github.com/adamavenir/agora/internal/api"
	"github.com/adamavenir/agora/internal/logging"
	"go.uber.org/zap"
)

// Kind names the user intent behind a mutation.
type Kind string

const (
	KindStart    Kind = "start"
	KindSend     Kind = "send"
	KindEdit     Kind = "edit"
	KindDelete   Kind = "delete"
	KindReact    Kind = "react"
	KindFollow   Kind = "follow"
	KindUnfollow Kind = "unfollow"
	KindPin      Kind = "pin"
	KindMute     Kind = "mute"
)

// State is the lifecycle position of a mutation.
type State int

const (
	StatePending State = iota
	StateConfirmed
	StateRolledBack
	StateSuperseded
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateRolledBack:
		return "rolled_back"
	case StateSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Outcome is how a mutation ended.
type Outcome int

const (
	Confirmed Outcome = iota
	Rejected
	TimedOut
	Superseded
)

func (o Outcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case Rejected:
		return "rejected"
	case TimedOut:
		return "timed_out"
	case Superseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Request performs the network half of a mutation. On success it returns a
// reconcile func that folds the server's answer into local state; reconcile
// runs on the caller's goroutine during Settle, never inside Request.
type Request func(ctx context.Context) (reconcile func(), err error)

// Mutation describes one optimistic change.
type Mutation struct {
	Kind  Kind
	Scope string
	// Apply makes the optimistic local change. It runs inside Begin.
	Apply func()
	// Revert undoes Apply. Nil means the change is left in place on failure.
	Revert  func()
	Request Request
}

// Op is a begun mutation awaiting its network round-trip.
type Op struct {
	ID    uint64
	Kind  Kind
	Scope string

	epoch   uint64
	revert  func()
	request Request
	timeout time.Duration
}

// Result carries a finished request back to Settle.
type Result struct {
	Op        *Op
	Err       error
	reconcile func()
}

// Ledger tracks mutations by scope.
type Ledger struct {
	mu      sync.Mutex
	seq     uint64
	epochs  map[string]uint64
	states  map[uint64]State
	pending map[string]map[uint64]struct{}
	timeout time.Duration
	logger  *zap.Logger
}

// NewLedger returns a ledger whose requests are bounded by timeout.
func NewLedger(timeout time.Duration, logger *zap.Logger) *Ledger {
	return &Ledger{
		epochs:  map[string]uint64{},
		states:  map[uint64]State{},
		pending: map[string]map[uint64]struct{}{},
		timeout: timeout,
		logger:  logging.OrNop(logger),
	}
}

// Begin applies the optimistic change and records the mutation as pending.
func (l *Ledger) Begin(m Mutation) *Op {
	if m.Apply != nil {
		m.Apply()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	op := &Op{
		ID:      l.seq,
		Kind:    m.Kind,
		Scope:   m.Scope,
		epoch:   l.epochs[m.Scope],
		revert:  m.Revert,
		request: m.Request,
		timeout: l.timeout,
	}
	l.states[op.ID] = StatePending
	if l.pending[m.Scope] == nil {
		l.pending[m.Scope] = map[uint64]struct{}{}
	}
	l.pending[m.Scope][op.ID] = struct{}{}
	return op
}

// Do runs the network request. It touches no local state and may run on any
// goroutine.
func (op *Op) Do(ctx context.Context) Result {
	if op.request == nil {
		return Result{Op: op}
	}
	if op.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, op.timeout)
		defer cancel()
	}
	reconcile, err := op.request(ctx)
	return Result{Op: op, Err: err, reconcile: reconcile}
}

// Settle moves the mutation to its terminal state: reconcile on success,
// revert on failure, nothing at all if the scope was refreshed meanwhile.
func (l *Ledger) Settle(res Result) Outcome {
	op := res.Op
	l.mu.Lock()
	superseded := l.states[op.ID] == StateSuperseded || l.epochs[op.Scope] != op.epoch
	delete(l.pending[op.Scope], op.ID)
	if superseded {
		l.states[op.ID] = StateSuperseded
		l.mu.Unlock()
		l.logger.Info("mutation superseded",
			zap.Uint64("mutation", op.ID), zap.String("kind", string(op.Kind)), zap.String("scope", op.Scope))
		return Superseded
	}
	if res.Err == nil {
		l.states[op.ID] = StateConfirmed
		l.mu.Unlock()
		if res.reconcile != nil {
			res.reconcile()
		}
		return Confirmed
	}
	l.states[op.ID] = StateRolledBack
	l.mu.Unlock()

	if op.revert != nil {
		op.revert()
	}
	outcome := Rejected
	if api.IsTimeout(res.Err) {
		outcome = TimedOut
	}
	l.logger.Info("mutation rolled back",
		zap.Uint64("mutation", op.ID),
		zap.String("kind", string(op.Kind)),
		zap.String("scope", op.Scope),
		zap.Stringer("outcome", outcome),
		zap.Error(res.Err))
	return outcome
}

// Run is Begin, Do and Settle in one call for synchronous callers.
func (l *Ledger) Run(ctx context.Context, m Mutation) (Outcome, error) {
	res := l.Begin(m).Do(ctx)
	outcome := l.Settle(res)
	if outcome == Superseded && res.Err == nil {
		return outcome, nil
	}
	return outcome, res.Err
}

// Supersede marks every pending mutation in scope as overwritten by a fresh
// authoritative read.
func (l *Ledger) Supersede(scope string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.epochs[scope]++
	count := 0
	for id := range l.pending[scope] {
		l.states[id] = StateSuperseded
		count++
	}
	delete(l.pending, scope)
	return count
}

// State reports the lifecycle position of a mutation.
func (l *Ledger) State(id uint64) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.states[id]
}

// Pending returns how many mutations are in flight for scope.
func (l *Ledger) Pending(scope string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending[scope])
}
