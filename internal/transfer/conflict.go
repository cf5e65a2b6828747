package transfer

import (
	"errors"
	"sync"

	"github.com/portside-app/portside/internal/models"
)

// Decision is the user's answer to a destination conflict.
type Decision string

const (
	DecisionOverwrite Decision = "overwrite"
	DecisionSkip      Decision = "skip"
	DecisionRename    Decision = "rename"
)

// ErrDecisionPending is returned when a decision is requested while another
// conflict is still awaiting its answer. The coordinator's sequential file
// loop never triggers this; seeing it means a caller bypassed the loop.
var ErrDecisionPending = errors.New("conflict decision already pending")

// PendingConflict describes one destination collision awaiting a decision.
type PendingConflict struct {
	HostID     int64            `json:"hostId"`
	LocalPath  string           `json:"localPath"`
	RemotePath string           `json:"remotePath"`
	Filename   string           `json:"filename"`
	FileSize   int64            `json:"fileSize"`
	Direction  models.Direction `json:"direction"`
}

// ConflictGate serializes overwrite decisions. At most one conflict is
// pending at any time; RequestDecision hands back a single-use channel that
// is fulfilled exactly once by Decide, DecideOverwriteAll, or Dismiss.
// Once DecideOverwriteAll has armed the overwrite-all flag, later requests
// resolve immediately without becoming visible, until ResetOverwriteAll.
type ConflictGate struct {
	mu           sync.Mutex
	pending      *PendingConflict
	resolver     chan Decision
	overwriteAll bool

	// Called when a conflict becomes visible, so a UI can prompt.
	onConflict func(PendingConflict)
}

// NewConflictGate creates an idle gate with the overwrite-all flag cleared.
func NewConflictGate() *ConflictGate {
	return &ConflictGate{}
}

// SetOnConflict registers the hook invoked (on its own goroutine) each time
// a conflict transitions to visible. Must be set before dispatching batches
// that can conflict; without it, only Decide calls from elsewhere can
// resolve the pending conflict.
func (g *ConflictGate) SetOnConflict(fn func(PendingConflict)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onConflict = fn
}

// RequestDecision asks what should happen to the conflicting destination.
// The returned channel receives exactly one Decision. When overwrite-all is
// active the channel is already fulfilled with DecisionOverwrite and the
// conflict is never displayed.
func (g *ConflictGate) RequestDecision(item PendingConflict) (<-chan Decision, error) {
	g.mu.Lock()

	if g.overwriteAll {
		g.mu.Unlock()
		ch := make(chan Decision, 1)
		ch <- DecisionOverwrite
		return ch, nil
	}

	if g.resolver != nil {
		g.mu.Unlock()
		return nil, ErrDecisionPending
	}

	ch := make(chan Decision, 1)
	g.resolver = ch
	g.pending = &item
	notify := g.onConflict
	g.mu.Unlock()

	if notify != nil {
		go notify(item)
	}
	return ch, nil
}

// Decide resolves the visible conflict with the given action.
// A call with no conflict pending is a no-op (the dialog already resolved).
func (g *ConflictGate) Decide(action Decision) {
	g.fulfill(action, false)
}

// DecideOverwriteAll resolves the visible conflict with DecisionOverwrite
// and arms the overwrite-all flag so every later request in the batch
// short-circuits to overwrite.
func (g *ConflictGate) DecideOverwriteAll() {
	g.fulfill(DecisionOverwrite, true)
}

// Dismiss closes the conflict display. If a decision is still pending it
// resolves as DecisionSkip so the dispatch loop is never wedged by a closed
// dialog; dismissing an already-resolved conflict is a no-op.
func (g *ConflictGate) Dismiss() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.resolver != nil {
		g.resolver <- DecisionSkip
		g.resolver = nil
	}
	g.pending = nil
}

// ResetOverwriteAll clears the overwrite-all flag. Called once at the start
// of every batch so a stale "apply to all" never leaks into the next one.
func (g *ConflictGate) ResetOverwriteAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.overwriteAll = false
}

// OverwriteAllActive reports whether the short-circuit is armed.
func (g *ConflictGate) OverwriteAllActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.overwriteAll
}

// Pending returns the conflict a UI should currently display, if any.
func (g *ConflictGate) Pending() (PendingConflict, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		return PendingConflict{}, false
	}
	return *g.pending, true
}

// Visible reports whether a conflict is currently displayed.
func (g *ConflictGate) Visible() bool {
	_, ok := g.Pending()
	return ok
}

func (g *ConflictGate) fulfill(action Decision, all bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if all {
		g.overwriteAll = true
	}
	if g.resolver == nil {
		return
	}

	// Buffered with capacity 1, so the send never blocks. The slot is
	// cleared before unlocking, which is what makes double-fulfill
	// impossible.
	g.resolver <- action
	g.resolver = nil
	g.pending = nil
}
