// Package transfer provides the client-side transfer orchestration core:
// an active-transfer registry fed by engine events, a single-flight conflict
// gate, and a batch coordinator that turns a pane selection into engine
// requests.
package transfer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/portside-app/portside/internal/models"
)

// Engine is the boundary to the external transfer engine. Start requests
// return engine-assigned transfer IDs; outcomes arrive later as events, never
// as return values.
type Engine interface {
	// RemoteExists reports whether path exists on the connected host.
	RemoteExists(ctx context.Context, hostID int64, path string) (bool, error)

	// LocalExists reports whether a local path exists.
	LocalExists(path string) (bool, error)

	// StartUpload and StartDownload submit one file and return its transfer ID.
	StartUpload(ctx context.Context, hostID int64, localPath, remotePath, filename string, fileSize int64) (string, error)
	StartDownload(ctx context.Context, hostID int64, remotePath, localPath, filename string, fileSize int64) (string, error)

	// Directory variants walk the source tree engine-side and submit one
	// task per file found, returning all assigned IDs.
	StartDirectoryUpload(ctx context.Context, hostID int64, localDir, remoteDir string) ([]string, error)
	StartDirectoryDownload(ctx context.Context, hostID int64, remoteDir, localDir string) ([]string, error)

	// Cancel signals the engine to stop a transfer. Removal from the
	// active view happens when the cancelled event arrives, not here.
	Cancel(transferID string) error

	// Retry resubmits a finished history entry under a fresh transfer ID.
	Retry(ctx context.Context, historyID int64) (string, error)
}

// HistoryProvider is the persistent store the registry refreshes history from.
type HistoryProvider interface {
	GetAll(ctx context.Context) ([]models.HistoryRecord, error)
	GetByHost(ctx context.Context, hostID int64) ([]models.HistoryRecord, error)
	Clear(ctx context.Context) error
}

// Registry is the authoritative in-memory view of what is transferring now
// and what the store says happened before. Active entries are keyed by
// transfer ID and mutated only from engine events: progress upserts,
// terminal events remove. Start/cancel/retry calls pass straight through to
// the engine and never touch the active map themselves, so a transfer that
// dies before its first progress report never leaves a stale entry behind.
type Registry struct {
	mu      sync.RWMutex
	active  map[string]models.ActiveTransfer
	history []models.HistoryRecord
	loading bool

	engine Engine
	store  HistoryProvider

	listeners []func()
}

// NewRegistry creates an empty registry over the given engine and store.
func NewRegistry(engine Engine, store HistoryProvider) *Registry {
	return &Registry{
		active: make(map[string]models.ActiveTransfer),
		engine: engine,
		store:  store,
	}
}

// AddListener registers a callback fired after every state change. Listeners
// run outside the registry lock and must read state through the snapshot
// accessors.
func (r *Registry) AddListener(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Registry) notify() {
	r.mu.RLock()
	listeners := make([]func(), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

// RecordProgress merges one progress report into the active view.
// First report for an ID inserts; later reports overwrite in place,
// last-write-wins. The engine is trusted to emit monotonically, so a
// regressing percentage is stored as-is rather than rejected.
func (r *Registry) RecordProgress(update models.ActiveTransfer) {
	r.mu.Lock()
	r.active[update.TransferID] = update
	r.mu.Unlock()

	r.notify()
}

// RemoveActive drops the entry for the given transfer ID. Removing an
// unknown ID is a no-op, which makes duplicate terminal events harmless.
func (r *Registry) RemoveActive(transferID string) {
	r.mu.Lock()
	_, existed := r.active[transferID]
	delete(r.active, transferID)
	r.mu.Unlock()

	if existed {
		r.notify()
	}
}

// Active returns a snapshot of in-flight transfers ordered by transfer ID.
func (r *Registry) Active() []models.ActiveTransfer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ActiveTransfer, 0, len(r.active))
	for _, t := range r.active {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransferID < out[j].TransferID })
	return out
}

// Get returns the active entry for a transfer ID, if present.
func (r *Registry) Get(transferID string) (models.ActiveTransfer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.active[transferID]
	return t, ok
}

// ActiveCount returns the number of in-flight transfers.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// History returns the most recently fetched history snapshot.
func (r *Registry) History() []models.HistoryRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.HistoryRecord, len(r.history))
	copy(out, r.history)
	return out
}

// Loading reports whether a history fetch is in flight.
func (r *Registry) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading
}

// FetchHistory replaces the history snapshot from the store, filtered to one
// host when hostID is non-nil. On failure the previous snapshot is kept and
// the error is returned; the loading flag is reset either way.
func (r *Registry) FetchHistory(ctx context.Context, hostID *int64) error {
	r.mu.Lock()
	r.loading = true
	r.mu.Unlock()
	r.notify()

	defer func() {
		r.mu.Lock()
		r.loading = false
		r.mu.Unlock()
		r.notify()
	}()

	var (
		records []models.HistoryRecord
		err     error
	)
	if hostID != nil {
		records, err = r.store.GetByHost(ctx, *hostID)
	} else {
		records, err = r.store.GetAll(ctx)
	}
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	r.mu.Lock()
	r.history = records
	r.mu.Unlock()
	return nil
}

// ClearHistory asks the store to delete all history, then empties the local
// snapshot. The snapshot is only touched after the store call succeeds.
func (r *Registry) ClearHistory(ctx context.Context) error {
	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	r.mu.Lock()
	r.history = nil
	r.mu.Unlock()

	r.notify()
	return nil
}

// StartUpload submits one local file for upload and returns its transfer ID.
// No active entry is created; the first progress event does that.
func (r *Registry) StartUpload(ctx context.Context, hostID int64, localPath, remotePath, filename string, fileSize int64) (string, error) {
	return r.engine.StartUpload(ctx, hostID, localPath, remotePath, filename, fileSize)
}

// StartDownload submits one remote file for download and returns its transfer ID.
func (r *Registry) StartDownload(ctx context.Context, hostID int64, remotePath, localPath, filename string, fileSize int64) (string, error) {
	return r.engine.StartDownload(ctx, hostID, remotePath, localPath, filename, fileSize)
}

// StartDirectoryUpload submits a local directory tree for upload and returns
// one transfer ID per file the engine discovered.
func (r *Registry) StartDirectoryUpload(ctx context.Context, hostID int64, localDir, remoteDir string) ([]string, error) {
	return r.engine.StartDirectoryUpload(ctx, hostID, localDir, remoteDir)
}

// StartDirectoryDownload submits a remote directory tree for download and
// returns one transfer ID per file the engine discovered.
func (r *Registry) StartDirectoryDownload(ctx context.Context, hostID int64, remoteDir, localDir string) ([]string, error) {
	return r.engine.StartDirectoryDownload(ctx, hostID, remoteDir, localDir)
}

// CancelTransfer asks the engine to stop a transfer. Fire-and-forget: the
// active entry stays until the cancelled event arrives.
func (r *Registry) CancelTransfer(transferID string) error {
	return r.engine.Cancel(transferID)
}

// RetryTransfer resubmits a history entry and returns the fresh transfer ID
// the engine assigned to the new attempt.
func (r *Registry) RetryTransfer(ctx context.Context, historyID int64) (string, error) {
	return r.engine.Retry(ctx, historyID)
}
