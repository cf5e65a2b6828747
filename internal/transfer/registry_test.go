package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/portside-app/portside/internal/models"
)

// fakeEngine records start/cancel/retry calls and returns canned results.
type fakeEngine struct {
	mu sync.Mutex

	remoteExisting map[string]bool
	localExisting  map[string]bool
	existsErr      error
	startErr       error
	dirErr         error
	dirPartialIDs  []string // IDs already assigned when dirErr is returned

	nextID    int
	uploads   []startCall
	downloads []startCall
	dirCalls  []dirCall
	cancelled []string
	retried   []int64
}

type startCall struct {
	hostID     int64
	sourcePath string
	destPath   string
	filename   string
	fileSize   int64
}

type dirCall struct {
	hostID    int64
	sourceDir string
	destDir   string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		remoteExisting: make(map[string]bool),
		localExisting:  make(map[string]bool),
	}
}

func (f *fakeEngine) assignID() string {
	f.nextID++
	return fmt.Sprintf("t-%d", f.nextID)
}

func (f *fakeEngine) RemoteExists(_ context.Context, _ int64, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.remoteExisting[path], nil
}

func (f *fakeEngine) LocalExists(path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.localExisting[path], nil
}

func (f *fakeEngine) StartUpload(_ context.Context, hostID int64, localPath, remotePath, filename string, fileSize int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	f.uploads = append(f.uploads, startCall{hostID, localPath, remotePath, filename, fileSize})
	return f.assignID(), nil
}

func (f *fakeEngine) StartDownload(_ context.Context, hostID int64, remotePath, localPath, filename string, fileSize int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	f.downloads = append(f.downloads, startCall{hostID, remotePath, localPath, filename, fileSize})
	return f.assignID(), nil
}

func (f *fakeEngine) StartDirectoryUpload(_ context.Context, hostID int64, localDir, remoteDir string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirErr != nil {
		return f.dirPartialIDs, f.dirErr
	}
	f.dirCalls = append(f.dirCalls, dirCall{hostID, localDir, remoteDir})
	return []string{f.assignID(), f.assignID()}, nil
}

func (f *fakeEngine) StartDirectoryDownload(_ context.Context, hostID int64, remoteDir, localDir string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirErr != nil {
		return f.dirPartialIDs, f.dirErr
	}
	f.dirCalls = append(f.dirCalls, dirCall{hostID, remoteDir, localDir})
	return []string{f.assignID(), f.assignID()}, nil
}

func (f *fakeEngine) Cancel(transferID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, transferID)
	return nil
}

func (f *fakeEngine) Retry(_ context.Context, historyID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried = append(f.retried, historyID)
	return f.assignID(), nil
}

// fakeHistoryStore serves canned history rows and records clear calls.
type fakeHistoryStore struct {
	mu      sync.Mutex
	all     []models.HistoryRecord
	byHost  map[int64][]models.HistoryRecord
	err     error
	cleared int
	fetches int
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{byHost: make(map[int64][]models.HistoryRecord)}
}

func (f *fakeHistoryStore) GetAll(context.Context) ([]models.HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.all, nil
}

func (f *fakeHistoryStore) GetByHost(_ context.Context, hostID int64) ([]models.HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.byHost[hostID], nil
}

func (f *fakeHistoryStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.cleared++
	return nil
}

func progressFor(id string, pct float64) models.ActiveTransfer {
	return models.ActiveTransfer{
		TransferID:       id,
		Filename:         id + ".bin",
		TotalBytes:       1000,
		TransferredBytes: int64(pct * 10),
		Percentage:       pct,
	}
}

func TestRegistry_RecordProgressLastWriteWins(t *testing.T) {
	r := NewRegistry(newFakeEngine(), newFakeHistoryStore())

	r.RecordProgress(progressFor("t-1", 10))
	r.RecordProgress(progressFor("t-1", 70))
	// Out-of-order regression is stored as-is.
	r.RecordProgress(progressFor("t-1", 40))

	if n := r.ActiveCount(); n != 1 {
		t.Fatalf("Expected exactly one entry, got %d", n)
	}
	got, ok := r.Get("t-1")
	if !ok {
		t.Fatal("Expected entry for t-1")
	}
	if got.Percentage != 40 {
		t.Errorf("Expected last write (40%%) to win, got %f", got.Percentage)
	}
}

func TestRegistry_OneEntryPerTransferID(t *testing.T) {
	r := NewRegistry(newFakeEngine(), newFakeHistoryStore())

	for i := 0; i < 5; i++ {
		r.RecordProgress(progressFor("t-1", float64(i*10)))
		r.RecordProgress(progressFor("t-2", float64(i*10)))
	}

	if n := r.ActiveCount(); n != 2 {
		t.Errorf("Expected 2 entries for 2 distinct ids, got %d", n)
	}
}

func TestRegistry_RemoveActiveIdempotent(t *testing.T) {
	r := NewRegistry(newFakeEngine(), newFakeHistoryStore())

	r.RecordProgress(progressFor("t-1", 50))
	r.RecordProgress(progressFor("t-2", 50))

	r.RemoveActive("t-1")
	r.RemoveActive("t-1") // duplicate terminal event
	r.RemoveActive("never-seen")

	if n := r.ActiveCount(); n != 1 {
		t.Fatalf("Expected 1 remaining entry, got %d", n)
	}
	if _, ok := r.Get("t-2"); !ok {
		t.Error("Unrelated entry must be unaffected by removals")
	}
}

func TestRegistry_FetchHistoryReplacesOnSuccess(t *testing.T) {
	store := newFakeHistoryStore()
	store.all = []models.HistoryRecord{{ID: 1, Filename: "a.txt"}, {ID: 2, Filename: "b.txt"}}
	r := NewRegistry(newFakeEngine(), store)

	if err := r.FetchHistory(context.Background(), nil); err != nil {
		t.Fatalf("FetchHistory returned error: %v", err)
	}
	if got := r.History(); len(got) != 2 {
		t.Errorf("Expected 2 history rows, got %d", len(got))
	}
	if r.Loading() {
		t.Error("Loading flag must be reset after fetch")
	}
}

func TestRegistry_FetchHistoryByHost(t *testing.T) {
	store := newFakeHistoryStore()
	store.byHost[7] = []models.HistoryRecord{{ID: 3, HostID: 7}}
	r := NewRegistry(newFakeEngine(), store)

	hostID := int64(7)
	if err := r.FetchHistory(context.Background(), &hostID); err != nil {
		t.Fatalf("FetchHistory returned error: %v", err)
	}
	got := r.History()
	if len(got) != 1 || got[0].HostID != 7 {
		t.Errorf("Expected host-filtered history, got %+v", got)
	}
}

func TestRegistry_FetchHistoryKeepsPriorOnFailure(t *testing.T) {
	store := newFakeHistoryStore()
	store.all = []models.HistoryRecord{{ID: 1}}
	r := NewRegistry(newFakeEngine(), store)

	if err := r.FetchHistory(context.Background(), nil); err != nil {
		t.Fatalf("Initial fetch failed: %v", err)
	}

	store.mu.Lock()
	store.err = errors.New("store offline")
	store.mu.Unlock()

	err := r.FetchHistory(context.Background(), nil)
	if err == nil {
		t.Fatal("Expected error from failing store")
	}
	if got := r.History(); len(got) != 1 {
		t.Errorf("Prior history must be untouched on failure, got %d rows", len(got))
	}
	if r.Loading() {
		t.Error("Loading flag must be reset even on failure")
	}
}

func TestRegistry_ClearHistoryOnlyAfterStoreSucceeds(t *testing.T) {
	store := newFakeHistoryStore()
	store.all = []models.HistoryRecord{{ID: 1}}
	r := NewRegistry(newFakeEngine(), store)

	if err := r.FetchHistory(context.Background(), nil); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	store.mu.Lock()
	store.err = errors.New("locked")
	store.mu.Unlock()

	if err := r.ClearHistory(context.Background()); err == nil {
		t.Fatal("Expected clear to propagate store error")
	}
	if got := r.History(); len(got) != 1 {
		t.Error("Local history must survive a failed clear")
	}

	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()

	if err := r.ClearHistory(context.Background()); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if got := r.History(); len(got) != 0 {
		t.Errorf("Expected empty history after clear, got %d rows", len(got))
	}
}

func TestRegistry_StartCallsCreateNoActiveEntries(t *testing.T) {
	engine := newFakeEngine()
	r := NewRegistry(engine, newFakeHistoryStore())
	ctx := context.Background()

	id, err := r.StartUpload(ctx, 1, "/local/a.txt", "/remote/a.txt", "a.txt", 123)
	if err != nil {
		t.Fatalf("StartUpload returned error: %v", err)
	}
	if id == "" {
		t.Error("Expected a transfer id")
	}
	if _, err := r.StartDownload(ctx, 1, "/remote/b.txt", "/local/b.txt", "b.txt", 456); err != nil {
		t.Fatalf("StartDownload returned error: %v", err)
	}
	if _, err := r.StartDirectoryUpload(ctx, 1, "/local/dir", "/remote/dir"); err != nil {
		t.Fatalf("StartDirectoryUpload returned error: %v", err)
	}
	if _, err := r.StartDirectoryDownload(ctx, 1, "/remote/dir", "/local/dir"); err != nil {
		t.Fatalf("StartDirectoryDownload returned error: %v", err)
	}

	if n := r.ActiveCount(); n != 0 {
		t.Errorf("Start calls must not create active entries, got %d", n)
	}
}

func TestRegistry_CancelAndRetryPassThrough(t *testing.T) {
	engine := newFakeEngine()
	r := NewRegistry(engine, newFakeHistoryStore())

	if err := r.CancelTransfer("t-9"); err != nil {
		t.Fatalf("CancelTransfer returned error: %v", err)
	}
	if len(engine.cancelled) != 1 || engine.cancelled[0] != "t-9" {
		t.Errorf("Expected cancel to reach the engine, got %v", engine.cancelled)
	}

	id, err := r.RetryTransfer(context.Background(), 42)
	if err != nil {
		t.Fatalf("RetryTransfer returned error: %v", err)
	}
	if id == "" {
		t.Error("Retry must yield a fresh transfer id")
	}
	if len(engine.retried) != 1 || engine.retried[0] != 42 {
		t.Errorf("Expected retry for history 42, got %v", engine.retried)
	}
}

func TestRegistry_ListenersFireOnChange(t *testing.T) {
	r := NewRegistry(newFakeEngine(), newFakeHistoryStore())

	var mu sync.Mutex
	fired := 0
	r.AddListener(func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	r.RecordProgress(progressFor("t-1", 10))
	r.RemoveActive("t-1")
	r.RemoveActive("t-1") // no-op removal must not notify

	mu.Lock()
	defer mu.Unlock()
	if fired != 2 {
		t.Errorf("Expected 2 notifications, got %d", fired)
	}
}
