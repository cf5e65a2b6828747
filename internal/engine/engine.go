// Package engine executes transfer tasks against remote protocol clients.
// Each submitted task gets an engine-assigned transfer ID and its own worker
// goroutine; lifecycle updates are published on the event bus, never returned.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/portside-app/portside/internal/constants"
	"github.com/portside-app/portside/internal/events"
	"github.com/portside-app/portside/internal/localfs"
	"github.com/portside-app/portside/internal/logging"
	"github.com/portside-app/portside/internal/models"
	"github.com/portside-app/portside/internal/remote"
	"github.com/portside-app/portside/internal/util/paths"
)

// ClientSource hands out the live protocol session for a host.
// remote.Manager implements it.
type ClientSource interface {
	Get(hostID int64) (remote.Client, error)
}

// HistoryStore persists transfer history rows.
type HistoryStore interface {
	Insert(ctx context.Context, rec *models.HistoryRecord) (int64, error)
	GetByID(ctx context.Context, id int64) (models.HistoryRecord, error)
	UpdateStatus(ctx context.Context, id int64, status models.TransferStatus, transferredSize int64, errMsg, finishedAt string) error
}

// ResumeStore persists partial-transfer checkpoints.
type ResumeStore interface {
	Save(ctx context.Context, rec *models.ResumeRecord) error
	Find(ctx context.Context, hostID int64, remotePath, localPath string, direction models.Direction) (*models.ResumeRecord, error)
	DeleteByTransfer(ctx context.Context, transferID string) error
}

// task is one unit of work: a single file in a single direction.
type task struct {
	id         string
	hostID     int64
	filename   string
	localPath  string
	remotePath string
	direction  models.Direction
	fileSize   int64
}

func newTask(hostID int64, filename, localPath, remotePath string, direction models.Direction, fileSize int64) task {
	return task{
		id:         uuid.NewString(),
		hostID:     hostID,
		filename:   filename,
		localPath:  localPath,
		remotePath: remotePath,
		direction:  direction,
		fileSize:   fileSize,
	}
}

// Service is the transfer engine. It satisfies the orchestration core's
// Engine interface.
type Service struct {
	bus     *events.EventBus
	conns   ClientSource
	history HistoryStore
	resume  ResumeStore
	logger  *logging.Logger
	retry   RetryConfig

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an engine over the given connection source and stores.
// resume may be nil to disable checkpointing.
func New(bus *events.EventBus, conns ClientSource, history HistoryStore, resume ResumeStore, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return &Service{
		bus:     bus,
		conns:   conns,
		history: history,
		resume:  resume,
		logger:  logger,
		retry:   DefaultRetryConfig(),
		cancels: make(map[string]context.CancelFunc),
	}
}

// SetRetryConfig overrides the default retry tuning. Zero or negative
// fields keep their defaults. Call before dispatching transfers.
func (s *Service) SetRetryConfig(cfg RetryConfig) {
	def := DefaultRetryConfig()
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	s.retry = cfg
}

// RemoteExists reports whether path exists on the connected host.
func (s *Service) RemoteExists(ctx context.Context, hostID int64, path string) (bool, error) {
	client, err := s.conns.Get(hostID)
	if err != nil {
		return false, err
	}
	return client.Exists(ctx, path)
}

// LocalExists reports whether a local path exists.
func (s *Service) LocalExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// StartUpload submits one local file and returns its transfer ID.
func (s *Service) StartUpload(ctx context.Context, hostID int64, localPath, remotePath, filename string, fileSize int64) (string, error) {
	return s.submit(ctx, newTask(hostID, filename, localPath, remotePath, models.DirectionUpload, fileSize))
}

// StartDownload submits one remote file and returns its transfer ID.
func (s *Service) StartDownload(ctx context.Context, hostID int64, remotePath, localPath, filename string, fileSize int64) (string, error) {
	return s.submit(ctx, newTask(hostID, filename, localPath, remotePath, models.DirectionDownload, fileSize))
}

// StartDirectoryUpload walks the local tree, creates the remote directory
// skeleton, and submits one task per file found. Returns all assigned IDs.
func (s *Service) StartDirectoryUpload(ctx context.Context, hostID int64, localDir, remoteDir string) ([]string, error) {
	client, err := s.conns.Get(hostID)
	if err != nil {
		return nil, err
	}

	type pending struct {
		localPath  string
		remotePath string
		name       string
		size       int64
	}
	var dirs []string
	var files []pending

	root := filepath.Clean(localDir)
	err = localfs.Walk(root, localfs.WalkOptions{IncludeHidden: true}, func(entry localfs.FileEntry) error {
		rel, relErr := filepath.Rel(root, entry.Path)
		if relErr != nil {
			return relErr
		}
		dest := remoteDir
		if rel != "." {
			dest = paths.RemoteJoin(remoteDir, filepath.ToSlash(rel))
		}
		if entry.IsDir {
			dirs = append(dirs, dest)
			return nil
		}
		files = append(files, pending{entry.Path, dest, entry.Name, entry.Size})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", localDir, err)
	}

	for _, dir := range dirs {
		if mkErr := client.MkdirAll(ctx, dir); mkErr != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, mkErr)
		}
	}

	ids := make([]string, 0, len(files))
	for _, f := range files {
		id, subErr := s.submit(ctx, newTask(hostID, f.name, f.localPath, f.remotePath, models.DirectionUpload, f.size))
		if subErr != nil {
			return ids, subErr
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// StartDirectoryDownload lists the remote tree recursively, creates the local
// directory skeleton, and submits one task per file found.
func (s *Service) StartDirectoryDownload(ctx context.Context, hostID int64, remoteDir, localDir string) ([]string, error) {
	client, err := s.conns.Get(hostID)
	if err != nil {
		return nil, err
	}

	type pending struct {
		remotePath string
		localPath  string
		name       string
		size       int64
	}
	var dirs []string
	var files []pending

	queue := [][2]string{{remoteDir, localDir}}
	for len(queue) > 0 {
		pair := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		rdir, ldir := pair[0], pair[1]
		dirs = append(dirs, ldir)

		entries, listErr := client.List(ctx, rdir)
		if listErr != nil {
			return nil, fmt.Errorf("list %s: %w", rdir, listErr)
		}
		for _, entry := range entries {
			if entry.Name == "." || entry.Name == ".." {
				continue
			}
			entryLocal := filepath.Join(ldir, entry.Name)
			if entry.IsDir {
				queue = append(queue, [2]string{paths.RemoteJoin(rdir, entry.Name), entryLocal})
				continue
			}
			files = append(files, pending{entry.Path, entryLocal, entry.Name, entry.Size})
		}
	}

	for _, dir := range dirs {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, mkErr)
		}
	}

	ids := make([]string, 0, len(files))
	for _, f := range files {
		id, subErr := s.submit(ctx, newTask(hostID, f.name, f.localPath, f.remotePath, models.DirectionDownload, f.size))
		if subErr != nil {
			return ids, subErr
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Cancel signals the worker for a transfer to stop. Unknown IDs are ignored:
// the transfer may have finished between the user's click and the request.
func (s *Service) Cancel(transferID string) error {
	s.mu.Lock()
	cancel, ok := s.cancels[transferID]
	s.mu.Unlock()

	if ok {
		cancel()
	}
	return nil
}

// Retry re-reads a history row and submits it as a new task with a fresh
// transfer ID.
func (s *Service) Retry(ctx context.Context, historyID int64) (string, error) {
	rec, err := s.history.GetByID(ctx, historyID)
	if err != nil {
		return "", fmt.Errorf("retry history %d: %w", historyID, err)
	}
	return s.submit(ctx, newTask(rec.HostID, rec.Filename, rec.LocalPath, rec.RemotePath, rec.Direction, rec.FileSize))
}

// ActiveIDs returns the transfer IDs currently executing.
func (s *Service) ActiveIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.cancels))
	for id := range s.cancels {
		ids = append(ids, id)
	}
	return ids
}

// Stop cancels every running task and waits for the workers to drain.
func (s *Service) Stop() {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// submit persists the pending history row, registers the cancel handle, and
// launches the worker. The returned ID is the caller's only link to the
// task's later events.
func (s *Service) submit(ctx context.Context, t task) (string, error) {
	rec := models.NewHistoryRecord(t.hostID, t.filename, t.remotePath, t.localPath, t.direction, t.fileSize)
	historyID, err := s.history.Insert(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("record transfer: %w", err)
	}

	taskCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.cancels[t.id] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runTask(taskCtx, t, historyID)

	return t.id, nil
}

func (s *Service) runTask(ctx context.Context, t task, historyID int64) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		if cancel, ok := s.cancels[t.id]; ok {
			cancel()
			delete(s.cancels, t.id)
		}
		s.mu.Unlock()
	}()

	if err := s.history.UpdateStatus(ctx, historyID, models.StatusTransferring, 0, "", ""); err != nil {
		s.logger.Warn().Err(err).Str("transfer", t.id).Msg("History update failed")
	}

	client, err := s.conns.Get(t.hostID)
	if err != nil {
		s.finishFailed(t, historyID, err)
		return
	}

	resumeOffset := s.resumeOffset(ctx, t)

	start := time.Now()
	var lastSave time.Time
	progress := func(transferred, total int64) {
		effective := resumeOffset + transferred
		elapsed := time.Since(start).Seconds()

		var speed float64
		if elapsed > 0 {
			speed = float64(transferred) / elapsed
		}
		var eta float64
		if speed > 0 && t.fileSize > effective {
			eta = float64(t.fileSize-effective) / speed
		}
		var pct float64
		if t.fileSize > 0 {
			pct = float64(effective) / float64(t.fileSize) * 100
		}

		s.bus.Publish(&events.TransferEvent{
			BaseEvent:        events.BaseEvent{EventType: events.EventTransferProgress, Time: time.Now()},
			TransferID:       t.id,
			Filename:         t.filename,
			TotalBytes:       t.fileSize,
			TransferredBytes: effective,
			SpeedBytesPerSec: speed,
			ETASeconds:       eta,
			Percentage:       pct,
		})

		if s.resume != nil && time.Since(lastSave) >= constants.ResumeSaveInterval {
			lastSave = time.Now()
			s.saveCheckpoint(ctx, t, effective)
		}
	}

	var moved int64
	err = Do(ctx, s.retry, func() error {
		var n int64
		var opErr error
		if t.direction == models.DirectionUpload {
			n, opErr = client.Upload(ctx, t.localPath, t.remotePath, resumeOffset, progress)
		} else {
			n, opErr = client.Download(ctx, t.remotePath, t.localPath, resumeOffset, progress)
		}
		moved = n
		return opErr
	})

	if ctx.Err() != nil {
		now := time.Now().UTC().Format(models.TimeLayout)
		if upErr := s.history.UpdateStatus(context.Background(), historyID, models.StatusCancelled, resumeOffset+moved, "", now); upErr != nil {
			s.logger.Warn().Err(upErr).Str("transfer", t.id).Msg("History update failed")
		}
		s.publishTerminal(events.EventTransferCancelled, t, nil)
		return
	}

	if err != nil {
		s.finishFailed(t, historyID, err)
		return
	}

	total := resumeOffset + moved
	now := time.Now().UTC().Format(models.TimeLayout)
	if upErr := s.history.UpdateStatus(ctx, historyID, models.StatusSuccess, total, "", now); upErr != nil {
		s.logger.Warn().Err(upErr).Str("transfer", t.id).Msg("History update failed")
	}
	if s.resume != nil {
		if delErr := s.resume.DeleteByTransfer(ctx, t.id); delErr != nil {
			s.logger.Debug().Err(delErr).Str("transfer", t.id).Msg("Resume record cleanup failed")
		}
	}
	s.publishTerminal(events.EventTransferCompleted, t, nil)
}

func (s *Service) finishFailed(t task, historyID int64, cause error) {
	now := time.Now().UTC().Format(models.TimeLayout)
	if err := s.history.UpdateStatus(context.Background(), historyID, models.StatusFailed, 0, cause.Error(), now); err != nil {
		s.logger.Warn().Err(err).Str("transfer", t.id).Msg("History update failed")
	}
	if s.resume != nil {
		s.saveCheckpoint(context.Background(), t, 0)
	}
	s.publishTerminal(events.EventTransferFailed, t, cause)
}

func (s *Service) publishTerminal(kind events.EventType, t task, cause error) {
	s.bus.Publish(&events.TransferEvent{
		BaseEvent:  events.BaseEvent{EventType: kind, Time: time.Now()},
		TransferID: t.id,
		Filename:   t.filename,
		TotalBytes: t.fileSize,
		Error:      cause,
	})
}

func (s *Service) resumeOffset(ctx context.Context, t task) int64 {
	if s.resume == nil {
		return 0
	}
	rec, err := s.resume.Find(ctx, t.hostID, t.remotePath, t.localPath, t.direction)
	if err != nil || rec == nil {
		return 0
	}
	return rec.TransferredBytes
}

func (s *Service) saveCheckpoint(ctx context.Context, t task, transferred int64) {
	rec := &models.ResumeRecord{
		TransferID:       t.id,
		HostID:           t.hostID,
		RemotePath:       t.remotePath,
		LocalPath:        t.localPath,
		Direction:        t.direction,
		FileSize:         t.fileSize,
		TransferredBytes: transferred,
	}
	if err := s.resume.Save(ctx, rec); err != nil {
		s.logger.Debug().Err(err).Str("transfer", t.id).Msg("Resume checkpoint failed")
	}
}
