package transfer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/portside-app/portside/internal/logging"
	"github.com/portside-app/portside/internal/models"
	"github.com/portside-app/portside/internal/util/paths"
)

// Precondition errors. Nothing is dispatched when either is returned.
var (
	ErrNotConnected   = errors.New("no connection to host")
	ErrEmptySelection = errors.New("nothing selected")
)

// ConnectionChecker answers whether a host currently has a live connection.
// The remote connection manager implements it.
type ConnectionChecker interface {
	IsConnected(hostID int64) bool
}

// ItemFailure records one selection entry that could not be dispatched.
type ItemFailure struct {
	Name string
	Err  error
}

// BatchSummary is what a batch call reports back to the CLI. It covers
// dispatch decisions only; transfer outcomes arrive later as engine events.
type BatchSummary struct {
	TransferIDs []string
	Skipped     int
	Failures    []ItemFailure
}

// Dispatched returns the number of transfers handed to the engine.
func (s *BatchSummary) Dispatched() int { return len(s.TransferIDs) }

// Failed returns the number of selection entries that errored.
func (s *BatchSummary) Failed() int { return len(s.Failures) }

// Coordinator turns a pane selection into engine requests. Directories go
// straight to the engine's recursive transfer; files are checked for
// destination collisions one at a time through the conflict gate, so at most
// one conflict is ever pending. A failing entry is reported in the summary
// and the batch moves on.
type Coordinator struct {
	registry *Registry
	gate     *ConflictGate
	engine   Engine
	conns    ConnectionChecker
	logger   *logging.Logger

	now func() time.Time
}

// NewCoordinator wires a coordinator over the given registry, gate, engine,
// and connection manager.
func NewCoordinator(registry *Registry, gate *ConflictGate, engine Engine, conns ConnectionChecker, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return &Coordinator{
		registry: registry,
		gate:     gate,
		engine:   engine,
		conns:    conns,
		logger:   logger,
		now:      time.Now,
	}
}

// Upload dispatches the selection from the local pane to remoteDir on the
// host. The call returns once every entry has been dispatched, skipped, or
// failed; completion is observed via engine events.
func (c *Coordinator) Upload(ctx context.Context, hostID int64, selection []models.FileEntry, remoteDir string) (*BatchSummary, error) {
	return c.dispatch(ctx, hostID, selection, remoteDir, models.DirectionUpload)
}

// Download dispatches the selection from the remote pane to localDir.
func (c *Coordinator) Download(ctx context.Context, hostID int64, selection []models.FileEntry, localDir string) (*BatchSummary, error) {
	return c.dispatch(ctx, hostID, selection, localDir, models.DirectionDownload)
}

func (c *Coordinator) dispatch(ctx context.Context, hostID int64, selection []models.FileEntry, destDir string, direction models.Direction) (*BatchSummary, error) {
	if c.conns != nil && !c.conns.IsConnected(hostID) {
		return nil, ErrNotConnected
	}
	if len(selection) == 0 {
		return nil, ErrEmptySelection
	}

	var dirs, files []models.FileEntry
	for _, entry := range selection {
		if entry.IsDir {
			dirs = append(dirs, entry)
		} else {
			files = append(files, entry)
		}
	}

	// A stale "apply to all" from the previous batch must never leak in.
	c.gate.ResetOverwriteAll()

	summary := &BatchSummary{}

	// Directories first, one at a time. They bypass the gate: the engine's
	// recursive walk overwrites existing destination files.
	for _, dir := range dirs {
		dest := c.joinDest(destDir, dir.Name, direction)

		var (
			ids []string
			err error
		)
		if direction == models.DirectionUpload {
			ids, err = c.registry.StartDirectoryUpload(ctx, hostID, dir.Path, dest)
		} else {
			ids, err = c.registry.StartDirectoryDownload(ctx, hostID, dir.Path, dest)
		}
		if err != nil {
			// Files submitted before the failure are already running and
			// must stay trackable through the summary.
			summary.TransferIDs = append(summary.TransferIDs, ids...)
			c.reportFailure(summary, dir.Name, fmt.Errorf("directory transfer: %w", err))
			continue
		}

		summary.TransferIDs = append(summary.TransferIDs, ids...)
		c.logger.Info().
			Str("dir", dir.Name).
			Int("files", len(ids)).
			Msg("Directory transfer started")
	}

	// Files one at a time: sequencing is what keeps the single-pending
	// conflict invariant.
	for _, file := range files {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if err := c.dispatchFile(ctx, hostID, file, destDir, direction, summary); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return summary, err
			}
			c.reportFailure(summary, file.Name, err)
		}
	}

	return summary, nil
}

func (c *Coordinator) dispatchFile(ctx context.Context, hostID int64, file models.FileEntry, destDir string, direction models.Direction, summary *BatchSummary) error {
	dest := c.joinDest(destDir, file.Name, direction)

	exists, err := c.destExists(ctx, hostID, dest, direction)
	if err != nil {
		return fmt.Errorf("existence check: %w", err)
	}

	if exists {
		conflict := PendingConflict{
			HostID:    hostID,
			Filename:  file.Name,
			FileSize:  file.Size,
			Direction: direction,
		}
		if direction == models.DirectionUpload {
			conflict.LocalPath = file.Path
			conflict.RemotePath = dest
		} else {
			conflict.RemotePath = file.Path
			conflict.LocalPath = dest
		}

		decisionC, err := c.gate.RequestDecision(conflict)
		if err != nil {
			return fmt.Errorf("conflict gate: %w", err)
		}

		var decision Decision
		select {
		case decision = <-decisionC:
		case <-ctx.Done():
			// Withdraw the pending conflict so the gate returns to idle.
			c.gate.Dismiss()
			return ctx.Err()
		}

		switch decision {
		case DecisionSkip:
			summary.Skipped++
			c.logger.Debug().Str("file", file.Name).Msg("Skipped existing destination")
			return nil
		case DecisionRename:
			dest = c.joinDest(destDir, paths.WithTimestamp(file.Name, c.now()), direction)
		case DecisionOverwrite:
			// Dispatch to the original destination.
		}
	}

	var id string
	if direction == models.DirectionUpload {
		id, err = c.registry.StartUpload(ctx, hostID, file.Path, dest, file.Name, file.Size)
	} else {
		id, err = c.registry.StartDownload(ctx, hostID, file.Path, dest, file.Name, file.Size)
	}
	if err != nil {
		return fmt.Errorf("start transfer: %w", err)
	}

	summary.TransferIDs = append(summary.TransferIDs, id)
	return nil
}

// joinDest computes the destination path for one entry. Remote destinations
// always use forward slashes; local ones follow the host OS.
func (c *Coordinator) joinDest(destDir, name string, direction models.Direction) string {
	if direction == models.DirectionUpload {
		return paths.RemoteJoin(destDir, name)
	}
	return filepath.Join(destDir, name)
}

func (c *Coordinator) destExists(ctx context.Context, hostID int64, dest string, direction models.Direction) (bool, error) {
	if direction == models.DirectionUpload {
		return c.engine.RemoteExists(ctx, hostID, dest)
	}
	return c.engine.LocalExists(dest)
}

func (c *Coordinator) reportFailure(summary *BatchSummary, name string, err error) {
	summary.Failures = append(summary.Failures, ItemFailure{Name: name, Err: err})
	c.logger.Error().Err(err).Str("item", name).Msg("Transfer dispatch failed")
}
