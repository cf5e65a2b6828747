package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/portside-app/portside/internal/models"
)

// BatchUI manages multiple concurrent transfer progress bars using mpb.
// One BatchUI covers a whole upload or download batch; individual bars are
// keyed by transfer ID so event-driven updates can find them.
type BatchUI struct {
	progress   *mpb.Progress
	bars       sync.Map // transferID -> *FileBar
	direction  models.Direction
	isTerminal bool
	totalFiles int
	started    int32 // Atomic counter for file index (1, 2, 3, ...)
	completed  int32
}

// FileBar represents a single file's progress bar within a batch.
type FileBar struct {
	bar        *mpb.Bar
	ui         *BatchUI
	index      int
	filename   string
	destPath   string
	size       int64
	retries    int32
	startTime  time.Time
	lastUpdate time.Time
	lastBytes  int64
}

// NewBatchUI creates a batch UI for the given direction and file count.
func NewBatchUI(direction models.Direction, totalFiles int) *BatchUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		// Enable ANSI escape sequences on Windows for proper progress bar rendering
		enableANSIOnWindows(os.Stderr)

		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond), // ~3 times per second
			mpb.WithWidth(100),
		)
	} else {
		// Non-TTY: disable progress bars, just use text output
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &BatchUI{
		progress:   p,
		direction:  direction,
		isTerminal: isTerminal,
		totalFiles: totalFiles,
	}
}

func (u *BatchUI) verb() string {
	if u.direction == models.DirectionDownload {
		return "Downloading"
	}
	return "Uploading"
}

// AddFileBar creates a new progress bar for a single transfer. destPath is
// the directory the file is headed to (remote for uploads, local for
// downloads).
func (u *BatchUI) AddFileBar(transferID, filename, destPath string, size int64) FileBarHandle {
	// Atomic increment to get unique file index across all concurrent transfers
	index := int(atomic.AddInt32(&u.started, 1))

	dest := truncatePath(destPath, 2)

	fb := &FileBar{
		ui:         u,
		index:      index,
		filename:   filename,
		destPath:   dest,
		size:       size,
		startTime:  time.Now(),
		lastUpdate: time.Now(),
	}

	if u.isTerminal {
		fb.bar = u.progress.New(size,
			// Custom bar style with Unicode block characters
			mpb.BarStyle().
				Lbound("[").
				Filler("█").  // U+2588 - Full block for completed portion
				Tip("█").     // Full block at leading edge
				Padding("░"). // U+2591 - Light shade for remaining portion
				Rbound("]"),
			mpb.PrependDecorators(
				// Dynamic decorator for label with retry count
				decor.Any(func(s decor.Statistics) string {
					retries := atomic.LoadInt32(&fb.retries)
					base := fmt.Sprintf("[%d/%d] %s (%.1f MiB) → %s",
						fb.index, u.totalFiles,
						fb.filename,
						float64(size)/(1024*1024),
						fb.destPath)
					if retries > 0 {
						return fmt.Sprintf("%s (retry %d)", base, retries)
					}
					return base
				}, decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Percentage(decor.WCSyncSpace),
				decor.Name("  "),
				decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 30, decor.WCSyncSpace),
				decor.Name("  "),
				decor.Name("ETA ", decor.WCSyncWidth),
				decor.EwmaETA(decor.ET_STYLE_GO, 30),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		// Non-TTY: print simple start message
		fmt.Printf("%s [%d/%d]: %s (%.1f MiB) → %s\n",
			u.verb(),
			fb.index, u.totalFiles,
			filename,
			float64(size)/(1024*1024),
			dest)
	}

	u.bars.Store(transferID, fb)
	return fb
}

// Bar returns the bar for a transfer ID, if one was registered.
func (u *BatchUI) Bar(transferID string) (FileBarHandle, bool) {
	v, ok := u.bars.Load(transferID)
	if !ok {
		return nil, false
	}
	return v.(*FileBar), true
}

// UpdateBytes updates the progress bar from an absolute byte count.
// Uses EWMA timing for accurate speed and ETA calculations.
// Throttles updates to reduce visual noise and improve performance.
func (f *FileBar) UpdateBytes(transferred int64) {
	if f.bar == nil {
		return
	}

	now := time.Now()
	elapsed := now.Sub(f.lastUpdate)

	bytesDelta := transferred - f.lastBytes

	// Update every 300ms minimum to match mpb's refresh rate. EwmaIncrBy must
	// be called even when no bytes moved so mpb tracks time passage for
	// speed/ETA.
	const updateInterval = 300 * time.Millisecond

	if elapsed >= updateInterval {
		f.bar.EwmaIncrBy(int(bytesDelta), elapsed)
		f.lastBytes = transferred
		f.lastUpdate = now
	}
}

// SetRetry updates the retry counter and visually marks the bar.
func (f *FileBar) SetRetry(count int) {
	atomic.StoreInt32(&f.retries, int32(count))
	if f.bar != nil && count > 0 {
		// SetRefill shows a visual indication of retry
		f.bar.SetRefill(f.lastBytes)
	}
}

// Complete marks the transfer as finished and prints a one-line summary.
func (f *FileBar) Complete(err error) {
	elapsed := time.Since(f.startTime)
	speed := float64(f.size) / elapsed.Seconds() / (1024 * 1024) // MB/s

	if err == nil {
		if f.bar != nil {
			// Ensure exact 100% completion (no rounding errors)
			f.bar.SetCurrent(f.size)
			f.bar.SetTotal(f.size, true) // Mark done, trigger BarRemoveOnComplete
		}

		msg := fmt.Sprintf("✓ %s → %s (%.1f MiB, %s, %.1f MiB/s)\n",
			f.filename,
			f.destPath,
			float64(f.size)/(1024*1024),
			elapsed.Round(time.Second),
			speed)

		// Write through mpb's writer (not stdout) to avoid triggering redraws
		if f.ui.isTerminal && f.ui.progress != nil {
			f.ui.progress.Write([]byte(msg))
		} else {
			fmt.Print(msg)
		}
	} else {
		// Error: keep bar visible if terminal, print error
		if f.bar != nil {
			f.bar.Abort(false) // false = don't remove (show failure)
		}

		retries := atomic.LoadInt32(&f.retries)
		msg := fmt.Sprintf("✗ %s → %s: %v (after %d retries)\n",
			f.filename,
			f.destPath,
			err,
			retries)

		if f.ui.isTerminal && f.ui.progress != nil {
			f.ui.progress.Write([]byte(msg))
		} else {
			fmt.Print(msg)
		}
	}

	atomic.AddInt32(&f.ui.completed, 1)
}

// Completed reports how many bars have reached a terminal state.
func (u *BatchUI) Completed() int {
	return int(atomic.LoadInt32(&u.completed))
}

// Wait blocks until all progress bars complete.
func (u *BatchUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// LogWriter returns an io.Writer that safely prints above the progress bars.
func (u *BatchUI) LogWriter() io.Writer {
	if u.progress != nil && u.isTerminal {
		return u.progress
	}
	return os.Stderr
}

// Writer returns an io.Writer for output during progress operations.
// Implements the BatchReporter interface.
func (u *BatchUI) Writer() io.Writer {
	return u.LogWriter()
}

// IsTerminal returns true if output is to a terminal (progress bars are active).
func (u *BatchUI) IsTerminal() bool {
	return u.isTerminal
}

// truncatePath truncates a file path to show only the last N components
// Example: truncatePath("/a/b/c/d/file.txt", 3) → "…/c/d/file.txt"
func truncatePath(path string, maxComponents int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= maxComponents {
		return filepath.Base(path)
	}
	relevant := parts[len(parts)-maxComponents:]
	return "…/" + strings.Join(relevant, "/")
}

// enableANSIOnWindows enables Virtual Terminal processing on Windows for ANSI
// escape sequences. No-op elsewhere; the real work is in ansi_windows.go.
func enableANSIOnWindows(f *os.File) {
	if runtime.GOOS == "windows" {
		enableWindowsANSI(f)
	}
}
