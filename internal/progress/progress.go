// Package progress provides progress reporting for file transfers: mpb-based
// batch bars for CLI transfer commands, a single-bar reporter for one-off
// operations, and an event-bus reporter for embedders.
package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/portside-app/portside/internal/events"
)

// Reporter is the interface for reporting progress of a single operation.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// CLIProgress implements single-operation progress reporting using a
// terminal progress bar.
type CLIProgress struct {
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a new CLI progress reporter.
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{}
}

// Start initializes the progress bar with total size and description.
func (p *CLIProgress) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update updates the progress bar to the current position.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error displays an error message.
func (p *CLIProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}
}

// SetDescription updates the progress bar description.
func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// BusProgress reports progress as transfer events on the event bus. Used
// where no terminal is attached and a frontend consumes the bus instead.
type BusProgress struct {
	eventBus   *events.EventBus
	transferID string
	filename   string
	total      int64
	current    int64
	startedAt  time.Time
}

// NewBusProgress creates an event-bus progress reporter for one transfer.
func NewBusProgress(eventBus *events.EventBus, transferID, filename string) *BusProgress {
	return &BusProgress{
		eventBus:   eventBus,
		transferID: transferID,
		filename:   filename,
	}
}

func (p *BusProgress) publish(kind events.EventType, cause error) {
	ev := &events.TransferEvent{
		BaseEvent:        events.BaseEvent{EventType: kind, Time: time.Now()},
		TransferID:       p.transferID,
		Filename:         p.filename,
		TotalBytes:       p.total,
		TransferredBytes: p.current,
		Error:            cause,
	}
	if p.total > 0 {
		ev.Percentage = float64(p.current) / float64(p.total) * 100
	}
	if elapsed := time.Since(p.startedAt).Seconds(); elapsed > 0 && p.current > 0 {
		ev.SpeedBytesPerSec = float64(p.current) / elapsed
		if ev.SpeedBytesPerSec > 0 {
			ev.ETASeconds = float64(p.total-p.current) / ev.SpeedBytesPerSec
		}
	}
	p.eventBus.Publish(ev)
}

// Start initializes progress tracking.
func (p *BusProgress) Start(total int64, description string) {
	p.total = total
	p.current = 0
	p.startedAt = time.Now()
	p.publish(events.EventTransferProgress, nil)
}

// Update publishes a progress update to the event bus.
func (p *BusProgress) Update(current int64) {
	p.current = current
	p.publish(events.EventTransferProgress, nil)
}

// Finish publishes a completion event.
func (p *BusProgress) Finish() {
	p.current = p.total
	p.publish(events.EventTransferCompleted, nil)
}

// Error publishes a failure event.
func (p *BusProgress) Error(err error) {
	if err != nil {
		p.publish(events.EventTransferFailed, err)
	}
}

// SetDescription is a no-op; the bus carries the filename instead.
func (p *BusProgress) SetDescription(desc string) {}

// NoOpProgress is a progress reporter that does nothing (for background/silent operations).
type NoOpProgress struct{}

// NewNoOpProgress creates a new no-op progress reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

// Start does nothing.
func (p *NoOpProgress) Start(total int64, description string) {}

// Update does nothing.
func (p *NoOpProgress) Update(current int64) {}

// Finish does nothing.
func (p *NoOpProgress) Finish() {}

// Error does nothing.
func (p *NoOpProgress) Error(err error) {}

// SetDescription does nothing.
func (p *NoOpProgress) SetDescription(desc string) {}

// ProgressReader wraps an io.Reader to report progress.
type ProgressReader struct {
	reader   io.Reader
	reporter Reporter
	total    int64
	current  int64
}

// NewProgressReader creates a new progress-reporting reader.
func NewProgressReader(reader io.Reader, total int64, reporter Reporter) *ProgressReader {
	return &ProgressReader{
		reader:   reader,
		reporter: reporter,
		total:    total,
		current:  0,
	}
}

// Read implements io.Reader with progress reporting.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	pr.reporter.Update(pr.current)
	return n, err
}
