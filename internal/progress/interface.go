package progress

import "io"

// BatchReporter tracks progress for a batch of transfers. BatchUI implements
// it with mpb bars; tests can substitute a silent implementation.
type BatchReporter interface {
	// AddFileBar creates a new progress bar for a single transfer
	AddFileBar(transferID, filename, destPath string, size int64) FileBarHandle

	// Bar retrieves the bar registered for a transfer ID
	Bar(transferID string) (FileBarHandle, bool)

	// Wait blocks until all progress bars complete
	Wait()

	// Writer returns an io.Writer that safely outputs above the progress bars.
	// Returns mpb's writer if in terminal mode, otherwise os.Stderr.
	Writer() io.Writer

	// IsTerminal returns true if output is to a terminal (progress bars are active)
	IsTerminal() bool
}

// FileBarHandle represents a handle to a single transfer's progress bar
type FileBarHandle interface {
	// UpdateBytes updates the progress bar from an absolute byte count
	UpdateBytes(transferred int64)

	// SetRetry updates the retry counter and visually marks the bar
	SetRetry(count int)

	// Complete marks the transfer as finished and prints a summary
	Complete(err error)
}
