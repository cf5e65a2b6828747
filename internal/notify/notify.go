// Package notify sends cross-platform desktop notifications for transfer
// outcomes via github.com/gen2brain/beeep.
package notify

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/portside-app/portside/internal/logging"
)

const appTitle = "Portside"

// Notifier handles desktop notifications.
type Notifier struct {
	logger  *logging.Logger
	enabled bool
	mu      sync.RWMutex
}

// NewNotifier creates a notifier. Notifications are silently dropped while
// disabled.
func NewNotifier(enabled bool, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return &Notifier{logger: logger, enabled: enabled}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// TransferComplete notifies that one file finished transferring.
func (n *Notifier) TransferComplete(filename, destPath string) {
	if !n.IsEnabled() {
		return
	}

	message := fmt.Sprintf("%s transferred", truncate(filename, 40))
	if destPath != "" {
		message = fmt.Sprintf("%s transferred to:\n%s", truncate(filename, 40), shortenPath(destPath))
	}
	if err := n.send("Transfer Complete", message); err != nil {
		n.logger.Warn().Err(err).Str("file", filename).Msg("Notification failed")
	}
}

// TransferFailed notifies that a transfer failed.
func (n *Notifier) TransferFailed(filename, errorMsg string) {
	if !n.IsEnabled() {
		return
	}

	message := fmt.Sprintf("%s failed:\n%s", truncate(filename, 40), truncate(errorMsg, 100))
	if err := n.send("Transfer Failed", message); err != nil {
		n.logger.Warn().Err(err).Str("file", filename).Msg("Notification failed")
	}
}

// TransferCancelled notifies that a transfer was cancelled.
func (n *Notifier) TransferCancelled(filename string) {
	if !n.IsEnabled() {
		return
	}

	message := fmt.Sprintf("%s cancelled", truncate(filename, 40))
	if err := n.send(appTitle, message); err != nil {
		n.logger.Warn().Err(err).Str("file", filename).Msg("Notification failed")
	}
}

// ConnectionLost notifies that a host dropped its connection.
func (n *Notifier) ConnectionLost(hostName string) {
	if !n.IsEnabled() {
		return
	}

	message := fmt.Sprintf("Connection to %s lost.", truncate(hostName, 60))
	if err := n.send(appTitle, message); err != nil {
		n.logger.Warn().Err(err).Str("host", hostName).Msg("Notification failed")
	}
}

// Alert sends a prominent notification for issues needing user attention.
func (n *Notifier) Alert(message string) {
	if !n.IsEnabled() {
		return
	}

	if err := beeep.Alert(appTitle+" Alert", message, ""); err != nil {
		if err := n.send(appTitle+" Alert", message); err != nil {
			n.logger.Error().Err(err).Str("message", message).Msg("Alert notification failed")
		}
	}
}

func (n *Notifier) send(title, message string) error {
	return beeep.Notify(title, message, "")
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// shortenPath abbreviates a long path for display in notifications.
func shortenPath(path string) string {
	const maxLen = 60

	if len(path) <= maxLen {
		return path
	}

	_, file := filepath.Split(path)
	parentDir := filepath.Base(filepath.Dir(path))
	short := filepath.Join("...", parentDir, file)

	vol := filepath.VolumeName(path)
	if vol != "" && len(vol)+len(short)+1 <= maxLen {
		short = vol + string(filepath.Separator) + short
	}

	if len(short) > maxLen {
		return "..." + path[len(path)-(maxLen-3):]
	}
	return short
}
