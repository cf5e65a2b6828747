// Package state holds the dual-pane session: which host is active, what
// directory each pane shows, and the cached listings behind them.
package state

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/portside-app/portside/internal/localfs"
	"github.com/portside-app/portside/internal/models"
	"github.com/portside-app/portside/internal/remote"
	"github.com/portside-app/portside/internal/util/paths"
	"github.com/portside-app/portside/internal/validation"
)

// Session is the observable dual-pane state. Reads take the lock briefly
// and return copies; observers are notified outside the lock after any
// mutation so a slow observer cannot block pane updates.
type Session struct {
	mu sync.RWMutex

	hostID    int64
	connected bool

	localDir      string
	remoteDir     string
	localEntries  []models.FileEntry
	remoteEntries []models.FileEntry
	showHidden    bool

	conns     ConnectionChecker
	clients   clientSource
	observers []func()
}

// ConnectionChecker answers whether a host currently has a live connection.
type ConnectionChecker interface {
	IsConnected(hostID int64) bool
}

// clientSource hands out the live session for a host.
type clientSource interface {
	Get(hostID int64) (remote.Client, error)
}

// NewSession creates a session rooted at the user's home directory (or the
// working directory when home cannot be determined).
func NewSession(conns ConnectionChecker, clients clientSource) *Session {
	localDir, err := os.UserHomeDir()
	if err != nil {
		localDir, _ = os.Getwd()
	}
	return &Session{
		localDir:  localDir,
		remoteDir: "/",
		conns:     conns,
		clients:   clients,
	}
}

// AddObserver registers a callback fired after every state change.
func (s *Session) AddObserver(fn func()) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Session) notify() {
	s.mu.RLock()
	observers := make([]func(), len(s.observers))
	copy(observers, s.observers)
	s.mu.RUnlock()

	for _, fn := range observers {
		fn()
	}
}

// SetActiveHost switches the session to a host and resets the remote pane
// to the root directory.
func (s *Session) SetActiveHost(hostID int64) {
	s.mu.Lock()
	s.hostID = hostID
	s.connected = s.conns != nil && s.conns.IsConnected(hostID)
	s.remoteDir = "/"
	s.remoteEntries = nil
	s.mu.Unlock()
	s.notify()
}

// ActiveHost returns the selected host ID, zero when none.
func (s *Session) ActiveHost() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hostID
}

// SetConnected records the connection status for the active host.
func (s *Session) SetConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	if !connected {
		s.remoteEntries = nil
	}
	s.mu.Unlock()
	s.notify()
}

// Connected reports whether the active host has a live session.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// SetShowHidden toggles hidden-file visibility in the local pane.
func (s *Session) SetShowHidden(show bool) {
	s.mu.Lock()
	s.showHidden = show
	s.mu.Unlock()
	s.notify()
}

// ShowHidden reports the hidden-file setting.
func (s *Session) ShowHidden() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showHidden
}

// LocalDir returns the local pane directory.
func (s *Session) LocalDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localDir
}

// RemoteDir returns the remote pane directory.
func (s *Session) RemoteDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remoteDir
}

// LocalEntries returns a copy of the cached local listing.
func (s *Session) LocalEntries() []models.FileEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.FileEntry(nil), s.localEntries...)
}

// RemoteEntries returns a copy of the cached remote listing.
func (s *Session) RemoteEntries() []models.FileEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.FileEntry(nil), s.remoteEntries...)
}

// ChangeLocalDir validates dir, lists it, and makes it the local pane.
func (s *Session) ChangeLocalDir(dir string) error {
	resolved, err := validation.NormalizeAndValidate(dir)
	if err != nil {
		return err
	}
	entries, err := localfs.ListEntries(resolved, s.ShowHidden())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.localDir = resolved
	s.localEntries = entries
	s.mu.Unlock()
	s.notify()
	return nil
}

// ChangeRemoteDir lists dir on the active host and makes it the remote pane.
func (s *Session) ChangeRemoteDir(ctx context.Context, dir string) error {
	s.mu.RLock()
	hostID := s.hostID
	connected := s.connected
	s.mu.RUnlock()

	if !connected {
		return fmt.Errorf("not connected")
	}
	client, err := s.clients.Get(hostID)
	if err != nil {
		return err
	}
	entries, err := client.List(ctx, dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}
	models.SortEntries(entries)

	s.mu.Lock()
	s.remoteDir = dir
	s.remoteEntries = entries
	s.mu.Unlock()
	s.notify()
	return nil
}

// EnterRemote descends into a child directory of the remote pane.
func (s *Session) EnterRemote(ctx context.Context, name string) error {
	if _, err := validation.SanitizeFilename(name); err != nil {
		return err
	}
	return s.ChangeRemoteDir(ctx, paths.RemoteJoin(s.RemoteDir(), name))
}

// RefreshListings re-lists both panes in place. The remote pane is skipped
// when disconnected; a remote listing failure still refreshes the local
// pane and returns the error.
func (s *Session) RefreshListings(ctx context.Context) error {
	s.mu.RLock()
	localDir := s.localDir
	remoteDir := s.remoteDir
	hostID := s.hostID
	connected := s.connected
	showHidden := s.showHidden
	s.mu.RUnlock()

	localEntries, err := localfs.ListEntries(localDir, showHidden)
	if err != nil {
		return err
	}

	var remoteEntries []models.FileEntry
	var remoteErr error
	if connected {
		client, getErr := s.clients.Get(hostID)
		if getErr != nil {
			remoteErr = getErr
		} else if remoteEntries, remoteErr = client.List(ctx, remoteDir); remoteErr == nil {
			models.SortEntries(remoteEntries)
		}
	}

	s.mu.Lock()
	s.localEntries = localEntries
	if connected && remoteErr == nil {
		s.remoteEntries = remoteEntries
	}
	s.mu.Unlock()
	s.notify()
	return remoteErr
}
