package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/portside-app/portside/internal/constants"
	"github.com/portside-app/portside/internal/events"
	"github.com/portside-app/portside/internal/models"
)

// Manager is a thread-safe connection pool keyed by host ID. Connecting an
// already-connected host is a no-op; disconnecting closes and drops the
// session. Connection status changes are published on the event bus.
type Manager struct {
	mu     sync.Mutex
	dialer Dialer
	conns  map[int64]Client
	bus    *events.EventBus
}

// NewManager creates an empty pool using the given dialer. bus may be nil.
func NewManager(dialer Dialer, bus *events.EventBus) *Manager {
	return &Manager{
		dialer: dialer,
		conns:  make(map[int64]Client),
		bus:    bus,
	}
}

// Connect dials the host and pools the session. Connecting a host that
// already has a live session is a no-op.
func (m *Manager) Connect(ctx context.Context, host models.Host) error {
	m.mu.Lock()
	if _, ok := m.conns[host.ID]; ok {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, constants.DialTimeout)
	defer cancel()

	client, err := m.dialer.Dial(dialCtx, host)
	if err != nil {
		m.publishStatus(host, false, err.Error())
		return fmt.Errorf("connect %s: %w", host.Name, err)
	}

	m.mu.Lock()
	// Another caller may have connected meanwhile; keep the first session.
	if _, ok := m.conns[host.ID]; ok {
		m.mu.Unlock()
		client.Close()
		return nil
	}
	m.conns[host.ID] = client
	m.mu.Unlock()

	m.publishStatus(host, true, "")
	return nil
}

// Disconnect closes and removes the host's session. Disconnecting a host
// with no session is a no-op.
func (m *Manager) Disconnect(hostID int64) error {
	m.mu.Lock()
	client, ok := m.conns[hostID]
	delete(m.conns, hostID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	if m.bus != nil {
		m.bus.PublishConnectionStatus(hostID, "", false, "disconnected")
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("disconnect host %d: %w", hostID, err)
	}
	return nil
}

// IsConnected reports whether the host has a pooled session.
func (m *Manager) IsConnected(hostID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.conns[hostID]
	return ok
}

// Get returns the pooled session for a host.
func (m *Manager) Get(hostID int64) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, ok := m.conns[hostID]
	if !ok {
		return nil, fmt.Errorf("host %d is not connected", hostID)
	}
	return client, nil
}

// Active returns the connected host IDs in ascending order.
func (m *Manager) Active() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TestConnection dials the host and closes the session without pooling it.
func (m *Manager) TestConnection(ctx context.Context, host models.Host) error {
	dialCtx, cancel := context.WithTimeout(ctx, constants.TestConnectionTimeout)
	defer cancel()

	client, err := m.dialer.Dial(dialCtx, host)
	if err != nil {
		return fmt.Errorf("test connection to %s: %w", host.Name, err)
	}
	return client.Close()
}

// CloseAll disconnects every pooled session. Used at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[int64]Client)
	m.mu.Unlock()

	for _, client := range conns {
		client.Close()
	}
}

func (m *Manager) publishStatus(host models.Host, connected bool, message string) {
	if m.bus == nil {
		return
	}
	m.bus.PublishConnectionStatus(host.ID, host.Name, connected, message)
}
