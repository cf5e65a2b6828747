package remote

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/portside-app/portside/internal/models"
)

type stubClient struct {
	mu     sync.Mutex
	closed bool
}

func (c *stubClient) List(context.Context, string) ([]models.FileEntry, error) { return nil, nil }
func (c *stubClient) Stat(context.Context, string) (models.FileEntry, error) {
	return models.FileEntry{}, nil
}
func (c *stubClient) Exists(context.Context, string) (bool, error) { return false, nil }
func (c *stubClient) Mkdir(context.Context, string) error          { return nil }
func (c *stubClient) MkdirAll(context.Context, string) error       { return nil }
func (c *stubClient) Upload(context.Context, string, string, int64, ProgressFunc) (int64, error) {
	return 0, nil
}
func (c *stubClient) Download(context.Context, string, string, int64, ProgressFunc) (int64, error) {
	return 0, nil
}
func (c *stubClient) Remove(context.Context, string) error     { return nil }
func (c *stubClient) RemoveDir(context.Context, string) error  { return nil }
func (c *stubClient) Rename(context.Context, string, string) error { return nil }

func (c *stubClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *stubClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type countingDialer struct {
	mu      sync.Mutex
	dials   int
	err     error
	clients []*stubClient
}

func (d *countingDialer) Dial(context.Context, models.Host) (Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	c := &stubClient{}
	d.clients = append(d.clients, c)
	return c, nil
}

func testHost(id int64) models.Host {
	return models.Host{ID: id, Name: "box", Host: "example.com", Port: 22, Protocol: models.ProtocolSFTP, Username: "u"}
}

func TestManager_ConnectAndGet(t *testing.T) {
	dialer := &countingDialer{}
	m := NewManager(dialer, nil)

	if err := m.Connect(context.Background(), testHost(1)); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if !m.IsConnected(1) {
		t.Error("Expected host 1 to be connected")
	}
	if _, err := m.Get(1); err != nil {
		t.Errorf("Get returned error: %v", err)
	}
	if _, err := m.Get(2); err == nil {
		t.Error("Expected error for unconnected host")
	}
}

func TestManager_ConnectTwiceDialsOnce(t *testing.T) {
	dialer := &countingDialer{}
	m := NewManager(dialer, nil)

	for i := 0; i < 3; i++ {
		if err := m.Connect(context.Background(), testHost(1)); err != nil {
			t.Fatalf("Connect #%d returned error: %v", i, err)
		}
	}
	if dialer.dials != 1 {
		t.Errorf("Expected 1 dial for repeated connects, got %d", dialer.dials)
	}
}

func TestManager_ConnectFailure(t *testing.T) {
	dialer := &countingDialer{err: errors.New("no route to host")}
	m := NewManager(dialer, nil)

	if err := m.Connect(context.Background(), testHost(1)); err == nil {
		t.Fatal("Expected dial error to propagate")
	}
	if m.IsConnected(1) {
		t.Error("Failed connect must not pool a session")
	}
}

func TestManager_Disconnect(t *testing.T) {
	dialer := &countingDialer{}
	m := NewManager(dialer, nil)

	if err := m.Connect(context.Background(), testHost(1)); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if err := m.Disconnect(1); err != nil {
		t.Fatalf("Disconnect returned error: %v", err)
	}
	if m.IsConnected(1) {
		t.Error("Expected host 1 to be disconnected")
	}
	if !dialer.clients[0].isClosed() {
		t.Error("Disconnect must close the client")
	}

	// Unknown host is a no-op.
	if err := m.Disconnect(99); err != nil {
		t.Errorf("Disconnecting an unknown host must not error, got %v", err)
	}
}

func TestManager_Active(t *testing.T) {
	dialer := &countingDialer{}
	m := NewManager(dialer, nil)

	for _, id := range []int64{3, 1, 2} {
		if err := m.Connect(context.Background(), testHost(id)); err != nil {
			t.Fatalf("Connect returned error: %v", err)
		}
	}

	ids := m.Active()
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("Expected sorted ids [1 2 3], got %v", ids)
	}
}

func TestManager_TestConnectionDoesNotPool(t *testing.T) {
	dialer := &countingDialer{}
	m := NewManager(dialer, nil)

	if err := m.TestConnection(context.Background(), testHost(5)); err != nil {
		t.Fatalf("TestConnection returned error: %v", err)
	}
	if m.IsConnected(5) {
		t.Error("TestConnection must not pool the session")
	}
	if !dialer.clients[0].isClosed() {
		t.Error("TestConnection must close the probe session")
	}
}

func TestManager_CloseAll(t *testing.T) {
	dialer := &countingDialer{}
	m := NewManager(dialer, nil)

	for _, id := range []int64{1, 2} {
		if err := m.Connect(context.Background(), testHost(id)); err != nil {
			t.Fatalf("Connect returned error: %v", err)
		}
	}

	m.CloseAll()
	if len(m.Active()) != 0 {
		t.Error("Expected no active sessions after CloseAll")
	}
	for i, c := range dialer.clients {
		if !c.isClosed() {
			t.Errorf("Client %d not closed", i)
		}
	}
}
