package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/portside-app/portside/internal/models"
	"github.com/portside-app/portside/internal/remote"
)

type fakeChecker struct {
	connected map[int64]bool
}

func (c *fakeChecker) IsConnected(hostID int64) bool { return c.connected[hostID] }

// listClient serves canned remote listings.
type listClient struct {
	listings map[string][]models.FileEntry
	listErr  error
}

func (c *listClient) List(_ context.Context, path string) ([]models.FileEntry, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	entries, ok := c.listings[path]
	if !ok {
		return nil, fmt.Errorf("550 %s: no such directory", path)
	}
	return entries, nil
}

func (c *listClient) Stat(context.Context, string) (models.FileEntry, error) {
	return models.FileEntry{}, errors.New("not implemented")
}
func (c *listClient) Exists(context.Context, string) (bool, error) { return false, nil }
func (c *listClient) Mkdir(context.Context, string) error          { return nil }
func (c *listClient) MkdirAll(context.Context, string) error       { return nil }
func (c *listClient) Upload(context.Context, string, string, int64, remote.ProgressFunc) (int64, error) {
	return 0, errors.New("not implemented")
}
func (c *listClient) Download(context.Context, string, string, int64, remote.ProgressFunc) (int64, error) {
	return 0, errors.New("not implemented")
}
func (c *listClient) Remove(context.Context, string) error         { return nil }
func (c *listClient) RemoveDir(context.Context, string) error      { return nil }
func (c *listClient) Rename(context.Context, string, string) error { return nil }
func (c *listClient) Close() error                                 { return nil }

type fakeClients struct {
	client *listClient
	err    error
}

func (f *fakeClients) Get(int64) (remote.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

func seedLocalDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt", ".hidden"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "photos"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newTestSession(connected bool) (*Session, *listClient) {
	client := &listClient{listings: map[string][]models.FileEntry{
		"/": {
			{Name: "readme.md", Path: "/readme.md", Size: 5},
			{Name: "www", Path: "/www", IsDir: true},
		},
		"/www": {
			{Name: "index.html", Path: "/www/index.html", Size: 12},
		},
	}}
	sess := NewSession(&fakeChecker{connected: map[int64]bool{1: connected}}, &fakeClients{client: client})
	sess.SetActiveHost(1)
	return sess, client
}

func TestSession_ChangeLocalDir(t *testing.T) {
	sess, _ := newTestSession(false)
	dir := seedLocalDir(t)

	if err := sess.ChangeLocalDir(dir); err != nil {
		t.Fatalf("ChangeLocalDir returned error: %v", err)
	}
	if sess.LocalDir() == "" {
		t.Fatal("Expected local dir to be set")
	}

	entries := sess.LocalEntries()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 visible entries, got %d", len(entries))
	}
	if entries[0].Name != "photos" || !entries[0].IsDir {
		t.Errorf("Expected directory first, got %+v", entries[0])
	}
}

func TestSession_ChangeLocalDirRejectsMissing(t *testing.T) {
	sess, _ := newTestSession(false)
	if err := sess.ChangeLocalDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestSession_ShowHiddenAffectsListing(t *testing.T) {
	sess, _ := newTestSession(false)
	dir := seedLocalDir(t)

	sess.SetShowHidden(true)
	if err := sess.ChangeLocalDir(dir); err != nil {
		t.Fatal(err)
	}
	if len(sess.LocalEntries()) != 4 {
		t.Errorf("Expected hidden file visible, got %d entries", len(sess.LocalEntries()))
	}
}

func TestSession_ChangeRemoteDirRequiresConnection(t *testing.T) {
	sess, _ := newTestSession(false)
	if err := sess.ChangeRemoteDir(context.Background(), "/"); err == nil {
		t.Error("Expected error while disconnected")
	}
}

func TestSession_ChangeRemoteDirSortsListing(t *testing.T) {
	sess, _ := newTestSession(true)

	if err := sess.ChangeRemoteDir(context.Background(), "/"); err != nil {
		t.Fatalf("ChangeRemoteDir returned error: %v", err)
	}
	if sess.RemoteDir() != "/" {
		t.Errorf("Unexpected remote dir: %s", sess.RemoteDir())
	}
	entries := sess.RemoteEntries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "www" || !entries[0].IsDir {
		t.Errorf("Expected directory first, got %+v", entries[0])
	}
}

func TestSession_EnterRemote(t *testing.T) {
	sess, _ := newTestSession(true)
	if err := sess.ChangeRemoteDir(context.Background(), "/"); err != nil {
		t.Fatal(err)
	}

	if err := sess.EnterRemote(context.Background(), "www"); err != nil {
		t.Fatalf("EnterRemote returned error: %v", err)
	}
	if sess.RemoteDir() != "/www" {
		t.Errorf("Expected /www, got %s", sess.RemoteDir())
	}

	if err := sess.EnterRemote(context.Background(), "../etc"); err == nil {
		t.Error("Expected traversal name to be rejected")
	}
}

func TestSession_SetActiveHostResetsRemotePane(t *testing.T) {
	sess, _ := newTestSession(true)
	if err := sess.ChangeRemoteDir(context.Background(), "/www"); err != nil {
		t.Fatal(err)
	}

	sess.SetActiveHost(2)
	if sess.RemoteDir() != "/" {
		t.Errorf("Expected remote pane reset to /, got %s", sess.RemoteDir())
	}
	if len(sess.RemoteEntries()) != 0 {
		t.Error("Expected remote listing cleared")
	}
	if sess.Connected() {
		t.Error("Host 2 is not connected")
	}
}

func TestSession_RefreshListings(t *testing.T) {
	sess, client := newTestSession(true)
	dir := seedLocalDir(t)
	if err := sess.ChangeLocalDir(dir); err != nil {
		t.Fatal(err)
	}
	if err := sess.ChangeRemoteDir(context.Background(), "/"); err != nil {
		t.Fatal(err)
	}

	// New content appears on both sides.
	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("n"), 0o644); err != nil {
		t.Fatal(err)
	}
	client.listings["/"] = append(client.listings["/"], models.FileEntry{Name: "fresh.log", Path: "/fresh.log"})

	if err := sess.RefreshListings(context.Background()); err != nil {
		t.Fatalf("RefreshListings returned error: %v", err)
	}
	if len(sess.LocalEntries()) != 4 {
		t.Errorf("Expected refreshed local listing, got %d entries", len(sess.LocalEntries()))
	}
	if len(sess.RemoteEntries()) != 3 {
		t.Errorf("Expected refreshed remote listing, got %d entries", len(sess.RemoteEntries()))
	}
}

func TestSession_RefreshKeepsRemoteOnListFailure(t *testing.T) {
	sess, client := newTestSession(true)
	dir := seedLocalDir(t)
	if err := sess.ChangeLocalDir(dir); err != nil {
		t.Fatal(err)
	}
	if err := sess.ChangeRemoteDir(context.Background(), "/"); err != nil {
		t.Fatal(err)
	}
	before := sess.RemoteEntries()

	client.listErr = errors.New("421 service not available")
	if err := sess.RefreshListings(context.Background()); err == nil {
		t.Error("Expected remote listing error to surface")
	}
	if len(sess.RemoteEntries()) != len(before) {
		t.Error("Remote listing must be kept on failure")
	}
}

func TestSession_ObserversNotified(t *testing.T) {
	sess, _ := newTestSession(false)
	calls := 0
	sess.AddObserver(func() { calls++ })

	sess.SetShowHidden(true)
	sess.SetConnected(true)
	if calls != 2 {
		t.Errorf("Expected 2 notifications, got %d", calls)
	}
}
