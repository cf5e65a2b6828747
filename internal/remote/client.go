// Package remote defines the boundary to FTP/SFTP protocol clients and the
// connection pool that hands them out. Protocol implementations live outside
// this repository; everything here programs against the Client interface.
package remote

import (
	"context"

	"github.com/portside-app/portside/internal/models"
)

// ProgressFunc reports bytes moved so far in the current call and the total
// expected. Called from the transfer goroutine; implementations must be fast.
type ProgressFunc func(transferred, total int64)

// Client is one live protocol session with a host. Methods are not safe for
// concurrent use; the Manager serializes access per host.
type Client interface {
	// List returns the entries of a remote directory.
	List(ctx context.Context, path string) ([]models.FileEntry, error)

	// Stat returns the entry for a single remote path.
	Stat(ctx context.Context, path string) (models.FileEntry, error)

	// Exists reports whether a remote path exists.
	Exists(ctx context.Context, path string) (bool, error)

	// Mkdir creates one remote directory. MkdirAll creates every missing
	// component. Creating an existing directory is not an error.
	Mkdir(ctx context.Context, path string) error
	MkdirAll(ctx context.Context, path string) error

	// Upload copies a local file to the remote path, starting at offset
	// bytes for resumed transfers. Returns the bytes moved by this call.
	Upload(ctx context.Context, localPath, remotePath string, offset int64, progress ProgressFunc) (int64, error)

	// Download copies a remote file to the local path, starting at offset.
	Download(ctx context.Context, remotePath, localPath string, offset int64, progress ProgressFunc) (int64, error)

	Remove(ctx context.Context, path string) error
	RemoveDir(ctx context.Context, path string) error
	Rename(ctx context.Context, from, to string) error

	// Close tears down the session.
	Close() error
}

// Dialer opens a Client for a host profile. One implementation per protocol.
type Dialer interface {
	Dial(ctx context.Context, host models.Host) (Client, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, host models.Host) (Client, error)

func (f DialerFunc) Dial(ctx context.Context, host models.Host) (Client, error) {
	return f(ctx, host)
}
