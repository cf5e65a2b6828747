package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/portside-app/portside/internal/models"
)

// BookmarkStore persists directory bookmarks.
type BookmarkStore struct {
	db *sql.DB
}

// NewBookmarkStore creates a bookmark store.
func NewBookmarkStore(db *sql.DB) *BookmarkStore {
	return &BookmarkStore{db: db}
}

const bookmarkColumns = `id, host_id, COALESCE(remote_dir, ''), COALESCE(local_dir, ''),
	label, COALESCE(last_used_at, '')`

// Insert saves a new bookmark and returns it with its ID filled in.
func (s *BookmarkStore) Insert(ctx context.Context, bm *models.DirectoryBookmark) (models.DirectoryBookmark, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO directory_bookmarks (host_id, remote_dir, local_dir, label)
		VALUES (?, ?, ?, ?)`,
		bm.HostID, nullable(bm.RemoteDir), nullable(bm.LocalDir), bm.Label)
	if err != nil {
		return models.DirectoryBookmark{}, fmt.Errorf("insert bookmark: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.DirectoryBookmark{}, fmt.Errorf("insert bookmark: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches one bookmark.
func (s *BookmarkStore) GetByID(ctx context.Context, id int64) (models.DirectoryBookmark, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+bookmarkColumns+" FROM directory_bookmarks WHERE id = ?", id)
	bm, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DirectoryBookmark{}, ErrNotFound
	}
	return bm, err
}

// GetByHost returns the bookmarks for one host, most recently used first.
// Never-used bookmarks sort last.
func (s *BookmarkStore) GetByHost(ctx context.Context, hostID int64) ([]models.DirectoryBookmark, error) {
	return s.query(ctx, `
		SELECT `+bookmarkColumns+` FROM directory_bookmarks
		WHERE host_id = ?
		ORDER BY last_used_at IS NULL, last_used_at DESC, id`, hostID)
}

// GetAll returns every bookmark across hosts.
func (s *BookmarkStore) GetAll(ctx context.Context) ([]models.DirectoryBookmark, error) {
	return s.query(ctx, `
		SELECT `+bookmarkColumns+` FROM directory_bookmarks
		ORDER BY last_used_at IS NULL, last_used_at DESC, id`)
}

// Touch stamps last_used_at with the current time.
func (s *BookmarkStore) Touch(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE directory_bookmarks SET last_used_at = datetime('now') WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("touch bookmark %d: %w", id, err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch bookmark %d: %w", id, err)
	}
	if changed == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a bookmark.
func (s *BookmarkStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM directory_bookmarks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete bookmark %d: %w", id, err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete bookmark %d: %w", id, err)
	}
	if changed == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *BookmarkStore) query(ctx context.Context, query string, args ...any) ([]models.DirectoryBookmark, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []models.DirectoryBookmark
	for rows.Next() {
		bm, scanErr := scanBookmark(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		bookmarks = append(bookmarks, bm)
	}
	return bookmarks, rows.Err()
}

func scanBookmark(row rowScanner) (models.DirectoryBookmark, error) {
	var bm models.DirectoryBookmark
	if err := row.Scan(&bm.ID, &bm.HostID, &bm.RemoteDir, &bm.LocalDir, &bm.Label, &bm.LastUsedAt); err != nil {
		return models.DirectoryBookmark{}, err
	}
	return bm, nil
}
