package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/portside-app/portside/internal/models"
)

// HistoryStore persists transfer history rows.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates a history store.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

const historyColumns = `id, host_id, filename, remote_path, local_path, direction,
	file_size, transferred_size, status, COALESCE(error_message, ''),
	COALESCE(started_at, ''), COALESCE(finished_at, '')`

// Insert saves a new history row and returns its ID.
func (s *HistoryStore) Insert(ctx context.Context, rec *models.HistoryRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transfer_history
			(host_id, filename, remote_path, local_path, direction, file_size,
			 transferred_size, status, error_message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.HostID, rec.Filename, rec.RemotePath, rec.LocalPath, string(rec.Direction),
		rec.FileSize, rec.TransferredSize, string(rec.Status),
		nullable(rec.ErrorMessage), nullable(rec.StartedAt), nullable(rec.FinishedAt))
	if err != nil {
		return 0, fmt.Errorf("insert history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert history: %w", err)
	}
	return id, nil
}

// GetByID fetches one history row.
func (s *HistoryStore) GetByID(ctx context.Context, id int64) (models.HistoryRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+historyColumns+" FROM transfer_history WHERE id = ?", id)
	rec, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.HistoryRecord{}, ErrNotFound
	}
	return rec, err
}

// GetAll returns the full history, newest first.
func (s *HistoryStore) GetAll(ctx context.Context) ([]models.HistoryRecord, error) {
	return s.query(ctx,
		"SELECT "+historyColumns+" FROM transfer_history ORDER BY id DESC")
}

// GetByHost returns the history for one host, newest first.
func (s *HistoryStore) GetByHost(ctx context.Context, hostID int64) ([]models.HistoryRecord, error) {
	return s.query(ctx,
		"SELECT "+historyColumns+" FROM transfer_history WHERE host_id = ? ORDER BY id DESC", hostID)
}

// UpdateStatus moves a row through the transfer lifecycle.
func (s *HistoryStore) UpdateStatus(ctx context.Context, id int64, status models.TransferStatus, transferredSize int64, errMsg, finishedAt string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transfer_history
		SET status = ?, transferred_size = ?, error_message = ?, finished_at = ?
		WHERE id = ?`,
		string(status), transferredSize, nullable(errMsg), nullable(finishedAt), id)
	if err != nil {
		return fmt.Errorf("update history %d: %w", id, err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update history %d: %w", id, err)
	}
	if changed == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear deletes all history rows.
func (s *HistoryStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM transfer_history"); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// ClearByHost deletes the history rows for one host.
func (s *HistoryStore) ClearByHost(ctx context.Context, hostID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM transfer_history WHERE host_id = ?", hostID); err != nil {
		return fmt.Errorf("clear history for host %d: %w", hostID, err)
	}
	return nil
}

func (s *HistoryStore) query(ctx context.Context, query string, args ...any) ([]models.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var records []models.HistoryRecord
	for rows.Next() {
		rec, scanErr := scanHistory(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanHistory(row rowScanner) (models.HistoryRecord, error) {
	var rec models.HistoryRecord
	var direction, status string
	if err := row.Scan(&rec.ID, &rec.HostID, &rec.Filename, &rec.RemotePath, &rec.LocalPath,
		&direction, &rec.FileSize, &rec.TransferredSize, &status,
		&rec.ErrorMessage, &rec.StartedAt, &rec.FinishedAt); err != nil {
		return models.HistoryRecord{}, err
	}

	parsedDirection, err := models.ParseDirection(direction)
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("history %d: %w", rec.ID, err)
	}
	parsedStatus, err := models.ParseTransferStatus(status)
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("history %d: %w", rec.ID, err)
	}
	rec.Direction = parsedDirection
	rec.Status = parsedStatus
	return rec, nil
}

// nullable maps empty strings to SQL NULL so optional text columns stay NULL
// instead of accumulating empty strings.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
