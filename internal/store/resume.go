package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/portside-app/portside/internal/models"
)

// ResumeStore persists partial-transfer checkpoints.
type ResumeStore struct {
	db *sql.DB
}

// NewResumeStore creates a resume store.
func NewResumeStore(db *sql.DB) *ResumeStore {
	return &ResumeStore{db: db}
}

const resumeColumns = `id, transfer_id, host_id, remote_path, local_path, direction,
	file_size, transferred_bytes, COALESCE(checksum, ''), created_at`

// Save upserts the checkpoint for a transfer. A transfer keeps a single row;
// repeated saves update the byte count in place.
func (s *ResumeStore) Save(ctx context.Context, rec *models.ResumeRecord) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE resume_records SET transferred_bytes = ?, file_size = ?, checksum = ?
		WHERE transfer_id = ?`,
		rec.TransferredBytes, rec.FileSize, nullable(rec.Checksum), rec.TransferID)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	if changed > 0 {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO resume_records
			(transfer_id, host_id, remote_path, local_path, direction,
			 file_size, transferred_bytes, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TransferID, rec.HostID, rec.RemotePath, rec.LocalPath, string(rec.Direction),
		rec.FileSize, rec.TransferredBytes, nullable(rec.Checksum)); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Find returns the most recent checkpoint that matches the endpoints, or
// (nil, nil) when none exists.
func (s *ResumeStore) Find(ctx context.Context, hostID int64, remotePath, localPath string, direction models.Direction) (*models.ResumeRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+resumeColumns+` FROM resume_records
		WHERE host_id = ? AND remote_path = ? AND local_path = ? AND direction = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`,
		hostID, remotePath, localPath, string(direction))

	rec, err := scanResume(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetAll returns every checkpoint, newest first.
func (s *ResumeStore) GetAll(ctx context.Context) ([]models.ResumeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+resumeColumns+" FROM resume_records ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var records []models.ResumeRecord
	for rows.Next() {
		rec, scanErr := scanResume(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteByTransfer removes the checkpoint for a transfer. Deleting a
// transfer with no checkpoint is not an error.
func (s *ResumeStore) DeleteByTransfer(ctx context.Context, transferID string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM resume_records WHERE transfer_id = ?", transferID); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

func scanResume(row rowScanner) (models.ResumeRecord, error) {
	var rec models.ResumeRecord
	var direction string
	if err := row.Scan(&rec.ID, &rec.TransferID, &rec.HostID, &rec.RemotePath, &rec.LocalPath,
		&direction, &rec.FileSize, &rec.TransferredBytes, &rec.Checksum, &rec.CreatedAt); err != nil {
		return models.ResumeRecord{}, err
	}
	parsed, err := models.ParseDirection(direction)
	if err != nil {
		return models.ResumeRecord{}, fmt.Errorf("checkpoint %d: %w", rec.ID, err)
	}
	rec.Direction = parsed
	return rec, nil
}
