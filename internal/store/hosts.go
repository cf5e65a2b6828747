package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	secrets "github.com/portside-app/portside/internal/crypto"
	"github.com/portside-app/portside/internal/models"
)

// HostStore persists saved server profiles. When key is non-nil, password
// and key_path are encrypted at rest; plaintext rows left by older versions
// are re-encrypted the first time they are read.
type HostStore struct {
	db  *sql.DB
	key []byte
}

// NewHostStore creates a host store. key may be nil to disable encryption.
func NewHostStore(db *sql.DB, key []byte) *HostStore {
	return &HostStore{db: db, key: key}
}

const hostColumns = `id, name, host, port, protocol, username,
	COALESCE(password, ''), COALESCE(key_path, ''), created_at, updated_at`

// Insert saves a new host and returns it with ID and timestamps filled in.
func (s *HostStore) Insert(ctx context.Context, host *models.Host) (models.Host, error) {
	password, keyPath, err := s.sealSecrets(host.Password, host.KeyPath)
	if err != nil {
		return models.Host{}, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO hosts (name, host, port, protocol, username, password, key_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		host.Name, host.Host, host.Port, string(host.Protocol), host.Username, password, keyPath)
	if err != nil {
		return models.Host{}, fmt.Errorf("insert host: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Host{}, fmt.Errorf("insert host: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches one host with decrypted credentials.
func (s *HostStore) GetByID(ctx context.Context, id int64) (models.Host, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+hostColumns+" FROM hosts WHERE id = ?", id)
	host, err := s.scanHost(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Host{}, ErrNotFound
	}
	return host, err
}

// GetAll returns every saved host, most recently updated first.
func (s *HostStore) GetAll(ctx context.Context) ([]models.Host, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+hostColumns+" FROM hosts ORDER BY updated_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []models.Host
	for rows.Next() {
		host, scanErr := s.scanHost(ctx, rows)
		if scanErr != nil {
			return nil, scanErr
		}
		hosts = append(hosts, host)
	}
	return hosts, rows.Err()
}

// Update rewrites a host profile. Empty Password or KeyPath on the incoming
// host mean "keep the stored secret", so an edit form that leaves the
// password blank does not wipe it.
func (s *HostStore) Update(ctx context.Context, host *models.Host) error {
	password := host.Password
	keyPath := host.KeyPath
	if password == "" || keyPath == "" {
		existing, err := s.GetByID(ctx, host.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if err == nil {
			if password == "" {
				password = existing.Password
			}
			if keyPath == "" {
				keyPath = existing.KeyPath
			}
		}
	}

	sealedPassword, sealedKeyPath, err := s.sealSecrets(password, keyPath)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE hosts SET name = ?, host = ?, port = ?, protocol = ?, username = ?,
			password = ?, key_path = ?, updated_at = datetime('now')
		WHERE id = ?`,
		host.Name, host.Host, host.Port, string(host.Protocol), host.Username,
		sealedPassword, sealedKeyPath, host.ID)
	if err != nil {
		return fmt.Errorf("update host: %w", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update host: %w", err)
	}
	if changed == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a host. History, bookmarks, and resume records cascade.
func (s *HostStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM hosts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete host: %w", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete host: %w", err)
	}
	if changed == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *HostStore) scanHost(ctx context.Context, row rowScanner) (models.Host, error) {
	var h models.Host
	var protocol string
	if err := row.Scan(&h.ID, &h.Name, &h.Host, &h.Port, &protocol, &h.Username,
		&h.Password, &h.KeyPath, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return models.Host{}, err
	}

	parsed, err := models.ParseProtocol(protocol)
	if err != nil {
		return models.Host{}, fmt.Errorf("host %d: %w", h.ID, err)
	}
	h.Protocol = parsed

	h.Password, err = s.openSecret(ctx, h.ID, "password", h.Password)
	if err != nil {
		return models.Host{}, err
	}
	h.KeyPath, err = s.openSecret(ctx, h.ID, "key_path", h.KeyPath)
	if err != nil {
		return models.Host{}, err
	}
	return h, nil
}

func (s *HostStore) sealSecrets(password, keyPath string) (string, string, error) {
	if s.key == nil {
		return password, keyPath, nil
	}
	sealedPassword, err := secrets.Encrypt(password, s.key)
	if err != nil {
		return "", "", fmt.Errorf("encrypt password: %w", err)
	}
	sealedKeyPath, err := secrets.Encrypt(keyPath, s.key)
	if err != nil {
		return "", "", fmt.Errorf("encrypt key path: %w", err)
	}
	return sealedPassword, sealedKeyPath, nil
}

// openSecret decrypts a stored secret. A non-empty plaintext value is a
// legacy row: it is re-encrypted in place so the database converges on
// encrypted storage.
func (s *HostStore) openSecret(ctx context.Context, hostID int64, column, stored string) (string, error) {
	if s.key == nil || stored == "" {
		return stored, nil
	}
	if secrets.IsEncrypted(stored) {
		plain, err := secrets.Decrypt(stored, s.key)
		if err != nil {
			return "", fmt.Errorf("decrypt host %d %s: %w", hostID, column, err)
		}
		return plain, nil
	}

	sealed, err := secrets.Encrypt(stored, s.key)
	if err != nil {
		return "", fmt.Errorf("migrate host %d %s: %w", hostID, column, err)
	}
	var query string
	switch column {
	case "password":
		query = "UPDATE hosts SET password = ? WHERE id = ?"
	case "key_path":
		query = "UPDATE hosts SET key_path = ? WHERE id = ?"
	default:
		return "", fmt.Errorf("unknown secret column %s", column)
	}
	if _, err := s.db.ExecContext(ctx, query, sealed, hostID); err != nil {
		return "", fmt.Errorf("migrate host %d %s: %w", hostID, column, err)
	}
	return stored, nil
}
