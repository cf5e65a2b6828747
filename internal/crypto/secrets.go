// Package secrets encrypts host credentials at rest with AES-256-GCM.
// Encrypted values carry an "enc:" prefix over base64(nonce || ciphertext);
// values without the prefix are treated as legacy plaintext and returned
// unchanged by Decrypt so existing databases keep working.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12

	encPrefix   = "enc:"
	keyFileName = ".portside_encryption_key"
)

// Encrypt seals plaintext under key. Empty input encrypts to empty output so
// optional secrets stay optional in the database.
func Encrypt(plaintext string, key []byte) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	blob := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return encPrefix + base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a value produced by Encrypt. Values without the "enc:"
// prefix pass through unchanged.
func Decrypt(encoded string, key []byte) (string, error) {
	if encoded == "" {
		return "", nil
	}
	if len(encoded) < len(encPrefix) || encoded[:len(encPrefix)] != encPrefix {
		return encoded, nil
	}

	blob, err := base64.StdEncoding.DecodeString(encoded[len(encPrefix):])
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}
	if len(blob) < NonceSize {
		return "", fmt.Errorf("secret too short: %d bytes", len(blob))
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce, ciphertext := blob[:NonceSize], blob[NonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt secret: %w", err)
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether the value carries the encrypted-secret prefix.
func IsEncrypted(value string) bool {
	return len(value) >= len(encPrefix) && value[:len(encPrefix)] == encPrefix
}

// LoadOrCreateKey reads the encryption key from dataDir, generating and
// persisting a fresh one with 0600 permissions on first run.
func LoadOrCreateKey(dataDir string) ([]byte, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	keyPath := filepath.Join(dataDir, keyFileName)
	if data, err := os.ReadFile(keyPath); err == nil {
		if len(data) != KeySize {
			return nil, fmt.Errorf("key file %s: expected %d bytes, got %d", keyPath, KeySize, len(data))
		}
		return data, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := os.WriteFile(keyPath, key, 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size: %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
