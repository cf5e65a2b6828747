// Package validation checks user-supplied host profiles and paths before
// they reach the store or the filesystem.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/portside-app/portside/internal/constants"
	"github.com/portside-app/portside/internal/models"
)

var validate = validator.New()

// ValidateHost checks a host profile against length limits and the rules the
// struct tags cannot express: whitespace-only fields, URL schemes in the
// address, and key path traversal.
func ValidateHost(host *models.Host) error {
	if err := validate.Struct(host); err != nil {
		return fmt.Errorf("invalid host: %w", err)
	}

	if strings.TrimSpace(host.Name) == "" {
		return fmt.Errorf("host name cannot be blank")
	}

	addr := strings.TrimSpace(host.Host)
	if addr == "" {
		return fmt.Errorf("host address cannot be blank")
	}
	if strings.Contains(addr, "://") {
		return fmt.Errorf("host address must not contain a scheme: %s", addr)
	}

	if strings.TrimSpace(host.Username) == "" {
		return fmt.Errorf("username cannot be blank")
	}

	if host.KeyPath != "" {
		if err := validateKeyPath(host.KeyPath); err != nil {
			return err
		}
	}
	return nil
}

func validateKeyPath(keyPath string) error {
	trimmed := strings.TrimSpace(keyPath)
	if trimmed == "" {
		return fmt.Errorf("key path cannot be blank")
	}
	if len(trimmed) > constants.MaxKeyPathLength {
		return fmt.Errorf("key path exceeds %d characters", constants.MaxKeyPathLength)
	}
	if strings.Contains(trimmed, "..") {
		return fmt.Errorf("key path must not contain '..': %s", trimmed)
	}
	if !filepath.IsAbs(trimmed) {
		return fmt.Errorf("key path must be absolute: %s", trimmed)
	}
	return nil
}
