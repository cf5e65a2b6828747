package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SanitizeFilename validates a bare filename received from a remote listing
// before it is used in a filepath.Join. Separators, null bytes, and the
// "." / ".." names are rejected; names like "data..v2.csv" stay legal.
func SanitizeFilename(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}
	if strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("filename contains null byte: %q", name)
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, '\\') {
		return "", fmt.Errorf("filename cannot contain path separators: %s", name)
	}
	if name == "." || name == ".." {
		return "", fmt.Errorf("illegal filename: %s", name)
	}
	return name, nil
}

// SafeJoin joins a remote-supplied name onto base after sanitizing it,
// guaranteeing the result stays inside base.
func SafeJoin(base, name string) (string, error) {
	sanitized, err := SanitizeFilename(name)
	if err != nil {
		return "", err
	}
	joined := filepath.Join(base, sanitized)
	if err := ValidatePathInDirectory(joined, base); err != nil {
		return "", err
	}
	return joined, nil
}

// NormalizeAndValidate resolves a user-supplied path for read operations.
// The path must exist; symlinks and ".." segments resolve to the real
// location so later containment checks see the true target.
func NormalizeAndValidate(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	resolved, err := filepath.EvalSymlinks(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", trimmed, err)
	}
	return filepath.Abs(resolved)
}

// NormalizeForCreate resolves a path that may not exist yet by resolving its
// deepest existing ancestor and re-joining the remainder, so a destination
// under a symlinked parent cannot escape it.
func NormalizeForCreate(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	abs, err := filepath.Abs(filepath.Clean(trimmed))
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", trimmed, err)
	}

	current := abs
	var remainder []string
	for {
		if resolved, evalErr := filepath.EvalSymlinks(current); evalErr == nil {
			parts := append([]string{resolved}, remainder...)
			return filepath.Join(parts...), nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("cannot resolve path: %s", trimmed)
		}
		remainder = append([]string{filepath.Base(current)}, remainder...)
		current = parent
	}
}

// ValidatePathInDirectory checks that path, once cleaned and made absolute
// relative to baseDir, does not escape baseDir.
func ValidatePathInDirectory(path, baseDir string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if baseDir == "" {
		return fmt.Errorf("base directory cannot be empty")
	}

	cleanBase := filepath.Clean(baseDir)
	if !filepath.IsAbs(cleanBase) {
		abs, err := filepath.Abs(cleanBase)
		if err != nil {
			return fmt.Errorf("resolve base directory: %w", err)
		}
		cleanBase = abs
	}

	resolved := filepath.Clean(path)
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(cleanBase, resolved)
	}

	rel, err := filepath.Rel(cleanBase, resolved)
	if err != nil {
		return fmt.Errorf("compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s (base: %s)", path, baseDir)
	}
	return nil
}
