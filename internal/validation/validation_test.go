package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/portside-app/portside/internal/models"
)

func validHost() *models.Host {
	h := models.NewHost("test", "192.168.1.1", 22, models.ProtocolSFTP, "user")
	h.Password = "pass"
	return h
}

func TestValidateHost_OK(t *testing.T) {
	if err := ValidateHost(validHost()); err != nil {
		t.Errorf("Expected valid host, got %v", err)
	}
}

func TestValidateHost_NameRules(t *testing.T) {
	h := validHost()
	h.Name = ""
	if err := ValidateHost(h); err == nil {
		t.Error("Empty name must fail")
	}
	h.Name = "   "
	if err := ValidateHost(h); err == nil {
		t.Error("Whitespace-only name must fail")
	}
	h.Name = strings.Repeat("a", 129)
	if err := ValidateHost(h); err == nil {
		t.Error("Overlong name must fail")
	}
}

func TestValidateHost_AddressRules(t *testing.T) {
	h := validHost()
	h.Host = ""
	if err := ValidateHost(h); err == nil {
		t.Error("Empty address must fail")
	}
	h.Host = "file:///etc/passwd"
	if err := ValidateHost(h); err == nil {
		t.Error("file:// address must fail")
	}
	h.Host = "sftp://example.com"
	if err := ValidateHost(h); err == nil {
		t.Error("Address with scheme must fail")
	}
	h.Host = strings.Repeat("a", 257)
	if err := ValidateHost(h); err == nil {
		t.Error("Overlong address must fail")
	}
}

func TestValidateHost_PortZero(t *testing.T) {
	h := validHost()
	h.Port = 0
	if err := ValidateHost(h); err == nil {
		t.Error("Port zero must fail")
	}
}

func TestValidateHost_UsernameRules(t *testing.T) {
	h := validHost()
	h.Username = ""
	if err := ValidateHost(h); err == nil {
		t.Error("Empty username must fail")
	}
	h.Username = "  "
	if err := ValidateHost(h); err == nil {
		t.Error("Whitespace-only username must fail")
	}
}

func TestValidateHost_PasswordLength(t *testing.T) {
	h := validHost()
	h.Password = strings.Repeat("p", 513)
	if err := ValidateHost(h); err == nil {
		t.Error("Overlong password must fail")
	}
}

func TestValidateHost_KeyPathRules(t *testing.T) {
	h := validHost()
	h.KeyPath = "/home/user/.ssh/../../../etc/passwd"
	if err := ValidateHost(h); err == nil {
		t.Error("Key path with traversal must fail")
	}
	h.KeyPath = "relative/.ssh/id_ed25519"
	if err := ValidateHost(h); err == nil {
		t.Error("Relative key path must fail")
	}
	h.KeyPath = "/home/user/.ssh/id_ed25519"
	if err := ValidateHost(h); err != nil {
		t.Errorf("Absolute key path must pass, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	valid := []string{"a.txt", "my file", ".hidden", "data..v2.csv", "file.v1.2.3.txt"}
	for _, name := range valid {
		if _, err := SanitizeFilename(name); err != nil {
			t.Errorf("SanitizeFilename(%q) unexpectedly failed: %v", name, err)
		}
	}

	invalid := []string{"", ".", "..", "a/b.txt", "a\\b.txt", "x\x00y"}
	for _, name := range invalid {
		if _, err := SanitizeFilename(name); err == nil {
			t.Errorf("SanitizeFilename(%q) should fail", name)
		}
	}
}

func TestSafeJoin(t *testing.T) {
	base := t.TempDir()

	joined, err := SafeJoin(base, "notes.txt")
	if err != nil {
		t.Fatalf("SafeJoin returned error: %v", err)
	}
	if joined != filepath.Join(base, "notes.txt") {
		t.Errorf("Unexpected join result: %s", joined)
	}

	if _, err := SafeJoin(base, "../escape.txt"); err == nil {
		t.Error("SafeJoin must reject traversal names")
	}
}

func TestNormalizeAndValidate(t *testing.T) {
	dir := t.TempDir()

	resolved, err := NormalizeAndValidate(dir)
	if err != nil {
		t.Fatalf("NormalizeAndValidate returned error: %v", err)
	}
	if !filepath.IsAbs(resolved) {
		t.Errorf("Expected absolute result, got %s", resolved)
	}

	if _, err := NormalizeAndValidate(""); err == nil {
		t.Error("Empty path must fail")
	}
	if _, err := NormalizeAndValidate("  "); err == nil {
		t.Error("Whitespace path must fail")
	}
	if _, err := NormalizeAndValidate(filepath.Join(dir, "does-not-exist")); err == nil {
		t.Error("Nonexistent path must fail for read validation")
	}
}

func TestNormalizeForCreate(t *testing.T) {
	dir := t.TempDir()

	target := filepath.Join(dir, "new", "deep", "file.txt")
	resolved, err := NormalizeForCreate(target)
	if err != nil {
		t.Fatalf("NormalizeForCreate returned error: %v", err)
	}
	if !strings.HasSuffix(resolved, filepath.Join("new", "deep", "file.txt")) {
		t.Errorf("Unexpected resolution: %s", resolved)
	}

	// An existing path resolves like the read variant.
	existing := filepath.Join(dir, "present.txt")
	if err := os.WriteFile(existing, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	resolved, err = NormalizeForCreate(existing)
	if err != nil {
		t.Fatalf("NormalizeForCreate returned error: %v", err)
	}
	if filepath.Base(resolved) != "present.txt" {
		t.Errorf("Unexpected resolution: %s", resolved)
	}

	if _, err := NormalizeForCreate(""); err == nil {
		t.Error("Empty path must fail")
	}
}

func TestValidatePathInDirectory(t *testing.T) {
	base := "/tmp/uploads"

	if err := ValidatePathInDirectory("subdir/file.txt", base); err != nil {
		t.Errorf("Contained path must pass, got %v", err)
	}
	if err := ValidatePathInDirectory("../../etc/passwd", base); err == nil {
		t.Error("Escaping relative path must fail")
	}
	if err := ValidatePathInDirectory("/etc/passwd", base); err == nil {
		t.Error("Absolute path outside base must fail")
	}
	if err := ValidatePathInDirectory("", base); err == nil {
		t.Error("Empty path must fail")
	}
	if err := ValidatePathInDirectory("x", ""); err == nil {
		t.Error("Empty base must fail")
	}
}
