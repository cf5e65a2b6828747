package paths

import (
	"testing"
	"time"
)

func TestWithTimestamp(t *testing.T) {
	now := time.UnixMilli(1712345678901)

	tests := []struct {
		name     string
		expected string
	}{
		{"report.pdf", "report_1712345678901.pdf"},
		{"archive.tar.gz", "archive.tar_1712345678901.gz"},
		{"README", "README_1712345678901"},
		{".bashrc", "_1712345678901.bashrc"},
		{"a.b.c.txt", "a.b.c_1712345678901.txt"},
	}

	for _, tt := range tests {
		if got := WithTimestamp(tt.name, now); got != tt.expected {
			t.Errorf("WithTimestamp(%q): expected %q, got %q", tt.name, tt.expected, got)
		}
	}
}

func TestWithTimestamp_DistinctTimes(t *testing.T) {
	a := WithTimestamp("file.txt", time.UnixMilli(1000))
	b := WithTimestamp("file.txt", time.UnixMilli(1001))
	if a == b {
		t.Errorf("expected distinct names for distinct timestamps, got %q twice", a)
	}
}

func TestRemoteJoin(t *testing.T) {
	tests := []struct {
		dir      string
		name     string
		expected string
	}{
		{"/srv/data", "file.txt", "/srv/data/file.txt"},
		{"/srv/data/", "file.txt", "/srv/data/file.txt"},
		{"/", "file.txt", "/file.txt"},
		{"/a//", "b", "/a/b"},
	}

	for _, tt := range tests {
		if got := RemoteJoin(tt.dir, tt.name); got != tt.expected {
			t.Errorf("RemoteJoin(%q, %q): expected %q, got %q", tt.dir, tt.name, tt.expected, got)
		}
	}
}

func TestRemoteBase(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/srv/data/file.txt", "file.txt"},
		{"/srv/data/", "data"},
		{"/file", "file"},
	}

	for _, tt := range tests {
		if got := RemoteBase(tt.path); got != tt.expected {
			t.Errorf("RemoteBase(%q): expected %q, got %q", tt.path, tt.expected, got)
		}
	}
}
