// Package paths provides path helpers shared by the transfer coordinator
// and the CLI.
package paths

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// WithTimestamp inserts a millisecond epoch timestamp before the extension,
// producing the destination name used when the user resolves a conflict with
// "rename". "report.pdf" becomes "report_1712345678901.pdf"; a name without
// an extension gets the suffix appended.
//
// The result is not re-checked for existence; two renames within the same
// millisecond can collide.
func WithTimestamp(filename string, now time.Time) string {
	ext := path.Ext(filename)
	base := filename[:len(filename)-len(ext)]
	return fmt.Sprintf("%s_%d%s", base, now.UnixMilli(), ext)
}

// RemoteJoin joins a remote directory and entry name with a single slash.
// Remote paths always use forward slashes regardless of the local OS.
func RemoteJoin(dir, name string) string {
	return strings.TrimRight(dir, "/") + "/" + name
}

// RemoteBase returns the last element of a slash-separated remote path.
func RemoteBase(p string) string {
	return path.Base(strings.TrimRight(p, "/"))
}
