package models

import (
	"sort"
	"time"
)

// FileEntry is one row of a directory listing, local or remote.
// Modified is zero when the source cannot report a timestamp (common for
// plain FTP listings).
type FileEntry struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	IsDir    bool      `json:"isDir"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified,omitzero"`
}

// SortEntries orders a listing directories-first, then by name ascending.
func SortEntries(entries []FileEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
}
