package localfs

import (
	"fmt"

	"github.com/portside-app/portside/internal/models"
)

// ListEntries returns the directory listing as pane rows: hidden files
// filtered per showHidden, directories first, names ascending. This is the
// local counterpart of a remote client's List.
func ListEntries(path string, showHidden bool) ([]models.FileEntry, error) {
	raw, err := ListDirectory(path, ListOptions{IncludeHidden: showHidden})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	entries := make([]models.FileEntry, 0, len(raw))
	for _, e := range raw {
		entries = append(entries, models.FileEntry{
			Name:     e.Name,
			Path:     e.Path,
			IsDir:    e.IsDir,
			Size:     e.Size,
			Modified: e.ModTime,
		})
	}
	models.SortEntries(entries)
	return entries, nil
}
