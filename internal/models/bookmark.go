package models

// DirectoryBookmark marks a remote and/or local directory pair on a host so
// the user can jump both panes back to a saved location. Either side may be
// empty; LastUsedAt is set each time the bookmark is opened.
type DirectoryBookmark struct {
	ID         int64  `json:"id"`
	HostID     int64  `json:"hostId"`
	RemoteDir  string `json:"remoteDir,omitempty"`
	LocalDir   string `json:"localDir,omitempty"`
	Label      string `json:"label" validate:"required,max=128"`
	LastUsedAt string `json:"lastUsedAt,omitempty"`
}

// NewDirectoryBookmark builds an unsaved bookmark for the given host.
func NewDirectoryBookmark(hostID int64, label string) *DirectoryBookmark {
	return &DirectoryBookmark{
		HostID: hostID,
		Label:  label,
	}
}
