package models

import "fmt"

// Protocol selects the wire protocol used to reach a host.
type Protocol string

const (
	ProtocolFTP  Protocol = "ftp"
	ProtocolSFTP Protocol = "sftp"
)

// ParseProtocol converts a stored string into a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch s {
	case "ftp":
		return ProtocolFTP, nil
	case "sftp":
		return ProtocolSFTP, nil
	default:
		return "", fmt.Errorf("unknown protocol: %s", s)
	}
}

// DefaultPort returns the conventional port for the protocol.
func (p Protocol) DefaultPort() int {
	if p == ProtocolFTP {
		return 21
	}
	return 22
}

// Host is a saved server profile. Password and KeyPath are stored encrypted
// at rest; the store layer decrypts them on read, so in-memory values are
// always plaintext.
type Host struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name" validate:"required,max=128"`
	Host      string   `json:"host" validate:"required,max=256"`
	Port      int      `json:"port" validate:"min=1,max=65535"`
	Protocol  Protocol `json:"protocol" validate:"required,oneof=ftp sftp"`
	Username  string   `json:"username" validate:"required,max=128"`
	Password  string   `json:"password,omitempty" validate:"max=512"`
	KeyPath   string   `json:"keyPath,omitempty" validate:"max=1024"`
	CreatedAt string   `json:"createdAt,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

// NewHost builds an unsaved host profile. The store assigns ID and
// timestamps on insert.
func NewHost(name, addr string, port int, protocol Protocol, username string) *Host {
	return &Host{
		Name:     name,
		Host:     addr,
		Port:     port,
		Protocol: protocol,
		Username: username,
	}
}

// Addr returns the host:port dial address.
func (h *Host) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}
