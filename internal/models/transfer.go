// Package models defines the shared data types for hosts, transfers,
// bookmarks, and file listings.
package models

import (
	"fmt"
	"time"
)

// Direction indicates whether bytes move from local to remote or back.
type Direction string

const (
	DirectionUpload   Direction = "upload"
	DirectionDownload Direction = "download"
)

// ParseDirection converts a stored string into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "upload":
		return DirectionUpload, nil
	case "download":
		return DirectionDownload, nil
	default:
		return "", fmt.Errorf("unknown direction: %s", s)
	}
}

// TransferStatus is the lifecycle state of a transfer as recorded in history.
type TransferStatus string

const (
	StatusPending      TransferStatus = "pending"
	StatusTransferring TransferStatus = "transferring"
	StatusSuccess      TransferStatus = "success"
	StatusFailed       TransferStatus = "failed"
	StatusCancelled    TransferStatus = "cancelled"
)

// ParseTransferStatus converts a stored string into a TransferStatus.
func ParseTransferStatus(s string) (TransferStatus, error) {
	switch s {
	case "pending":
		return StatusPending, nil
	case "transferring":
		return StatusTransferring, nil
	case "success":
		return StatusSuccess, nil
	case "failed":
		return StatusFailed, nil
	case "cancelled":
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

// IsTerminal reports whether the status is final (success, failed, or cancelled).
func (s TransferStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

// ActiveTransfer is the live view of one in-flight transfer. Entries are
// created on the first progress report for a transfer ID and removed when a
// terminal lifecycle event arrives for that ID.
type ActiveTransfer struct {
	TransferID       string  `json:"transferId"`
	Filename         string  `json:"filename"`
	TotalBytes       int64   `json:"totalBytes"`
	TransferredBytes int64   `json:"transferredBytes"`
	SpeedBytesPerSec float64 `json:"speedBytesPerSec"`
	ETASeconds       float64 `json:"etaSeconds"`
	Percentage       float64 `json:"percentage"`
}

// HistoryRecord is one persisted row of transfer history.
// ID is assigned by the store on insert.
type HistoryRecord struct {
	ID              int64          `json:"id"`
	HostID          int64          `json:"hostId"`
	Filename        string         `json:"filename"`
	RemotePath      string         `json:"remotePath"`
	LocalPath       string         `json:"localPath"`
	Direction       Direction      `json:"direction"`
	FileSize        int64          `json:"fileSize"`
	TransferredSize int64          `json:"transferredSize"`
	Status          TransferStatus `json:"status"`
	ErrorMessage    string         `json:"errorMessage,omitempty"`
	StartedAt       string         `json:"startedAt,omitempty"`
	FinishedAt      string         `json:"finishedAt,omitempty"`
}

// NewHistoryRecord builds a pending history record stamped with the current
// UTC time. The store assigns the ID on insert.
func NewHistoryRecord(hostID int64, filename, remotePath, localPath string, direction Direction, fileSize int64) *HistoryRecord {
	return &HistoryRecord{
		HostID:     hostID,
		Filename:   filename,
		RemotePath: remotePath,
		LocalPath:  localPath,
		Direction:  direction,
		FileSize:   fileSize,
		Status:     StatusPending,
		StartedAt:  time.Now().UTC().Format(TimeLayout),
	}
}

// ResumeRecord tracks a partially completed transfer so it can be continued
// after an interruption.
type ResumeRecord struct {
	ID               int64     `json:"id"`
	TransferID       string    `json:"transferId"`
	HostID           int64     `json:"hostId"`
	RemotePath       string    `json:"remotePath"`
	LocalPath        string    `json:"localPath"`
	Direction        Direction `json:"direction"`
	FileSize         int64     `json:"fileSize"`
	TransferredBytes int64     `json:"transferredBytes"`
	Checksum         string    `json:"checksum,omitempty"`
	CreatedAt        string    `json:"createdAt,omitempty"`
}

// TimeLayout is the timestamp format stored in the database and shown in
// history listings. It matches SQLite's datetime('now') output.
const TimeLayout = "2006-01-02 15:04:05"
