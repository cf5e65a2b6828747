package constants

import (
	"time"
)

// Transfer engine
const (
	// TransferChunkSize - size of each read/write chunk during uploads and
	// downloads (32 KB). Progress callbacks fire once per chunk.
	TransferChunkSize = 32 * 1024

	// ResumeSaveInterval - minimum time between resume checkpoint writes
	// during an active transfer (3 seconds)
	ResumeSaveInterval = 3 * time.Second
)

// Retry configuration
const (
	// MaxRetries - maximum number of retries for transient errors
	MaxRetries = 10

	// RetryInitialDelay - initial delay before first retry (200ms)
	RetryInitialDelay = 200 * time.Millisecond

	// RetryMaxDelay - maximum delay between retries (15s)
	// Exponential backoff with jitter caps at this value
	RetryMaxDelay = 15 * time.Second
)

// Event System
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios (5000)
	EventBusMaxBuffer = 5000
)

// UI Updates
const (
	// ProgressForwardInterval - minimum time between forwarded progress
	// updates per transfer (100ms). Terminal events are never throttled.
	ProgressForwardInterval = 100 * time.Millisecond

	// ProgressBarUpdateInterval - interval for progress bar redraws (250ms)
	ProgressBarUpdateInterval = 250 * time.Millisecond
)

// Connection handling
const (
	// DialTimeout - timeout for establishing a host connection (30 seconds)
	DialTimeout = 30 * time.Second

	// TestConnectionTimeout - timeout for a connect-and-close probe (10 seconds)
	TestConnectionTimeout = 10 * time.Second
)

// Database
const (
	// DBMaxOpenConns - maximum open connections to the SQLite database.
	// A single writer avoids SQLITE_BUSY on concurrent transfer updates.
	DBMaxOpenConns = 1

	// DBMaxIdleConns - idle connections kept ready
	DBMaxIdleConns = 1
)

// Host validation limits
const (
	MaxHostNameLength = 128
	MaxHostAddrLength = 256
	MaxUsernameLength = 128
	MaxPasswordLength = 512
	MaxKeyPathLength  = 1024
)
