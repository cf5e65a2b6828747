package engine

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/portside-app/portside/internal/constants"
)

// ErrorType classifies a remote-client error for the retry strategy.
type ErrorType int

const (
	// ErrorTypeSuccess indicates the operation succeeded.
	ErrorTypeSuccess ErrorType = iota
	// ErrorTypeAuth indicates an authentication/authorization failure.
	ErrorTypeAuth
	// ErrorTypeNetwork indicates connection trouble (timeouts, resets).
	ErrorTypeNetwork
	// ErrorTypeTransient indicates server-side conditions worth retrying
	// (FTP 4xx transient replies, busy server).
	ErrorTypeTransient
	// ErrorTypeFatal indicates errors that will not succeed on retry
	// (missing file, permission denied, FTP 5xx permanent replies).
	ErrorTypeFatal
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeSuccess:
		return "success"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// RetryConfig holds retry parameters for Do.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// OnRetry is invoked before each retry attempt.
	OnRetry func(attempt int, err error, errType ErrorType)
}

// DefaultRetryConfig returns the tuning used for transfer attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   constants.MaxRetries,
		InitialDelay: constants.RetryInitialDelay,
		MaxDelay:     constants.RetryMaxDelay,
	}
}

// ClassifyError maps a remote-client error onto a retry strategy. Protocol
// clients surface errors as strings, so classification is substring based.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeFatal
	}

	errStr := strings.ToLower(err.Error())

	// Authentication failures - retrying with the same credentials is futile.
	if strings.Contains(errStr, "530") ||
		strings.Contains(errStr, "login incorrect") ||
		strings.Contains(errStr, "auth") ||
		strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "publickey") {
		if strings.Contains(errStr, "permission denied") || strings.Contains(errStr, "publickey") {
			return ErrorTypeFatal
		}
		return ErrorTypeAuth
	}

	// Network errors - retryable with backoff.
	if strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection closed") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "eof") {
		return ErrorTypeNetwork
	}

	// FTP transient negative completion replies and busy servers.
	if strings.Contains(errStr, "421") ||
		strings.Contains(errStr, "425") ||
		strings.Contains(errStr, "426") ||
		strings.Contains(errStr, "450") ||
		strings.Contains(errStr, "451") ||
		strings.Contains(errStr, "452") ||
		strings.Contains(errStr, "too many connections") ||
		strings.Contains(errStr, "server busy") ||
		strings.Contains(errStr, "try again") {
		return ErrorTypeTransient
	}

	// Permanent failures: missing paths, permanent FTP replies, bad requests.
	return ErrorTypeFatal
}

// Backoff returns the exponential backoff delay with full jitter for the
// given attempt: random(0, min(maxDelay, initialDelay*2^attempt)).
func Backoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}

	base := time.Duration(1<<uint(attempt)) * initialDelay
	if base > maxDelay || base <= 0 {
		base = maxDelay
	}
	return time.Duration(rand.Int63n(int64(base)))
}

// Do runs the operation, retrying network and transient failures with
// jittered exponential backoff. Auth and fatal errors return immediately, as
// does context cancellation.
func Do(ctx context.Context, cfg RetryConfig, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		errType := ClassifyError(err)
		switch errType {
		case ErrorTypeFatal, ErrorTypeAuth:
			return err
		case ErrorTypeNetwork, ErrorTypeTransient:
			if attempt == cfg.MaxRetries-1 {
				break
			}
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt+1, err, errType)
			}
			select {
			case <-time.After(Backoff(attempt+1, cfg.InitialDelay, cfg.MaxDelay)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}
