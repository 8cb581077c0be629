// Package errors defines the error vocabulary of studiosync.
//
// The engine sorts every failure into one of three buckets: a source that
// failed counts as no match, a studio that failed is reported and the run
// continues, and a run that cannot start (lock held, bad options) returns
// early. The sentinels and predicates below are how callers tell them apart
// without string matching.
package errors

import (
	"context"
	"errors"
	"net"
)

// Aliases of the standard library helpers so callers need one import.
var (
	New  = errors.New
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Sentinels matched by the typed errors' Is methods.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrAPIKeyRequired    = errors.New("API key required")
	ErrAPIKeyInvalid     = errors.New("API key invalid")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrRateLimited       = errors.New("rate limited")
	ErrAlreadyRunning    = errors.New("already running")
	ErrHierarchyConflict = errors.New("hierarchy conflict")
)

// IsNotFound reports whether err means the requested studio or item does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAlreadyExists reports whether err is a uniqueness violation.
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }

// IsValidationError reports whether err is rejected input.
func IsValidationError(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsAPIKeyError reports whether err is a missing or rejected API key.
func IsAPIKeyError(err error) bool {
	return errors.Is(err, ErrAPIKeyRequired) || errors.Is(err, ErrAPIKeyInvalid)
}

// IsRateLimited reports whether a remote API throttled the request.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// IsSourceUnavailable reports whether a remote API failed on its side.
func IsSourceUnavailable(err error) bool { return errors.Is(err, ErrSourceUnavailable) }

// IsAlreadyRunning reports whether another mutating run holds the lock.
func IsAlreadyRunning(err error) bool { return errors.Is(err, ErrAlreadyRunning) }

// IsHierarchyConflict reports whether a parent change was rejected.
func IsHierarchyConflict(err error) bool { return errors.Is(err, ErrHierarchyConflict) }

// IsTimeout reports whether err is an expired deadline, either a context
// deadline or a network timeout from the HTTP client.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsCanceled reports whether err comes from a canceled context.
func IsCanceled(err error) bool { return errors.Is(err, context.Canceled) }
