package watch

import (
	"errors"
	"fmt"
)

// ErrCheckInFlight is returned when a check is requested for an entity that
// already has one in flight. Requests are rejected, never queued.
var ErrCheckInFlight = errors.New("check already in flight for entity")

// ErrEntityNotFound is returned by stores for unknown entity IDs.
var ErrEntityNotFound = errors.New("entity not found")

// ErrDuplicateURL is returned when creating an entity whose URL is already
// tracked.
var ErrDuplicateURL = errors.New("an entity with this URL already exists")

// AcquireKind discriminates acquisition failures.
type AcquireKind string

// Acquisition failure kinds.
const (
	AcquireInvalidURL AcquireKind = "invalid_url"
	AcquireTimeout    AcquireKind = "timeout"
	AcquireHTTP       AcquireKind = "http"
	AcquireNetwork    AcquireKind = "network"
)

// AcquireError describes why a page could not be acquired. StatusCode is set
// only for AcquireHTTP.
type AcquireError struct {
	Kind       AcquireKind
	URL        string
	StatusCode int
	Err        error
}

func (e *AcquireError) Error() string {
	switch e.Kind {
	case AcquireInvalidURL:
		return fmt.Sprintf("invalid URL %q", e.URL)
	case AcquireTimeout:
		return fmt.Sprintf("request timeout fetching %s", e.URL)
	case AcquireHTTP:
		return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
	default:
		if e.Err != nil {
			return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
		}
		return fmt.Sprintf("network error fetching %s", e.URL)
	}
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}

// AsAcquireError unwraps err into an *AcquireError if possible.
func AsAcquireError(err error) (*AcquireError, bool) {
	var ae *AcquireError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
