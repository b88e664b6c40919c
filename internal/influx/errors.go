package influx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	ihttp "github.com/influxdata/influxdb-client-go/v2/api/http"
)

// WriteErrorKind classifies a failed point write.
type WriteErrorKind int

const (
	WriteConnectionRefused WriteErrorKind = iota
	WriteAuthRejected
	WriteTimeout
	WriteRejected
)

func (k WriteErrorKind) String() string {
	switch k {
	case WriteConnectionRefused:
		return "connection_refused"
	case WriteAuthRejected:
		return "auth_rejected"
	case WriteTimeout:
		return "timeout"
	case WriteRejected:
		return "rejected"
	}
	return "unknown"
}

// WriteError wraps a store failure. Reason carries the server's message
// when the point itself was rejected.
type WriteError struct {
	Kind   WriteErrorKind
	Reason string
	err    error
}

func (e *WriteError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("write %s: %s", e.Kind, e.Reason)
	}
	if e.err != nil {
		return fmt.Sprintf("write %s: %v", e.Kind, e.err)
	}
	return fmt.Sprintf("write %s", e.Kind)
}

func (e *WriteError) Unwrap() error { return e.err }

// Transient reports whether a retry within the same cycle could succeed.
// An unreachable or overloaded store recovers; bad credentials and
// rejected points do not.
func (e *WriteError) Transient() bool {
	return e.Kind == WriteConnectionRefused || e.Kind == WriteTimeout
}

// classify maps client errors onto the write taxonomy. Cancellation of
// the caller's context passes through untouched.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	// Transport failures surface as *ihttp.Error with StatusCode 0 and
	// the net error nested inside; only a real status code means the
	// store answered.
	var httpErr *ihttp.Error
	if errors.As(err, &httpErr) && httpErr.StatusCode != 0 {
		switch httpErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &WriteError{Kind: WriteAuthRejected, err: err}
		case http.StatusTooManyRequests, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// The store is refusing work, not the point.
			return &WriteError{Kind: WriteConnectionRefused, err: err}
		default:
			reason := httpErr.Message
			if reason == "" {
				reason = err.Error()
			}
			return &WriteError{Kind: WriteRejected, Reason: reason, err: err}
		}
	}

	var netErr net.Error
	if (errors.As(err, &netErr) && netErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		return &WriteError{Kind: WriteTimeout, err: err}
	}

	// Dial failures and other transport breakage.
	return &WriteError{Kind: WriteConnectionRefused, err: err}
}
