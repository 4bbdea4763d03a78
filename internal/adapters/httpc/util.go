package httpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	perr "telewarehouse/internal/platform/errors"
)

// StatusError wraps non-2xx HTTP responses
type StatusError struct {
	Status int
	Body   string
}

// Error interface
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// Transient reports rate limits and 5xx gateway style failures
func (e *StatusError) Transient() bool {
	switch e.Status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ShouldRetry retries transport errors and transient statuses, never cancellation
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	if _, ok := perr.As(err); ok {
		// structured errors come from request building, not the wire
		return false
	}
	return true
}

// IsStatus reports whether err carries the given HTTP status
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

// DrainAndClose releases a response body for connection reuse
func DrainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}
