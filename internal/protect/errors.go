package protect

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds for Protect API failures. Callers match with errors.Is.
var (
	// ErrAuth marks a rejected or insufficient API token. Fatal to setup,
	// never retried automatically.
	ErrAuth = errors.New("protect: authentication failed")

	// ErrConn marks a transient failure: network/TLS/timeout errors,
	// rate limiting and service-unavailable statuses. Safe to retry on the
	// caller's own cadence.
	ErrConn = errors.New("protect: connection failed")

	// ErrNotFound marks a 404. Callers may treat it as "feature
	// unsupported on this firmware" and fall back.
	ErrNotFound = errors.New("protect: not found")

	// ErrAPI marks any other unexpected API response.
	ErrAPI = errors.New("protect: api error")

	// ErrValidation marks an out-of-range parameter, rejected before any
	// network call is made.
	ErrValidation = errors.New("protect: invalid parameter")
)

// classifyStatus maps an HTTP status to a typed error, nil for success.
func classifyStatus(status int, method, path string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: invalid API token (%s %s)", ErrAuth, method, path)
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: insufficient permissions (%s %s)", ErrAuth, method, path)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	case status == http.StatusTooManyRequests,
		status == http.StatusInternalServerError,
		status == http.StatusBadGateway,
		status == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: status %d (%s %s)", ErrConn, status, method, path)
	default:
		return fmt.Errorf("%w: unexpected status %d (%s %s)", ErrAPI, status, method, path)
	}
}

// retryableStatus reports whether a snapshot attempt with this status is
// worth repeating.
func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
