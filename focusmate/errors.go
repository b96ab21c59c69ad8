package focusmate

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/fm-metrics/internal/errors"
)

// APIError is returned for any non-2xx response from the Focusmate API
type APIError struct {
	StatusCode int
	Status     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("focusmate %s: %s", e.Path, e.Status)
	}
	return fmt.Sprintf("focusmate %s: %s: %s", e.Path, e.Status, e.Body)
}

// Unwrap lets callers match the status class with errors.Is
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return errors.ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return errors.ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return errors.ErrRateLimited
	default:
		return errors.ErrUpstream
	}
}
