package galaswap

import (
	"encoding/json"
	"fmt"
	"net/http"

	"galaswapbot/internal/domain"
)

// APIError is a failed response from the GalaSwap API: the HTTP status plus
// the remote error code when the body carried one.
type APIError struct {
	URI    string
	Status int
	Code   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("galaswap: %s returned %d (%s): %s", e.URI, e.Status, e.Code, e.Body)
}

// Unwrap maps rate limiting onto the domain sentinel so callers can use
// errors.Is without knowing response internals.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusTooManyRequests {
		return domain.ErrRateLimited
	}
	return nil
}

// Retriable reports whether the error is worth retrying. The service is known
// to emit transient 400, 404, and 429 responses; every other 4xx is a
// terminal validation error. 5xx and anything non-HTTP is retriable.
func (e *APIError) Retriable() bool {
	if e.Status >= 400 && e.Status < 500 {
		return e.Status == 400 || e.Status == 404 || e.Status == http.StatusTooManyRequests
	}
	return true
}

func newAPIError(uri string, status int, body []byte) *APIError {
	code := "UNKNOWN_ERROR"

	var parsed struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Error) > 0 {
		var keyed struct {
			ErrorKey string `json:"ErrorKey"`
		}
		var plain string
		switch {
		case json.Unmarshal(parsed.Error, &keyed) == nil && keyed.ErrorKey != "":
			code = keyed.ErrorKey
		case json.Unmarshal(parsed.Error, &plain) == nil && plain != "":
			code = plain
		}
	}

	return &APIError{URI: uri, Status: status, Code: code, Body: string(body)}
}
