package clinic

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrSessionExpired is matched by every terminal session failure.
	ErrSessionExpired = errors.New("session expired")
	// ErrNoRefreshToken means a 401 arrived and no refresh token was stored.
	ErrNoRefreshToken = fmt.Errorf("%w: no refresh token", ErrSessionExpired)
	// ErrRefreshFailed means the token refresh call did not yield a usable
	// access token.
	ErrRefreshFailed = fmt.Errorf("%w: token refresh failed", ErrSessionExpired)
	// ErrNotAuthenticated is returned by helpers that need a stored session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrMissingAccessToken is returned when a login or refresh response has
	// no access token.
	ErrMissingAccessToken = errors.New("response has no access token")
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	if detail := e.Detail(); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// Detail extracts a human readable message from the response body. The
// backend reports errors as {"detail": "..."}; anything else is returned
// trimmed when short enough to be useful.
func (e *APIError) Detail() string {
	if e == nil || len(e.Body) == 0 {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(e.Body, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	text := strings.TrimSpace(string(e.Body))
	if len(text) > 200 || strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err carries a 401 response.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err carries a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
