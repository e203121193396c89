package healthdata

import (
	"encoding/json"
	"errors"
	"fmt"
)

// StatusError is returned when the database answers with a non-2xx status.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("healthdata: upstream status %d for %s: %s", e.StatusCode, e.Path, msg)
	}
	return fmt.Sprintf("healthdata: upstream status %d for %s", e.StatusCode, e.Path)
}

// Message returns the "error" field of a JSON error body, or the raw body.
func (e *StatusError) Message() string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return e.Body
}

// IsStatus reports whether err carries an upstream status of code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}
