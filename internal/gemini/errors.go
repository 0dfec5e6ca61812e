package gemini

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned when the client is built without a credential.
var ErrMissingAPIKey = errors.New("analysis service credential is not configured")

// TransportError reports a request that never produced a usable HTTP
// success. StatusCode is zero when the request failed before a response.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return fmt.Sprintf("analysis request failed: %v", e.Err)
	}
	return fmt.Sprintf("API responded with %d: %s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FormatError reports a success response whose body lacks
// candidates[0].content.parts[0].text.
type FormatError struct {
	Reason string
	Err    error
}

// Error implements the error interface
func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected API response format: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("unexpected API response format: %s", e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }
