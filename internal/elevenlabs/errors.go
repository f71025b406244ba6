package elevenlabs

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrMissingAPIKey indicates the client was used without a credential.
var ErrMissingAPIKey = errors.New("elevenlabs api key is required")

// ErrUnavailable indicates the provider could not be reached.
var ErrUnavailable = errors.New("elevenlabs unavailable")

// ErrTimeout indicates the provider took too long to respond.
var ErrTimeout = errors.New("elevenlabs timeout")

// APIError represents a non-success response returned by the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs error (status %d): %s", e.StatusCode, e.Message)
}

// IsAPIError checks if an error is an APIError.
func IsAPIError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}

// isTimeout reports whether a transport error is a timeout, whether the
// caller's deadline or the client's Timeout fired.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
