package auraapi

import (
	"errors"
	"fmt"
)

// ErrUnreachable wraps failures where no response arrived from the server.
var ErrUnreachable = errors.New("aura server unreachable")

// APIError is a non-2xx response from the server.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Message returns the user-facing text for err: the server message for an
// APIError, a fixed line for unreachable errors, and err.Error() otherwise.
func Message(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, ErrUnreachable):
		return "Cannot reach the game server, please try again"
	}
	return err.Error()
}

func unreachable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnreachable, err)
}
