package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken is returned when a credential fails signature or
	// time-window verification. Callers must not surface the distinction
	// between expired and malformed; it exists for logs only.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired wraps ErrInvalidToken for log-level distinction.
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// IsTokenError reports whether err is a credential verification failure
// (expired or malformed, signature or claim mismatch).
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}
