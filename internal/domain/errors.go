package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNetworkFailure    = errors.New("network failure")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrValidation        = errors.New("validation failure")
	ErrStateConflict     = errors.New("state conflict")
	ErrPaymentDivergence = errors.New("payment divergence")
	ErrPaymentFailed     = errors.New("payment failed")
	ErrTotalMismatch     = errors.New("checkout total mismatch")
)

// RemoteError is a non-2xx answer from the backend. Message comes from the body's
// "error" field when present, otherwise from the status text.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.StatusCode, e.Message)
}

func (e *RemoteError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	return ErrNetworkFailure
}

// Validationf builds a ValidationFailure with a user-facing message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Kind returns a short name for the error taxonomy bucket err falls into.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPaymentDivergence):
		return "PaymentDivergence"
	case errors.Is(err, ErrUnauthenticated):
		return "Unauthenticated"
	case errors.Is(err, ErrValidation):
		return "ValidationFailure"
	case errors.Is(err, ErrStateConflict):
		return "StateConflict"
	case errors.Is(err, ErrTotalMismatch):
		return "TotalMismatch"
	case errors.Is(err, ErrPaymentFailed):
		return "PaymentFailed"
	case errors.Is(err, ErrNetworkFailure):
		return "NetworkFailure"
	default:
		return "Error"
	}
}
