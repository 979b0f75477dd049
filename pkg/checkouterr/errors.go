// Package checkouterr holds the error kinds shared by the checkout pipeline.
// Callers match kinds with errors.Is; GatewayError additionally carries the
// gateway's own error list and can be extracted with errors.As.
package checkouterr

import (
	"errors"
	"strings"
)

var (
	ErrConfiguration     = errors.New("configuration error")
	ErrInvalidInput      = errors.New("invalid input")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrRelayUnavailable  = errors.New("relay unavailable")
	ErrGateway           = errors.New("payment gateway error")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
)

// GatewayErrorEntry is one {code, description} pair returned by the payment gateway.
type GatewayErrorEntry struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// GatewayError is a structured rejection from the payment gateway. It is terminal
// for the current attempt: retrying the same request will not succeed.
type GatewayError struct {
	StatusCode int
	Errors     []GatewayErrorEntry
}

func (e *GatewayError) Error() string {
	if len(e.Errors) == 0 {
		return ErrGateway.Error()
	}
	parts := make([]string, 0, len(e.Errors))
	for _, entry := range e.Errors {
		parts = append(parts, entry.Code+": "+entry.Description)
	}
	return ErrGateway.Error() + ": " + strings.Join(parts, "; ")
}

func (e *GatewayError) Is(target error) bool {
	return target == ErrGateway
}

// Retryable reports whether err is a transient failure worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrRelayUnavailable)
}
