// Package httpapi holds the JSON response helpers and middleware shared by
// the HTTP services.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/guaracyalima/xeco-public-sub002/pkg/checkouterr"
)

type ErrorResponse struct {
	Error   string                          `json:"error"`
	Code    string                          `json:"code,omitempty"`
	Details string                          `json:"details,omitempty"`
	Errors  []checkouterr.GatewayErrorEntry `json:"errors,omitempty"`
}

func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func RespondError(w http.ResponseWriter, status int, code, message string) {
	RespondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// Status maps an error kind to its HTTP status and error code.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, checkouterr.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, checkouterr.ErrSignatureMismatch):
		return http.StatusForbidden, "signature_mismatch"
	case errors.Is(err, checkouterr.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, checkouterr.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, checkouterr.ErrRelayUnavailable):
		return http.StatusServiceUnavailable, "relay_unavailable"
	case errors.Is(err, checkouterr.ErrGateway):
		return http.StatusUnprocessableEntity, "gateway_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, checkouterr.ErrConfiguration):
		return http.StatusInternalServerError, "configuration_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// WriteError renders err with the status of its kind. Gateway rejections
// carry the gateway's own error list; internal errors never leak their text.
func WriteError(w http.ResponseWriter, err error) {
	status, code := Status(err)
	resp := ErrorResponse{Code: code}

	switch code {
	case "relay_unavailable":
		resp.Error = "payment service is temporarily unavailable, please try again"
	case "signature_mismatch":
		resp.Error = "checkout payload failed integrity verification"
	case "gateway_error":
		resp.Error = "payment gateway rejected the checkout"
		var ge *checkouterr.GatewayError
		if errors.As(err, &ge) {
			resp.Errors = ge.Errors
		}
	case "timeout":
		resp.Error = "request timed out"
	case "internal_error", "configuration_error":
		resp.Error = "internal server error"
	default:
		resp.Error = err.Error()
	}
	RespondJSON(w, status, resp)
}

// DecodeJSON reads a JSON body, rejecting unknown trailing data.
func DecodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
