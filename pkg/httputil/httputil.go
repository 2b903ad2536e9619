// Package httputil provides JSON encoding and error mapping shared by all
// HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
)

// Validatable is implemented by request types that validate themselves after
// decoding.
type Validatable interface {
	Validate() error
}

// errorResponse is the wire shape for all error replies.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a domain error to an HTTP status and JSON body. Internal
// errors deliberately omit the description so storage details never leak to
// clients.
func WriteError(w http.ResponseWriter, err error) {
	code := simerrors.CodeOf(err)

	resp := errorResponse{Error: string(code)}
	if code != simerrors.CodeInternal {
		var de *simerrors.Error
		if errors.As(err, &de) {
			resp.ErrorDescription = de.Message
		} else {
			resp.ErrorDescription = err.Error()
		}
	}
	WriteJSON(w, statusFor(code), resp)
}

// DecodeAndPrepare decodes the JSON body into T and runs its validation when
// it implements Validatable. On failure the error response has already been
// written and the second return is false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(r.Context(), "malformed request body", "error", err)
		WriteError(w, simerrors.New(simerrors.CodeValidation, "malformed request body"))
		return nil, false
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}

func statusFor(code simerrors.Code) int {
	switch code {
	case simerrors.CodeValidation:
		return http.StatusBadRequest
	case simerrors.CodeNotFound:
		return http.StatusNotFound
	case simerrors.CodeInvalidTransition, simerrors.CodeConflict:
		return http.StatusConflict
	case simerrors.CodeCodeUnusable:
		return http.StatusUnprocessableEntity
	case simerrors.CodeIdentifierSpaceExhausted, simerrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
