package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, simerrors.New(simerrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal" {
			t.Fatalf("expected error code internal, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("validation error includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, simerrors.New(simerrors.CodeValidation, "invalid iccid"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "validation" {
			t.Fatalf("expected error code validation, got %q", body["error"])
		}
		if body["error_description"] != "invalid iccid" {
			t.Fatalf("expected error_description to be returned for validation errors")
		}
	})

	t.Run("invalid transition maps to conflict status", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, simerrors.New(simerrors.CodeInvalidTransition, "cannot activate from TERMINATED"))

		if w.Code != http.StatusConflict {
			t.Fatalf("expected status %d, got %d", http.StatusConflict, w.Code)
		}
	})

	t.Run("uncoded error defaults to internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, http.ErrAbortHandler)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}
