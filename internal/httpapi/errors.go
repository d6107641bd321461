package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"podio.org/internal/auth"
	"podio.org/internal/champ"
)

// Machine-readable error codes carried in the response envelope. Clients
// branch on the code, not on the human-readable message.
const (
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeInvalidToken       = "INVALID_TOKEN"
	codePermissionDenied   = "PERMISSION_DENIED"
	codeNotFound           = "NOT_FOUND"
	codeAlreadyExists      = "ALREADY_EXISTS"
	codeResourceConflict   = "RESOURCE_CONFLICT"
	codeValidationError    = "VALIDATION_ERROR"
	codeRateLimited        = "RATE_LIMITED"
	codeInternalError      = "INTERNAL_ERROR"
)

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorResponse{
		Code:      code,
		Message:   msg,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeAPIError(w, r, http.StatusMethodNotAllowed, codeValidationError, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleAuthError maps auth domain errors to the envelope. conflictCode
// lets creates report ALREADY_EXISTS while deletes and revokes report
// RESOURCE_CONFLICT for the same underlying store error.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error, conflictCode string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeAPIError(w, r, http.StatusUnauthorized, codeInvalidCredentials, "invalid username or password")
	case errors.Is(err, auth.ErrInvalidToken):
		writeAPIError(w, r, http.StatusUnauthorized, codeInvalidToken, "invalid or expired token")
	case errors.Is(err, auth.ErrForbidden):
		writeAPIError(w, r, http.StatusForbidden, codePermissionDenied, "insufficient privileges")
	case errors.Is(err, auth.ErrInvalidInput):
		writeAPIError(w, r, http.StatusUnprocessableEntity, codeValidationError, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeAPIError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
	case errors.Is(err, auth.ErrConflict):
		writeAPIError(w, r, http.StatusConflict, conflictCode, "resource conflict")
	default:
		writeAPIError(w, r, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func handleChampError(w http.ResponseWriter, r *http.Request, err error, conflictCode string) {
	switch {
	case errors.Is(err, champ.ErrInvalidInput):
		writeAPIError(w, r, http.StatusUnprocessableEntity, codeValidationError, err.Error())
	case errors.Is(err, champ.ErrNotFound):
		writeAPIError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
	case errors.Is(err, champ.ErrConflict):
		writeAPIError(w, r, http.StatusConflict, conflictCode, "resource conflict")
	default:
		writeAPIError(w, r, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
