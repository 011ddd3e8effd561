// Package api provides standardized helper functions and request/response
// contracts for the HTTP surface. It decouples the wire structure from the
// internal domain models.
package api

import (
	"encoding/json"
	"net/http"

	apperrors "carelink-backend/pkg/errors"
)

// QueryRequest is the expected body for POST /api/v1/assistant/query.
// CallerID is optional; it defaults to the authenticated subject.
type QueryRequest struct {
	Message  string `json:"message" validate:"required,min=1,max=2000"`
	CallerID string `json:"callerId,omitempty" validate:"omitempty,max=320"`
}

// ErrorResponse is the standardized error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Success sends a JSON response with the given status.
func Success(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error sends a standardized error response.
func Error(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// FromError maps an application error onto the right HTTP status and body.
func FromError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.IsValidation(err):
		writeAppError(w, http.StatusBadRequest, err)
	case apperrors.IsNotFound(err):
		writeAppError(w, http.StatusNotFound, err)
	case apperrors.IsUnavailable(err):
		writeAppError(w, http.StatusServiceUnavailable, err)
	default:
		// Internal details stay out of the response body.
		Error(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeAppError(w http.ResponseWriter, status int, err error) {
	body := ErrorResponse{Error: err.Error()}
	if app, ok := apperrors.AsAppError(err); ok {
		body.Error = app.Message
		body.Code = string(app.Type)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
