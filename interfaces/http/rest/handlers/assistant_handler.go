// Package handlers implements the REST endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"carelink-backend/internal/assistant"
	"carelink-backend/internal/relationship"
	"carelink-backend/pkg/api"
	"carelink-backend/pkg/auth"
)

// AssistantHandler serves the query and caregiver-dashboard endpoints.
type AssistantHandler struct {
	service  *assistant.Service
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAssistantHandler creates the handler.
func NewAssistantHandler(service *assistant.Service, logger *zap.Logger) *AssistantHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// Query handles POST /api/v1/assistant/query.
func (h *AssistantHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req api.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	callerID := req.CallerID
	if callerID == "" {
		authenticated, ok := auth.CallerIDFrom(r.Context())
		if !ok {
			api.Error(w, http.StatusUnauthorized, "no caller identity")
			return
		}
		callerID = authenticated
	}

	resp, err := h.service.Respond(r.Context(), callerID, req.Message)
	if err != nil {
		h.logger.Warn("query failed",
			zap.String("caller", callerID), zap.Error(err))
		api.FromError(w, err)
		return
	}

	api.Success(w, http.StatusOK, resp)
}

// Recipients handles GET /api/v1/caregiver/recipients.
func (h *AssistantHandler) Recipients(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.CallerIDFrom(r.Context())
	if !ok {
		api.Error(w, http.StatusUnauthorized, "no caller identity")
		return
	}

	recipients, err := h.service.Recipients(r.Context(), callerID)
	if err != nil {
		if errors.Is(err, relationship.ErrCaregiverNotFound) {
			api.Error(w, http.StatusNotFound, "caregiver account not found")
			return
		}
		h.logger.Warn("recipients lookup failed",
			zap.String("caller", callerID), zap.Error(err))
		api.FromError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]any{"recipients": recipients})
}
