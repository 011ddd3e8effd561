package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"carelink-backend/internal/store"
	"carelink-backend/pkg/api"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	docs    store.DocumentStore
	version string
}

// NewHealthHandler creates the handler. docs may be nil; readiness then
// reports healthy without probing.
func NewHealthHandler(docs store.DocumentStore, version string) *HealthHandler {
	if version == "" {
		version = "dev"
	}
	return &HealthHandler{docs: docs, version: version}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready handles GET /ready: a cheap read against the document store. A
// missing probe document still proves the store answers.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.docs == nil {
		api.Success(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	_, err := h.docs.Get(ctx, store.CollectionAccounts, "readiness-probe")
	if err != nil && !errors.Is(err, store.ErrDocumentNotFound) {
		api.Error(w, http.StatusServiceUnavailable, "document store unreachable")
		return
	}
	api.Success(w, http.StatusOK, map[string]string{"status": "ready"})
}
