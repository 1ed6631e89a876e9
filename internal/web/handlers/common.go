package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"error": message, "success": false})
}

// HealthChecker reports whether the face engine can serve requests.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler handles the health check endpoint
type HealthHandler struct {
	engineName string
	engine     HealthChecker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(engineName string, engine HealthChecker) *HealthHandler {
	return &HealthHandler{engineName: engineName, engine: engine}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string `json:"status"`
	Engine      string `json:"engine"`
	EngineReady bool   `json:"engine_ready"`
	EngineError string `json:"engine_error,omitempty"`
}

// Check reports liveness. An unreachable engine does not fail the check; it is
// reported so the UI can warn before the first upload.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Engine: h.engineName, EngineReady: true}
	if h.engine != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.engine.Health(ctx); err != nil {
			resp.EngineReady = false
			resp.EngineError = err.Error()
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
