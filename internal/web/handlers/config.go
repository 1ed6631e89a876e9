package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-matcher/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the sidebar options offered to the UI
type ConfigResponse struct {
	Engine           string                 `json:"engine"`
	Detectors        []config.Choice        `json:"detectors"`
	Models           []config.Choice        `json:"models"`
	Threshold        config.ThresholdSlider `json:"threshold"`
	DefaultDetector  string                 `json:"default_detector"`
	DefaultModel     string                 `json:"default_model"`
	DatabasePath     string                 `json:"database_path"`
	UploadExtensions []string               `json:"upload_extensions"`
}

// Get returns the available configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	opts := h.config.Options
	threshold := opts.Threshold
	threshold.Default = h.config.Matcher.Threshold

	respondJSON(w, http.StatusOK, ConfigResponse{
		Engine:           h.config.Engine.Name,
		Detectors:        opts.Detectors,
		Models:           opts.Models,
		Threshold:        threshold,
		DefaultDetector:  h.config.Matcher.Detector,
		DefaultModel:     h.config.Matcher.Model,
		DatabasePath:     h.config.Matcher.DatabasePath,
		UploadExtensions: opts.UploadExtensions,
	})
}
