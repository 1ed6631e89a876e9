package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/engine"
	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/spf13/cobra"
)

// openEngine opens the configured face engine, honoring --engine and --deepface-url.
func openEngine(cmd *cobra.Command, cfg *config.Config) (*engine.Engine, error) {
	if name := mustGetString(cmd, "engine"); name != "" {
		cfg.Engine.Name = name
	}
	if url := mustGetString(cmd, "deepface-url"); url != "" {
		cfg.Engine.DeepFaceURL = url
	}

	return engine.Open(cfg.Engine)
}

// addMatchFlags registers the detector/model/threshold/database flags shared by match and extract.
func addMatchFlags(cmd *cobra.Command) {
	cmd.Flags().String("db", constants.DefaultDatabasePath, "Reference database folder")
	cmd.Flags().String("output", constants.DefaultFacesOutputDir, "Folder where cropped faces are saved")
	cmd.Flags().String("detector", constants.DefaultDetector, "Face detector backend")
	cmd.Flags().String("model", constants.DefaultModel, "Face recognition model")
	cmd.Flags().Float64("threshold", constants.DefaultDistanceThreshold, "Maximum distance for a match (lower = stricter)")
	cmd.Flags().Bool("json", false, "Print the report as JSON")
}

// matchSettings builds run settings from the configuration, overridden by any flag the user set.
func matchSettings(cmd *cobra.Command, cfg *config.Config) (facematch.Settings, string, error) {
	settings := facematch.Settings{
		Detector:       cfg.Matcher.Detector,
		Model:          cfg.Matcher.Model,
		DatabasePath:   cfg.Matcher.DatabasePath,
		Threshold:      cfg.Matcher.Threshold,
		DistanceMetric: constants.DefaultDistanceMetric,
	}
	outputDir := cfg.Matcher.OutputDir

	flags := cmd.Flags()
	if flags.Changed("db") {
		settings.DatabasePath = mustGetString(cmd, "db")
	}
	if flags.Changed("output") {
		outputDir = mustGetString(cmd, "output")
	}
	if flags.Changed("detector") {
		settings.Detector = mustGetString(cmd, "detector")
	}
	if flags.Changed("model") {
		settings.Model = mustGetString(cmd, "model")
	}
	if flags.Changed("threshold") {
		settings.Threshold = mustGetFloat64(cmd, "threshold")
	}

	if err := cfg.Options.Validate(settings.Detector, settings.Model, settings.Threshold); err != nil {
		return settings, "", fmt.Errorf("invalid settings: %w", err)
	}
	return settings, outputDir, nil
}
