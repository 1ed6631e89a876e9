package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-matcher/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed options.yaml
var optionsYAML []byte

type Config struct {
	Engine  EngineConfig
	Matcher MatcherConfig
	Web     WebConfig
	Options OptionsConfig
}

type EngineConfig struct {
	Name            string // deepface, dlib or opencv
	DeepFaceURL     string // defaults to http://localhost:5005
	DeepFaceTimeout int    // seconds, defaults to 300
	DlibModelsDir   string // directory with dlib .dat model files
	CascadePath     string // OpenCV haar cascade xml
}

// MatcherConfig holds the defaults a run starts from. Flags and form fields override them.
type MatcherConfig struct {
	Detector     string
	Model        string
	DatabasePath string
	Threshold    float64
	OutputDir    string // CLI only, where cropped faces are kept
	TempDir      string // scratch space for uploads and face crops
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // extra CORS origins, localhost is always allowed
}

type OptionsConfig struct {
	Detectors        []Choice        `yaml:"detectors"`
	Models           []Choice        `yaml:"models"`
	Threshold        ThresholdSlider `yaml:"threshold"`
	UploadExtensions []string        `yaml:"upload_extensions"`
}

type Choice struct {
	Name string `yaml:"name" json:"name"`
	Help string `yaml:"help" json:"help"`
}

type ThresholdSlider struct {
	Min     float64 `yaml:"min" json:"min"`
	Max     float64 `yaml:"max" json:"max"`
	Step    float64 `yaml:"step" json:"step"`
	Default float64 `yaml:"default" json:"default"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a non-negative float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

// envString returns the environment variable or the default when unset.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping empty entries.
func envList(key string) []string {
	var items []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func Load() *Config {
	var options OptionsConfig
	if err := yaml.Unmarshal(optionsYAML, &options); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded options.yaml: " + err.Error())
	}

	return &Config{
		Engine: EngineConfig{
			Name:            strings.ToLower(envString("FACE_ENGINE", constants.EngineDeepFace)),
			DeepFaceURL:     envString("DEEPFACE_URL", constants.DefaultDeepFaceURL),
			DeepFaceTimeout: envInt("DEEPFACE_TIMEOUT_SECONDS", constants.DefaultDeepFaceTimeoutSeconds),
			DlibModelsDir:   envString("DLIB_MODELS_DIR", "models"),
			CascadePath:     envString("OPENCV_CASCADE_PATH", "haarcascade_frontalface_default.xml"),
		},
		Matcher: MatcherConfig{
			Detector:     envString("FACE_DETECTOR", constants.DefaultDetector),
			Model:        envString("FACE_MODEL", constants.DefaultModel),
			DatabasePath: envString("FACE_DATABASE_PATH", constants.DefaultDatabasePath),
			Threshold:    envFloat("FACE_THRESHOLD", options.Threshold.Default),
			OutputDir:    envString("FACE_OUTPUT_DIR", constants.DefaultFacesOutputDir),
			TempDir:      envString("FACE_TEMP_DIR", os.TempDir()),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", constants.DefaultWebHost),
			Port:           envInt("WEB_PORT", constants.DefaultWebPort),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Options: options,
	}
}

// DetectorNames returns the names of all selectable detector backends.
func (o *OptionsConfig) DetectorNames() []string {
	return choiceNames(o.Detectors)
}

// ModelNames returns the names of all selectable recognition models.
func (o *OptionsConfig) ModelNames() []string {
	return choiceNames(o.Models)
}

func choiceNames(choices []Choice) []string {
	names := make([]string, len(choices))
	for i, c := range choices {
		names[i] = c.Name
	}
	return names
}

// Validate checks a detector/model/threshold combination against the offered choices.
func (o *OptionsConfig) Validate(detector, model string, threshold float64) error {
	if !slices.Contains(o.DetectorNames(), detector) {
		return fmt.Errorf("unknown detector %q (choose one of: %s)", detector, strings.Join(o.DetectorNames(), ", "))
	}
	if !slices.Contains(o.ModelNames(), model) {
		return fmt.Errorf("unknown model %q (choose one of: %s)", model, strings.Join(o.ModelNames(), ", "))
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return fmt.Errorf("threshold must be a finite number, got %v", threshold)
	}
	if threshold < o.Threshold.Min || threshold > o.Threshold.Max {
		return fmt.Errorf("threshold %.2f out of range [%.2f, %.2f]", threshold, o.Threshold.Min, o.Threshold.Max)
	}
	return nil
}

// AcceptsUpload reports whether a file name has one of the accepted upload extensions.
func (o *OptionsConfig) AcceptsUpload(filename string) bool {
	name := strings.ToLower(filename)
	for _, ext := range o.UploadExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
