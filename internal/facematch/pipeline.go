package facematch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Matcher runs the detect, crop and look-up pipeline for one image at a time.
// Faces are processed strictly one after another.
type Matcher struct {
	detector  Detector
	searcher  Searcher
	settings  Settings
	tempDir   string
	outputDir string
	observer  Observer
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithTempDir sets where temporary face crops are written.
func WithTempDir(dir string) Option {
	return func(m *Matcher) { m.tempDir = dir }
}

// WithOutputDir keeps every crop as <dir>/face_<n>.jpg instead of a temporary file.
func WithOutputDir(dir string) Option {
	return func(m *Matcher) { m.outputDir = dir }
}

// WithObserver reports stage changes and per-face results as they happen.
func WithObserver(o Observer) Option {
	return func(m *Matcher) { m.observer = o }
}

// NewMatcher creates a matcher bound to one engine and one set of settings.
func NewMatcher(detector Detector, searcher Searcher, settings Settings, opts ...Option) *Matcher {
	m := &Matcher{
		detector: detector,
		searcher: searcher,
		settings: settings,
		tempDir:  os.TempDir(),
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Settings returns the settings the matcher was built with.
func (m *Matcher) Settings() Settings {
	return m.settings
}

// DatabaseAvailable reports whether path exists and is a directory.
func DatabaseAvailable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Run detects faces in imagePath and looks each of them up in the reference database.
// An error is returned only when setup or extraction fails; per-face problems are
// recorded as failed results and the loop continues.
func (m *Matcher) Run(ctx context.Context, imagePath string) (*Report, error) {
	return m.run(ctx, imagePath, true)
}

// Extract detects and saves faces without searching the reference database.
func (m *Matcher) Extract(ctx context.Context, imagePath string) (*Report, error) {
	return m.run(ctx, imagePath, false)
}

func (m *Matcher) run(ctx context.Context, imagePath string, search bool) (*Report, error) {
	if m.outputDir != "" {
		if err := os.MkdirAll(m.outputDir, 0o755); err != nil {
			m.observer.StageChanged(StageFailed)
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	m.observer.StageChanged(StageDetecting)
	faces, err := m.detector.ExtractFaces(ctx, imagePath, m.settings.DetectOptions())
	if err != nil {
		m.observer.StageChanged(StageFailed)
		return nil, fmt.Errorf("extracting faces: %w", err)
	}

	report := &Report{
		Settings:   m.settings,
		FacesFound: len(faces),
		Results:    []MatchResult{},
	}

	if len(faces) == 0 {
		m.observer.StageChanged(StageNoFacesFound)
		return report, nil
	}
	m.observer.StageChanged(StageFacesFound)

	if search {
		report.DatabaseAvailable = DatabaseAvailable(m.settings.DatabasePath)
		if !report.DatabaseAvailable {
			msg := fmt.Sprintf("Database path '%s' does not exist!", m.settings.DatabasePath)
			report.Warnings = append(report.Warnings, msg)
			m.observer.Warning(msg)
		}
		m.observer.StageChanged(StageMatching)
	}

	for i, face := range faces {
		face.Index = i + 1
		crop, result := m.processFace(ctx, face, search, report.DatabaseAvailable)
		report.Crops = append(report.Crops, crop)
		if search {
			report.Results = append(report.Results, result)
		}
		m.observer.FaceProcessed(crop, result)
	}

	m.observer.StageChanged(StageResultsReady)
	return report, nil
}

// processFace normalizes, saves and (optionally) looks up a single face.
// The temporary crop is removed before returning.
func (m *Matcher) processFace(ctx context.Context, face Face, search, databaseAvailable bool) (FaceCrop, MatchResult) {
	crop := FaceCrop{Index: face.Index}
	notMatched := MatchResult{FaceIndex: face.Index, Outcome: OutcomeNotMatched}

	img, err := face.Pixels.Image()
	if err != nil {
		return crop, Failed(face.Index, fmt.Errorf("normalizing face: %w", err))
	}
	crop.Image = img

	path, temporary := m.cropPath(face.Index)
	if err := WriteJPEG(path, img); err != nil {
		return crop, Failed(face.Index, err)
	}
	if temporary {
		defer removeFile(path)
	} else {
		crop.Path = path
	}

	if !search || !databaseAvailable {
		return crop, notMatched
	}

	candidates, err := m.searcher.Find(ctx, path, m.settings.SearchOptions())
	if err != nil {
		return crop, Failed(face.Index, err)
	}
	return crop, Evaluate(face.Index, candidates, m.settings.Threshold)
}

func (m *Matcher) cropPath(index int) (string, bool) {
	if m.outputDir != "" {
		return filepath.Join(m.outputDir, fmt.Sprintf("face_%d.jpg", index)), false
	}
	return filepath.Join(m.tempDir, "face-matcher-face-"+uuid.NewString()+".jpg"), true
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: failed to remove %s: %v", path, err)
	}
}
