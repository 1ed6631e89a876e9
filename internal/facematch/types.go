// Package facematch runs the detect, crop and look-up pipeline shared between the CLI
// and the web UI. Detection and search are delegated to an engine behind the Detector
// and Searcher interfaces.
package facematch

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
)

// Settings is the per-run configuration. It is built once and passed by value.
type Settings struct {
	Detector         string  `json:"detector"`
	Model            string  `json:"model"`
	DatabasePath     string  `json:"database_path"`
	Threshold        float64 `json:"threshold"`
	EnforceDetection bool    `json:"enforce_detection"`
	DistanceMetric   string  `json:"distance_metric"`
}

// DetectOptions returns the subset of settings the detector needs.
func (s Settings) DetectOptions() DetectOptions {
	return DetectOptions{
		Detector:         s.Detector,
		EnforceDetection: s.EnforceDetection,
	}
}

// SearchOptions returns the subset of settings the searcher needs.
func (s Settings) SearchOptions() SearchOptions {
	return SearchOptions{
		DatabasePath:     s.DatabasePath,
		Model:            s.Model,
		Detector:         s.Detector,
		EnforceDetection: s.EnforceDetection,
		DistanceMetric:   s.DistanceMetric,
	}
}

type DetectOptions struct {
	Detector         string
	EnforceDetection bool
}

type SearchOptions struct {
	DatabasePath     string
	Model            string
	Detector         string
	EnforceDetection bool
	DistanceMetric   string
}

// Detector locates faces in an image file and returns their crops in detection order.
// Finding no faces is not an error.
type Detector interface {
	ExtractFaces(ctx context.Context, imagePath string, opts DetectOptions) ([]Face, error)
}

// Searcher looks a single face image up in a reference directory and returns
// candidates ordered by ascending distance.
type Searcher interface {
	Find(ctx context.Context, facePath string, opts SearchOptions) ([]Candidate, error)
}

// Area is a facial bounding box in source image pixels.
type Area struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Rect converts the area to an image.Rectangle.
func (a Area) Rect() image.Rectangle {
	return image.Rect(a.X, a.Y, a.X+a.W, a.Y+a.H)
}

// Face is one detected face. Index is 1-based in detection order.
type Face struct {
	Index      int     `json:"index"`
	Pixels     Pixels  `json:"-"`
	Area       Area    `json:"facial_area"`
	Confidence float64 `json:"confidence"`
}

// Candidate is one reference image ranked by the searcher.
type Candidate struct {
	Identity string  `json:"identity"`
	Distance float64 `json:"distance"`
}

// Outcome tags a MatchResult.
type Outcome string

const (
	OutcomeMatched    Outcome = "matched"
	OutcomeNotMatched Outcome = "not_matched"
	OutcomeFailed     Outcome = "failed"
)

// MatchResult is the per-face outcome of a run.
type MatchResult struct {
	FaceIndex int     `json:"face_num"`
	Outcome   Outcome `json:"outcome"`
	Identity  string  `json:"identity,omitempty"`
	Label     string  `json:"label,omitempty"`
	Distance  float64 `json:"-"`
	Reason    string  `json:"reason,omitempty"`
}

// MarshalJSON writes the distance for matched faces only, including an exact 0.
func (r MatchResult) MarshalJSON() ([]byte, error) {
	type plain MatchResult
	out := struct {
		plain
		Distance *float64 `json:"distance,omitempty"`
	}{plain: plain(r)}
	if r.Matched() {
		d := r.Distance
		out.Distance = &d
	}
	return json.Marshal(out)
}

// Matched reports whether the face was matched to a reference identity.
func (r MatchResult) Matched() bool {
	return r.Outcome == OutcomeMatched
}

// DistanceText formats the distance the way results are displayed.
func (r MatchResult) DistanceText() string {
	return fmt.Sprintf("%.4f", r.Distance)
}

// FaceCrop is a normalized face image together with where it was written.
type FaceCrop struct {
	Index int         `json:"face_num"`
	Image image.Image `json:"-"`
	Path  string      `json:"path,omitempty"` // empty when the crop was a temporary file
}

// Report collects everything a run produced.
type Report struct {
	Settings          Settings      `json:"settings"`
	FacesFound        int           `json:"faces_found"`
	DatabaseAvailable bool          `json:"database_available"`
	Warnings          []string      `json:"warnings,omitempty"`
	Results           []MatchResult `json:"results"`
	Crops             []FaceCrop    `json:"crops,omitempty"`
}

// MatchCount returns how many faces were matched.
func (r *Report) MatchCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Matched() {
			n++
		}
	}
	return n
}

// Summary returns the face count line shown before per-face results.
func (r *Report) Summary() string {
	if r.FacesFound == 1 {
		return "1 face found"
	}
	return fmt.Sprintf("%d faces found", r.FacesFound)
}
