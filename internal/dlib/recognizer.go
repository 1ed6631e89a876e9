//go:build dlib

// Package dlib runs detection and reference search in-process with dlib through go-face.
// The models directory must contain shape_predictor_5_face_landmarks.dat,
// dlib_face_recognition_resnet_model_v1.dat and mmod_human_face_detector.dat.
package dlib

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	face "github.com/Kagami/go-face"
	"github.com/kozaktomas/face-matcher/internal/facematch"
)

// ModelName is the only recognition model this engine provides.
const ModelName = "Dlib"

// Recognizer implements facematch.Detector and facematch.Searcher. The underlying
// dlib recognizer is not goroutine-safe, so every call holds mu.
type Recognizer struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

// NewRecognizer loads the dlib models from modelsDir.
func NewRecognizer(modelsDir string) (*Recognizer, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("loading dlib models from %s: %w", modelsDir, err)
	}
	return &Recognizer{rec: rec}, nil
}

// Close frees the dlib models.
func (r *Recognizer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rec.Close()
}

// ExtractFaces detects faces with dlib's HOG detector and crops them from the source
// image. The detector backend option does not apply to this engine.
func (r *Recognizer) ExtractFaces(ctx context.Context, imagePath string, opts facematch.DetectOptions) ([]facematch.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	faces, err := r.rec.RecognizeFile(imagePath)
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("dlib detection: %w", err)
	}
	if len(faces) == 0 {
		if opts.EnforceDetection {
			return nil, fmt.Errorf("no face detected in %s", imagePath)
		}
		return []facematch.Face{}, nil
	}

	img, err := decodeFile(imagePath)
	if err != nil {
		return nil, err
	}

	out := make([]facematch.Face, 0, len(faces))
	for _, f := range faces {
		area := facematch.ClampArea(facematch.Area{
			X: f.Rectangle.Min.X,
			Y: f.Rectangle.Min.Y,
			W: f.Rectangle.Dx(),
			H: f.Rectangle.Dy(),
		}, img.Bounds())
		crop := facematch.CropArea(img, area)
		if crop == nil {
			continue
		}
		out = append(out, facematch.Face{
			Index:      len(out) + 1,
			Pixels:     facematch.PixelsFromImage(crop),
			Area:       area,
			Confidence: 1,
		})
	}
	return out, nil
}

// Find compares the face in facePath against every image under the database path and
// returns candidates by ascending euclidean distance.
func (r *Recognizer) Find(ctx context.Context, facePath string, opts facematch.SearchOptions) ([]facematch.Candidate, error) {
	if opts.Model != "" && opts.Model != ModelName {
		return nil, fmt.Errorf("dlib engine only supports the %s model, got %s", ModelName, opts.Model)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	query, err := r.rec.RecognizeSingleFile(facePath)
	if err != nil {
		return nil, fmt.Errorf("describing face: %w", err)
	}
	if query == nil {
		// The crop is too tight for the detector to find the face again.
		return []facematch.Candidate{}, nil
	}

	candidates, err := rankReferences(ctx, opts.DatabasePath, query.Descriptor, r.describe)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", opts.DatabasePath, err)
	}
	return candidates, nil
}

// describe computes the descriptor of the single face in a reference image, or nil
// when the image does not hold exactly one face. Callers hold mu.
func (r *Recognizer) describe(path string) (*face.Descriptor, error) {
	f, err := r.rec.RecognizeSingleFile(path)
	if err != nil {
		return nil, fmt.Errorf("describing %s: %w", path, err)
	}
	if f == nil {
		return nil, nil
	}
	desc := f.Descriptor
	return &desc, nil
}

// rankReferences describes every reference image under root once and returns them by
// ascending euclidean distance to query. Nothing is kept between calls, so each face
// is compared against the folder as it is on disk.
func rankReferences(ctx context.Context, root string, query face.Descriptor, describe func(string) (*face.Descriptor, error)) ([]facematch.Candidate, error) {
	candidates := []facematch.Candidate{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !isReferenceImage(path) {
			return nil
		}

		desc, err := describe(path)
		if err != nil {
			return err
		}
		if desc == nil {
			return nil
		}
		candidates = append(candidates, facematch.Candidate{
			Identity: path,
			Distance: math.Sqrt(face.SquaredEuclideanDistance(query, *desc)),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(candidates, func(a, b facematch.Candidate) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	return candidates, nil
}

func isReferenceImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // path is produced by the pipeline
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}
