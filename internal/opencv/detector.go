//go:build gocv

// Package opencv detects faces locally with an OpenCV Haar cascade.
package opencv

import (
	"context"
	"fmt"
	"sync"

	"github.com/kozaktomas/face-matcher/internal/facematch"
	"gocv.io/x/gocv"
)

// Detector implements facematch.Detector. CascadeClassifier is not goroutine-safe,
// so detection holds mu.
type Detector struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
}

// NewDetector loads the cascade XML at cascadePath.
func NewDetector(cascadePath string) (*Detector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load face cascade classifier from %s", cascadePath)
	}
	return &Detector{classifier: classifier}, nil
}

// Close releases the classifier.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.classifier.Close()
}

// ExtractFaces returns the detected faces as BGR uint8 arrays, the layout OpenCV
// stores images in.
func (d *Detector) ExtractFaces(ctx context.Context, imagePath string, opts facematch.DetectOptions) ([]facematch.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := gocv.IMRead(imagePath, gocv.IMReadColor)
	if img.Empty() {
		return nil, fmt.Errorf("failed to read image %s", imagePath)
	}
	defer img.Close()

	d.mu.Lock()
	rects := d.classifier.DetectMultiScale(img)
	d.mu.Unlock()

	if len(rects) == 0 && opts.EnforceDetection {
		return nil, fmt.Errorf("no face detected in %s", imagePath)
	}

	faces := make([]facematch.Face, 0, len(rects))
	for i, r := range rects {
		region := img.Region(r)
		crop := region.Clone()
		region.Close()

		pixels, err := matPixels(crop)
		crop.Close()
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i+1, err)
		}

		faces = append(faces, facematch.Face{
			Index:      i + 1,
			Pixels:     pixels,
			Area:       facematch.Area{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()},
			Confidence: 1,
		})
	}
	return faces, nil
}

func matPixels(m gocv.Mat) (facematch.Pixels, error) {
	raw := m.ToBytes()
	data := make([]float64, len(raw))
	for i, b := range raw {
		data[i] = float64(b)
	}
	p := facematch.Pixels{
		Width:    m.Cols(),
		Height:   m.Rows(),
		Channels: m.Channels(),
		Type:     facematch.PixelUint8,
		Order:    facematch.OrderBGR,
		Data:     data,
	}
	return p, p.Validate()
}
