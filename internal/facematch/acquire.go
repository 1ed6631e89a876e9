package facematch

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-matcher/internal/constants"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned when the input cannot be decoded as an image.
var ErrUnsupportedImage = errors.New("unsupported image")

// SourceImage is an input image persisted as a JPEG for the detector.
// Cleanup removes the file; it is safe to call more than once.
type SourceImage struct {
	Path   string
	Width  int
	Height int

	once sync.Once
}

// Cleanup deletes the temporary file.
func (s *SourceImage) Cleanup() {
	s.once.Do(func() {
		if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Warning: failed to remove temporary image %s: %v", s.Path, err)
		}
	})
}

// Acquire decodes an uploaded image, applies its EXIF orientation and writes it to a
// uniquely named JPEG in tempDir.
func Acquire(r io.Reader, tempDir string) (*SourceImage, error) {
	img, err := DecodeImage(r)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(tempDir, "face-matcher-src-"+uuid.NewString()+".jpg")
	if err := WriteJPEG(path, img); err != nil {
		return nil, err
	}

	b := img.Bounds()
	return &SourceImage{Path: path, Width: b.Dx(), Height: b.Dy()}, nil
}

// DecodeImage reads an encoded image and returns it upright according to its EXIF
// orientation.
func DecodeImage(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return applyOrientation(img, readOrientation(data)), nil
}

// AcquireFile is Acquire for an image already on disk.
func AcquireFile(path, tempDir string) (*SourceImage, error) {
	f, err := os.Open(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	src, err := Acquire(f, tempDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// WriteJPEG encodes img to path, replacing any existing file.
func WriteJPEG(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // callers build the path
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
