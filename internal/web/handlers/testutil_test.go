package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/facematch"
)

// testConfig creates a config with the embedded options and a temp dir per test
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.Engine.Name = "deepface"
	cfg.Matcher = config.MatcherConfig{
		Detector:     "retinaface",
		Model:        "ArcFace",
		DatabasePath: t.TempDir(),
		Threshold:    0.5,
		TempDir:      t.TempDir(),
	}
	return cfg
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// testPNG encodes a small image; seed varies the content
func testPNG(t *testing.T, seed int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := range 32 {
		for x := range 32 {
			img.Set(x, y, color.RGBA{R: uint8((x * seed * 37) % 256), G: uint8((y*seed*91 + x*x) % 256), B: uint8(seed * 13), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a multipart request with an optional image part and fields
func multipartRequest(t *testing.T, method, path, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile("image", filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write(data)
	}
	writer.Close()

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// fakeEngine is a scripted detector and searcher
type fakeEngine struct {
	faces      []facematch.Face
	detectErr  error
	candidates []facematch.Candidate
	findErr    error
	findCalls  int
	healthErr  error
}

func (f *fakeEngine) ExtractFaces(context.Context, string, facematch.DetectOptions) ([]facematch.Face, error) {
	return f.faces, f.detectErr
}

func (f *fakeEngine) Find(context.Context, string, facematch.SearchOptions) ([]facematch.Candidate, error) {
	f.findCalls++
	return f.candidates, f.findErr
}

func (f *fakeEngine) Health(context.Context) error {
	return f.healthErr
}

func fakeFace() facematch.Face {
	data := make([]float64, 4*4*3)
	for i := range data {
		data[i] = float64(i) / float64(len(data))
	}
	return facematch.Face{
		Pixels: facematch.Pixels{Width: 4, Height: 4, Channels: 3, Type: facematch.PixelFloat64, Order: facematch.OrderRGB, Data: data},
		Area:   facematch.Area{X: 1, Y: 2, W: 4, H: 4},
	}
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
	if result["success"] != false {
		t.Errorf("expected success false, got %v", result["success"])
	}
}
