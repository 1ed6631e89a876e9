// Package deepface talks to a DeepFace REST service, which performs detection,
// embedding and reference search on behalf of the pipeline.
package deepface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/facematch"
)

// Client is a DeepFace service client. It implements facematch.Detector and
// facematch.Searcher.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new DeepFace client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = constants.DefaultDeepFaceURL
	}
	if timeout <= 0 {
		timeout = constants.DefaultDeepFaceTimeoutSeconds * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the service URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// postMultipartImage posts the image file under "img" together with the given form fields.
func (c *Client) postMultipartImage(ctx context.Context, endpoint, imagePath string, fields map[string]string) ([]byte, error) {
	imageData, err := os.ReadFile(imagePath) //nolint:gosec // path is produced by the pipeline
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("img", filepath.Base(imagePath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := writer.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req, endpoint)
}

func (c *Client) do(req *http.Request, endpoint string) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepface: %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("deepface: failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deepface: %s failed (status %d): %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

// ExtractFaces detects faces in the image and returns their normalized crops in
// detection order.
func (c *Client) ExtractFaces(ctx context.Context, imagePath string, opts facematch.DetectOptions) ([]facematch.Face, error) {
	body, err := c.postMultipartImage(ctx, "/extract_faces", imagePath, map[string]string{
		"detector_backend":  opts.Detector,
		"enforce_detection": strconv.FormatBool(opts.EnforceDetection),
		"align":             "true",
	})
	if err != nil {
		return nil, err
	}

	var resp extractFacesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	faces := make([]facematch.Face, 0, len(resp.Faces))
	for i, f := range resp.Faces {
		face, err := f.toFace()
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i+1, err)
		}
		face.Index = i + 1
		faces = append(faces, face)
	}
	return faces, nil
}

// Find searches the reference database for the face image and returns candidates
// ordered by ascending distance.
func (c *Client) Find(ctx context.Context, facePath string, opts facematch.SearchOptions) ([]facematch.Candidate, error) {
	fields := map[string]string{
		"db_path":           opts.DatabasePath,
		"model_name":        opts.Model,
		"detector_backend":  opts.Detector,
		"enforce_detection": strconv.FormatBool(opts.EnforceDetection),
	}
	if opts.DistanceMetric != "" {
		fields["distance_metric"] = opts.DistanceMetric
	}

	body, err := c.postMultipartImage(ctx, "/find", facePath, fields)
	if err != nil {
		return nil, err
	}

	var resp findResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// The crop holds a single face, so only the first result list is relevant.
	if len(resp.Results) == 0 {
		return []facematch.Candidate{}, nil
	}

	candidates := make([]facematch.Candidate, 0, len(resp.Results[0]))
	for _, m := range resp.Results[0] {
		candidates = append(candidates, facematch.Candidate{Identity: m.Identity, Distance: m.Distance})
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

// Health checks that the service is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	body, err := c.do(req, "/health")
	if err != nil {
		return err
	}

	var resp healthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status != "" && resp.Status != "ok" && resp.Status != "healthy" {
		return fmt.Errorf("deepface: service reported status %q", resp.Status)
	}
	return nil
}
