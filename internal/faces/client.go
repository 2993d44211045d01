package faces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultEmbeddingURL = "http://localhost:8000"
	faceEndpoint        = "/embed/face"
)

// ClientConfig configures the embedding server client.
type ClientConfig struct {
	URL          string        // defaults to http://localhost:8000
	MaxImageSize int           // downscale larger images before upload, 0 disables
	RateLimit    float64       // requests per second, 0 means unlimited
	Timeout      time.Duration // per request, 0 means no client-side timeout
}

// Client extracts face embeddings through the embedding server's
// face endpoint.
type Client struct {
	baseURL      string
	maxImageSize int
	limiter      *rate.Limiter
	client       *http.Client
}

// NewClient creates a new embedding server client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		maxImageSize: cfg.MaxImageSize,
		client:       &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit)))
	}
	return c
}

// faceDetection is a single detected face in the server response.
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse is the response of the face embedding endpoint.
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Extract detects faces and computes their embeddings.
func (c *Client) Extract(ctx context.Context, image []byte) ([]Face, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: waiting for rate limiter: %w", ErrExtractor, err)
		}
	}

	data := image
	if c.maxImageSize > 0 {
		// Undecodable images go through unchanged; the server decides.
		if resized, err := downscale(image, c.maxImageSize); err == nil {
			data = resized
		} else {
			slog.DebugContext(ctx, "sending image without downscaling", "error", err)
		}
	}

	body, err := c.postImage(ctx, faceEndpoint, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractor, err)
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrExtractor, err)
	}

	result := make([]Face, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		if len(f.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding for face %d", ErrExtractor, f.FaceIndex)
		}
		result = append(result, Face{
			Embedding: f.Embedding,
			BBox:      f.BBox,
			DetScore:  f.DetScore,
		})
	}

	slog.DebugContext(ctx, "extracted faces", "faces", len(result), "model", resp.Model)
	return result, nil
}

// postImage posts the image as multipart field "file" and returns the response body.
func (c *Client) postImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
