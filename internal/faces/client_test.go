package faces

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// createTestJPEG returns a solid-color JPEG of the given size.
func createTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test JPEG: %v", err)
	}
	return buf.Bytes()
}

// setupFaceServer starts a mock embedding server that records the uploaded image.
func setupFaceServer(t *testing.T, status int, response any, uploaded *[]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/embed/face" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if uploaded != nil {
			*uploaded = data
		}
		if header.Header.Get("Content-Type") == "" {
			http.Error(w, "missing content type", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(response)
	}))
}

func TestClient_Extract(t *testing.T) {
	server := setupFaceServer(t, http.StatusOK, map[string]any{
		"faces_count": 2,
		"model":       "buffalo_l",
		"faces": []map[string]any{
			{"face_index": 0, "dim": 3, "embedding": []float32{0.1, 0.2, 0.3}, "bbox": []float64{1, 2, 3, 4}, "det_score": 0.98},
			{"face_index": 1, "dim": 3, "embedding": []float32{0.4, 0.5, 0.6}, "bbox": []float64{5, 6, 7, 8}, "det_score": 0.91},
		},
	}, nil)
	defer server.Close()

	client := NewClient(ClientConfig{URL: server.URL})

	result, err := client.Extract(context.Background(), createTestJPEG(t, 16, 16))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(result))
	}
	if result[0].Embedding[2] != 0.3 {
		t.Errorf("unexpected embedding: %v", result[0].Embedding)
	}
	if result[1].DetScore != 0.91 {
		t.Errorf("expected det score 0.91, got %v", result[1].DetScore)
	}
	if len(result[1].BBox) != 4 || result[1].BBox[0] != 5 {
		t.Errorf("unexpected bbox: %v", result[1].BBox)
	}
	if result[1].Embedding[0] != 0.4 {
		t.Errorf("unexpected second embedding: %v", result[1].Embedding)
	}
}

func TestClient_ExtractNoFaces(t *testing.T) {
	server := setupFaceServer(t, http.StatusOK, map[string]any{
		"faces_count": 0,
		"faces":       []any{},
	}, nil)
	defer server.Close()

	result, err := NewClient(ClientConfig{URL: server.URL}).Extract(context.Background(), createTestJPEG(t, 8, 8))

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected no faces, got %d", len(result))
	}
}

func TestClient_ExtractErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response any
	}{
		{"server error", http.StatusInternalServerError, map[string]string{"detail": "boom"}},
		{"invalid json", http.StatusOK, "not an object"},
		{"empty embedding", http.StatusOK, map[string]any{
			"faces": []map[string]any{{"face_index": 0, "embedding": []float32{}}},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := setupFaceServer(t, tc.status, tc.response, nil)
			defer server.Close()

			_, err := NewClient(ClientConfig{URL: server.URL}).Extract(context.Background(), createTestJPEG(t, 8, 8))

			if !errors.Is(err, ErrExtractor) {
				t.Errorf("expected ErrExtractor, got %v", err)
			}
		})
	}
}

func TestClient_ExtractUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(ClientConfig{URL: url, Timeout: time.Second}).Extract(context.Background(), []byte("data"))

	if !errors.Is(err, ErrExtractor) {
		t.Errorf("expected ErrExtractor, got %v", err)
	}
}

func TestClient_DownscalesLargeImages(t *testing.T) {
	var uploaded []byte
	server := setupFaceServer(t, http.StatusOK, map[string]any{"faces": []any{}}, &uploaded)
	defer server.Close()

	client := NewClient(ClientConfig{URL: server.URL, MaxImageSize: 32})
	if _, err := client.Extract(context.Background(), createTestJPEG(t, 128, 64)); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(uploaded))
	if err != nil {
		t.Fatalf("uploaded data is not an image: %v", err)
	}
	if cfg.Width != 32 || cfg.Height != 16 {
		t.Errorf("expected 32x16 upload, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestClient_SendsUndecodableImagesUnchanged(t *testing.T) {
	var uploaded []byte
	server := setupFaceServer(t, http.StatusOK, map[string]any{"faces": []any{}}, &uploaded)
	defer server.Close()

	payload := []byte("not really an image")
	client := NewClient(ClientConfig{URL: server.URL, MaxImageSize: 32})
	if _, err := client.Extract(context.Background(), payload); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if !bytes.Equal(uploaded, payload) {
		t.Errorf("expected payload to be sent unchanged, got %q", uploaded)
	}
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	server := setupFaceServer(t, http.StatusOK, map[string]any{"faces": []any{}}, nil)
	defer server.Close()

	client := NewClient(ClientConfig{URL: server.URL, RateLimit: 0.001})
	img := createTestJPEG(t, 8, 8)

	// The first call consumes the only token.
	if _, err := client.Extract(context.Background(), img); err != nil {
		t.Fatalf("first Extract failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.Extract(ctx, img); !errors.Is(err, ErrExtractor) {
		t.Errorf("expected rate-limited call to fail with ErrExtractor, got %v", err)
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte("GIF89a\x00\x00"), "image/gif"},
		{"bmp", []byte("BM\x00\x00\x00\x00\x00\x00"), "image/bmp"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), "image/webp"},
		{"too short", []byte{0xFF, 0xD8}, "application/octet-stream"},
		{"unknown", []byte("hello world"), "application/octet-stream"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectMIMEType(tc.data); got != tc.expected {
				t.Errorf("detectMIMEType() = %q; want %q", got, tc.expected)
			}
		})
	}
}

func TestToJPEG(t *testing.T) {
	jpg := createTestJPEG(t, 8, 8)
	out, err := toJPEG(jpg)
	if err != nil {
		t.Fatalf("toJPEG(jpeg) error: %v", err)
	}
	if !bytes.Equal(out, jpg) {
		t.Error("toJPEG should return JPEG input unchanged")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}
	out, err = toJPEG(buf.Bytes())
	if err != nil {
		t.Fatalf("toJPEG(png) error: %v", err)
	}
	if got := detectMIMEType(out); got != "image/jpeg" {
		t.Errorf("toJPEG(png) produced %q", got)
	}

	if _, err := toJPEG([]byte("not an image at all")); err == nil {
		t.Error("expected error for undecodable input")
	}
}
