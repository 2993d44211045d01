package web

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/facematch"
	"github.com/kozaktomas/face-registry/internal/faces/mock"
	"github.com/kozaktomas/face-registry/internal/records"
	"github.com/kozaktomas/face-registry/internal/registry"
)

func testJPEG(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		for y := range 8 {
			img.Set(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func newTestServer(t *testing.T, token string) (*Server, []byte) {
	t.Helper()

	face := testJPEG(t, 200)
	extractor := mock.NewMockExtractor()
	extractor.AddImage(face, []float32{0.5, 0.5})

	matcher, err := facematch.NewMatcher(facematch.MetricEuclidean, 0.6)
	if err != nil {
		t.Fatalf("failed to create matcher: %v", err)
	}
	store := records.NewFileStore(filepath.Join(t.TempDir(), "training_data.gob.zst"))
	service := registry.NewService(store, extractor, matcher, nil)

	cfg := &config.Config{
		Web: config.WebConfig{Port: 0, Host: "127.0.0.1", APIToken: token},
	}
	return NewServer(cfg, service, nil), face
}

func uploadRequest(t *testing.T, path string, fields map[string]string, img []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	part, err := writer.CreateFormFile("image", "face.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write(img)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t, "secret")

	recorder := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", recorder.Code)
	}
}

func TestServer_RequiresToken(t *testing.T) {
	s, _ := newTestServer(t, "secret")

	recorder := serve(s, httptest.NewRequest(http.MethodGet, "/all_training_data", nil))
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", recorder.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/all_training_data", nil)
	req.Header.Set("Authorization", "Bearer secret")
	recorder = serve(s, req)
	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", recorder.Code)
	}
}

func TestServer_FullFlow(t *testing.T) {
	s, face := newTestServer(t, "")

	recorder := serve(s, uploadRequest(t, "/register", map[string]string{"id": "Zoë", "filename": "zoë 1.jpg"}, face))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = serve(s, uploadRequest(t, "/recognize", nil, face))
	var recognized map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &recognized); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if recognized["is_valid"] != true || recognized["id"] != "Zoë" || recognized["filename"] != "zoë 1.jpg" {
		t.Fatalf("unexpected recognition: %v", recognized)
	}

	recorder = serve(s, httptest.NewRequest(http.MethodGet, "/get_training_data/"+url.PathEscape("Zoë"), nil))
	var byID map[string][]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &byID); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(byID["result"]) != 1 || byID["result"][0] != "zoë 1.jpg" {
		t.Fatalf("unexpected training data: %v", byID)
	}

	path := "/delete_training_data/" + url.PathEscape("Zoë") + "/" + url.PathEscape("zoë 1.jpg")
	recorder = serve(s, httptest.NewRequest(http.MethodDelete, path, nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", recorder.Code)
	}

	recorder = serve(s, httptest.NewRequest(http.MethodGet, "/all_training_data", nil))
	if body := bytes.TrimSpace(recorder.Body.Bytes()); string(body) != "[]" {
		t.Errorf("expected no training data, got %s", body)
	}
}

func TestServer_UnknownRoutes(t *testing.T) {
	s, _ := newTestServer(t, "")

	recorder := serve(s, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", recorder.Code)
	}

	recorder = serve(s, httptest.NewRequest(http.MethodGet, "/register", nil))
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", recorder.Code)
	}
}
