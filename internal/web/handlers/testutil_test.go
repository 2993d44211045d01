package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-registry/internal/facematch"
	"github.com/kozaktomas/face-registry/internal/faces/mock"
	"github.com/kozaktomas/face-registry/internal/records"
	"github.com/kozaktomas/face-registry/internal/registry"
)

var (
	aliceImage = []byte("alice portrait")
	bobImage   = []byte("bob portrait")
	groupImage = []byte("alice and bob")
	emptyImage = []byte("empty room")
)

// testEnv bundles a handler with its in-memory dependencies
type testEnv struct {
	handler   *TrainingHandler
	store     *records.MemoryStore
	extractor *mock.MockExtractor
}

// newTestEnv creates a training handler backed by a memory store and a mock extractor
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	extractor := mock.NewMockExtractor()
	extractor.AddImage(aliceImage, []float32{0, 0, 0})
	extractor.AddImage(bobImage, []float32{3, 4, 0})
	extractor.AddImage(groupImage, []float32{0, 0, 0}, []float32{3, 4, 0})

	matcher, err := facematch.NewMatcher(facematch.MetricEuclidean, 0.6)
	if err != nil {
		t.Fatalf("failed to create matcher: %v", err)
	}

	store := records.NewMemoryStore()
	service := registry.NewService(store, extractor, matcher, nil)

	return &testEnv{
		handler:   NewTrainingHandler(service, nil),
		store:     store,
		extractor: extractor,
	}
}

// storeLen returns the number of records in the test store
func (e *testEnv) storeLen(t *testing.T) int {
	t.Helper()
	snap, err := e.store.Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load store: %v", err)
	}
	return snap.Len()
}

// multipartRequest builds a multipart POST request. A nil image omits the image part.
func multipartRequest(t *testing.T, path string, fields map[string]string, imageName string, image []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if image != nil {
		part, err := writer.CreateFormFile("image", imageName)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write(image)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
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

// assertJSONMessage checks if the response is a JSON object with the expected message
func assertJSONMessage(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["message"] != expectedMessage {
		t.Errorf("expected message '%s', got '%v'", expectedMessage, result["message"])
	}
}
