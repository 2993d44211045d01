// Package mock provides a scripted faces.Extractor for testing.
package mock

import (
	"context"
	"sync"

	"github.com/kozaktomas/face-registry/internal/faces"
)

// MockExtractor returns pre-registered faces for known image payloads.
// Unknown images contain no faces.
type MockExtractor struct {
	mu     sync.RWMutex
	images map[string][]faces.Face
	calls  int

	// Error injection
	ExtractError error
}

// NewMockExtractor creates an empty mock extractor.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{
		images: make(map[string][]faces.Face),
	}
}

// AddImage makes image yield one face per embedding.
func (m *MockExtractor) AddImage(image []byte, embeddings ...[]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	detected := make([]faces.Face, len(embeddings))
	for i, emb := range embeddings {
		detected[i] = faces.Face{
			Embedding: emb,
			BBox:      []float64{0, 0, 10, 10},
			DetScore:  0.99,
		}
	}
	m.images[string(image)] = detected
}

// Extract returns the faces registered for image.
func (m *MockExtractor) Extract(ctx context.Context, image []byte) ([]faces.Face, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ExtractError != nil {
		return nil, m.ExtractError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.images[string(image)], nil
}

// Calls returns how many times Extract was called.
func (m *MockExtractor) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}
