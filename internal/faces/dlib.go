//go:build dlib

package faces

import (
	"context"
	"fmt"
	"sync"

	"github.com/Kagami/go-face"
)

// DlibExtractor runs dlib's detector and ResNet embedding model in-process.
// It produces 128-dimensional embeddings comparable with euclidean distance.
type DlibExtractor struct {
	rec *face.Recognizer
	mu  sync.Mutex // go-face recognizers are not safe for concurrent use
}

// NewDlibExtractor loads the dlib models from modelsDir.
func NewDlibExtractor(modelsDir string) (*DlibExtractor, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("loading dlib models from %s: %w", modelsDir, err)
	}
	return &DlibExtractor{rec: rec}, nil
}

// Extract detects faces in an image. Non-JPEG input is converted first.
func (d *DlibExtractor) Extract(ctx context.Context, image []byte) ([]Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := toJPEG(image)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractor, err)
	}

	d.mu.Lock()
	detected, err := d.rec.Recognize(data)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractor, err)
	}

	result := make([]Face, 0, len(detected))
	for _, f := range detected {
		embedding := make([]float32, len(f.Descriptor))
		copy(embedding, f.Descriptor[:])
		r := f.Rectangle
		result = append(result, Face{
			Embedding: embedding,
			BBox:      []float64{float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y)},
			DetScore:  1,
		})
	}
	return result, nil
}

// Close releases the dlib models.
func (d *DlibExtractor) Close() {
	d.rec.Close()
}
