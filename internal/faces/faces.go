// Package faces turns images into face embeddings.
//
// The detection and embedding models live outside this process; an Extractor
// only returns what the model found: one Face per detected face.
package faces

import (
	"context"
	"errors"
)

// ErrExtractor marks failures of the extraction backend itself (unreachable
// server, bad response, model errors), as opposed to images without faces.
var ErrExtractor = errors.New("face extractor failed")

// Face is a single detected face.
type Face struct {
	Embedding []float32
	BBox      []float64 // [x1, y1, x2, y2] in pixels of the analysed image
	DetScore  float64
}

// Extractor detects faces in an encoded image and returns their embeddings.
// An image without faces yields an empty slice and a nil error.
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]Face, error)
}
