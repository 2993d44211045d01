//go:build !dlib

package faces

import (
	"context"
	"errors"
)

var errDlibDisabled = errors.New("dlib extractor not compiled in, rebuild with -tags dlib")

// DlibExtractor is unavailable in builds without the dlib tag.
type DlibExtractor struct{}

// NewDlibExtractor always fails in builds without the dlib tag.
func NewDlibExtractor(modelsDir string) (*DlibExtractor, error) {
	return nil, errDlibDisabled
}

// Extract always fails in builds without the dlib tag.
func (d *DlibExtractor) Extract(ctx context.Context, image []byte) ([]Face, error) {
	return nil, errDlibDisabled
}

// Close is a no-op.
func (d *DlibExtractor) Close() {}
