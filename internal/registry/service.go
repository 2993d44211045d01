// Package registry enrolls and recognizes faces against the record store.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kozaktomas/face-registry/internal/facematch"
	"github.com/kozaktomas/face-registry/internal/faces"
	"github.com/kozaktomas/face-registry/internal/records"
)

// Recognition is the outcome of Recognize. IsValid is false when no
// enrolled face matched.
type Recognition struct {
	IsValid  bool   `json:"is_valid"`
	ID       string `json:"id,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Explanation is a recognition together with the distance from the query
// face to every record, in store order.
type Explanation struct {
	Recognition
	Entries   []records.Entry
	Distances []float64
	Matches   []bool
}

// Service orchestrates extraction, matching and storage.
//
// Mutations hold the write lock across load, modify and save so concurrent
// requests cannot overwrite each other's changes.
type Service struct {
	store     records.Store
	extractor faces.Extractor
	matcher   *facematch.Matcher
	logger    *slog.Logger
	mu        sync.RWMutex
}

// NewService creates a registry service. A nil logger uses slog.Default().
func NewService(store records.Store, extractor faces.Extractor, matcher *facematch.Matcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		extractor: extractor,
		matcher:   matcher,
		logger:    logger,
	}
}

// extractSingle returns the embedding of the only face in image.
func (s *Service) extractSingle(ctx context.Context, image []byte) ([]float32, error) {
	detected, err := s.extractor.Extract(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("extracting faces: %w", err)
	}
	switch len(detected) {
	case 0:
		return nil, invalid(ErrNoFace)
	case 1:
		return detected[0].Embedding, nil
	default:
		return nil, invalid(ErrMultipleFaces)
	}
}

// Register enrolls the single face in image under id and filename.
// It fails with ErrAlreadyRegistered if the face matches an enrolled one.
func (s *Service) Register(ctx context.Context, id, filename string, image []byte) error {
	if id == "" || filename == "" {
		return invalid(ErrMissingField)
	}
	if len(image) == 0 {
		return invalid(ErrMissingImage)
	}

	embedding, err := s.extractSingle(ctx, image)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}

	if idx, ok := s.matcher.Match(embedding, snap.Embeddings); ok {
		s.logger.InfoContext(ctx, "face already registered",
			"id", id, "filename", filename,
			"existing_id", snap.IDs[idx], "existing_filename", snap.Filenames[idx])
		return ErrAlreadyRegistered
	}

	snap.Append(embedding, id, filename)
	if err := s.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("saving records: %w", err)
	}

	s.logger.InfoContext(ctx, "face registered", "id", id, "filename", filename, "records", snap.Len())
	return nil
}

// Recognize looks up the single face in image. No match is a normal,
// successful outcome with IsValid false.
func (s *Service) Recognize(ctx context.Context, image []byte) (Recognition, error) {
	if len(image) == 0 {
		return Recognition{}, invalid(ErrMissingImage)
	}

	embedding, err := s.extractSingle(ctx, image)
	if err != nil {
		return Recognition{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return Recognition{}, fmt.Errorf("loading records: %w", err)
	}

	return s.match(embedding, snap), nil
}

func (s *Service) match(embedding []float32, snap *records.Snapshot) Recognition {
	idx, ok := s.matcher.Match(embedding, snap.Embeddings)
	if !ok {
		return Recognition{IsValid: false}
	}
	return Recognition{
		IsValid:  true,
		ID:       snap.IDs[idx],
		Filename: snap.Filenames[idx],
	}
}

// Explain recognizes the face in image like Recognize and also reports its
// distance to every record. The image is extracted once.
func (s *Service) Explain(ctx context.Context, image []byte) (Explanation, error) {
	if len(image) == 0 {
		return Explanation{}, invalid(ErrMissingImage)
	}
	embedding, err := s.extractSingle(ctx, image)
	if err != nil {
		return Explanation{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return Explanation{}, fmt.Errorf("loading records: %w", err)
	}
	return Explanation{
		Recognition: s.match(embedding, snap),
		Entries:     snap.Entries(),
		Distances:   s.matcher.Distances(embedding, snap.Embeddings),
		Matches:     s.matcher.Compare(embedding, snap.Embeddings),
	}, nil
}

// ListAll returns every record as {id, filename} in store order.
func (s *Service) ListAll(ctx context.Context) ([]records.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	return snap.Entries(), nil
}

// ListByID returns the filenames enrolled under id, in store order.
func (s *Service) ListByID(ctx context.Context, id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	return snap.FilenamesFor(id), nil
}

// Delete removes every record with the given id and filename and returns
// how many were removed. Removing nothing is not an error.
func (s *Service) Delete(ctx context.Context, id, filename string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading records: %w", err)
	}

	removed := snap.Remove(id, filename)
	if removed == 0 {
		return 0, nil
	}

	if err := s.store.Save(ctx, snap); err != nil {
		return 0, fmt.Errorf("saving records: %w", err)
	}

	s.logger.InfoContext(ctx, "records deleted", "id", id, "filename", filename, "removed", removed, "records", snap.Len())
	return removed, nil
}

// Matcher returns the matcher in use.
func (s *Service) Matcher() *facematch.Matcher {
	return s.matcher
}
