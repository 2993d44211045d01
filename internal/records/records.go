// Package records holds the ordered collection of enrolled faces and the
// storage contract every backend implements.
package records

import (
	"context"
	"errors"
	"fmt"
)

// ErrCorrupt is returned by Load when persisted data exists but cannot be
// decoded into a consistent snapshot.
var ErrCorrupt = errors.New("record store is corrupt")

// Store loads and replaces the whole record collection.
type Store interface {
	// Load returns the full snapshot, or an empty one if nothing was saved yet.
	Load(ctx context.Context) (*Snapshot, error)
	// Save replaces everything persisted with the given snapshot.
	Save(ctx context.Context, snap *Snapshot) error
}

// Entry is the {id, filename} projection of a record.
type Entry struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// Snapshot is the record collection as three parallel sequences.
// Index i across Embeddings, IDs and Filenames describes one record.
type Snapshot struct {
	Embeddings [][]float32
	IDs        []string
	Filenames  []string
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Embeddings: [][]float32{},
		IDs:        []string{},
		Filenames:  []string{},
	}
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.IDs)
}

// Validate checks that the three sequences line up.
func (s *Snapshot) Validate() error {
	if len(s.Embeddings) != len(s.IDs) || len(s.IDs) != len(s.Filenames) {
		return fmt.Errorf("%w: sequence lengths differ (embeddings=%d ids=%d filenames=%d)",
			ErrCorrupt, len(s.Embeddings), len(s.IDs), len(s.Filenames))
	}
	return nil
}

// Append adds one record at the end.
func (s *Snapshot) Append(embedding []float32, id, filename string) {
	s.Embeddings = append(s.Embeddings, embedding)
	s.IDs = append(s.IDs, NormalizeKey(id))
	s.Filenames = append(s.Filenames, NormalizeKey(filename))
}

// Entries projects every record to {id, filename} in store order.
func (s *Snapshot) Entries() []Entry {
	entries := make([]Entry, 0, s.Len())
	for i := range s.IDs {
		entries = append(entries, Entry{ID: s.IDs[i], Filename: s.Filenames[i]})
	}
	return entries
}

// FilenamesFor returns the filenames of all records owned by id, in store order.
func (s *Snapshot) FilenamesFor(id string) []string {
	id = NormalizeKey(id)
	result := []string{}
	for i, recordID := range s.IDs {
		if recordID == id {
			result = append(result, s.Filenames[i])
		}
	}
	return result
}

// Remove deletes every record whose (id, filename) pair matches and returns
// how many were removed. Positions are removed highest first so earlier
// positions stay valid while deleting.
func (s *Snapshot) Remove(id, filename string) int {
	id = NormalizeKey(id)
	filename = NormalizeKey(filename)

	var positions []int
	for i := range s.IDs {
		if s.IDs[i] == id && s.Filenames[i] == filename {
			positions = append(positions, i)
		}
	}

	for j := len(positions) - 1; j >= 0; j-- {
		i := positions[j]
		s.Embeddings = append(s.Embeddings[:i], s.Embeddings[i+1:]...)
		s.IDs = append(s.IDs[:i], s.IDs[i+1:]...)
		s.Filenames = append(s.Filenames[:i], s.Filenames[i+1:]...)
	}
	return len(positions)
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Embeddings: make([][]float32, len(s.Embeddings)),
		IDs:        append([]string{}, s.IDs...),
		Filenames:  append([]string{}, s.Filenames...),
	}
	for i, emb := range s.Embeddings {
		c.Embeddings[i] = append([]float32(nil), emb...)
	}
	return c
}
