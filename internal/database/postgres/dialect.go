package postgres

import (
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// Dialect stores embeddings in a pgvector column.
type Dialect struct{}

func (Dialect) Name() string {
	return "postgres"
}

func (Dialect) Rebind(query string) string {
	return query
}

func (Dialect) EmbeddingValue(v []float32) (any, error) {
	return pgvector.NewVector(v), nil
}

func (Dialect) ScanEmbedding(src any) ([]float32, error) {
	var v pgvector.Vector
	if err := v.Scan(src); err != nil {
		return nil, fmt.Errorf("scan vector: %w", err)
	}
	return v.Slice(), nil
}
