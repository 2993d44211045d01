package database

import (
	"fmt"
	"regexp"
)

// Dialect adapts the shared record queries to one SQL backend.
// Queries are written with $n placeholders.
type Dialect interface {
	Name() string
	Rebind(query string) string
	EmbeddingValue(v []float32) (any, error)
	ScanEmbedding(src any) ([]float32, error)
}

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// BlobDialect stores embeddings as little-endian float32 blobs and uses
// ? placeholders. Used by sqlite and MariaDB.
type BlobDialect struct {
	Driver string
}

func (d BlobDialect) Name() string {
	return d.Driver
}

func (d BlobDialect) Rebind(query string) string {
	return placeholderRe.ReplaceAllString(query, "?")
}

func (d BlobDialect) EmbeddingValue(v []float32) (any, error) {
	return EncodeEmbedding(v), nil
}

func (d BlobDialect) ScanEmbedding(src any) ([]float32, error) {
	switch b := src.(type) {
	case []byte:
		return DecodeEmbedding(b)
	case string:
		return DecodeEmbedding([]byte(b))
	case nil:
		return nil, fmt.Errorf("embedding is NULL")
	default:
		return nil, fmt.Errorf("unexpected embedding column type %T", src)
	}
}
