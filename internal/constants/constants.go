// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// DefaultMatchMetric is the distance metric used when none is configured
	DefaultMatchMetric = "euclidean"

	// DefaultEuclideanTolerance is the maximum euclidean distance for two faces to match
	// Lower values = stricter matching
	DefaultEuclideanTolerance = 0.6
)

// Processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) sent to the extractor
	MaxImageSize = 1920

	// DefaultImportConcurrency is the default number of parallel workers for bulk import
	DefaultImportConcurrency = 4

	// DefaultExtractorRateLimit is the default number of extractor requests per second
	DefaultExtractorRateLimit = 10

	// DefaultExtractorTimeoutSeconds is the HTTP timeout for one extractor request
	DefaultExtractorTimeoutSeconds = 60
)

// Storage constants
const (
	// DefaultStorePath is where the file backend keeps the training data
	DefaultStorePath = "training_data.gob"

	// DefaultSQLitePath is the default sqlite database file
	DefaultSQLitePath = "face_registry.db"
)
