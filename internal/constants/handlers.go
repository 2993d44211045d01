// Package constants provides shared constants used across the codebase.
package constants

// File upload constants
const (
	// MaxUploadSize is the maximum file upload size in bytes (100MB)
	MaxUploadSize = 100 << 20
)

// Server constants
const (
	// DefaultWebPort is the port the API listens on
	DefaultWebPort = 5000

	// DefaultWebHost is the interface the API binds to
	DefaultWebHost = "0.0.0.0"

	// RequestTimeoutSeconds bounds a single API request, extraction included
	RequestTimeoutSeconds = 120
)
