// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Web server defaults
const (
	// DefaultWebHost is the address the web server binds to
	DefaultWebHost = "0.0.0.0"

	// DefaultWebPort is the port the web server listens on
	DefaultWebPort = 8501
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// File upload constants
const (
	// MaxUploadSize is the maximum file upload size in bytes (100MB)
	MaxUploadSize = 100 << 20

	// UploadFormField is the multipart field carrying the uploaded image
	UploadFormField = "image"
)

// Job constants
const (
	// JobRetention is how long finished match jobs stay queryable
	JobRetention = time.Hour
)
