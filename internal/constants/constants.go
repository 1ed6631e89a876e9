// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Matching defaults
const (
	// DefaultDetector is the face detection backend used when none is configured
	DefaultDetector = "retinaface"

	// DefaultModel is the recognition model used when none is configured
	DefaultModel = "ArcFace"

	// DefaultDatabasePath is the reference database folder
	DefaultDatabasePath = "database/"

	// DefaultDistanceThreshold is the default maximum distance for a face match
	// Lower values = stricter matching
	DefaultDistanceThreshold = 0.5

	// DefaultDistanceMetric is the metric the engine uses to rank candidates
	DefaultDistanceMetric = "cosine"

	// DefaultFacesOutputDir is where the CLI saves cropped faces
	DefaultFacesOutputDir = "extracted_faces/"
)

// Engine constants
const (
	// EngineDeepFace delegates detection and search to a DeepFace REST service
	EngineDeepFace = "deepface"
	// EngineDlib runs detection and search in-process with dlib (build tag "dlib")
	EngineDlib = "dlib"
	// EngineOpenCV detects with an OpenCV cascade and searches with DeepFace (build tag "gocv")
	EngineOpenCV = "opencv"

	// DefaultDeepFaceURL is the DeepFace service address
	DefaultDeepFaceURL = "http://localhost:5005"

	// DefaultDeepFaceTimeoutSeconds bounds a single DeepFace request
	DefaultDeepFaceTimeoutSeconds = 300
)

// Image constants
const (
	// JPEGQuality is used for every JPEG this program writes
	JPEGQuality = 95

	// ThumbnailSize is the longest edge of face thumbnails sent to the browser
	ThumbnailSize = 160

	// DuplicateHashDistance is the maximum perceptual hash distance for two
	// reference images to be considered the same picture
	DuplicateHashDistance = 4
)
