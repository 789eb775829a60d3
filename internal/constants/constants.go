// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Model input constants
const (
	// EmbeddingInputSize is the square input edge of the face embedding model
	EmbeddingInputSize = 112

	// MaskInputSize is the square input edge of the mask classifier
	MaskInputSize = 224

	// DetectorInputSize is the square input edge of the SSD face detector
	DetectorInputSize = 300
)

// Detection constants
const (
	// MinDetectionConfidence is the minimum SSD score for a face region
	MinDetectionConfidence = 0.5

	// MinFaceSizePx is the smallest face edge, in crop pixels, passed to the models
	MinFaceSizePx = 16
)

// Tracking constants
const (
	// TrackIoUThreshold is the minimum Intersection over Union required to keep
	// a track id for a box in the next frame
	TrackIoUThreshold = 0.3

	// MaxTrackAge is the number of frames an unmatched track survives
	MaxTrackAge = 5
)

// Registration constants
const (
	// MaxPendingRegistrations is the number of unconfirmed registration requests kept
	MaxPendingRegistrations = 8

	// RegistrationCropPadding enlarges the saved face crop relative to the box
	RegistrationCropPadding = 0.15

	// EnrolledRecordID marks records created by the enroll command
	EnrolledRecordID = "enrolled"
)

// Alerting constants
const (
	// AlertQueueSize is the capacity of the alert dispatcher queue
	AlertQueueSize = 64

	// DefaultMQTTTopic is the topic prefix alert events are published under
	DefaultMQTTTopic = "mask-sentry/alerts"

	// DefaultRedisChannel is the Redis pub/sub channel alert events are published to
	DefaultRedisChannel = "mask-sentry:alerts"
)

// HTTP constants
const (
	// DefaultHTTPPort is the default port of the status server
	DefaultHTTPPort = 8085

	// MaxRequestBodyBytes caps JSON request bodies
	MaxRequestBodyBytes = 1 << 16
)
