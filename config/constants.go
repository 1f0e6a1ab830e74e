package config

import "time"

// Generation Constants
const (
	// MaxGenerationAttempts is the number of submission attempts per segment
	MaxGenerationAttempts = 3

	// DirectJobTimeout forces a failed result if no terminal event arrives
	DirectJobTimeout = 15 * time.Minute

	// OutputFPS is the frame rate of generated transition clips
	OutputFPS = 16

	// MediaCount is the number of output clips requested per project
	MediaCount = 1

	// CreditsExhaustedMessage is the normalized user-facing reason for
	// non-retryable balance/authorization failures
	CreditsExhaustedMessage = "Insufficient credits"
)

// Playback Constants
const (
	// AutoplayBaseInterval is the idle dwell time per waypoint at 1x speed
	AutoplayBaseInterval = 4 * time.Second

	// DefaultPlaybackSpeed is the initial autoplay speed multiplier
	DefaultPlaybackSpeed = 1.0
)

// ProxyImageHosts lists CDN/storage hostnames whose assets are refetched
// through the same-origin proxy when a direct fetch fails.
var ProxyImageHosts = []string{
	"storage.googleapis.com",
	"cdn.sogni.ai",
	"res.cloudinary.com",
	"s3.amazonaws.com",
}
