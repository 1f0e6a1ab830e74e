// Package promptgen writes camera-motion prompts for transitions whose
// batch was started without an explicit prompt.
package promptgen

import (
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"tourloop/types"
)

// Enhancer produces a motion prompt describing the camera move between two
// waypoints.
type Enhancer interface {
	MotionPrompt(ctx context.Context, from, to *types.Waypoint) (string, error)
}

// NewDefaultEnhancer returns a Cohere-backed enhancer when COHERE_API_KEY is
// set, otherwise the deterministic template.
func NewDefaultEnhancer() Enhancer {
	if key := os.Getenv("COHERE_API_KEY"); key != "" {
		// Force HTTP/1.1 to avoid HTTP/2 protocol errors against the API
		httpClient := &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
				ForceAttemptHTTP2: false,
			},
		}
		client := cohereclient.NewClient(
			cohereclient.WithToken(key),
			cohereclient.WithHTTPClient(httpClient),
		)
		return &CohereEnhancer{client: client, model: "command-r"}
	}
	return TemplateEnhancer{}
}

// TemplateEnhancer derives a prompt from the angle deltas alone.
type TemplateEnhancer struct{}

// MotionPrompt describes the orbit, tilt, and dolly between the two angles.
func (TemplateEnhancer) MotionPrompt(_ context.Context, from, to *types.Waypoint) (string, error) {
	return describeMove(from, to), nil
}

// CohereEnhancer refines the template description with a chat model. Any API
// failure falls back to the template text so generation never blocks on it.
type CohereEnhancer struct {
	client *cohereclient.Client
	model  string
}

const enhancerPreamble = "You write terse camera-motion prompts for an image-to-video model. " +
	"Respond with a single sentence describing smooth camera movement, no preamble."

// MotionPrompt asks the chat model to polish the geometric description.
func (c *CohereEnhancer) MotionPrompt(ctx context.Context, from, to *types.Waypoint) (string, error) {
	base := describeMove(from, to)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	preamble := enhancerPreamble
	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Message:  fmt.Sprintf("Camera move: %s. Write the motion prompt.", base),
		Model:    &c.model,
		Preamble: &preamble,
	})
	if err != nil || resp == nil || strings.TrimSpace(resp.Text) == "" {
		return base, nil
	}
	return strings.TrimSpace(resp.Text), nil
}

// describeMove turns azimuth/elevation/distance deltas into a camera phrase.
func describeMove(from, to *types.Waypoint) string {
	if from == nil || to == nil {
		return "smooth camera move between two viewpoints, steady motion, consistent subject"
	}

	var parts []string

	azDelta := normalizeDegrees(to.Azimuth - from.Azimuth)
	switch {
	case azDelta > 5:
		parts = append(parts, fmt.Sprintf("orbit right %.0f degrees", azDelta))
	case azDelta < -5:
		parts = append(parts, fmt.Sprintf("orbit left %.0f degrees", -azDelta))
	}

	elDelta := to.Elevation - from.Elevation
	switch {
	case elDelta > 5:
		parts = append(parts, "tilt up")
	case elDelta < -5:
		parts = append(parts, "tilt down")
	}

	if from.Distance > 0 && to.Distance > 0 {
		ratio := to.Distance / from.Distance
		switch {
		case ratio < 0.9:
			parts = append(parts, "dolly in")
		case ratio > 1.1:
			parts = append(parts, "dolly out")
		}
	}

	if len(parts) == 0 {
		parts = append(parts, "subtle camera drift")
	}
	return fmt.Sprintf("smooth %s around the subject, steady motion, no scene changes", strings.Join(parts, ", "))
}

// normalizeDegrees maps an angle delta into (-180, 180].
func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	}
	if deg <= -180 {
		deg += 360
	}
	return deg
}
