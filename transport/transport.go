// Package transport provides the two interchangeable strategies for
// submitting one generation job and observing its lifecycle until a
// terminal event.
package transport

import (
	"context"

	"tourloop/config"
	"tourloop/genapi"
	"tourloop/types"
)

// EventType classifies a normalized lifecycle event.
type EventType string

const (
	// EventProgress reports 0-100 completion, any number of times
	EventProgress EventType = "progress"
	// EventCompleted is the successful terminal event carrying the clip URL
	EventCompleted EventType = "completed"
	// EventFailed is the failing terminal event carrying a reason
	EventFailed EventType = "failed"
)

// Event is one normalized lifecycle event. A submission's stream carries any
// number of progress events followed by exactly one terminal event.
type Event struct {
	Type      EventType
	Percent   int
	Worker    string
	ClipURL   string
	Reason    string
	ProjectID string
	JobID     string
}

// Terminal reports whether the event ends the job's lifecycle.
func (e Event) Terminal() bool {
	return e.Type == EventCompleted || e.Type == EventFailed
}

// Adapter submits one generation job and streams lifecycle events until a
// terminal event, after which the channel is closed. The adapter is chosen
// by the caller at call time, never by the orchestrator.
type Adapter interface {
	Submit(ctx context.Context, req *types.GenerationRequest) (<-chan Event, error)
}

// buildParams maps a generation request onto the provider's project params.
func buildParams(req *types.GenerationRequest) genapi.CreateProjectParams {
	width, height := req.OutputDims()
	return genapi.CreateProjectParams{
		ModelID:        req.Preset.ModelID,
		Steps:          req.Preset.Steps,
		GuidanceScale:  req.Preset.GuidanceScale,
		FlowShift:      req.Preset.FlowShift,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          width,
		Height:         height,
		FrameCount:     req.FrameCount(config.OutputFPS),
		OutputFPS:      config.OutputFPS,
		StartImage:     req.FromImage,
		EndImage:       req.ToImage,
		MediaCount:     config.MediaCount,
		Currency:       req.Currency,
	}
}

// stepPercent maps step-count progress to a 0-100 percentage.
func stepPercent(step, stepCount int) int {
	if stepCount <= 0 {
		return 0
	}
	pct := step * 100 / stepCount
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
