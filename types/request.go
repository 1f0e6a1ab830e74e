package types

import "math"

// ResolutionTier selects the short side of the output clip.
type ResolutionTier string

const (
	Resolution480p  ResolutionTier = "480p"
	Resolution720p  ResolutionTier = "720p"
	Resolution1080p ResolutionTier = "1080p"
)

// ShortSide returns the pixel count of the tier's short side.
func (t ResolutionTier) ShortSide() int {
	switch t {
	case Resolution720p:
		return 720
	case Resolution1080p:
		return 1080
	default:
		return 480
	}
}

// QualityPreset bundles the model choice and tuning values for one
// generation quality level.
type QualityPreset struct {
	Name          string  `json:"name"`
	ModelID       string  `json:"model_id"`
	Steps         int     `json:"steps"`
	GuidanceScale float64 `json:"guidance_scale"`
	FlowShift     float64 `json:"flow_shift"`
}

var (
	PresetDraft    = QualityPreset{Name: "draft", ModelID: "wan-v2.2-5b", Steps: 20, GuidanceScale: 5.0, FlowShift: 3.0}
	PresetStandard = QualityPreset{Name: "standard", ModelID: "wan-v2.2-14b", Steps: 30, GuidanceScale: 5.5, FlowShift: 5.0}
	PresetHigh     = QualityPreset{Name: "high", ModelID: "wan-v2.2-14b", Steps: 40, GuidanceScale: 6.0, FlowShift: 5.0}
)

// PresetByName resolves a preset name, falling back to standard.
func PresetByName(name string) QualityPreset {
	switch name {
	case PresetDraft.Name:
		return PresetDraft
	case PresetHigh.Name:
		return PresetHigh
	default:
		return PresetStandard
	}
}

// GenerationRequest is the orchestrator's unit of work: one segment plus the
// resolved endpoint images and generation parameters.
type GenerationRequest struct {
	Segment         *Segment
	FromImage       []byte
	ToImage         []byte
	Prompt          string
	NegativePrompt  string
	Resolution      ResolutionTier
	Preset          QualityPreset
	DurationSeconds float64
	Currency        string
	SourceWidth     int
	SourceHeight    int
}

// OutputDims computes aspect-correct output dimensions: the tier fixes the
// short side and the long side follows the source aspect ratio, rounded down
// to a multiple of 8.
func (r *GenerationRequest) OutputDims() (width, height int) {
	short := r.Resolution.ShortSide()
	if r.SourceWidth <= 0 || r.SourceHeight <= 0 {
		return short, short
	}
	if r.SourceWidth >= r.SourceHeight {
		ratio := float64(r.SourceWidth) / float64(r.SourceHeight)
		return roundDown8(int(math.Round(float64(short) * ratio))), short
	}
	ratio := float64(r.SourceHeight) / float64(r.SourceWidth)
	return short, roundDown8(int(math.Round(float64(short) * ratio)))
}

// FrameCount returns the number of frames for the requested duration at the
// given frame rate. A first inclusive frame is always present.
func (r *GenerationRequest) FrameCount(fps int) int {
	n := int(math.Round(r.DurationSeconds*float64(fps))) + 1
	if n < 2 {
		n = 2
	}
	return n
}

func roundDown8(v int) int {
	if v < 8 {
		return 8
	}
	return v - v%8
}
