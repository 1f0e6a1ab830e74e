package playback

import (
	"context"
	"sync"
	"time"

	"tourloop/config"
	"tourloop/types"
)

// Direction is the user's navigation intent, used by the render layer for a
// cut when no clip bridges the move.
type Direction int

const (
	DirectionForward Direction = iota
	DirectionBackward
)

func (d Direction) String() string {
	if d == DirectionBackward {
		return "backward"
	}
	return "forward"
}

// ContentType tells the render layer what to show.
type ContentType string

const (
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
)

// Content is the engine's answer to "what should be on screen right now".
// While a clip bridges two waypoints both stills stay exposed, so the
// renderer always has an image under the video: the source before the clip
// decodes, the destination once it finishes.
type Content struct {
	Type               ContentType
	URL                string
	BackgroundImageURL string
	TargetImageURL     string
	VideoReady         bool
	PlayReverse        bool
	// Direction is the latest navigation intent; the renderer uses it to
	// orient a cut when no clip bridges the move.
	Direction Direction
}

// TransitionState exists only while a clip is actively bridging two
// waypoints: created on navigation, destroyed on transition end.
type TransitionState struct {
	Playing        bool
	ClipURL        string
	TargetIndex    int
	VideoReady     bool
	PlayReverse    bool
	SourceImageURL string
	TargetImageURL string
}

// Engine is the playback navigation state machine. It is long-lived across
// many navigation requests; a request either starts a clip transition or
// cuts straight to the target index.
type Engine struct {
	mu         sync.Mutex
	waypoints  []*types.Waypoint
	segments   []*types.Segment
	cache      *PreloadCache
	current    int
	lastDir    Direction
	transition *TransitionState

	autoplayOn bool
	speed      float64
	task       *RepeatingTask
}

// NewEngine creates an engine over the given tour. The cache is injected so
// tests and sessions each own a fresh instance.
func NewEngine(waypoints []*types.Waypoint, segments []*types.Segment, cache *PreloadCache) *Engine {
	return &Engine{
		waypoints: waypoints,
		segments:  segments,
		cache:     cache,
		speed:     config.DefaultPlaybackSpeed,
	}
}

// SetSegments replaces the segment list (e.g. after a batch finishes) and
// opportunistically preloads every ready clip. The autoplay body is
// re-swapped so the running timer always drives current state.
func (e *Engine) SetSegments(ctx context.Context, segments []*types.Segment) {
	e.mu.Lock()
	e.segments = segments
	task := e.task
	e.mu.Unlock()

	for _, seg := range segments {
		if seg.Playable() {
			e.cache.Preload(ctx, seg.ClipURL)
		}
	}
	if task != nil {
		task.Swap(e.autoplayTick)
	}
}

// CurrentIndex returns the index of the waypoint currently shown.
func (e *Engine) CurrentIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Transitioning reports whether a clip is currently bridging two waypoints.
func (e *Engine) Transitioning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transition != nil
}

// Navigate moves toward the target waypoint. While a transition is in
// flight the request is dropped, not queued. If a ready clip exists for the
// move in either direction (a reverse match plays backwards) the engine
// enters Transitioning; otherwise it cuts straight to the target.
func (e *Engine) Navigate(targetIndex int, direction Direction) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.transition != nil || len(e.waypoints) == 0 {
		return
	}

	if targetIndex < 0 {
		targetIndex = 0
	}
	if targetIndex >= len(e.waypoints) {
		targetIndex = len(e.waypoints) - 1
	}
	if targetIndex == e.current {
		return
	}

	currentID := e.waypoints[e.current].ID
	targetID := e.waypoints[targetIndex].ID

	playReverse := false
	seg := e.findPlayableSegment(currentID, targetID)
	if seg == nil {
		if seg = e.findPlayableSegment(targetID, currentID); seg != nil {
			playReverse = true
		}
	}

	if seg == nil {
		// No usable clip: cut straight to the target.
		e.current = targetIndex
		e.lastDir = direction
		return
	}

	e.transition = &TransitionState{
		Playing:        true,
		ClipURL:        seg.ClipURL,
		TargetIndex:    targetIndex,
		VideoReady:     e.cache.IsReady(seg.ClipURL),
		PlayReverse:    playReverse,
		SourceImageURL: e.waypoints[e.current].ImageURL(),
		TargetImageURL: e.waypoints[targetIndex].ImageURL(),
	}
	e.lastDir = direction
}

// NavigateNext advances one waypoint, wrapping past the last back to 0.
func (e *Engine) NavigateNext() {
	e.mu.Lock()
	if len(e.waypoints) == 0 {
		e.mu.Unlock()
		return
	}
	target := (e.current + 1) % len(e.waypoints)
	e.mu.Unlock()
	e.Navigate(target, DirectionForward)
}

// NavigatePrev steps back one waypoint, wrapping before 0 to the last.
func (e *Engine) NavigatePrev() {
	e.mu.Lock()
	if len(e.waypoints) == 0 {
		e.mu.Unlock()
		return
	}
	target := (e.current - 1 + len(e.waypoints)) % len(e.waypoints)
	e.mu.Unlock()
	e.Navigate(target, DirectionBackward)
}

// HandleTransitionEnd is the renderer's "clip finished" signal: commit the
// stored target index and return to Idle.
func (e *Engine) HandleTransitionEnd() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.transition == nil {
		return
	}
	e.current = e.transition.TargetIndex
	e.transition = nil
}

// HandleVideoCanPlay promotes a late-loading clip to ready without touching
// any other transition state.
func (e *Engine) HandleVideoCanPlay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.transition != nil {
		e.transition.VideoReady = true
	}
}

// CurrentContent returns what the render layer should show right now.
func (e *Engine) CurrentContent() Content {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t := e.transition; t != nil {
		return Content{
			Type:               ContentVideo,
			URL:                t.ClipURL,
			BackgroundImageURL: t.SourceImageURL,
			TargetImageURL:     t.TargetImageURL,
			VideoReady:         t.VideoReady,
			PlayReverse:        t.PlayReverse,
			Direction:          e.lastDir,
		}
	}

	var url string
	if e.current < len(e.waypoints) {
		url = e.waypoints[e.current].ImageURL()
	}
	return Content{Type: ContentImage, URL: url, Direction: e.lastDir}
}

// TogglePlayback flips autoplay. The repeating timer is created on first
// enable and left running for the engine's lifetime; toggling only flips the
// flag its body checks.
func (e *Engine) TogglePlayback() bool {
	e.mu.Lock()
	e.autoplayOn = !e.autoplayOn
	on := e.autoplayOn
	if on && e.task == nil {
		e.task = NewRepeatingTask(e.autoplayInterval())
		e.task.Swap(e.autoplayTick)
	}
	e.mu.Unlock()
	return on
}

// SetSpeed updates the playback-speed multiplier; the autoplay interval is
// inversely proportional to it.
func (e *Engine) SetSpeed(multiplier float64) {
	if multiplier <= 0 {
		return
	}
	e.mu.Lock()
	e.speed = multiplier
	task := e.task
	interval := e.autoplayInterval()
	e.mu.Unlock()
	if task != nil {
		task.SetInterval(interval)
	}
}

// Close stops the autoplay timer. The engine must not be used after Close.
func (e *Engine) Close() {
	e.mu.Lock()
	task := e.task
	e.task = nil
	e.mu.Unlock()
	if task != nil {
		task.Stop()
	}
}

// autoplayTick advances the tour when autoplay is on and the engine is Idle.
func (e *Engine) autoplayTick() {
	e.mu.Lock()
	skip := !e.autoplayOn || e.transition != nil
	e.mu.Unlock()
	if skip {
		return
	}
	e.NavigateNext()
}

// autoplayInterval must be called with e.mu held.
func (e *Engine) autoplayInterval() time.Duration {
	return time.Duration(float64(config.AutoplayBaseInterval) / e.speed)
}

// findPlayableSegment must be called with e.mu held.
func (e *Engine) findPlayableSegment(fromID, toID string) *types.Segment {
	for _, seg := range e.segments {
		if seg.FromWaypointID == fromID && seg.ToWaypointID == toID && seg.Playable() {
			return seg
		}
	}
	return nil
}
