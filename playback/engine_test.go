package playback

import (
	"context"
	"fmt"
	"testing"

	"tourloop/types"
)

// testTour builds waypoints a, b, c and one ready clip bridging a -> b.
func testTour() ([]*types.Waypoint, []*types.Segment) {
	var waypoints []*types.Waypoint
	for _, id := range []string{"a", "b", "c"} {
		ref := types.RemoteImage(fmt.Sprintf("http://cdn/%s.jpg", id))
		waypoints = append(waypoints, &types.Waypoint{ID: id, Status: types.StatusReady, Image: &ref})
	}
	segments := []*types.Segment{
		{ID: "sAB", FromWaypointID: "a", ToWaypointID: "b", Status: types.StatusReady, ClipURL: "http://cdn/ab.mp4"},
		{ID: "sBC", FromWaypointID: "b", ToWaypointID: "c", Status: types.StatusPending},
		{ID: "sCA", FromWaypointID: "c", ToWaypointID: "a", Status: types.StatusPending},
	}
	return waypoints, segments
}

func instantCache() *PreloadCache {
	cache := NewPreloadCache(func(ctx context.Context, url string) (MediaHandle, error) {
		return MediaHandle{URL: url}, nil
	})
	return cache
}

func newTestEngine() (*Engine, []*types.Segment) {
	waypoints, segments := testTour()
	e := NewEngine(waypoints, segments, instantCache())
	return e, segments
}

func TestNavigateStartsTransitionOnReadyClip(t *testing.T) {
	e, _ := newTestEngine()

	e.Navigate(1, DirectionForward)

	if !e.Transitioning() {
		t.Fatal("Expected a transition for the ready clip")
	}
	content := e.CurrentContent()
	if content.Type != ContentVideo || content.URL != "http://cdn/ab.mp4" {
		t.Errorf("Unexpected content: %+v", content)
	}
	if content.PlayReverse {
		t.Error("Expected forward playback for a forward match")
	}
	if e.CurrentIndex() != 0 {
		t.Errorf("Expected index to stay at 0 until transition end, got %d", e.CurrentIndex())
	}
}

func TestNavigateCutsWithoutClip(t *testing.T) {
	e, _ := newTestEngine()

	// b -> c has no ready clip, so the move is an instant cut.
	e.Navigate(1, DirectionForward)
	e.HandleTransitionEnd()
	e.Navigate(2, DirectionForward)

	if e.Transitioning() {
		t.Fatal("Expected a cut, not a transition")
	}
	if e.CurrentIndex() != 2 {
		t.Errorf("Expected index 2 after cut, got %d", e.CurrentIndex())
	}
	content := e.CurrentContent()
	if content.Type != ContentImage || content.URL != "http://cdn/c.jpg" {
		t.Errorf("Unexpected content after cut: %+v", content)
	}
	// The cut carries the navigation direction so the renderer can orient it.
	if content.Direction != DirectionForward {
		t.Errorf("Expected forward direction on cut, got %s", content.Direction)
	}

	e.Navigate(1, DirectionBackward)
	if got := e.CurrentContent().Direction; got != DirectionBackward {
		t.Errorf("Expected backward direction after backward cut, got %s", got)
	}
}

func TestNavigateReusesClipReversed(t *testing.T) {
	e, _ := newTestEngine()

	// Get to b, then step back toward a. Only a -> b exists.
	e.Navigate(1, DirectionForward)
	e.HandleTransitionEnd()
	e.Navigate(0, DirectionBackward)

	if !e.Transitioning() {
		t.Fatal("Expected reversed reuse of the a->b clip")
	}
	content := e.CurrentContent()
	if content.URL != "http://cdn/ab.mp4" || !content.PlayReverse {
		t.Errorf("Expected reversed a->b clip, got %+v", content)
	}
	if content.BackgroundImageURL != "http://cdn/b.jpg" || content.TargetImageURL != "http://cdn/a.jpg" {
		t.Errorf("Expected stills for the actual move, got %+v", content)
	}
}

func TestNavigateDropsRequestsWhileTransitioning(t *testing.T) {
	e, _ := newTestEngine()

	e.Navigate(1, DirectionForward)
	e.Navigate(2, DirectionForward)

	content := e.CurrentContent()
	if content.URL != "http://cdn/ab.mp4" {
		t.Errorf("Expected original transition to survive, got %+v", content)
	}

	e.HandleTransitionEnd()
	if e.CurrentIndex() != 1 {
		t.Errorf("Expected the first request's target, got index %d", e.CurrentIndex())
	}
}

func TestNavigateClampsTargetIndex(t *testing.T) {
	e, _ := newTestEngine()

	e.Navigate(99, DirectionForward)
	if e.Transitioning() {
		e.HandleTransitionEnd()
	}
	if e.CurrentIndex() != 2 {
		t.Errorf("Expected clamp to last waypoint, got %d", e.CurrentIndex())
	}

	e.Navigate(-5, DirectionBackward)
	if e.Transitioning() {
		e.HandleTransitionEnd()
	}
	if e.CurrentIndex() != 0 {
		t.Errorf("Expected clamp to first waypoint, got %d", e.CurrentIndex())
	}
}

func TestTransitionKeepsStillsUnderVideo(t *testing.T) {
	e, _ := newTestEngine()

	e.Navigate(1, DirectionForward)
	content := e.CurrentContent()

	// Both endpoint stills stay exposed while the clip plays so the render
	// layer never shows an empty frame.
	if content.BackgroundImageURL != "http://cdn/a.jpg" {
		t.Errorf("Expected source still as background, got %q", content.BackgroundImageURL)
	}
	if content.TargetImageURL != "http://cdn/b.jpg" {
		t.Errorf("Expected target still, got %q", content.TargetImageURL)
	}
}

func TestHandleVideoCanPlayPromotesReadiness(t *testing.T) {
	waypoints, segments := testTour()
	// A cache that never finishes loading keeps VideoReady false at start.
	blocked := NewPreloadCache(func(ctx context.Context, url string) (MediaHandle, error) {
		<-ctx.Done()
		return MediaHandle{}, ctx.Err()
	})
	e := NewEngine(waypoints, segments, blocked)

	e.Navigate(1, DirectionForward)
	if e.CurrentContent().VideoReady {
		t.Fatal("Expected video not ready before can-play")
	}

	e.HandleVideoCanPlay()
	if !e.CurrentContent().VideoReady {
		t.Error("Expected can-play to promote readiness")
	}
}

func TestHandleTransitionEndWithoutTransition(t *testing.T) {
	e, _ := newTestEngine()
	e.HandleTransitionEnd()
	if e.CurrentIndex() != 0 {
		t.Errorf("Expected no-op, got index %d", e.CurrentIndex())
	}
}

func TestNavigateNextAndPrevWrap(t *testing.T) {
	e, _ := newTestEngine()

	e.NavigatePrev()
	if e.Transitioning() {
		e.HandleTransitionEnd()
	}
	if e.CurrentIndex() != 2 {
		t.Errorf("Expected wrap to last waypoint, got %d", e.CurrentIndex())
	}

	e.NavigateNext()
	if e.Transitioning() {
		e.HandleTransitionEnd()
	}
	if e.CurrentIndex() != 0 {
		t.Errorf("Expected wrap back to first waypoint, got %d", e.CurrentIndex())
	}
}

func TestSetSegmentsPreloadsReadyClips(t *testing.T) {
	waypoints, segments := testTour()
	cache := instantCache()
	e := NewEngine(waypoints, segments, cache)

	segments[1].AddVersion(types.Version{ID: "v1", ClipURL: "http://cdn/bc.mp4", Selected: true})
	e.SetSegments(context.Background(), segments)

	waitFor(t, "new clip to preload", func() bool { return cache.IsReady("http://cdn/bc.mp4") })
}

func TestAutoplayTickAdvancesWhenIdle(t *testing.T) {
	e, _ := newTestEngine()
	defer e.Close()

	if !e.TogglePlayback() {
		t.Fatal("Expected autoplay to turn on")
	}

	e.autoplayTick()
	if !e.Transitioning() {
		t.Fatal("Expected tick to start the a->b transition")
	}

	// Ticks while a clip is playing are dropped.
	e.autoplayTick()
	e.HandleTransitionEnd()
	if e.CurrentIndex() != 1 {
		t.Errorf("Expected index 1 after one effective tick, got %d", e.CurrentIndex())
	}

	if e.TogglePlayback() {
		t.Fatal("Expected autoplay to turn off")
	}
	e.autoplayTick()
	if e.Transitioning() || e.CurrentIndex() != 1 {
		t.Error("Expected tick to be a no-op while autoplay is off")
	}
}
