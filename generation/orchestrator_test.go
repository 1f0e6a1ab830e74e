package generation

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"tourloop/config"
	"tourloop/media"
	"tourloop/transport"
	"tourloop/types"
)

// fakeAdapter scripts the event stream per segment and attempt.
type fakeAdapter struct {
	mu     sync.Mutex
	calls  map[string]int
	script func(segmentID string, attempt int) []transport.Event
}

func newFakeAdapter(script func(segmentID string, attempt int) []transport.Event) *fakeAdapter {
	return &fakeAdapter{calls: make(map[string]int), script: script}
}

func (f *fakeAdapter) Submit(ctx context.Context, req *types.GenerationRequest) (<-chan transport.Event, error) {
	f.mu.Lock()
	f.calls[req.Segment.ID]++
	attempt := f.calls[req.Segment.ID]
	f.mu.Unlock()

	evs := f.script(req.Segment.ID, attempt)
	ch := make(chan transport.Event, len(evs))
	for _, ev := range evs {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (f *fakeAdapter) attempts(segmentID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[segmentID]
}

func testSegments(n int) ([]*types.Segment, map[string]types.ImageRef) {
	images := make(map[string]types.ImageRef)
	segments := make([]*types.Segment, 0, n)
	for i := 0; i < n; i++ {
		from := fmt.Sprintf("wp%d", i)
		to := fmt.Sprintf("wp%d", (i+1)%n)
		images[from] = types.EmbeddedImage([]byte{byte(i)}, "image/png")
		segments = append(segments, &types.Segment{
			ID:             fmt.Sprintf("seg%d", i),
			FromWaypointID: from,
			ToWaypointID:   to,
			Status:         types.StatusPending,
		})
	}
	return segments, images
}

func newTestOrchestrator(adapter transport.Adapter) *Orchestrator {
	return NewOrchestrator(adapter, media.NewResolver(media.ResolverConfig{}))
}

func TestGenerateBatchSuccess(t *testing.T) {
	adapter := newFakeAdapter(func(segmentID string, attempt int) []transport.Event {
		return []transport.Event{
			{Type: transport.EventProgress, Percent: 50, Worker: "worker-1"},
			{Type: transport.EventCompleted, Percent: 100, ClipURL: "http://cdn/" + segmentID + ".mp4"},
		}
	})

	segments, images := testSegments(3)
	var mu sync.Mutex
	completed := make(map[string]types.Version)

	results := newTestOrchestrator(adapter).GenerateBatch(context.Background(), segments, images, Options{}, Callbacks{
		SegmentComplete: func(segmentID string, version types.Version) {
			mu.Lock()
			completed[segmentID] = version
			mu.Unlock()
		},
	})

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for _, seg := range segments {
		res := results[seg.ID]
		if res == nil {
			t.Fatalf("Expected result for %s", seg.ID)
		}
		if !seg.Playable() {
			t.Errorf("Expected %s to be playable, status=%s clip=%q", seg.ID, seg.Status, seg.ClipURL)
		}
		if len(seg.Versions) != 1 || !seg.Versions[0].Selected {
			t.Errorf("Expected one selected version on %s", seg.ID)
		}
		if _, ok := completed[seg.ID]; !ok {
			t.Errorf("Expected SegmentComplete callback for %s", seg.ID)
		}
	}
}

func TestRetryThenSucceed(t *testing.T) {
	adapter := newFakeAdapter(func(segmentID string, attempt int) []transport.Event {
		if attempt < 3 {
			return []transport.Event{
				{Type: transport.EventProgress, Percent: 40},
				{Type: transport.EventFailed, Reason: "worker crashed"},
			}
		}
		return []transport.Event{{Type: transport.EventCompleted, ClipURL: "http://cdn/final.mp4"}}
	})

	segments, images := testSegments(1)
	var mu sync.Mutex
	var zeroResets int

	results := newTestOrchestrator(adapter).GenerateBatch(context.Background(), segments, images, Options{}, Callbacks{
		Progress: func(segmentID string, percent int, worker string) {
			if percent == 0 {
				mu.Lock()
				zeroResets++
				mu.Unlock()
			}
		},
	})

	if adapter.attempts("seg0") != 3 {
		t.Errorf("Expected 3 attempts, got %d", adapter.attempts("seg0"))
	}
	if results["seg0"] == nil {
		t.Fatal("Expected the third attempt to succeed")
	}
	if segments[0].ClipURL != "http://cdn/final.mp4" {
		t.Errorf("Expected final clip URL, got %s", segments[0].ClipURL)
	}
	// Progress resets to 0 at the start of every attempt.
	if zeroResets < 3 {
		t.Errorf("Expected at least 3 zero-progress resets, got %d", zeroResets)
	}
}

func TestRetryBoundStopsAfterMaxAttempts(t *testing.T) {
	adapter := newFakeAdapter(func(segmentID string, attempt int) []transport.Event {
		return []transport.Event{{Type: transport.EventFailed, Reason: "worker crashed"}}
	})

	segments, images := testSegments(1)
	var mu sync.Mutex
	var errorCalls int

	results := newTestOrchestrator(adapter).GenerateBatch(context.Background(), segments, images, Options{}, Callbacks{
		SegmentError: func(segmentID string, err error) {
			mu.Lock()
			errorCalls++
			mu.Unlock()
		},
	})

	if got := adapter.attempts("seg0"); got != config.MaxGenerationAttempts {
		t.Errorf("Expected %d attempts, got %d", config.MaxGenerationAttempts, got)
	}
	if results["seg0"] != nil {
		t.Error("Expected nil result for exhausted segment")
	}
	if segments[0].Status != types.StatusFailed {
		t.Errorf("Expected failed status, got %s", segments[0].Status)
	}
	if errorCalls != 1 {
		t.Errorf("Expected exactly one SegmentError call, got %d", errorCalls)
	}
}

func TestOutOfCreditsNotifiesOnce(t *testing.T) {
	adapter := newFakeAdapter(func(segmentID string, attempt int) []transport.Event {
		return []transport.Event{{Type: transport.EventFailed, Reason: "Insufficient funds"}}
	})

	segments, images := testSegments(5)
	var mu sync.Mutex
	creditCalls := 0
	segmentErrors := make(map[string]string)

	newTestOrchestrator(adapter).GenerateBatch(context.Background(), segments, images, Options{}, Callbacks{
		OutOfCredits: func() {
			mu.Lock()
			creditCalls++
			mu.Unlock()
		},
		SegmentError: func(segmentID string, err error) {
			mu.Lock()
			segmentErrors[segmentID] = err.Error()
			mu.Unlock()
		},
	})

	if creditCalls != 1 {
		t.Errorf("Expected exactly one OutOfCredits notification, got %d", creditCalls)
	}
	for _, seg := range segments {
		// Credits failures abort the retry loop on the first attempt.
		if got := adapter.attempts(seg.ID); got != 1 {
			t.Errorf("Expected 1 attempt for %s, got %d", seg.ID, got)
		}
		if segmentErrors[seg.ID] != config.CreditsExhaustedMessage {
			t.Errorf("Expected shared credits error for %s, got %q", seg.ID, segmentErrors[seg.ID])
		}
	}
}

func TestMissingImageFailsWithoutSubmitting(t *testing.T) {
	adapter := newFakeAdapter(func(segmentID string, attempt int) []transport.Event {
		return []transport.Event{{Type: transport.EventCompleted, ClipURL: "http://cdn/clip.mp4"}}
	})

	segments, images := testSegments(2)
	// Point seg1 at a waypoint with no image; the fixture is cyclic, so
	// deleting a shared waypoint image would break seg0's endpoints too.
	segments[1].ToWaypointID = "wp-missing"

	var mu sync.Mutex
	var failedID string

	results := newTestOrchestrator(adapter).GenerateBatch(context.Background(), segments, images, Options{}, Callbacks{
		SegmentError: func(segmentID string, err error) {
			mu.Lock()
			failedID = segmentID
			mu.Unlock()
		},
	})

	if results["seg0"] == nil {
		t.Error("Expected healthy segment to succeed")
	}
	if results["seg1"] != nil {
		t.Error("Expected segment with missing image to be excluded")
	}
	if adapter.attempts("seg1") != 0 {
		t.Errorf("Expected no submission for excluded segment, got %d", adapter.attempts("seg1"))
	}
	if failedID != "seg1" {
		t.Errorf("Expected SegmentError for seg1, got %q", failedID)
	}
}

func TestBatchCompleteFiresLast(t *testing.T) {
	adapter := newFakeAdapter(func(segmentID string, attempt int) []transport.Event {
		return []transport.Event{{Type: transport.EventCompleted, ClipURL: "http://cdn/clip.mp4"}}
	})

	segments, images := testSegments(4)
	var mu sync.Mutex
	perSegment := 0
	batchSaw := -1

	newTestOrchestrator(adapter).GenerateBatch(context.Background(), segments, images, Options{}, Callbacks{
		SegmentComplete: func(segmentID string, version types.Version) {
			mu.Lock()
			perSegment++
			mu.Unlock()
		},
		BatchComplete: func(results map[string]*Result) {
			mu.Lock()
			batchSaw = perSegment
			mu.Unlock()
			if len(results) != 4 {
				t.Errorf("Expected 4 entries in batch results, got %d", len(results))
			}
		},
	})

	if batchSaw != 4 {
		t.Errorf("Expected BatchComplete to fire after all 4 segment callbacks, saw %d", batchSaw)
	}
}
