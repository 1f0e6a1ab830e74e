package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// countingLoader records calls and serves scripted results per URL.
type countingLoader struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func newCountingLoader() *countingLoader {
	return &countingLoader{calls: make(map[string]int), fail: make(map[string]bool)}
}

func (l *countingLoader) load(ctx context.Context, url string) (MediaHandle, error) {
	l.mu.Lock()
	l.calls[url]++
	shouldFail := l.fail[url]
	l.mu.Unlock()
	if shouldFail {
		return MediaHandle{}, errors.New("download failed")
	}
	return MediaHandle{URL: url, DurationSeconds: 3, Width: 832, Height: 480}, nil
}

func (l *countingLoader) count(url string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[url]
}

// waitFor polls until the condition holds or the test deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestPreloadPopulatesOnce(t *testing.T) {
	loader := newCountingLoader()
	cache := NewPreloadCache(loader.load)

	cache.Preload(context.Background(), "http://cdn/clip.mp4")
	waitFor(t, "clip to become ready", func() bool { return cache.IsReady("http://cdn/clip.mp4") })

	// A second request for the same address must not reload it.
	cache.Preload(context.Background(), "http://cdn/clip.mp4")
	time.Sleep(20 * time.Millisecond)

	if got := loader.count("http://cdn/clip.mp4"); got != 1 {
		t.Errorf("Expected 1 loader call, got %d", got)
	}
}

func TestPreloadFailureAllowsRetry(t *testing.T) {
	loader := newCountingLoader()
	loader.fail["http://cdn/clip.mp4"] = true
	cache := NewPreloadCache(loader.load)

	cache.Preload(context.Background(), "http://cdn/clip.mp4")
	waitFor(t, "failed load to clear", func() bool { return loader.count("http://cdn/clip.mp4") == 1 && !cache.IsReady("http://cdn/clip.mp4") })

	// Wait for the failed entry to be removed before retrying.
	waitFor(t, "retry to be possible", func() bool {
		loader.mu.Lock()
		loader.fail["http://cdn/clip.mp4"] = false
		loader.mu.Unlock()
		cache.Preload(context.Background(), "http://cdn/clip.mp4")
		return cache.IsReady("http://cdn/clip.mp4")
	})

	if !cache.IsReady("http://cdn/clip.mp4") {
		t.Error("Expected retry to succeed after a failed load")
	}
}

func TestHandleReturnsLoadedClip(t *testing.T) {
	loader := newCountingLoader()
	cache := NewPreloadCache(loader.load)

	if _, ok := cache.Handle("http://cdn/clip.mp4"); ok {
		t.Error("Expected no handle before preload")
	}

	cache.Preload(context.Background(), "http://cdn/clip.mp4")
	waitFor(t, "clip to become ready", func() bool { return cache.IsReady("http://cdn/clip.mp4") })

	handle, ok := cache.Handle("http://cdn/clip.mp4")
	if !ok {
		t.Fatal("Expected handle after preload")
	}
	if handle.Width != 832 || handle.Height != 480 || handle.DurationSeconds != 3 {
		t.Errorf("Unexpected handle: %+v", handle)
	}
}

func TestPreloadIgnoresEmptyURL(t *testing.T) {
	loader := newCountingLoader()
	cache := NewPreloadCache(loader.load)

	cache.Preload(context.Background(), "")
	time.Sleep(10 * time.Millisecond)

	if got := loader.count(""); got != 0 {
		t.Errorf("Expected no loader calls for empty URL, got %d", got)
	}
}
