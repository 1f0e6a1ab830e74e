// Package playback owns the client-side tour state: the preload cache of
// ready clips and the navigation engine that bridges waypoints with them.
package playback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// MediaHandle is a loaded, ready-to-play clip.
type MediaHandle struct {
	URL             string
	LocalPath       string
	DurationSeconds float64
	Width           int
	Height          int
}

// LoaderFunc loads one clip address into a ready media handle.
type LoaderFunc func(ctx context.Context, url string) (MediaHandle, error)

type cacheEntry struct {
	ready  bool
	handle MediaHandle
}

// PreloadCache maps clip addresses to ready-to-play media handles. It is an
// explicitly owned service with the lifetime of one project session: created
// at open, torn down at close, never persisted, never evicting.
type PreloadCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	loader  LoaderFunc
}

// NewPreloadCache creates a cache. A nil loader gets DownloadAndProbe.
func NewPreloadCache(loader LoaderFunc) *PreloadCache {
	if loader == nil {
		loader = DownloadAndProbe
	}
	return &PreloadCache{
		entries: make(map[string]*cacheEntry),
		loader:  loader,
	}
}

// Preload begins loading a clip address in the background. Fire-and-forget:
// it never blocks the caller, and an address already present (loading or
// ready) is not reloaded.
func (c *PreloadCache) Preload(ctx context.Context, url string) {
	if url == "" {
		return
	}
	c.mu.Lock()
	if _, exists := c.entries[url]; exists {
		c.mu.Unlock()
		return
	}
	entry := &cacheEntry{}
	c.entries[url] = entry
	c.mu.Unlock()

	go func() {
		handle, err := c.loader(ctx, url)
		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			// Allow a later Preload to retry the address.
			delete(c.entries, url)
			log.Printf("Preload failed for %s: %v", url, err)
			return
		}
		entry.handle = handle
		entry.ready = true
	}()
}

// IsReady reports whether a clip address is loaded and playable.
func (c *PreloadCache) IsReady(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[url]
	return ok && entry.ready
}

// Handle returns the ready media handle for a clip address.
func (c *PreloadCache) Handle(url string) (MediaHandle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[url]
	if !ok || !entry.ready {
		return MediaHandle{}, false
	}
	return entry.handle, true
}

// DownloadAndProbe is the default loader: it downloads the clip to a temp
// file and probes it for duration and dimensions.
func DownloadAndProbe(ctx context.Context, url string) (MediaHandle, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("tourloop_%s.mp4", uuid.New().String()))
	if err := downloadFile(ctx, url, path); err != nil {
		return MediaHandle{}, fmt.Errorf("failed to download clip: %w", err)
	}

	duration, width, height, err := probeClip(path)
	if err != nil {
		os.Remove(path)
		return MediaHandle{}, fmt.Errorf("failed to probe clip: %w", err)
	}

	return MediaHandle{
		URL:             url,
		LocalPath:       path,
		DurationSeconds: duration,
		Width:           width,
		Height:          height,
	}, nil
}

func downloadFile(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download: status %d", resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// probeClip reads duration and video dimensions with ffprobe.
func probeClip(path string) (duration float64, width, height int, err error) {
	raw, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, 0, 0, err
	}

	var probed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal([]byte(raw), &probed); err != nil {
		return 0, 0, 0, err
	}

	duration, _ = strconv.ParseFloat(probed.Format.Duration, 64)
	for _, stream := range probed.Streams {
		if stream.CodecType == "video" {
			width, height = stream.Width, stream.Height
			break
		}
	}
	return duration, width, height, nil
}
