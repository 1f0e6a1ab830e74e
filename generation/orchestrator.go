// Package generation fans a batch of segment requests out to a transport
// adapter concurrently, applying per-segment retry and error policy.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"tourloop/config"
	"tourloop/media"
	"tourloop/transport"
	"tourloop/types"
)

// Result records a successful generation for one segment.
type Result struct {
	ClipURL string
	Version types.Version
}

// Options are the batch-wide generation parameters.
type Options struct {
	Prompt          string
	NegativePrompt  string
	Resolution      types.ResolutionTier
	Preset          types.QualityPreset
	DurationSeconds float64
	Currency        string
	SourceWidth     int
	SourceHeight    int
}

// Callbacks report batch progress. Any field may be nil.
type Callbacks struct {
	// Progress is invoked with 0-100 percent any number of times per
	// segment; it resets to 0 before each retry attempt.
	Progress func(segmentID string, percent int, worker string)
	// SegmentComplete fires once per successful segment with the new
	// selected version.
	SegmentComplete func(segmentID string, version types.Version)
	// SegmentError fires once per failed segment with the last error.
	SegmentError func(segmentID string, err error)
	// OutOfCredits fires at most once per batch, on the first
	// non-retryable credits failure.
	OutOfCredits func()
	// BatchComplete fires exactly once, after every per-segment callback.
	BatchComplete func(results map[string]*Result)
}

func (c Callbacks) progress(segmentID string, percent int, worker string) {
	if c.Progress != nil {
		c.Progress(segmentID, percent, worker)
	}
}

func (c Callbacks) segmentComplete(segmentID string, version types.Version) {
	if c.SegmentComplete != nil {
		c.SegmentComplete(segmentID, version)
	}
}

func (c Callbacks) segmentError(segmentID string, err error) {
	if c.SegmentError != nil {
		c.SegmentError(segmentID, err)
	}
}

// Orchestrator issues many concurrent generation jobs through one transport
// adapter. The adapter is injected per instance; transport selection belongs
// to the caller.
type Orchestrator struct {
	adapter  transport.Adapter
	resolver *media.Resolver
	attempts int
}

// NewOrchestrator creates an orchestrator bound to one transport adapter.
func NewOrchestrator(adapter transport.Adapter, resolver *media.Resolver) *Orchestrator {
	return &Orchestrator{
		adapter:  adapter,
		resolver: resolver,
		attempts: config.MaxGenerationAttempts,
	}
}

// attemptOutcome is the terminal result of one submission attempt.
type attemptOutcome struct {
	clipURL   string
	projectID string
	jobID     string
}

// GenerateBatch runs every eligible segment concurrently and returns one
// entry per input segment: a Result on success, nil on failure. All
// submissions are issued up front; the service's own scheduling handles
// load. The batch-complete callback fires after the last per-segment
// callback, regardless of individual outcomes.
func (o *Orchestrator) GenerateBatch(
	ctx context.Context,
	segments []*types.Segment,
	images map[string]types.ImageRef,
	opts Options,
	cb Callbacks,
) map[string]*Result {
	results := make(map[string]*Result, len(segments))
	var resultsMu sync.Mutex

	// One-shot guard so concurrent credits failures notify once per batch.
	var creditsOnce sync.Once
	notifyOutOfCredits := func() {
		creditsOnce.Do(func() {
			if cb.OutOfCredits != nil {
				cb.OutOfCredits()
			}
		})
	}

	var wg sync.WaitGroup
	for _, seg := range segments {
		fromRef, fromOK := images[seg.FromWaypointID]
		toRef, toOK := images[seg.ToWaypointID]
		if !fromOK || !toOK {
			missing := seg.FromWaypointID
			if fromOK {
				missing = seg.ToWaypointID
			}
			err := fmt.Errorf("segment %s: no image for waypoint %s", seg.ID, missing)
			seg.Status = types.StatusFailed
			seg.Error = err.Error()
			resultsMu.Lock()
			results[seg.ID] = nil
			resultsMu.Unlock()
			cb.segmentError(seg.ID, err)
			continue
		}

		wg.Add(1)
		go func(seg *types.Segment, fromRef, toRef types.ImageRef) {
			defer wg.Done()
			res := o.generateSegment(ctx, seg, fromRef, toRef, opts, cb, notifyOutOfCredits)
			resultsMu.Lock()
			results[seg.ID] = res
			resultsMu.Unlock()
		}(seg, fromRef, toRef)
	}

	wg.Wait()

	if cb.BatchComplete != nil {
		cb.BatchComplete(results)
	}
	return results
}

// generateSegment runs the per-segment retry loop: strictly sequential
// attempts, immediate retry on transient failures (each attempt lands on a
// different backing worker, so backoff buys nothing), hard stop on the
// credits/authorization class.
func (o *Orchestrator) generateSegment(
	ctx context.Context,
	seg *types.Segment,
	fromRef, toRef types.ImageRef,
	opts Options,
	cb Callbacks,
	notifyOutOfCredits func(),
) *Result {
	seg.Status = types.StatusGenerating
	seg.Error = ""

	var lastErr error
	for attempt := 1; attempt <= o.attempts; attempt++ {
		seg.Progress = 0
		seg.Worker = ""
		cb.progress(seg.ID, 0, "")

		outcome, err := o.attempt(ctx, seg, fromRef, toRef, opts, cb)
		if err == nil {
			version := types.Version{
				ID:                uuid.New().String(),
				ClipURL:           outcome.clipURL,
				CreatedAt:         time.Now().UTC(),
				ProviderProjectID: outcome.projectID,
				ProviderJobID:     outcome.jobID,
				Selected:          true,
			}
			seg.AddVersion(version)
			seg.Progress = 100
			cb.segmentComplete(seg.ID, version)
			return &Result{ClipURL: outcome.clipURL, Version: version}
		}

		lastErr = err
		if NonRetryable(err.Error()) {
			notifyOutOfCredits()
			lastErr = ErrInsufficientCredits
			break
		}
		log.Printf("Segment %s attempt %d/%d failed: %v", seg.ID, attempt, o.attempts, err)
	}

	seg.Status = types.StatusFailed
	seg.Error = lastErr.Error()
	cb.segmentError(seg.ID, lastErr)
	return nil
}

// attempt performs one submission: resolve both endpoint images, submit to
// the adapter, and drain the event stream to its terminal outcome.
func (o *Orchestrator) attempt(
	ctx context.Context,
	seg *types.Segment,
	fromRef, toRef types.ImageRef,
	opts Options,
	cb Callbacks,
) (*attemptOutcome, error) {
	fromImage, err := o.resolver.Resolve(ctx, fromRef)
	if err != nil {
		return nil, fmt.Errorf("resolve start image: %w", err)
	}
	toImage, err := o.resolver.Resolve(ctx, toRef)
	if err != nil {
		return nil, fmt.Errorf("resolve end image: %w", err)
	}

	req := &types.GenerationRequest{
		Segment:         seg,
		FromImage:       fromImage,
		ToImage:         toImage,
		Prompt:          opts.Prompt,
		NegativePrompt:  opts.NegativePrompt,
		Resolution:      opts.Resolution,
		Preset:          opts.Preset,
		DurationSeconds: opts.DurationSeconds,
		Currency:        opts.Currency,
		SourceWidth:     opts.SourceWidth,
		SourceHeight:    opts.SourceHeight,
	}

	stream, err := o.adapter.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	for ev := range stream {
		switch ev.Type {
		case transport.EventProgress:
			seg.Progress = ev.Percent
			if ev.Worker != "" {
				seg.Worker = ev.Worker
			}
			cb.progress(seg.ID, ev.Percent, ev.Worker)

		case transport.EventCompleted:
			return &attemptOutcome{
				clipURL:   ev.ClipURL,
				projectID: ev.ProjectID,
				jobID:     ev.JobID,
			}, nil

		case transport.EventFailed:
			return nil, errors.New(ev.Reason)
		}
	}
	return nil, errors.New("event stream ended without a terminal outcome")
}
