package transport

import (
	"context"
	"fmt"
	"time"

	"tourloop/config"
	"tourloop/events"
	"tourloop/genapi"
	"tourloop/types"
)

// Direct submits generation jobs straight to the provider's project API and
// observes lifecycle events on the shared event feed.
type Direct struct {
	api     *genapi.Client
	bus     events.Bus
	timeout time.Duration
}

// NewDirect creates the direct-mode adapter.
func NewDirect(api *genapi.Client, bus events.Bus) *Direct {
	return &Direct{
		api:     api,
		bus:     bus,
		timeout: config.DirectJobTimeout,
	}
}

// Submit creates a provider project and streams its lifecycle. The
// subscription is opened before project creation so progress events that
// land before the create call returns are buffered, not lost.
func (d *Direct) Submit(ctx context.Context, req *types.GenerationRequest) (<-chan Event, error) {
	sub := d.bus.Subscribe()

	project, err := d.api.CreateProject(ctx, buildParams(req))
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("create project: %w", err)
	}

	out := make(chan Event, 16)
	go d.watch(ctx, project, sub, out)
	return out, nil
}

// watch consumes the event feed until a terminal outcome. Exactly one
// terminal event is emitted; whichever terminal source fires first wins and
// later duplicates are never read.
func (d *Direct) watch(ctx context.Context, project *genapi.Project, sub *events.Subscription, out chan<- Event) {
	defer close(out)
	defer sub.Close()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	// A job-level completion without a direct result defers to the
	// project-level completion for the output address.
	jobFinished := false

	terminal := func(ev Event) {
		ev.ProjectID = project.ID
		ev.JobID = project.JobID
		out <- ev
	}

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				terminal(Event{Type: EventFailed, Reason: "event feed closed before completion"})
				return
			}
			// Match on project ID, or job ID when the create response
			// carried one. An empty job ID must never match foreign
			// project-scoped events, which omit the field.
			if ev.ProjectID != project.ID && (project.JobID == "" || ev.JobID != project.JobID) {
				continue
			}

			switch ev.Type {
			case events.TypeStarted, events.TypeInitiating:
				out <- Event{Type: EventProgress, Percent: 0, Worker: ev.Worker}

			case events.TypeProgress:
				out <- Event{Type: EventProgress, Percent: stepPercent(ev.Step, ev.StepCount), Worker: ev.Worker}

			case events.TypeJobCompleted:
				if ev.ResultURL != "" {
					terminal(Event{Type: EventCompleted, Percent: 100, ClipURL: ev.ResultURL})
					return
				}
				jobFinished = true

			case events.TypeCompleted:
				url := ev.ResultURL
				if url == "" && len(ev.ResultURLs) > 0 {
					url = ev.ResultURLs[0]
				}
				if url != "" {
					terminal(Event{Type: EventCompleted, Percent: 100, ClipURL: url})
					return
				}
				if jobFinished {
					terminal(Event{Type: EventFailed, Reason: "generation completed without an output address"})
					return
				}

			case events.TypeFailed:
				reason := ev.Message
				if reason == "" {
					reason = fmt.Sprintf("generation failed (code %s)", ev.Code)
				}
				terminal(Event{Type: EventFailed, Reason: reason})
				return
			}

		case <-timer.C:
			terminal(Event{Type: EventFailed, Reason: fmt.Sprintf("generation timed out after %s", d.timeout)})
			return

		case <-ctx.Done():
			terminal(Event{Type: EventFailed, Reason: ctx.Err().Error()})
			return
		}
	}
}
