package events

import (
	"log"
	"sync"
)

// Job lifecycle event types emitted by the generation service.
const (
	TypeStarted      = "started"
	TypeInitiating   = "initiating"
	TypeProgress     = "progress"
	TypeCompleted    = "completed"
	TypeJobCompleted = "jobCompleted"
	TypeFailed       = "failed"
)

// JobEvent is one provider notification, keyed by project/job identifiers.
type JobEvent struct {
	Type       string   `json:"type"`
	ProjectID  string   `json:"project_id"`
	JobID      string   `json:"job_id,omitempty"`
	Step       int      `json:"step,omitempty"`
	StepCount  int      `json:"step_count,omitempty"`
	Worker     string   `json:"worker_name,omitempty"`
	ResultURL  string   `json:"result_url,omitempty"`
	ResultURLs []string `json:"result_urls,omitempty"`
	Message    string   `json:"message,omitempty"`
	Code       string   `json:"code,omitempty"`
}

// Subscription is a scoped view of the event feed. Closing it releases the
// feed on every exit path; callers should defer Close immediately.
type Subscription struct {
	ch     chan JobEvent
	cancel func(*Subscription)
	once   sync.Once
}

// Events returns the subscription's event channel.
func (s *Subscription) Events() <-chan JobEvent { return s.ch }

// Close detaches the subscription from the bus. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.cancel(s) })
}

// Bus is a subscribable feed of provider job lifecycle events.
type Bus interface {
	Subscribe() *Subscription
}

// InProcBus is an in-process Bus fed by Publish. It backs direct-mode SDK
// notifications and is the fan-out layer under the Kafka bus.
type InProcBus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewInProcBus creates an empty in-process bus.
func NewInProcBus() *InProcBus {
	return &InProcBus{subs: make(map[*Subscription]struct{})}
}

// Subscribe attaches a new subscription. The channel is buffered so events
// arriving before the subscriber starts reading are not lost.
func (b *InProcBus) Subscribe() *Subscription {
	sub := &Subscription{
		ch:     make(chan JobEvent, 128),
		cancel: b.remove,
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish delivers an event to every live subscription. Delivery never
// blocks; a subscriber that has fallen 128 events behind loses the event.
func (b *InProcBus) Publish(ev JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			log.Printf("events: dropping %s event for project %s (slow subscriber)", ev.Type, ev.ProjectID)
		}
	}
}

func (b *InProcBus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}
