package playback

import (
	"sync"
	"time"
)

// RepeatingTask is a cancellable repeating timer whose body can be swapped
// while it runs. The ticker is created once and left running; rapid state
// changes swap the action through the mutable cell instead of recreating
// the timer, so the interval is never reset by a navigation.
type RepeatingTask struct {
	mu      sync.Mutex
	action  func()
	ticker  *time.Ticker
	stop    chan struct{}
	stopped sync.Once
}

// NewRepeatingTask starts a task firing at the given interval. The action
// starts empty; set it with Swap.
func NewRepeatingTask(interval time.Duration) *RepeatingTask {
	t := &RepeatingTask{
		ticker: time.NewTicker(interval),
		stop:   make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *RepeatingTask) run() {
	for {
		select {
		case <-t.ticker.C:
			t.mu.Lock()
			action := t.action
			t.mu.Unlock()
			if action != nil {
				action()
			}
		case <-t.stop:
			t.ticker.Stop()
			return
		}
	}
}

// Swap replaces the task body. The next tick invokes the new action.
func (t *RepeatingTask) Swap(action func()) {
	t.mu.Lock()
	t.action = action
	t.mu.Unlock()
}

// SetInterval changes the firing interval without restarting the task.
func (t *RepeatingTask) SetInterval(interval time.Duration) {
	t.ticker.Reset(interval)
}

// Stop ends the task. Safe to call more than once.
func (t *RepeatingTask) Stop() {
	t.stopped.Do(func() { close(t.stop) })
}
