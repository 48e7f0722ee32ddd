// Package clock provides the process-wide 1 Hz ticker that drives reservation
// expiry checks, countdown display, and notification sweeping. A single ticker
// feeds every listener so the authoritative TTL check and any display
// countdown can never drift onto separate timers.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/vitrinelive/storefront/component"
	"github.com/vitrinelive/storefront/logger"
)

// DefaultInterval is the production tick rate.
const DefaultInterval = time.Second

// Listener receives the current time on every tick.
type Listener func(now time.Time)

// Ticker is the shared time source. It implements component.Component.
// Ticks fire on schedule regardless of how long listeners take; listeners
// must guard their own re-entrancy (the evictor does this with its
// in-flight set).
type Ticker struct {
	interval time.Duration
	log      *logger.Logger

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
	running   bool
	stop      chan struct{}
	done      chan struct{}
}

// NewTicker creates a ticker with the given interval. Zero or negative
// intervals fall back to DefaultInterval. A nil logger falls back to the
// global one.
func NewTicker(interval time.Duration, log *logger.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Ticker{
		interval:  interval,
		log:       log.WithComponent("clock"),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers a listener and returns its unsubscribe function.
// Listeners are invoked sequentially on the tick goroutine.
func (t *Ticker) Subscribe(fn Listener) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	t.listeners[id] = fn

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.listeners, id)
	}
}

// Name implements component.Component.
func (t *Ticker) Name() string { return "clock" }

// Start begins ticking in a background goroutine.
func (t *Ticker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = true
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	t.mu.Unlock()

	go t.run()

	t.log.Debug("Ticker started", logger.Fields("interval", t.interval.String()))
	return nil
}

// Stop halts the tick loop and waits for it to drain.
func (t *Ticker) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	close(t.stop)
	done := t.done
	t.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Health implements component.Component.
func (t *Ticker) Health(ctx context.Context) component.Health {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := component.StatusHealthy
	if !t.running {
		status = component.StatusUnhealthy
	}
	return component.Health{Name: t.Name(), Status: status}
}

// Tick invokes all listeners once with the given time. Exposed so the
// evictor and notification sweeps can be driven deterministically in tests.
func (t *Ticker) Tick(now time.Time) {
	t.mu.Lock()
	snapshot := make([]Listener, 0, len(t.listeners))
	for _, fn := range t.listeners {
		snapshot = append(snapshot, fn)
	}
	t.mu.Unlock()

	for _, fn := range snapshot {
		fn(now)
	}
}

func (t *Ticker) run() {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case now := <-ticker.C:
			t.Tick(now)
		}
	}
}
