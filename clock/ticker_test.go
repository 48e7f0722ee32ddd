package clock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vitrinelive/storefront/component"
	"github.com/vitrinelive/storefront/logger"
)

func testTicker(interval time.Duration) *Ticker {
	return NewTicker(interval, logger.NewDefault("test"))
}

func TestTicker_TickReachesAllListeners(t *testing.T) {
	tk := testTicker(time.Hour)

	var a, b int32
	tk.Subscribe(func(time.Time) { atomic.AddInt32(&a, 1) })
	tk.Subscribe(func(time.Time) { atomic.AddInt32(&b, 1) })

	tk.Tick(time.Now())
	tk.Tick(time.Now())

	if a != 2 || b != 2 {
		t.Errorf("expected both listeners called twice, got a=%d b=%d", a, b)
	}
}

func TestTicker_Unsubscribe(t *testing.T) {
	tk := testTicker(time.Hour)

	var calls int32
	unsub := tk.Subscribe(func(time.Time) { atomic.AddInt32(&calls, 1) })

	tk.Tick(time.Now())
	unsub()
	tk.Tick(time.Now())

	if calls != 1 {
		t.Errorf("expected 1 call after unsubscribe, got %d", calls)
	}
}

func TestTicker_StartStop(t *testing.T) {
	tk := testTicker(5 * time.Millisecond)

	var calls int32
	tk.Subscribe(func(time.Time) { atomic.AddInt32(&calls, 1) })

	ctx := context.Background()
	if err := tk.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := tk.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy while running, got %s", h.Status)
	}

	time.Sleep(30 * time.Millisecond)
	if err := tk.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if atomic.LoadInt32(&calls) == 0 {
		t.Error("expected at least one tick while running")
	}
	if h := tk.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy after stop, got %s", h.Status)
	}

	// No ticks after stop.
	settled := atomic.LoadInt32(&calls)
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&calls) != settled {
		t.Error("ticker kept firing after Stop")
	}
}

func TestTicker_StartIdempotent(t *testing.T) {
	tk := testTicker(time.Hour)
	ctx := context.Background()

	if err := tk.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := tk.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if err := tk.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
