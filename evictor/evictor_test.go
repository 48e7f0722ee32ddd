package evictor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/vitrinelive/storefront/backend"
	"github.com/vitrinelive/storefront/cart"
	"github.com/vitrinelive/storefront/cartsync"
	"github.com/vitrinelive/storefront/clock"
	"github.com/vitrinelive/storefront/httpclient"
	"github.com/vitrinelive/storefront/payment"
)

type fixture struct {
	evictor *Evictor
	cart    *cart.Store
	bus     *cartsync.Bus

	mu      sync.Mutex
	deletes []deleteCall
	block   chan struct{} // when set, DELETE handlers wait on it
	status  int
}

type deleteCall struct {
	ID             int64 `json:"id"`
	RequireExpired bool  `json:"requireExpired"`
}

func newFixture(t *testing.T, items ...backend.CartItem) *fixture {
	t.Helper()
	f := &fixture{status: http.StatusNoContent}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(backend.CartSummary{
				GrandTotal: "0.00",
				Groups: []backend.CartGroup{{
					Store: backend.Store{ID: 1},
					Items: items,
				}},
			})
		case http.MethodDelete:
			var call deleteCall
			json.NewDecoder(r.Body).Decode(&call)
			f.mu.Lock()
			f.deletes = append(f.deletes, call)
			block := f.block
			status := f.status
			f.mu.Unlock()
			if block != nil {
				<-block
			}
			w.WriteHeader(status)
		}
	}))
	t.Cleanup(srv.Close)

	bc, err := backend.New(httpclient.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}

	paySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(paySrv.Close)
	pc, err := payment.New(payment.Config{BaseURL: paySrv.URL, APIKey: "sk_test"})
	if err != nil {
		t.Fatalf("payment.New: %v", err)
	}

	f.bus = cartsync.New()
	f.cart = cart.New(bc, pc, f.bus, nil)
	if err := f.cart.Activate(context.Background(), "cus_1"); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	ticker := clock.NewTicker(time.Hour, nil)
	f.evictor = New(Config{}, f.cart, bc, f.bus, ticker, nil)
	return f
}

func (f *fixture) deleteCalls() []deleteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]deleteCall, len(f.deletes))
	copy(out, f.deletes)
	return out
}

func (f *fixture) waitDeletes(t *testing.T, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if len(f.deleteCalls()) >= n {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("expected %d delete calls, got %d", n, len(f.deleteCalls()))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestEvictor_ExpiredItemEvicted(t *testing.T) {
	t0 := time.Now()
	f := newFixture(t, backend.CartItem{ID: 9, CreatedAt: t0})

	// just before expiry, nothing happens
	f.evictor.Tick(t0.Add(5*time.Minute - time.Second))
	time.Sleep(20 * time.Millisecond)
	if got := f.deleteCalls(); len(got) != 0 {
		t.Fatalf("premature eviction: %+v", got)
	}

	// just after expiry, one guarded deletion
	f.evictor.Tick(t0.Add(5*time.Minute + time.Second))
	f.waitDeletes(t, 1)

	got := f.deleteCalls()
	if got[0].ID != 9 || !got[0].RequireExpired {
		t.Errorf("expected guarded delete of id 9, got %+v", got[0])
	}
}

func TestEvictor_SingleInFlightDeletionPerItem(t *testing.T) {
	t0 := time.Now()
	f := newFixture(t, backend.CartItem{ID: 9, CreatedAt: t0})

	f.mu.Lock()
	f.block = make(chan struct{})
	f.mu.Unlock()

	expired := t0.Add(6 * time.Minute)
	f.evictor.Tick(expired)
	f.waitDeletes(t, 1)

	// the deletion is still in flight; further ticks must not start another
	f.evictor.Tick(expired.Add(time.Second))
	f.evictor.Tick(expired.Add(2 * time.Second))
	time.Sleep(30 * time.Millisecond)
	if got := f.deleteCalls(); len(got) != 1 {
		t.Fatalf("expected a single in-flight deletion, got %d", len(got))
	}
	if !f.evictor.InFlight(9) {
		t.Error("expected id 9 to be claimed")
	}

	f.mu.Lock()
	close(f.block)
	f.block = nil
	f.mu.Unlock()

	deadline := time.After(2 * time.Second)
	for f.evictor.InFlight(9) {
		select {
		case <-deadline:
			t.Fatal("id 9 never released")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestEvictor_PublishesAfterSuccessfulEviction(t *testing.T) {
	t0 := time.Now()
	f := newFixture(t, backend.CartItem{ID: 9, CreatedAt: t0})

	published := make(chan struct{}, 4)
	f.bus.Subscribe(func() { published <- struct{}{} })

	f.evictor.Tick(t0.Add(10 * time.Minute))

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("expected bus publish after eviction")
	}
}

func TestEvictor_BackendRefusalDoesNotPublish(t *testing.T) {
	t0 := time.Now()
	f := newFixture(t, backend.CartItem{ID: 9, CreatedAt: t0})
	f.mu.Lock()
	f.status = http.StatusConflict
	f.mu.Unlock()

	published := make(chan struct{}, 4)
	f.bus.Subscribe(func() { published <- struct{}{} })

	f.evictor.Tick(t0.Add(10 * time.Minute))
	f.waitDeletes(t, 1)

	select {
	case <-published:
		t.Fatal("refused eviction must not publish")
	case <-time.After(50 * time.Millisecond):
	}

	deadline := time.After(2 * time.Second)
	for f.evictor.InFlight(9) {
		select {
		case <-deadline:
			t.Fatal("id 9 never released after refusal")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestEvictor_FailureRetriedOnLaterTick(t *testing.T) {
	t0 := time.Now()
	f := newFixture(t, backend.CartItem{ID: 9, CreatedAt: t0})
	f.mu.Lock()
	f.status = http.StatusInternalServerError
	f.mu.Unlock()

	f.evictor.Tick(t0.Add(10 * time.Minute))
	f.waitDeletes(t, 1)

	deadline := time.After(2 * time.Second)
	for f.evictor.InFlight(9) {
		select {
		case <-deadline:
			t.Fatal("id 9 never released after failure")
		case <-time.After(5 * time.Millisecond):
		}
	}

	f.evictor.Tick(t0.Add(11 * time.Minute))
	f.waitDeletes(t, 2)
}

func TestEvictor_Countdown(t *testing.T) {
	f := newFixture(t)
	t0 := time.Now()
	item := backend.CartItem{CreatedAt: t0}

	if got := f.evictor.Countdown(item, t0.Add(5*time.Minute)); got != 10*time.Minute {
		t.Errorf("expected 10m display countdown, got %v", got)
	}
	if got := f.evictor.Countdown(item, t0.Add(20*time.Minute)); got != 0 {
		t.Errorf("expected countdown clamped at zero, got %v", got)
	}
	// the display TTL never drives eviction; remaining uses the shorter TTL
	if got := f.evictor.Remaining(item, t0.Add(6*time.Minute)); got >= 0 {
		t.Errorf("expected negative remaining past reservation TTL, got %v", got)
	}
}
