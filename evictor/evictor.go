// Package evictor removes expired reservations. It scans the cart snapshot
// once per clock tick, issues guarded deletions for rows past their
// reservation TTL, and lets the backend have the final word by asking it to
// re-validate expiry on every delete.
package evictor

import (
	"context"
	"sync"
	"time"

	"github.com/vitrinelive/storefront/backend"
	"github.com/vitrinelive/storefront/cart"
	"github.com/vitrinelive/storefront/cartsync"
	"github.com/vitrinelive/storefront/clock"
	"github.com/vitrinelive/storefront/component"
	"github.com/vitrinelive/storefront/errors"
	"github.com/vitrinelive/storefront/logger"
	"github.com/vitrinelive/storefront/observability"
)

// Config holds the two TTLs. ReservationTTL is the deletion trigger;
// DisplayTTL only drives the countdown shown to the buyer and never causes a
// deletion.
type Config struct {
	ReservationTTL time.Duration `mapstructure:"reservation_ttl"`
	DisplayTTL     time.Duration `mapstructure:"display_ttl"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.ReservationTTL <= 0 {
		c.ReservationTTL = 5 * time.Minute
	}
	if c.DisplayTTL <= 0 {
		c.DisplayTTL = 15 * time.Minute
	}
}

// Evictor watches the snapshot and deletes expired reservations.
type Evictor struct {
	cfg     Config
	cart    *cart.Store
	backend *backend.Client
	bus     *cartsync.Bus
	ticker  *clock.Ticker
	metrics *observability.Metrics
	log     *logger.Logger

	mu       sync.Mutex
	inFlight map[int64]struct{}
	unsub    func()
}

// New creates an Evictor wired to the shared ticker. Call Start to begin
// evicting.
func New(cfg Config, cs *cart.Store, bc *backend.Client, bus *cartsync.Bus, ticker *clock.Ticker, metrics *observability.Metrics) *Evictor {
	cfg.ApplyDefaults()
	return &Evictor{
		cfg:      cfg,
		cart:     cs,
		backend:  bc,
		bus:      bus,
		ticker:   ticker,
		metrics:  metrics,
		log:      logger.GetGlobalLogger().WithComponent("evictor"),
		inFlight: make(map[int64]struct{}),
	}
}

// Name implements component.Component.
func (e *Evictor) Name() string { return "evictor" }

// Start subscribes to the shared ticker.
func (e *Evictor) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unsub != nil {
		return nil
	}
	e.unsub = e.ticker.Subscribe(e.Tick)
	e.log.Info("evictor started", logger.Fields(
		"reservation_ttl", e.cfg.ReservationTTL.String(),
		"display_ttl", e.cfg.DisplayTTL.String(),
	))
	return nil
}

// Stop unsubscribes from the ticker. In-flight deletions are left to settle.
func (e *Evictor) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unsub != nil {
		e.unsub()
		e.unsub = nil
	}
	return nil
}

// Health implements component.Component.
func (e *Evictor) Health(ctx context.Context) component.Health {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := component.StatusHealthy
	if e.unsub == nil {
		status = component.StatusUnhealthy
	}
	return component.Health{Name: e.Name(), Status: status}
}

// Tick scans the snapshot for expired rows. Exported so tests can drive
// eviction deterministically without the real ticker.
func (e *Evictor) Tick(now time.Time) {
	groups, _ := e.cart.Snapshot()
	for _, g := range groups {
		for _, item := range g.Items {
			if e.Remaining(item, now) > 0 {
				continue
			}
			if !e.claim(item.ID) {
				continue
			}
			go e.evict(item.ID)
		}
	}
}

// Remaining returns time left before the reservation expires.
func (e *Evictor) Remaining(item backend.CartItem, now time.Time) time.Duration {
	return e.cfg.ReservationTTL - now.Sub(item.CreatedAt)
}

// Countdown returns the display countdown for the item, clamped at zero.
// This value renders the badge on the cart view and never triggers a
// deletion.
func (e *Evictor) Countdown(item backend.CartItem, now time.Time) time.Duration {
	remaining := e.cfg.DisplayTTL - now.Sub(item.CreatedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// claim reserves the id for one in-flight deletion. Returns false when a
// deletion for the id is already running.
func (e *Evictor) claim(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[id]; busy {
		return false
	}
	e.inFlight[id] = struct{}{}
	return true
}

func (e *Evictor) release(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, id)
}

// evict issues the guarded deletion. The id is released whether the call
// succeeds or fails, so a failed eviction is naturally retried on a later
// tick while the row still shows as expired.
func (e *Evictor) evict(id int64) {
	defer e.release(id)

	ctx, span := observability.StartSpan(context.Background(), observability.SpanEviction)
	defer span.End()

	err := e.backend.DeleteCartItem(ctx, id, true)
	switch {
	case err == nil:
		e.log.Info("expired reservation evicted", logger.Fields("item_id", id))
		e.recordEviction(ctx, "evicted")
		e.bus.Publish()
	case errors.HasCode(err, errors.ErrCodeNotExpired):
		// our clock ran ahead of the backend's; it keeps the row
		e.log.Debug("backend refused eviction, reservation still live", logger.Fields("item_id", id))
		e.recordEviction(ctx, "refused")
	default:
		observability.SetSpanError(ctx, err)
		e.log.Warn("eviction failed", logger.ErrorFields("evict", err))
		e.recordEviction(ctx, "failed")
	}
}

// InFlight reports whether a deletion for the id is currently running.
func (e *Evictor) InFlight(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, busy := e.inFlight[id]
	return busy
}

func (e *Evictor) recordEviction(ctx context.Context, outcome string) {
	if e.metrics != nil {
		e.metrics.RecordEviction(ctx, outcome)
	}
}
