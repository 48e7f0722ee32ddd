// Package guard decides whether a navigation may render. Scoped paths block
// behind a pending state until the store behind the slug has been verified,
// and dashboard paths additionally require the caller to own the store or be
// an admin.
package guard

import (
	"context"
	"fmt"
	"sync"

	"github.com/vitrinelive/storefront/backend"
	"github.com/vitrinelive/storefront/errors"
	"github.com/vitrinelive/storefront/identity"
	"github.com/vitrinelive/storefront/logger"
	"github.com/vitrinelive/storefront/observability"
	"github.com/vitrinelive/storefront/routes"
)

// Listener observes guard state changes.
type Listener func(State)

// Guard is the access state machine. Each Evaluate call is one cycle; the
// cycle that started last always wins, results arriving from superseded
// cycles are discarded.
type Guard struct {
	backend *backend.Client
	metrics *observability.Metrics
	log     *logger.Logger

	mu         sync.Mutex
	generation uint64
	state      State
	listeners  map[int]Listener
	nextID     int
}

// New creates a Guard in the OK state.
func New(bc *backend.Client, metrics *observability.Metrics) *Guard {
	return &Guard{
		backend:   bc,
		metrics:   metrics,
		log:       logger.GetGlobalLogger().WithComponent("guard"),
		state:     okState(),
		listeners: make(map[int]Listener),
	}
}

// Current returns the state as of the latest cycle.
func (g *Guard) Current() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Subscribe registers a state-change listener and returns its unsubscribe
// function. Listeners run synchronously on the evaluating goroutine.
func (g *Guard) Subscribe(fn Listener) func() {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextID
	g.nextID++
	g.listeners[id] = fn

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.listeners, id)
	}
}

// Evaluate runs one verification cycle for a navigation and returns its
// terminal state. For scoped paths the pending state is stored before the
// network round trip starts, so Current never shows a stale verdict while
// verification is outstanding. Failures are terminal for the cycle; there is
// no automatic retry.
func (g *Guard) Evaluate(ctx context.Context, path string, user *identity.User) State {
	class := routes.Classify(path)

	g.mu.Lock()
	g.generation++
	gen := g.generation
	g.mu.Unlock()

	switch class.Kind {
	case routes.Exempt, routes.Other:
		return g.settle(ctx, gen, class, okState())
	}

	// pending must be observable before any network call
	g.apply(gen, pendingState())

	if class.Slug == "" {
		return g.settle(ctx, gen, class, errorState(TitleStoreNotFound, msgMissingSlug))
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanGuardVerify)
	defer span.End()

	return g.settle(ctx, gen, class, g.verify(ctx, class, user))
}

// verify resolves the slug against the backend and applies the
// authorization policy for dashboard paths.
func (g *Guard) verify(ctx context.Context, class routes.Class, user *identity.User) State {
	store, err := g.backend.StoreBySlug(ctx, class.Slug)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeNotFound) {
			return errorState(TitleStoreNotFound, fmt.Sprintf(msgNoStoreMatch, class.Slug))
		}
		g.log.Warn("store verification failed", logger.ErrorFields("verify", err))
		observability.SetSpanError(ctx, err)
		return errorState(TitleError, msgRetryLater)
	}

	if class.Kind == routes.StoreScoped {
		// existence alone is enough for public store pages
		return okState()
	}

	if user == nil {
		return errorState(TitleAccessDenied, msgNotOwner)
	}
	if Authorize(user.Role, store.OwnerID, user.ID) == Deny {
		return errorState(TitleAccessDenied, msgNotOwner)
	}
	return okState()
}

// settle applies the terminal state if the cycle is still current, records
// the outcome, and returns the state computed for this cycle either way.
func (g *Guard) settle(ctx context.Context, gen uint64, class routes.Class, state State) State {
	g.apply(gen, state)
	if g.metrics != nil {
		g.metrics.RecordGuardOutcome(ctx, class.Kind.String(), state.Status.String())
	}
	return state
}

// apply stores the state unless a newer cycle has started, and notifies
// listeners of the change.
func (g *Guard) apply(gen uint64, state State) {
	g.mu.Lock()
	if gen != g.generation {
		g.mu.Unlock()
		return
	}
	g.state = state
	listeners := make([]Listener, 0, len(g.listeners))
	for _, fn := range g.listeners {
		listeners = append(listeners, fn)
	}
	g.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}
