// Package cart owns the process-wide cart snapshot. Every view reads from
// the same snapshot, every mutation goes through the backend first, and the
// invalidation bus brings all readers back in sync after each acknowledged
// write.
package cart

import (
	"context"
	"strings"
	"sync"

	"github.com/vitrinelive/storefront/backend"
	"github.com/vitrinelive/storefront/cartsync"
	"github.com/vitrinelive/storefront/errors"
	"github.com/vitrinelive/storefront/logger"
	"github.com/vitrinelive/storefront/observability"
	"github.com/vitrinelive/storefront/payment"
)

// AddItem is a request to reserve a product.
type AddItem struct {
	StoreID          int64
	ProductReference string
	UnitValue        string
	Quantity         int
	Weight           string
}

// Store holds the cached cart snapshot for the active customer.
type Store struct {
	backend  *backend.Client
	payments *payment.Client
	bus      *cartsync.Bus
	metrics  *observability.Metrics
	log      *logger.Logger

	mu          sync.RWMutex
	customerIDs map[string]string
	customerID  string
	groups      []backend.CartGroup
	grandTotal  string
	generation  uint64
}

// New creates a Store and subscribes it to the bus so that any published
// mutation, its own included, triggers a background refresh.
func New(bc *backend.Client, pc *payment.Client, bus *cartsync.Bus, metrics *observability.Metrics) *Store {
	s := &Store{
		backend:     bc,
		payments:    pc,
		bus:         bus,
		metrics:     metrics,
		log:         logger.GetGlobalLogger().WithComponent("cart"),
		customerIDs: make(map[string]string),
	}
	bus.Subscribe(func() {
		go func() {
			if err := s.Refresh(context.Background()); err != nil {
				s.log.Warn("cart refresh after publish failed", logger.ErrorFields("refresh", err))
			}
		}()
	})
	return s
}

// ResolveCustomerID returns the payment customer id for the email, resolving
// it through the payment provider on first use and memoizing afterwards.
func (s *Store) ResolveCustomerID(ctx context.Context, email string) (string, error) {
	s.mu.RLock()
	id, ok := s.customerIDs[email]
	s.mu.RUnlock()
	if ok {
		return id, nil
	}

	id, err := s.payments.Resolve(ctx, email)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.customerIDs[email] = id
	s.mu.Unlock()
	return id, nil
}

// Activate binds the store to a customer and loads their snapshot. Switching
// customers clears the previous snapshot before fetching.
func (s *Store) Activate(ctx context.Context, customerID string) error {
	s.mu.Lock()
	if s.customerID != customerID {
		s.customerID = customerID
		s.groups = nil
		s.grandTotal = ""
	}
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// EnsureActive binds the store to the customer only when it is not already
// the active one. Unlike Activate it does not force a refetch for the
// common case of consecutive requests from the same session.
func (s *Store) EnsureActive(ctx context.Context, customerID string) error {
	s.mu.RLock()
	current := s.customerID
	s.mu.RUnlock()
	if current == customerID {
		return nil
	}
	return s.Activate(ctx, customerID)
}

// Refresh refetches the full snapshot. Each call claims a new generation
// before the network round trip; a result that comes back after a newer
// refresh has claimed the counter is discarded, so out-of-order completions
// never roll the snapshot backwards. A failed fetch leaves the previous
// snapshot in place.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	customerID := s.customerID
	s.mu.Unlock()

	if customerID == "" {
		return nil
	}

	summary, err := s.backend.CartSummary(ctx, customerID)
	if err != nil {
		s.recordRefresh("error")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.recordRefresh("stale")
		return nil
	}
	s.groups = summary.Groups
	s.grandTotal = summary.GrandTotal
	s.recordRefresh("ok")
	return nil
}

// Snapshot returns a copy of the current groups and the grand total.
func (s *Store) Snapshot() ([]backend.CartGroup, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]backend.CartGroup, len(s.groups))
	for i, g := range s.groups {
		items := make([]backend.CartItem, len(g.Items))
		copy(items, g.Items)
		g.Items = items
		groups[i] = g
	}
	return groups, s.grandTotal
}

// AddOrMerge reserves a product. When the backend reports the reference is
// already in the cart for that store, the existing row's quantity is bumped
// instead of failing. Publishes on the bus after the backend has
// acknowledged the write.
func (s *Store) AddOrMerge(ctx context.Context, item AddItem) error {
	s.mu.RLock()
	customerID := s.customerID
	s.mu.RUnlock()
	if customerID == "" {
		return errors.InvalidInput("customer", "no active customer")
	}

	_, err := s.backend.CreateCartItem(ctx, backend.CreateItemRequest{
		CustomerID:       customerID,
		StoreID:          item.StoreID,
		ProductReference: item.ProductReference,
		UnitValue:        item.UnitValue,
		Quantity:         item.Quantity,
		Weight:           item.Weight,
	})
	if err == nil {
		s.bus.Publish()
		return nil
	}
	if !errors.HasCode(err, errors.ErrCodeReferenceConflict) {
		return err
	}

	existing, findErr := s.findItem(ctx, customerID, item.StoreID, item.ProductReference)
	if findErr != nil {
		return findErr
	}
	if existing == nil {
		// conflict reported but no matching row visible even after a
		// refetch; surface the original conflict
		return err
	}

	if err := s.backend.UpdateQuantity(ctx, existing.ID, existing.Quantity+item.Quantity); err != nil {
		return err
	}
	s.log.Info("merged duplicate reference into existing reservation",
		logger.Fields("item_id", existing.ID, "reference", item.ProductReference))
	s.bus.Publish()
	return nil
}

// UpdateQuantity sets the quantity of a reservation and publishes.
func (s *Store) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	if quantity < 1 {
		return errors.InvalidInput("quantity", "must be at least 1")
	}
	if err := s.backend.UpdateQuantity(ctx, id, quantity); err != nil {
		return err
	}
	s.bus.Publish()
	return nil
}

// Delete removes a reservation at the user's request and publishes. Rows the
// backend no longer knows about count as deleted.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.backend.DeleteCartItem(ctx, id, false); err != nil {
		return err
	}
	s.bus.Publish()
	return nil
}

// findItem locates the row for (storeID, reference) in the snapshot,
// refetching once when the cached snapshot does not have it yet.
func (s *Store) findItem(ctx context.Context, customerID string, storeID int64, reference string) (*backend.CartItem, error) {
	if item := s.lookupSnapshot(storeID, reference); item != nil {
		return item, nil
	}

	summary, err := s.backend.CartSummary(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for _, g := range summary.Groups {
		if g.Store.ID != storeID {
			continue
		}
		for i := range g.Items {
			if normalizeReference(g.Items[i].ProductReference) == normalizeReference(reference) {
				return &g.Items[i], nil
			}
		}
	}
	return nil, nil
}

func (s *Store) lookupSnapshot(storeID int64, reference string) *backend.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.groups {
		if g.Store.ID != storeID {
			continue
		}
		for i := range g.Items {
			if normalizeReference(g.Items[i].ProductReference) == normalizeReference(reference) {
				item := g.Items[i]
				return &item
			}
		}
	}
	return nil
}

func (s *Store) recordRefresh(status string) {
	if s.metrics != nil {
		s.metrics.RecordCartRefresh(context.Background(), status)
	}
}

// normalizeReference makes reference comparison tolerant of case and
// surrounding whitespace, matching how the backend deduplicates.
func normalizeReference(ref string) string {
	return strings.ToLower(strings.TrimSpace(ref))
}
