package backend

import "time"

// Store is a seller's storefront as the commerce backend exposes it.
type Store struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	OwnerID int64  `json:"ownerId"`
}

// CartItem is a single reservation row. Monetary amounts and weights travel
// as decimal strings; the backend computes, this process only displays.
type CartItem struct {
	ID               int64     `json:"id"`
	StoreID          int64     `json:"storeId"`
	ProductReference string    `json:"productReference"`
	UnitValue        string    `json:"unitValue"`
	Quantity         int       `json:"quantity"`
	Weight           string    `json:"weight"`
	CreatedAt        time.Time `json:"createdAt"`
}

// CartGroup is all items reserved in one store, with the store's subtotal.
type CartGroup struct {
	Store    Store      `json:"store"`
	Items    []CartItem `json:"items"`
	Subtotal string     `json:"subtotal"`
}

// CartSummary is the customer's full cart across stores.
type CartSummary struct {
	GrandTotal string      `json:"grandTotal"`
	Groups     []CartGroup `json:"groups"`
}

// OwnedStore is the check-owner response. Store is nil when the email does
// not own one.
type OwnedStore struct {
	Store *Store `json:"store"`
}

// storeEnvelope wraps the store-by-slug response. A present envelope with a
// null store means the slug resolved to nothing.
type storeEnvelope struct {
	Store *Store `json:"store"`
}

// CreateItemRequest creates a reservation.
type CreateItemRequest struct {
	CustomerID       string `json:"customerId"`
	StoreID          int64  `json:"storeId"`
	ProductReference string `json:"productReference"`
	UnitValue        string `json:"unitValue"`
	Quantity         int    `json:"quantity"`
	Weight           string `json:"weight,omitempty"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type deleteItemRequest struct {
	ID             int64 `json:"id"`
	RequireExpired bool  `json:"requireExpired"`
}
