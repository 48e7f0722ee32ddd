package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/vitrinelive/storefront/errors"
	"github.com/vitrinelive/storefront/httpclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(httpclient.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClient_StoreBySlug(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stores/cafe-du-coin" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"store": Store{ID: 7, Name: "Café du Coin", Slug: "cafe-du-coin", OwnerID: 3},
		})
	})

	store, err := c.StoreBySlug(context.Background(), "cafe-du-coin")
	if err != nil {
		t.Fatalf("StoreBySlug: %v", err)
	}
	if store.ID != 7 || store.OwnerID != 3 {
		t.Errorf("unexpected store %+v", store)
	}
}

func TestClient_StoreBySlug_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.StoreBySlug(context.Background(), "nope")
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Details["slug"] != "nope" {
		t.Errorf("expected slug detail, got %v", appErr.Details)
	}
}

func TestClient_StoreBySlug_NullStoreIsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"store": null}`))
	})

	_, err := c.StoreBySlug(context.Background(), "ghost")
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND for null store payload, got %v", err)
	}
}

func TestClient_CartSummary(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("customerId"); got != "cus_123" {
			t.Errorf("expected customerId query, got %q", got)
		}
		json.NewEncoder(w).Encode(CartSummary{
			GrandTotal: "41.50",
			Groups: []CartGroup{{
				Store:    Store{ID: 1, Slug: "fromagerie"},
				Items:    []CartItem{{ID: 10, Quantity: 2, UnitValue: "20.75"}},
				Subtotal: "41.50",
			}},
		})
	})

	summary, err := c.CartSummary(context.Background(), "cus_123")
	if err != nil {
		t.Fatalf("CartSummary: %v", err)
	}
	if summary.GrandTotal != "41.50" {
		t.Errorf("expected grand total as string, got %q", summary.GrandTotal)
	}
	if len(summary.Groups) != 1 || summary.Groups[0].Items[0].ID != 10 {
		t.Errorf("unexpected groups %+v", summary.Groups)
	}
}

func TestClient_CreateCartItem_ConflictBecomesReferenceConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	_, err := c.CreateCartItem(context.Background(), CreateItemRequest{
		CustomerID:       "cus_123",
		StoreID:          1,
		ProductReference: "REF-001",
		UnitValue:        "9.90",
		Quantity:         1,
	})
	if !errors.HasCode(err, errors.ErrCodeReferenceConflict) {
		t.Fatalf("expected REFERENCE_CONFLICT, got %v", err)
	}
}

func TestClient_DeleteCartItem_SendsBody(t *testing.T) {
	var got deleteItemRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.DeleteCartItem(context.Background(), 55, true); err != nil {
		t.Fatalf("DeleteCartItem: %v", err)
	}
	if got.ID != 55 || !got.RequireExpired {
		t.Errorf("unexpected delete body %+v", got)
	}
}

func TestClient_DeleteCartItem_NotFoundIsSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if err := c.DeleteCartItem(context.Background(), 55, false); err != nil {
		t.Errorf("expected nil for already-deleted item, got %v", err)
	}
}

func TestClient_DeleteCartItem_NotExpired(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	err := c.DeleteCartItem(context.Background(), 55, true)
	if !errors.HasCode(err, errors.ErrCodeNotExpired) {
		t.Errorf("expected NOT_EXPIRED, got %v", err)
	}
}

func TestClient_CheckOwner(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stores/check-owner/marie@example.com" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(OwnedStore{Store: &Store{ID: 2, OwnerID: 42}})
	})

	owned, err := c.CheckOwner(context.Background(), "marie@example.com")
	if err != nil {
		t.Fatalf("CheckOwner: %v", err)
	}
	if owned.Store == nil || owned.Store.OwnerID != 42 {
		t.Errorf("unexpected owned store %+v", owned)
	}
}

func TestClient_CheckOwner_NoStore(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"store": null}`))
	})

	owned, err := c.CheckOwner(context.Background(), "buyer@example.com")
	if err != nil {
		t.Fatalf("CheckOwner: %v", err)
	}
	if owned.Store != nil {
		t.Errorf("expected nil store, got %+v", owned.Store)
	}
}

func TestClient_TransientFailureRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(CartSummary{GrandTotal: "0.00"})
	})

	summary, err := c.CartSummary(context.Background(), "cus_123")
	if err != nil {
		t.Fatalf("CartSummary after transient failure: %v", err)
	}
	if summary.GrandTotal != "0.00" {
		t.Errorf("unexpected summary %+v", summary)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestClient_CreateCartItem_NotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.CreateCartItem(context.Background(), CreateItemRequest{
		CustomerID:       "cus_123",
		StoreID:          1,
		ProductReference: "REF-001",
		UnitValue:        "9.90",
		Quantity:         1,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("create must not be retried, got %d attempts", got)
	}
}
