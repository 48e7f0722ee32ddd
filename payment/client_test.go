package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, APIKey: "sk_test_abc"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(Config{BaseURL: "http://localhost"}); err == nil {
		t.Error("expected error for missing api key")
	}
}

func TestClient_CustomerByEmail_SendsBearerKey(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_abc" {
			t.Errorf("unexpected auth header %q", got)
		}
		json.NewEncoder(w).Encode(customerList{Data: []Customer{{ID: "cus_1", Email: "a@b.fr"}}})
	}))

	customer, err := c.CustomerByEmail(context.Background(), "a@b.fr")
	if err != nil {
		t.Fatalf("CustomerByEmail: %v", err)
	}
	if customer == nil || customer.ID != "cus_1" {
		t.Errorf("unexpected customer %+v", customer)
	}
}

func TestClient_CustomerByEmail_Absent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(customerList{})
	}))

	customer, err := c.CustomerByEmail(context.Background(), "nobody@b.fr")
	if err != nil {
		t.Fatalf("CustomerByEmail: %v", err)
	}
	if customer != nil {
		t.Errorf("expected nil for absent customer, got %+v", customer)
	}
}

func TestClient_Resolve_CreatesWhenAbsent(t *testing.T) {
	var created bool
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(customerList{})
		case r.Method == http.MethodPost:
			created = true
			var req createCustomerRequest
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(Customer{ID: "cus_new", Email: req.Email})
		}
	}))

	id, err := c.Resolve(context.Background(), "new@b.fr")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !created {
		t.Error("expected a create call")
	}
	if id != "cus_new" {
		t.Errorf("expected cus_new, got %q", id)
	}
}

func TestClient_Resolve_ExistingSkipsCreate(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			t.Error("unexpected create for existing customer")
		}
		json.NewEncoder(w).Encode(customerList{Data: []Customer{{ID: "cus_42"}}})
	}))

	id, err := c.Resolve(context.Background(), "exists@b.fr")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "cus_42" {
		t.Errorf("expected cus_42, got %q", id)
	}
}

func TestClient_Resolve_CreateConflictFallsBackToLookup(t *testing.T) {
	var lookups int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			lookups++
			if lookups == 1 {
				json.NewEncoder(w).Encode(customerList{})
				return
			}
			json.NewEncoder(w).Encode(customerList{Data: []Customer{{ID: "cus_winner"}}})
		case http.MethodPost:
			w.WriteHeader(http.StatusConflict)
		}
	}))

	id, err := c.Resolve(context.Background(), "race@b.fr")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "cus_winner" {
		t.Errorf("expected winner id after conflict, got %q", id)
	}
	if lookups != 2 {
		t.Errorf("expected 2 lookups, got %d", lookups)
	}
}

func TestClient_CustomerByEmail_QueryParam(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/customers") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("email"); got != "a+b@example.com" {
			t.Errorf("unexpected email query %q", got)
		}
		json.NewEncoder(w).Encode(customerList{})
	}))

	if _, err := c.CustomerByEmail(context.Background(), "a+b@example.com"); err != nil {
		t.Fatalf("CustomerByEmail: %v", err)
	}
}
