// Package backend is the typed client for the commerce REST backend. It owns
// every cart and store round trip this process makes; all other packages go
// through it rather than building HTTP requests themselves.
package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/vitrinelive/storefront/errors"
	"github.com/vitrinelive/storefront/httpclient"
	"github.com/vitrinelive/storefront/logger"
)

const serviceName = "commerce backend"

// Client talks to the commerce backend.
type Client struct {
	http *httpclient.Client
	log  *logger.Logger
}

// New creates a backend client from an httpclient config. BaseURL is
// required. Retry and circuit breaking default on; the one non-idempotent
// call (CreateCartItem) opts out of retry per request.
func New(cfg httpclient.Config) (*Client, error) {
	if cfg.Retry == nil {
		cfg.Retry = httpclient.DefaultRetryConfig()
	}
	if cfg.CircuitBreaker == nil {
		cfg.CircuitBreaker = httpclient.DefaultCircuitBreakerConfig("commerce-backend")
	}
	hc, err := httpclient.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}
	return &Client{
		http: hc,
		log:  logger.GetGlobalLogger().WithComponent("backend"),
	}, nil
}

// StoreBySlug fetches a store by its URL slug. Both a 404 and a present
// envelope with a null store resolve to a typed not-found.
func (c *Client) StoreBySlug(ctx context.Context, slug string) (*Store, error) {
	resp, err := httpclient.Get[storeEnvelope](c.http, ctx, "/stores/"+url.PathEscape(slug))
	if err != nil {
		if httpclient.IsNotFound(err) {
			return nil, errors.StoreNotFound(slug)
		}
		return nil, errors.ExternalServiceError(serviceName, err)
	}
	if resp.Data.Store == nil {
		return nil, errors.StoreNotFound(slug)
	}
	return resp.Data.Store, nil
}

// CartSummary fetches the customer's full cart grouped by store.
func (c *Client) CartSummary(ctx context.Context, customerID string) (*CartSummary, error) {
	resp, err := httpclient.Get[CartSummary](c.http, ctx, "/carts/summary",
		httpclient.WithQueryParam("customerId", customerID))
	if err != nil {
		return nil, errors.ExternalServiceError(serviceName, err)
	}
	return &resp.Data, nil
}

// CreateCartItem reserves a product. A 409 from the backend means the
// customer already holds this reference in this store; callers merge
// quantities instead of failing.
func (c *Client) CreateCartItem(ctx context.Context, req CreateItemRequest) (*CartItem, error) {
	resp, err := httpclient.Post[CartItem](c.http, ctx, "/carts", req,
		httpclient.WithoutRetry())
	if err != nil {
		if httpclient.IsConflict(err) {
			return nil, errors.ReferenceConflict(req.ProductReference)
		}
		return nil, errors.ExternalServiceError(serviceName, err)
	}
	return &resp.Data, nil
}

// UpdateQuantity sets the quantity of an existing reservation.
func (c *Client) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	_, err := httpclient.Put[struct{}](c.http, ctx, "/carts/"+strconv.FormatInt(id, 10),
		updateQuantityRequest{Quantity: quantity})
	if err != nil {
		if httpclient.IsNotFound(err) {
			return errors.NotFound("cart item", strconv.FormatInt(id, 10))
		}
		return errors.ExternalServiceError(serviceName, err)
	}
	return nil
}

// DeleteCartItem removes a reservation. With requireExpired the backend
// re-validates expiry and refuses live reservations with a conflict. A 404
// means the row is already gone and counts as success.
func (c *Client) DeleteCartItem(ctx context.Context, id int64, requireExpired bool) error {
	_, err := httpclient.Delete[struct{}](c.http, ctx, "/carts",
		httpclient.WithBody(deleteItemRequest{ID: id, RequireExpired: requireExpired}))
	if err != nil {
		switch {
		case httpclient.IsNotFound(err):
			c.log.Debug("cart item already gone", logger.Fields("item_id", id))
			return nil
		case httpclient.IsConflict(err):
			return errors.NotExpired(id)
		default:
			return errors.ExternalServiceError(serviceName, err)
		}
	}
	return nil
}

// CheckOwner asks whether the email owns a store. A nil Store in the
// response means it does not.
func (c *Client) CheckOwner(ctx context.Context, email string) (*OwnedStore, error) {
	resp, err := httpclient.Get[OwnedStore](c.http, ctx, "/stores/check-owner/"+url.PathEscape(email))
	if err != nil {
		return nil, errors.ExternalServiceError(serviceName, err)
	}
	return &resp.Data, nil
}
