// Package payment talks to the external payment provider. The storefront
// only needs one thing from it: a stable customer id per buyer email, used as
// the cart partition key on the commerce backend.
package payment

import (
	"context"
	"fmt"

	"github.com/vitrinelive/storefront/errors"
	"github.com/vitrinelive/storefront/httpclient"
	"github.com/vitrinelive/storefront/logger"
	"github.com/vitrinelive/storefront/util"
)

const serviceName = "payment provider"

// Customer is the subset of the provider's customer object we use.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type customerList struct {
	Data []Customer `json:"data"`
}

type createCustomerRequest struct {
	Email string `json:"email"`
}

// Client talks to the payment provider with bearer-key auth.
type Client struct {
	http *httpclient.Client
	log  *logger.Logger
}

// Config configures the payment client.
type Config struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// New creates a payment client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.MissingField("payment.api_key")
	}
	hc, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.BaseURL,
		Auth:    httpclient.BearerAuth(cfg.APIKey),
		Retry:   httpclient.DefaultRetryConfig(),
	})
	if err != nil {
		return nil, fmt.Errorf("payment: %w", err)
	}
	log := logger.GetGlobalLogger().WithComponent("payment")
	log.Debug("Payment client configured", logger.Fields(
		"base_url", cfg.BaseURL,
		"api_key", util.MaskSecret(cfg.APIKey, 4),
	))
	return &Client{
		http: hc,
		log:  log,
	}, nil
}

// CustomerByEmail looks up a customer. Returns nil when none exists.
func (c *Client) CustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	resp, err := httpclient.Get[customerList](c.http, ctx, "/customers",
		httpclient.WithQueryParam("email", email))
	if err != nil {
		return nil, errors.ExternalServiceError(serviceName, err)
	}
	if len(resp.Data.Data) == 0 {
		return nil, nil
	}
	return &resp.Data.Data[0], nil
}

// CreateCustomer registers a new customer for the email.
func (c *Client) CreateCustomer(ctx context.Context, email string) (*Customer, error) {
	resp, err := httpclient.Post[Customer](c.http, ctx, "/customers",
		createCustomerRequest{Email: email})
	if err != nil {
		if httpclient.IsConflict(err) {
			return nil, errors.Conflict("customer already exists")
		}
		return nil, errors.ExternalServiceError(serviceName, err)
	}
	return &resp.Data, nil
}

// Resolve returns the customer id for the email, creating the customer when
// absent. A create that loses a race to a concurrent caller falls back to a
// second lookup, so concurrent resolution of the same email converges on one
// id.
func (c *Client) Resolve(ctx context.Context, email string) (string, error) {
	customer, err := c.CustomerByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if customer != nil {
		return customer.ID, nil
	}

	created, err := c.CreateCustomer(ctx, email)
	if err == nil {
		c.log.Info("payment customer created", logger.Fields("customer_id", created.ID))
		return created.ID, nil
	}
	if !errors.HasCode(err, errors.ErrCodeConflict) {
		return "", err
	}

	// lost the creation race; the winner's customer must exist now
	customer, lookupErr := c.CustomerByEmail(ctx, email)
	if lookupErr != nil {
		return "", lookupErr
	}
	if customer == nil {
		return "", errors.ExternalServiceError(serviceName,
			fmt.Errorf("customer for %s missing after create conflict", email))
	}
	return customer.ID, nil
}
