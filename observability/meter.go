package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/vitrinelive/storefront/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the metric instruments for the storefront core.
type Metrics struct {
	evictionTotal   metric.Int64Counter
	guardTotal      metric.Int64Counter
	cartRefreshes   metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	evictionTotal, err := meter.Int64Counter("cart.evictions.total",
		metric.WithDescription("Total cart reservation evictions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cart.evictions.total counter: %w", err)
	}

	guardTotal, err := meter.Int64Counter("guard.verifications.total",
		metric.WithDescription("Total access guard verifications by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating guard.verifications.total counter: %w", err)
	}

	cartRefreshes, err := meter.Int64Counter("cart.refreshes.total",
		metric.WithDescription("Total cart snapshot refreshes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cart.refreshes.total counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("http.request.duration",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.request.duration histogram: %w", err)
	}

	return &Metrics{
		evictionTotal:   evictionTotal,
		guardTotal:      guardTotal,
		cartRefreshes:   cartRefreshes,
		requestDuration: requestDuration,
	}, nil
}

// RecordEviction records an eviction attempt by outcome (evicted, failed, refused).
func (m *Metrics) RecordEviction(ctx context.Context, outcome string) {
	m.evictionTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordGuardOutcome records a completed guard verification cycle.
func (m *Metrics) RecordGuardOutcome(ctx context.Context, kind, outcome string) {
	m.guardTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route_kind", kind),
		attribute.String("outcome", outcome),
	))
}

// RecordCartRefresh records a cart snapshot refresh by status.
func (m *Metrics) RecordCartRefresh(ctx context.Context, status string) {
	m.cartRefreshes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, duration time.Duration) {
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}
