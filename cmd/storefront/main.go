package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitrinelive/storefront/backend"
	"github.com/vitrinelive/storefront/bootstrap"
	"github.com/vitrinelive/storefront/cart"
	"github.com/vitrinelive/storefront/cartsync"
	"github.com/vitrinelive/storefront/clock"
	"github.com/vitrinelive/storefront/config"
	"github.com/vitrinelive/storefront/evictor"
	"github.com/vitrinelive/storefront/guard"
	"github.com/vitrinelive/storefront/httpclient"
	"github.com/vitrinelive/storefront/identity"
	"github.com/vitrinelive/storefront/notify"
	"github.com/vitrinelive/storefront/observability"
	"github.com/vitrinelive/storefront/payment"
	"github.com/vitrinelive/storefront/server"
	"github.com/vitrinelive/storefront/server/middleware"
)

const serviceName = "storefront"

// telemetryConfig controls the optional OTLP exporters.
type telemetryConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
}

type appConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server    server.Config     `yaml:"server" mapstructure:"server"`
	Backend   httpclient.Config `yaml:"backend" mapstructure:"backend"`
	Payment   payment.Config    `yaml:"payment" mapstructure:"payment"`
	Cart      evictor.Config    `yaml:"cart" mapstructure:"cart"`
	Session   identity.Config   `yaml:"session" mapstructure:"session"`
	Telemetry telemetryConfig   `yaml:"telemetry" mapstructure:"telemetry"`
}

func (c *appConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Backend.ApplyDefaults()
	c.Cart.ApplyDefaults()
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4318"
	}
}

func (c *appConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("config.backend.base_url is required")
	}
	return c.Backend.Validate()
}

func main() {
	configFile := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}

	cfg := &appConfig{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to bootstrap: %v\n", err)
		os.Exit(1)
	}

	if err := run(app); err != nil {
		app.Logger.Error("Application failed", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}

func run(app *bootstrap.App[*appConfig]) error {
	ctx := context.Background()
	cfg := app.Cfg

	// Telemetry is optional; when disabled the metrics handle stays nil and
	// the instrumented code paths degrade to no-ops.
	var metrics *observability.Metrics
	if cfg.Telemetry.Enabled {
		tp, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       cfg.Telemetry.Endpoint,
			Insecure:       cfg.Telemetry.Insecure,
		})
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		mp, err := observability.InitMeter(ctx, &observability.MeterConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       cfg.Telemetry.Endpoint,
			Insecure:       cfg.Telemetry.Insecure,
		})
		if err != nil {
			return fmt.Errorf("init meter: %w", err)
		}
		metrics, err = observability.NewMetrics(mp.Meter(cfg.Name))
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		app.OnStop(func(ctx context.Context) error {
			if err := tp.Shutdown(ctx); err != nil {
				app.Logger.Warn("Tracer shutdown error", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return mp.Shutdown(ctx)
		})
	}

	// Outbound clients.
	backendClient, err := backend.New(cfg.Backend)
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}
	paymentClient, err := payment.New(cfg.Payment)
	if err != nil {
		return fmt.Errorf("payment client: %w", err)
	}
	app.Summary.TrackClient("backend", cfg.Backend.BaseURL, "configured", "http")
	app.Summary.TrackClient("payment", cfg.Payment.BaseURL, "configured", "http")

	verifier, err := identity.NewVerifier(cfg.Session)
	if err != nil {
		return fmt.Errorf("session verifier: %w", err)
	}

	// Domain wiring: shared clock, sync bus, cart store, evictor, guard.
	bus := cartsync.New()
	ticker := clock.NewTicker(time.Second, app.Logger)
	cartStore := cart.New(backendClient, paymentClient, bus, metrics)
	ev := evictor.New(cfg.Cart, cartStore, backendClient, bus, ticker, metrics)
	accessGuard := guard.New(backendClient, metrics)

	center := notify.NewCenter(notify.DefaultTTL)
	unsubscribeSweep := ticker.Subscribe(center.Sweep)
	app.OnStop(func(ctx context.Context) error {
		unsubscribeSweep()
		return nil
	})

	// HTTP server.
	srv := server.New(cfg.Server, app.Logger)
	srv.ApplyMiddleware()
	srv.GinEngine().Use(middleware.Session(verifier))
	srv.GinEngine().Use(middleware.GinRequestMetrics(metrics))
	srv.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll)

	api := server.NewAPI(backendClient, cartStore, accessGuard, center, ev)
	api.Register(srv.GinEngine())

	if err := app.RegisterComponent(ticker); err != nil {
		return err
	}
	if err := app.RegisterComponent(ev); err != nil {
		return err
	}
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return err
	}

	app.OnReady(func(ctx context.Context) error {
		srv.LogRoutes()
		return nil
	})

	return app.Run(ctx)
}
