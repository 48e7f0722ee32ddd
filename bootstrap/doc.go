// Package bootstrap orchestrates the storefront application lifecycle.
//
// It provides typed configuration loading, component registration, and
// startup/shutdown hooks for service initialization.
//
// # Quick Start
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(serverComponent)
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// The bootstrap package handles configuration validation, component
// initialization in registration order, graceful shutdown on OS signals,
// and health aggregation.
package bootstrap
