// Package app wires the dashboard server together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from the YAML file and HILIR_* environment variables
//	2. Initialize logging and OpenTelemetry (tracing, Prometheus metrics)
//	3. Build the loader, dataset service, websocket hub and source watcher
//	4. Mount handlers and middleware on the chi router
//	5. Warm every dataset, then serve HTTP
//
// # Usage
//
//	a, err := app.NewApplication(configPath)
//	if err != nil {
//	    return err
//	}
//	return a.Run(ctx)
//
// # Graceful Shutdown
//
// Run returns after SIGINT, SIGTERM or cancellation of its context. In-flight
// requests get Server.ShutdownTimeout to finish, websocket clients are
// disconnected and telemetry is flushed. Errors are returned to the caller;
// the package never calls os.Exit.
package app
