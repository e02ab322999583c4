// Package app provides application initialization and lifecycle management for
// the execution server.
//
// # Architecture
//
// Every component is wired together at startup by NewApplication:
//
//	1. Build the market data source and the execution engine (BuildEngine)
//	2. Initialize OpenTelemetry and the execution metrics
//	3. Create the WebSocket hub and the services
//	4. Set up the router and middleware
//	5. Create the HTTP server
//
// # Usage
//
//	cfg, _ := config.Load()
//	logger, _ := infrastructure.InitializeLogger(cfg.Logging)
//	application, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Run returns once ctx is cancelled. In-flight requests are given the
// configured shutdown timeout, WebSocket clients are disconnected and
// telemetry is flushed. The package never calls os.Exit; signal handling is
// left to main.
package app
