// Package server assembles the automation runner: configuration,
// logging, metrics, the command queue, REST handlers, and the
// WebSocket status stream behind one gin router.
//
// Server Lifecycle:
//  1. Load configuration from environment
//  2. Initialize logger and Prometheus metrics
//  3. Create the command queue and browser driver factory
//  4. Register routes and middleware (CORS, rate limit, metrics)
//  5. Serve until signalled
//  6. On shutdown, finish the active session before exiting
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv := server.NewServer(cfg, log)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
