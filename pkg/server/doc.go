// Package server manages the lifecycle of the relay's HTTP listener.
//
// The server binds the configured address, serves the handler built by
// pkg/api, and drains gracefully on context cancellation. Route
// assembly and middleware live in pkg/api; signal handling lives in
// pkg/cli. This package only owns the listener.
//
// # Basic Usage
//
//	srv := server.New(cfg.Server, a.Handler())
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until ctx is cancelled or the listener fails. A clean
// stop returns nil.
//
// # Graceful Shutdown
//
// Cancelling the context passed to Start (or calling Shutdown directly)
// drains the server:
//
//  1. The listener stops accepting new connections.
//  2. In-flight requests run to completion, up to ShutdownTimeout.
//  3. Connections still open after the timeout, long-lived streams
//     included, are closed hard.
//
// # TLS
//
// With server.tls.enabled the listener terminates TLS 1.3 using the
// configured certificate pair:
//
//	server:
//	  tls:
//	    enabled: true
//	    cert_file: "/path/to/cert.pem"
//	    key_file: "/path/to/key.pem"
package server
