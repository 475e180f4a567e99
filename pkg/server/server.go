package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"baatcheet/relay/pkg/config"
)

// Server runs the relay's HTTP listener and manages its lifecycle. Route
// assembly lives in pkg/api; the server only binds, serves, and drains.
//
// A Server is single-use: once stopped it cannot be started again.
type Server struct {
	cfg     config.ServerConfig
	handler http.Handler
	logger  *slog.Logger

	mu           sync.RWMutex
	httpServer   *http.Server
	listener     net.Listener
	running      bool
	shutdownOnce sync.Once
}

// New creates a server that will serve handler at cfg.ListenAddress.
func New(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler,
		logger:  slog.Default().With("component", "server"),
	}
}

// Start binds the listener and blocks serving requests until ctx is
// cancelled or the listener fails. Cancellation triggers a graceful
// drain bounded by ShutdownTimeout; a clean stop returns nil.
//
// Binding happens before Start blocks, so address-in-use and TLS
// configuration errors surface synchronously.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	listener, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		s.markStopped()
		return fmt.Errorf("listening on %s: %w", s.cfg.ListenAddress, err)
	}

	if s.cfg.TLS.Enabled {
		tlsConfig, err := s.configureTLS()
		if err != nil {
			listener.Close()
			s.markStopped()
			return fmt.Errorf("configuring TLS: %w", err)
		}
		listener = tls.NewListener(listener, tlsConfig)
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.cfg.ReadTimeout,
		WriteTimeout:   s.cfg.WriteTimeout,
		IdleTimeout:    s.cfg.IdleTimeout,
		MaxHeaderBytes: s.cfg.MaxHeaderBytes,
	}
	s.mu.Unlock()

	s.logger.Info("server listening",
		"address", listener.Addr().String(),
		"tls", s.cfg.TLS.Enabled,
	)

	// Serve's exit is always reported, a clean close as nil, so a direct
	// Shutdown call unblocks Start even when ctx stays live.
	errChan := make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errChan <- err
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.markStopped()
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	}
}

// Shutdown drains the server gracefully, waiting up to ShutdownTimeout
// for in-flight requests. Connections still open after the timeout,
// long-lived streams included, are closed hard. Subsequent calls are
// no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		httpServer := s.httpServer
		s.mu.RUnlock()
		if httpServer == nil {
			s.markStopped()
			return
		}

		s.logger.Info("draining connections", "timeout", s.cfg.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("graceful drain expired, closing open connections", "error", err)
			httpServer.Close()
			shutdownErr = fmt.Errorf("graceful shutdown: %w", err)
		}

		s.markStopped()
		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether Start has bound the listener and not yet
// stopped.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the bound listener address, or "" before Start binds it.
// When ListenAddress requests an ephemeral port this reports the real
// one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) markStopped() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// configureTLS builds the TLS 1.3 listener configuration from the
// configured certificate pair.
func (s *Server) configureTLS() (*tls.Config, error) {
	if s.cfg.TLS.CertFile == "" {
		return nil, fmt.Errorf("TLS cert file not specified")
	}
	if s.cfg.TLS.KeyFile == "" {
		return nil, fmt.Errorf("TLS key file not specified")
	}

	cert, err := tls.LoadX509KeyPair(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading key pair: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
		CipherSuites: []uint16{
			tls.TLS_AES_128_GCM_SHA256,
			tls.TLS_AES_256_GCM_SHA384,
			tls.TLS_CHACHA20_POLY1305_SHA256,
		},
	}, nil
}
