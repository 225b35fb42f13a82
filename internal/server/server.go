package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/esimkit/esimctl/internal/logging"
	"github.com/esimkit/esimctl/internal/lpa"
	"github.com/esimkit/esimctl/internal/protocol"
)

// shutdownTimeout bounds how long Start waits for connections on exit.
const shutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	CertPath string // TLS is enabled when both CertPath and KeyPath are set
	KeyPath  string
}

// Server exposes an lpa.Engine to remote esimctl clients over websocket.
type Server struct {
	config    *Config
	engine    lpa.Engine
	tlsConfig *tls.Config

	httpServer *http.Server
	listener   net.Listener
	ready      chan struct{}

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*protocol.Conn
}

// New creates a new Server instance
func New(config *Config, engine lpa.Engine) (*Server, error) {
	if engine == nil {
		return nil, errors.New("server needs an engine")
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" || config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	return &Server{
		config:      config,
		engine:      engine,
		tlsConfig:   tlsConfig,
		ready:       make(chan struct{}),
		activeConns: make(map[string]*protocol.Conn),
	}, nil
}

// TLS reports whether clients must connect with wss.
func (s *Server) TLS() bool {
	return s.tlsConfig != nil
}

// Start listens and serves until ctx is done, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()
	close(s.ready)

	logging.Info("esimd listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", protocol.Path),
		zap.Any("tls", GetTLSInfo(s.tlsConfig)),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Addr blocks until Start is listening and returns the bound address.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener.Addr(), nil
}

// Shutdown stops accepting connections, closes the websocket sessions and
// waits for their handlers.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.mu.Lock()
	httpServer := s.httpServer
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			logging.Warn("HTTP shutdown incomplete", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	return nil
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

func (s *Server) track(conn *protocol.Conn) {
	s.mu.Lock()
	s.activeConns[conn.RemoteAddr()] = conn
	s.mu.Unlock()
}

func (s *Server) untrack(conn *protocol.Conn) {
	s.mu.Lock()
	delete(s.activeConns, conn.RemoteAddr())
	s.mu.Unlock()
}
