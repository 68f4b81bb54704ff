// package server hosts the loopback HTTP listener that captures the OAuth
// authorization code during user consent
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// CallbackServer is a short-lived HTTP server bound to the loopback redirect
// address for the duration of the consent wait.
type CallbackServer struct {
	server   *http.Server
	listener net.Listener
}

// NewCallbackServer creates a server for the given host/port serving the
// handler's routes.
func NewCallbackServer(host string, port int, handler *OAuthHandler) *CallbackServer {
	mux := http.NewServeMux()
	for _, route := range handler.Routes() {
		mux.Handle(route, handler)
	}

	return &CallbackServer{
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start binds the listener and serves in a background goroutine.
// Returns an error immediately if the port cannot be bound.
func (s *CallbackServer) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind callback listener: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			// Serve errors after Shutdown are expected; anything else
			// surfaces through the consent timeout.
			_ = err
		}
	}()

	return nil
}

// Addr returns the bound listener address.
func (s *CallbackServer) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
