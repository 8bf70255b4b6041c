package controller

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zeu5/pacman-adapter/transport"
)

// Server hosts agents for adapters connecting over websocket.
type Server struct {
	seed     uint64
	sessions atomic.Int64
	srv      *http.Server
}

func NewServer(seed uint64) *Server {
	s := &Server{seed: seed}
	mux := http.NewServeMux()
	mux.Handle(transport.AgentsPath, transport.Handler(s.serveConn))
	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) serveConn(c *transport.Conn) {
	id := uuid.NewString()
	s.sessions.Add(1)
	defer s.sessions.Add(-1)
	logger := log.With().Str("component", "server").Str("session", id).Logger()
	logger.Debug().Msg("connection opened")
	if err := NewSession(s.seed).Serve(c); err != nil {
		logger.Warn().Err(err).Msg("session ended")
	}
}

// Sessions reports the number of live connections.
func (s *Server) Sessions() int {
	return int(s.sessions.Load())
}

// Serve accepts connections on l until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(l)
	}()
	log.Info().Str("addr", l.Addr().String()).Msg("agent host listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}
