package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/observe"
)

const shutdownTimeout = 5 * time.Second

// Server serves the snapshot feed on /ws, Prometheus metrics on /metrics and
// a liveness probe on /healthz.
type Server struct {
	hub    *Hub
	srv    *http.Server
	logger logging.Logger
}

// NewServer builds the HTTP surface around hub.
func NewServer(addr string, hub *Hub) *Server {
	instrument := observe.Middleware(hub.metrics, hub.logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("GET /metrics", instrument(promhttp.Handler()))
	mux.Handle("GET /healthz", instrument(http.HandlerFunc(healthz)))

	return &Server{
		hub: hub,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: hub.logger,
	}
}

// Handler returns the server's routing handler.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Feed server listening", logging.Fields{"addr": ln.Addr().String()})
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("Feed server stopped")
	return nil
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
