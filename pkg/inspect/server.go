// Package inspect serves a read-only HTTP view of a running evaluator.
//
// Routes:
//
//	GET /healthz  liveness probe
//	GET /tree     JSON snapshot of the layout tree
//	GET /keys     registered key labels
//	GET /stats    stats of the last update cycle
//	GET /metrics  Prometheus exposition, when a gatherer is configured
//	GET /ws       WebSocket stream of cycle stats
package inspect

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/heart/internal/errors"
	"github.com/vango-dev/heart/pkg/heart"
	"github.com/vango-dev/heart/pkg/key"
	"github.com/vango-dev/heart/pkg/layout"
)

// Source provides the data served by the inspector. Implementations must
// be safe to call while an update cycle runs.
type Source interface {
	Snapshot() *layout.Node
	Keys() []key.Entry
	Stats() heart.CycleStats
}

// TreeSource serves an evaluator whose layout collaborator is a
// layout.Tree.
type TreeSource struct {
	Tree      *layout.Tree
	Evaluator *heart.Evaluator
}

// Snapshot implements Source.
func (s TreeSource) Snapshot() *layout.Node {
	return s.Tree.Snapshot(s.Evaluator.RootHandle())
}

// Keys implements Source.
func (s TreeSource) Keys() []key.Entry {
	return s.Evaluator.Keys().Entries()
}

// Stats implements Source.
func (s TreeSource) Stats() heart.CycleStats {
	return s.Evaluator.LastCycle()
}

// Config configures the inspector server.
type Config struct {
	// AllowAllOrigins accepts WebSocket upgrades from any origin.
	AllowAllOrigins bool

	// Gatherer backs /metrics. The route is not mounted when nil.
	Gatherer prometheus.Gatherer

	// Logger receives request and connection logs.
	Logger *slog.Logger
}

// Server is the inspector HTTP server.
type Server struct {
	source Source
	hub    *Hub
	router chi.Router
	logger *slog.Logger
}

// New creates an inspector for source.
func New(source Source, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "inspect")
	}
	s := &Server{
		source: source,
		hub:    NewHub(cfg.AllowAllOrigins, logger),
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/tree", s.handleTree)
	r.Get("/keys", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, s.source.Keys())
	})
	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, s.source.Stats())
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/ws", s.hub.HandleWebSocket)

	s.router = r
	return s
}

// Hub returns the WebSocket hub. Register it as an evaluator observer to
// stream cycles.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	if snap == nil {
		http.Error(w, "tree not available", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, snap)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("inspector response failed", "error", err)
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and closes every WebSocket client.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("inspector listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.New("H060").WithDetail(addr).Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New("H060").WithDetail("shutdown").Wrap(err)
	}
	return nil
}
