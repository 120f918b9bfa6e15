// Package httpapi exposes the conceptual retrieval system's ambient ops
// surface — health and Prometheus metrics — alongside the MCP stdio
// transport. It is not a spec'd tool surface; AI clients never see it.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/conceptrag/core/internal/resilience"
)

// Server is the chi-routed HTTP server backing /healthz and /metrics.
type Server struct {
	http     *http.Server
	executor *resilience.Executor
}

// New builds the ops HTTP server, bound to addr, reporting health off
// executor's resilience state.
func New(addr string, executor *resilience.Executor) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	s := &Server{executor: executor}

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run starts the server and samples resilience metrics on a ticker until
// ctx is canceled, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.executor != nil {
				s.executor.ObserveMetrics()
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.http.Shutdown(shutdownCtx)
			return nil
		case err := <-errCh:
			return err
		}
	}
}

type healthResponse struct {
	Healthy       bool     `json:"healthy"`
	OpenCircuits  []string `json:"open_circuits,omitempty"`
	FullBulkheads []string `json:"full_bulkheads,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	var h resilience.Health
	if s.executor != nil {
		h = s.executor.HealthSummary()
	} else {
		h = resilience.Health{Healthy: true}
	}

	w.Header().Set("Content-Type", "application/json")
	if !h.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(healthResponse{
		Healthy:       h.Healthy,
		OpenCircuits:  h.OpenCircuits,
		FullBulkheads: h.FullBulkheads,
	})
}
