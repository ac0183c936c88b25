package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// HealthServer serves the worker's probe endpoints:
//   - /health: liveness, always 200 while the process is serving
//   - /health/ready: readiness, 200 once the scheduler is up, 503 before
//
// Readiness flips via SetReady; the binary marks itself ready only after
// the cron scheduler has started, so orchestrators do not route to a worker
// that cannot run batches yet.
type HealthServer struct {
	addr   string
	logger *slog.Logger
	ready  atomic.Bool
	server *http.Server
}

type healthResponse struct {
	Status string `json:"status"`
}

// NewHealthServer builds a health server listening on addr (for example
// ":9091"). It starts in the not-ready state; call Start to serve.
func NewHealthServer(addr string, logger *slog.Logger) *HealthServer {
	h := &HealthServer{
		addr:   addr,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleLiveness)
	mux.HandleFunc("/health/ready", h.handleReadiness)

	h.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return h
}

// Start serves the probe endpoints until ctx is canceled, then drains the
// server with a five-second grace period. It blocks; run it in a
// goroutine. Returns http.ErrServerClosed on graceful shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		serveErr <- h.server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("health server failed", slog.Any("error", err))
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h.logger.Info("health server shutting down")
	if err := h.server.Shutdown(shutdownCtx); err != nil {
		h.logger.Error("health server shutdown failed", slog.Any("error", err))
		return err
	}
	h.logger.Info("health server stopped")
	return http.ErrServerClosed
}

// SetReady flips the readiness state reported by /health/ready. The worker
// calls this with true once the scheduler is running, and with false when
// shutdown begins.
func (h *HealthServer) SetReady(ready bool) {
	h.ready.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (h *HealthServer) writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(healthResponse{Status: status}); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}

// handleLiveness answers 200 unconditionally; a process that can serve
// this request is alive.
func (h *HealthServer) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	h.writeStatus(w, http.StatusOK, "ok")
}

// handleReadiness answers 200 only after SetReady(true), 503 otherwise.
func (h *HealthServer) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if h.ready.Load() {
		h.writeStatus(w, http.StatusOK, "ok")
		return
	}
	h.writeStatus(w, http.StatusServiceUnavailable, "not ready")
}
