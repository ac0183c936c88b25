package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"callguard/internal/resilience/circuitbreaker"
	callUC "callguard/internal/usecase/call"
	"callguard/pkg/config"
)

// HealthResponse is the liveness probe body.
type HealthResponse struct {
	Status string `json:"status"`
}

// BreakerHealthResponse lists the state of every circuit breaker guarding
// a downstream service.
type BreakerHealthResponse struct {
	Healthy  bool            `json:"healthy"`
	Breakers []BreakerStatus `json:"breakers"`
}

// BreakerStatus is one service's breaker state.
type BreakerStatus struct {
	Service string `json:"service"`
	State   string `json:"state"`
}

// startMetricsServer serves the Prometheus scrape endpoint and the
// operational health views in the background:
//
//	GET /metrics          Prometheus exposition
//	GET /health           liveness, always 200
//	GET /health/breakers  per-service breaker states, 503 when any is open
//
// METRICS_PORT selects the port (default 9090). Once ctx is canceled the
// server drains in-flight requests for up to five seconds; shutdown errors
// are logged and never block process termination.
func startMetricsServer(ctx context.Context, logger *slog.Logger, svc callUC.Service) *http.Server {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", metricsPort()),
		Handler:      newMetricsMux(svc),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		logger.Info("metrics server shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", slog.Any("error", err))
			return
		}
		logger.Info("metrics server stopped")
	}()

	return server
}

func newMetricsMux(svc callUC.Service) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", handleLiveness)

	if svc == nil {
		mux.HandleFunc("/health/breakers", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "call service not initialized",
			})
		})
		return mux
	}
	mux.HandleFunc("/health/breakers", handleBreakerHealth(svc))
	return mux
}

// metricsPort reads METRICS_PORT, clamping anything outside the valid
// port range back to 9090.
func metricsPort() int {
	port := config.GetEnvInt("METRICS_PORT", 9090)
	if port <= 0 || port > 65535 {
		return 9090
	}
	return port
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// handleBreakerHealth reports every guarded service's breaker state and
// answers 503 as soon as any breaker is open, so load balancers and alert
// rules can key off the status code alone.
func handleBreakerHealth(svc callUC.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := svc.Status()

		healthy := true
		breakers := make([]BreakerStatus, 0, len(status.Breakers))
		for service, state := range status.Breakers {
			if state == circuitbreaker.StateOpen {
				healthy = false
			}
			breakers = append(breakers, BreakerStatus{Service: service, State: state.String()})
		}
		// Map iteration order is random; keep the response stable.
		sort.Slice(breakers, func(i, j int) bool {
			return breakers[i].Service < breakers[j].Service
		})

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, BreakerHealthResponse{Healthy: healthy, Breakers: breakers})
	}
}
