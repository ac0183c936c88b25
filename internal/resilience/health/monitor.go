// Package health runs periodic liveness probes against downstream
// services and resets their circuit breakers when a probe confirms
// recovery. This is the one path back to closed that does not go through
// a half-open trial: an out-of-band probe is cheaper than burning a real
// call on a service we already believe is down.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"callguard/internal/observability/metrics"
)

// Probe checks one service and reports whether it is healthy. Probes
// should respect the context deadline; the monitor enforces its timeout
// either way.
type Probe func(ctx context.Context) bool

// BreakerResetter is the slice of the breaker registry the monitor
// needs: forcing a named breaker back to closed.
type BreakerResetter interface {
	Reset(name string)
}

// Status is a point-in-time view of one service's probe history.
type Status struct {
	Healthy       bool
	LastHealthyAt time.Time
	LastCheckedAt time.Time
}

// Config holds the probing cadence.
type Config struct {
	// Interval is the time between probe rounds.
	Interval time.Duration

	// Timeout bounds each individual probe. A probe that has not
	// answered within the timeout counts as unhealthy.
	Timeout time.Duration
}

// DefaultConfig returns the probing cadence used when nothing is
// configured.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Timeout:  5 * time.Second,
	}
}

// Monitor periodically probes registered services. Services start out
// assumed healthy; the first failing probe marks them unhealthy, and the
// first healthy probe after that resets their breaker.
type Monitor struct {
	cfg        Config
	resetter   BreakerResetter
	logger     *slog.Logger
	onRecovery func(service string)

	mu       sync.Mutex
	probes   map[string]Probe
	statuses map[string]Status
	running  bool
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewMonitor returns a stopped monitor. Register services and call Start.
func NewMonitor(cfg Config, resetter BreakerResetter, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		cfg:      cfg,
		resetter: resetter,
		logger:   logger,
		probes:   make(map[string]Probe),
		statuses: make(map[string]Status),
	}
}

// Register adds a service to the probe rotation. Call before Start.
// The service is assumed healthy until a probe says otherwise, so
// registration alone never triggers a breaker reset.
func (m *Monitor) Register(service string, probe Probe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes[service] = probe
	m.statuses[service] = Status{Healthy: true}
}

// OnRecovery registers a hook invoked whenever a probe confirms an
// unhealthy service has recovered, after its breaker has been reset.
// Wire it before Start.
func (m *Monitor) OnRecovery(fn func(service string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRecovery = fn
}

// Start launches the probe loop. Calling Start on a running monitor is
// a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stop = make(chan struct{})

	m.wg.Add(1)
	go m.run(m.stop)
}

// Stop halts the probe loop and waits for any in-flight round to finish,
// so a recovery reset is never left half-applied.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	m.mu.Unlock()

	m.wg.Wait()
}

// Health returns a snapshot of every registered service's probe status.
func (m *Monitor) Health() map[string]Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Status, len(m.statuses))
	for name, st := range m.statuses {
		out[name] = st
	}
	return out
}

func (m *Monitor) run(stop chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.checkAll()
		}
	}
}

// checkAll probes every registered service once. The monitor's mutex is
// never held while a probe or a breaker reset is in flight.
func (m *Monitor) checkAll() {
	m.mu.Lock()
	probes := make(map[string]Probe, len(m.probes))
	for name, p := range m.probes {
		probes[name] = p
	}
	m.mu.Unlock()

	for service, probe := range probes {
		start := time.Now()
		healthy := m.runProbe(probe)
		metrics.RecordHealthProbe(service, healthy, time.Since(start))

		m.mu.Lock()
		st := m.statuses[service]
		wasHealthy := st.Healthy
		st.Healthy = healthy
		st.LastCheckedAt = time.Now()
		if healthy {
			st.LastHealthyAt = st.LastCheckedAt
		}
		m.statuses[service] = st
		onRecovery := m.onRecovery
		m.mu.Unlock()

		switch {
		case healthy && !wasHealthy:
			m.logger.Info("service recovered, resetting circuit breaker",
				"service", service,
			)
			m.resetter.Reset(service)
			metrics.RecordBreakerReset(service, "recovery")
			if onRecovery != nil {
				onRecovery(service)
			}
		case !healthy && wasHealthy:
			m.logger.Warn("service became unhealthy",
				"service", service,
			)
		}
	}
}

// runProbe executes one probe under the configured timeout. The result
// channel is buffered so a probe that answers after the deadline does
// not leak its goroutine.
func (m *Monitor) runProbe(probe Probe) bool {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	defer cancel()

	result := make(chan bool, 1)
	go func() {
		result <- probe(ctx)
	}()

	select {
	case healthy := <-result:
		return healthy
	case <-ctx.Done():
		return false
	}
}
