package circuitbreaker

import (
	"log/slog"
	"sync"
	"time"
)

// Registry hands out one breaker per service name and fans out their
// state transitions to logging, metrics and any hook the caller wires in.
// All methods are safe for concurrent use.
type Registry struct {
	logger   *slog.Logger
	recorder StateRecorder
	now      func() time.Time

	mu        sync.RWMutex
	defaults  Config
	overrides map[string]Config
	breakers  map[string]*Breaker
	hook      TransitionFunc
}

// NewRegistry returns a registry that creates breakers with the given
// default configuration and records their states to Prometheus.
func NewRegistry(defaults Config, logger *slog.Logger) *Registry {
	return NewRegistryWithRecorder(defaults, logger, NewPrometheusStateRecorder())
}

// NewRegistryWithRecorder is like NewRegistry but with an explicit state
// recorder. Tests pass a no-op recorder to avoid touching the global
// Prometheus registry.
func NewRegistryWithRecorder(defaults Config, logger *slog.Logger, recorder StateRecorder) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = NoopStateRecorder{}
	}
	return &Registry{
		logger:    logger,
		recorder:  recorder,
		now:       time.Now,
		defaults:  defaults,
		overrides: make(map[string]Config),
		breakers:  make(map[string]*Breaker),
	}
}

// SetOverride installs a per-service configuration used instead of the
// defaults when the named service's breaker is created. Overrides for
// breakers that already exist have no effect.
func (r *Registry) SetOverride(name string, cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[name] = cfg
}

// OnTransition registers a hook invoked after every breaker state change,
// in addition to the registry's own logging and metrics. Wire it before
// the first GetOrCreate; breakers capture the registry's dispatch once.
func (r *Registry) OnTransition(fn TransitionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hook = fn
}

// GetOrCreate returns the breaker for the named service, creating it on
// first use. Concurrent callers asking for the same name always receive
// the same breaker.
func (r *Registry) GetOrCreate(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}

	cfg := r.defaults
	if override, ok := r.overrides[name]; ok {
		cfg = override
	}
	b = newBreaker(name, cfg, r.now, r.dispatch)
	r.breakers[name] = b
	r.recorder.RecordState(name, StateClosed)
	return b
}

// Snapshot returns the current state of every breaker created so far.
func (r *Registry) Snapshot() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make(map[string]State, len(r.breakers))
	for name, b := range r.breakers {
		states[name] = b.State()
	}
	return states
}

// Reset forces the named service's breaker to closed, creating it first
// if it does not exist yet.
func (r *Registry) Reset(name string) {
	r.GetOrCreate(name).Reset()
}

// ResetAll forces every breaker back to closed with a clean failure
// count. Used by admin tooling after a known-bad dependency window.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.RUnlock()

	for _, b := range breakers {
		b.Reset()
	}
}

// dispatch is the onChange hook shared by every breaker the registry
// creates. It runs outside the breaker's mutex.
func (r *Registry) dispatch(name string, from, to State) {
	r.logger.Warn("circuit breaker state changed",
		"circuit", name,
		"from", from.String(),
		"to", to.String(),
	)
	r.recorder.RecordTransition(name, from, to)
	r.recorder.RecordState(name, to)

	r.mu.RLock()
	hook := r.hook
	r.mu.RUnlock()
	if hook != nil {
		hook(name, from, to)
	}
}
