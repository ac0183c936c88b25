package circuitbreaker

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock so tests can cross the open
// timeout without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	return Config{
		FailureThreshold:    3,
		OpenTimeout:         60 * time.Second,
		HalfOpenMaxAttempts: 1,
	}
}

func TestNew(t *testing.T) {
	b := New("llm", testConfig())

	if b == nil {
		t.Fatal("expected breaker, got nil")
	}
	if b.Name() != "llm" {
		t.Errorf("expected name='llm', got %q", b.Name())
	}
	if b.State() != StateClosed {
		t.Errorf("expected initial state=closed, got %v", b.State())
	}
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	clock := newFakeClock()
	b := newBreaker("llm", testConfig(), clock.Now, nil)

	// Two failures stay below the threshold of three.
	b.RecordFailure()
	b.RecordFailure()
	if got := b.State(); got != StateClosed {
		t.Fatalf("expected state=closed after 2 failures, got %v", got)
	}
	if err := b.Allow(); err != nil {
		t.Errorf("expected call admitted while closed, got %v", err)
	}

	// Third failure trips the breaker.
	b.RecordFailure()
	if got := b.State(); got != StateOpen {
		t.Fatalf("expected state=open after 3 failures, got %v", got)
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen while open, got %v", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	clock := newFakeClock()
	b := newBreaker("llm", testConfig(), clock.Now, nil)

	// Failures separated by a success never accumulate to the threshold.
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	if got := b.State(); got != StateClosed {
		t.Errorf("expected state=closed, got %v", got)
	}

	b.RecordFailure()
	if got := b.State(); got != StateOpen {
		t.Errorf("expected state=open after 3 consecutive failures, got %v", got)
	}
}

func TestBreaker_OpenTimeoutBoundary(t *testing.T) {
	clock := newFakeClock()
	b := newBreaker("speech", testConfig(), clock.Now, nil)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	if got := b.State(); got != StateOpen {
		t.Fatalf("expected state=open, got %v", got)
	}

	// One second before the timeout the breaker still rejects.
	clock.Advance(59 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen at 59s, got %v", err)
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("expected state=open at 59s, got %v", got)
	}

	// At exactly the timeout the next caller is admitted as a trial.
	clock.Advance(1 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected trial admitted at 60s, got %v", err)
	}
	if got := b.State(); got != StateHalfOpen {
		t.Errorf("expected state=half-open after trial admission, got %v", got)
	}
}

func TestBreaker_SingleTrialWinner(t *testing.T) {
	clock := newFakeClock()
	b := newBreaker("speech", testConfig(), clock.Now, nil)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	clock.Advance(60 * time.Second)

	// Many goroutines race for the expired breaker; exactly one may win
	// the trial slot.
	const callers = 32
	var admitted atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if b.Allow() == nil {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := admitted.Load(); got != 1 {
		t.Errorf("expected exactly 1 admitted trial, got %d", got)
	}
	if got := b.State(); got != StateHalfOpen {
		t.Errorf("expected state=half-open, got %v", got)
	}
}

func TestBreaker_TrialSuccessCloses(t *testing.T) {
	clock := newFakeClock()
	b := newBreaker("llm", testConfig(), clock.Now, nil)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	clock.Advance(60 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected trial admitted, got %v", err)
	}

	b.RecordSuccess()

	if got := b.State(); got != StateClosed {
		t.Fatalf("expected state=closed after trial success, got %v", got)
	}

	// The failure count starts clean: the full threshold is needed to
	// open again.
	b.RecordFailure()
	b.RecordFailure()
	if got := b.State(); got != StateClosed {
		t.Errorf("expected state=closed after 2 failures post-recovery, got %v", got)
	}
}

func TestBreaker_TrialFailureReopensWithFreshTimeout(t *testing.T) {
	clock := newFakeClock()
	b := newBreaker("llm", testConfig(), clock.Now, nil)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	clock.Advance(60 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected trial admitted, got %v", err)
	}

	b.RecordFailure()

	if got := b.State(); got != StateOpen {
		t.Fatalf("expected state=open after trial failure, got %v", got)
	}

	// The timeout restarts from the trial failure, not the original trip.
	clock.Advance(59 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen 59s after re-open, got %v", err)
	}
	clock.Advance(1 * time.Second)
	if err := b.Allow(); err != nil {
		t.Errorf("expected trial admitted 60s after re-open, got %v", err)
	}
}

func TestBreaker_StaleReportsWhileOpenIgnored(t *testing.T) {
	clock := newFakeClock()
	b := newBreaker("llm", testConfig(), clock.Now, nil)

	// Admit a slow call, then open the breaker underneath it.
	if err := b.Allow(); err != nil {
		t.Fatalf("expected call admitted, got %v", err)
	}
	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	if got := b.State(); got != StateOpen {
		t.Fatalf("expected state=open, got %v", got)
	}

	// The slow call finishing must not disturb the open state or the
	// timeout; only elapsed time starts trials.
	b.RecordSuccess()
	if got := b.State(); got != StateOpen {
		t.Errorf("expected state=open after stale success, got %v", got)
	}
	b.RecordFailure()
	if got := b.State(); got != StateOpen {
		t.Errorf("expected state=open after stale failure, got %v", got)
	}

	clock.Advance(59 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("expected stale failure not to restamp the timeout, got %v", err)
	}
}

func TestBreaker_HalfOpenRespectsTrialBudget(t *testing.T) {
	cfg := testConfig()
	cfg.HalfOpenMaxAttempts = 2
	clock := newFakeClock()
	b := newBreaker("llm", cfg, clock.Now, nil)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	clock.Advance(60 * time.Second)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected first trial admitted, got %v", err)
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("expected second trial admitted, got %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("expected third caller rejected, got %v", err)
	}
}

func TestBreaker_FirstTrialReportDecides(t *testing.T) {
	cfg := testConfig()
	cfg.HalfOpenMaxAttempts = 2
	clock := newFakeClock()
	b := newBreaker("llm", cfg, clock.Now, nil)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	clock.Advance(60 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected first trial admitted, got %v", err)
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("expected second trial admitted, got %v", err)
	}

	// First trial fails: breaker re-opens immediately.
	b.RecordFailure()
	if got := b.State(); got != StateOpen {
		t.Fatalf("expected state=open after first trial failure, got %v", got)
	}

	// The second trial's late success lands in the open state and is
	// ignored like any stale report.
	b.RecordSuccess()
	if got := b.State(); got != StateOpen {
		t.Errorf("expected state=open after late trial success, got %v", got)
	}
}

func TestBreaker_LateTrialFailureCountsInClosed(t *testing.T) {
	cfg := testConfig()
	cfg.HalfOpenMaxAttempts = 2
	clock := newFakeClock()
	b := newBreaker("llm", cfg, clock.Now, nil)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	clock.Advance(60 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected first trial admitted, got %v", err)
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("expected second trial admitted, got %v", err)
	}

	// First trial succeeds and closes the breaker; the second trial's
	// failure is then an ordinary closed-state failure.
	b.RecordSuccess()
	if got := b.State(); got != StateClosed {
		t.Fatalf("expected state=closed after first trial success, got %v", got)
	}

	b.RecordFailure()
	if got := b.State(); got != StateClosed {
		t.Errorf("expected one late failure to leave breaker closed, got %v", got)
	}
	b.RecordFailure()
	b.RecordFailure()
	if got := b.State(); got != StateOpen {
		t.Errorf("expected threshold reached after 3 closed-state failures, got %v", got)
	}
}

func TestBreaker_Reset(t *testing.T) {
	clock := newFakeClock()
	b := newBreaker("speech", testConfig(), clock.Now, nil)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	if got := b.State(); got != StateOpen {
		t.Fatalf("expected state=open, got %v", got)
	}

	b.Reset()

	if got := b.State(); got != StateClosed {
		t.Fatalf("expected state=closed after reset, got %v", got)
	}
	if err := b.Allow(); err != nil {
		t.Errorf("expected call admitted after reset, got %v", err)
	}

	// The failure count is clean after reset.
	b.RecordFailure()
	b.RecordFailure()
	if got := b.State(); got != StateClosed {
		t.Errorf("expected state=closed after 2 failures post-reset, got %v", got)
	}
}

func TestBreaker_ResetWhileClosedClearsFailures(t *testing.T) {
	clock := newFakeClock()
	b := newBreaker("speech", testConfig(), clock.Now, nil)

	b.RecordFailure()
	b.RecordFailure()
	b.Reset()
	b.RecordFailure()
	b.RecordFailure()

	if got := b.State(); got != StateClosed {
		t.Errorf("expected state=closed, got %v", got)
	}
}

func TestBreaker_TransitionHook(t *testing.T) {
	clock := newFakeClock()

	type transition struct {
		name     string
		from, to State
	}
	var mu sync.Mutex
	var seen []transition

	b := newBreaker("llm", testConfig(), clock.Now, func(name string, from, to State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, transition{name, from, to})
	})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure() // closed -> open
	clock.Advance(60 * time.Second)
	if err := b.Allow(); err != nil { // open -> half-open
		t.Fatalf("expected trial admitted, got %v", err)
	}
	b.RecordSuccess() // half-open -> closed

	want := []transition{
		{"llm", StateClosed, StateOpen},
		{"llm", StateOpen, StateHalfOpen},
		{"llm", StateHalfOpen, StateClosed},
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("expected %d transitions, got %d: %v", len(want), len(seen), seen)
	}
	for i, tr := range want {
		if seen[i] != tr {
			t.Errorf("transition %d: expected %v, got %v", i, tr, seen[i])
		}
	}
}

func TestBreaker_HookRunsOutsideMutex(t *testing.T) {
	clock := newFakeClock()

	// A hook that re-enters the breaker would deadlock if it ran under
	// the state mutex.
	var b *Breaker
	b = newBreaker("llm", testConfig(), clock.Now, func(name string, from, to State) {
		_ = b.State()
	})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()

	if got := b.State(); got != StateOpen {
		t.Errorf("expected state=open, got %v", got)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String(): expected %q, got %q", tt.state, tt.want, got)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "default config is valid",
			cfg:     DefaultConfig(),
			wantErr: false,
		},
		{
			name:    "zero threshold",
			cfg:     Config{FailureThreshold: 0, OpenTimeout: time.Minute, HalfOpenMaxAttempts: 1},
			wantErr: true,
		},
		{
			name:    "zero open timeout",
			cfg:     Config{FailureThreshold: 3, OpenTimeout: 0, HalfOpenMaxAttempts: 1},
			wantErr: true,
		},
		{
			name:    "negative open timeout",
			cfg:     Config{FailureThreshold: 3, OpenTimeout: -time.Second, HalfOpenMaxAttempts: 1},
			wantErr: true,
		},
		{
			name:    "zero half-open attempts",
			cfg:     Config{FailureThreshold: 3, OpenTimeout: time.Minute, HalfOpenMaxAttempts: 0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(): expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
