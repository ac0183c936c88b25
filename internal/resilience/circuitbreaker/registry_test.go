package circuitbreaker

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistry_GetOrCreate(t *testing.T) {
	r := NewRegistryWithRecorder(DefaultConfig(), testLogger(), NoopStateRecorder{})

	b1 := r.GetOrCreate("llm")
	b2 := r.GetOrCreate("llm")

	if b1 == nil {
		t.Fatal("expected breaker, got nil")
	}
	if b1 != b2 {
		t.Error("expected the same breaker instance for the same name")
	}
	if b1.Name() != "llm" {
		t.Errorf("expected name='llm', got %q", b1.Name())
	}

	other := r.GetOrCreate("speech")
	if other == b1 {
		t.Error("expected distinct breakers for distinct names")
	}
}

func TestRegistry_GetOrCreateConcurrent(t *testing.T) {
	r := NewRegistryWithRecorder(DefaultConfig(), testLogger(), NoopStateRecorder{})

	const goroutines = 50
	results := make([]*Breaker, goroutines)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			results[idx] = r.GetOrCreate("llm")
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d received a different breaker instance", i)
		}
	}
}

func TestRegistry_SetOverride(t *testing.T) {
	r := NewRegistryWithRecorder(DefaultConfig(), testLogger(), NoopStateRecorder{})
	r.SetOverride("speech", Config{
		FailureThreshold:    1,
		OpenTimeout:         time.Minute,
		HalfOpenMaxAttempts: 1,
	})

	speech := r.GetOrCreate("speech")
	llm := r.GetOrCreate("llm")

	// The overridden breaker opens on a single failure; the default one
	// needs three.
	speech.RecordFailure()
	if got := speech.State(); got != StateOpen {
		t.Errorf("expected overridden breaker open after 1 failure, got %v", got)
	}
	llm.RecordFailure()
	if got := llm.State(); got != StateClosed {
		t.Errorf("expected default breaker closed after 1 failure, got %v", got)
	}
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistryWithRecorder(DefaultConfig(), testLogger(), NoopStateRecorder{})

	r.GetOrCreate("llm")
	speech := r.GetOrCreate("speech")
	speech.RecordFailure()
	speech.RecordFailure()
	speech.RecordFailure()

	snapshot := r.Snapshot()

	if len(snapshot) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snapshot))
	}
	if got := snapshot["llm"]; got != StateClosed {
		t.Errorf("expected llm=closed, got %v", got)
	}
	if got := snapshot["speech"]; got != StateOpen {
		t.Errorf("expected speech=open, got %v", got)
	}
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistryWithRecorder(DefaultConfig(), testLogger(), NoopStateRecorder{})

	b := r.GetOrCreate("llm")
	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	if got := b.State(); got != StateOpen {
		t.Fatalf("expected state=open, got %v", got)
	}

	r.Reset("llm")
	if got := b.State(); got != StateClosed {
		t.Errorf("expected state=closed after reset, got %v", got)
	}

	// Resetting an unknown service creates its breaker rather than
	// failing.
	r.Reset("transcripts")
	if got := r.GetOrCreate("transcripts").State(); got != StateClosed {
		t.Errorf("expected created breaker closed, got %v", got)
	}
}

func TestRegistry_ResetAll(t *testing.T) {
	r := NewRegistryWithRecorder(DefaultConfig(), testLogger(), NoopStateRecorder{})

	llm := r.GetOrCreate("llm")
	speech := r.GetOrCreate("speech")
	for i := 0; i < 3; i++ {
		llm.RecordFailure()
		speech.RecordFailure()
	}
	if llm.State() != StateOpen || speech.State() != StateOpen {
		t.Fatalf("expected both breakers open, got llm=%v speech=%v", llm.State(), speech.State())
	}

	r.ResetAll()

	snapshot := r.Snapshot()
	for name, state := range snapshot {
		if state != StateClosed {
			t.Errorf("expected %s=closed after ResetAll, got %v", name, state)
		}
	}
}

func TestRegistry_OnTransition(t *testing.T) {
	r := NewRegistryWithRecorder(DefaultConfig(), testLogger(), NoopStateRecorder{})

	type transition struct {
		name     string
		from, to State
	}
	var mu sync.Mutex
	var seen []transition
	r.OnTransition(func(name string, from, to State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, transition{name, from, to})
	})

	b := r.GetOrCreate("llm")
	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	b.Reset()

	mu.Lock()
	defer mu.Unlock()
	want := []transition{
		{"llm", StateClosed, StateOpen},
		{"llm", StateOpen, StateClosed},
	}
	if len(seen) != len(want) {
		t.Fatalf("expected %d transitions, got %d: %v", len(want), len(seen), seen)
	}
	for i, tr := range want {
		if seen[i] != tr {
			t.Errorf("transition %d: expected %v, got %v", i, tr, seen[i])
		}
	}
}
