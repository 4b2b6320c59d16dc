package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	counters   []counterCall
	histograms []histCall
	flushCount int
	flushErr   error
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histograms = append(f.histograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return f.flushErr
}

// install swaps in a fake backend and restores the previous one afterwards.
func install(t *testing.T, f *fakeBackend) {
	t.Helper()
	prev := backend
	SetBackend(f)
	t.Cleanup(func() { backend = prev })
}

func TestRecordPhase(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus string
	}{
		{"success", nil, "success"},
		{"failure", errors.New("boom"), "failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeBackend{}
			install(t, f)

			RecordPhase("generate", tt.err, 250*time.Millisecond)

			if len(f.counters) != 1 || len(f.histograms) != 1 {
				t.Fatalf("got %d counters, %d histograms; want 1 each", len(f.counters), len(f.histograms))
			}
			c := f.counters[0]
			if c.name != "batch_phase_total" || c.delta != 1 {
				t.Errorf("counter = %q/%v", c.name, c.delta)
			}
			if c.labels["phase"] != "generate" || c.labels["status"] != tt.wantStatus {
				t.Errorf("labels = %v", c.labels)
			}
			h := f.histograms[0]
			if h.name != "batch_phase_duration_seconds" || h.value != 0.25 {
				t.Errorf("histogram = %q/%v", h.name, h.value)
			}
		})
	}
}

func TestRecordJobs(t *testing.T) {
	f := &fakeBackend{}
	install(t, f)

	RecordJobs("execute", "succeeded", 3)
	RecordJobs("execute", "failed", 0)
	RecordJobs("execute", "failed", -2)

	if len(f.counters) != 1 {
		t.Fatalf("got %d counter calls; non-positive deltas must be dropped", len(f.counters))
	}
	c := f.counters[0]
	if c.name != "batch_jobs_total" || c.delta != 3 {
		t.Errorf("counter = %q/%v", c.name, c.delta)
	}
	if c.labels["phase"] != "execute" || c.labels["kind"] != "succeeded" {
		t.Errorf("labels = %v", c.labels)
	}
}

func TestSetBackendNilKeepsExisting(t *testing.T) {
	f := &fakeBackend{}
	install(t, f)

	SetBackend(nil)
	RecordJobs("generate", "generated", 1)

	if len(f.counters) != 1 {
		t.Fatalf("nil backend replaced the installed one")
	}
}

func TestFlushDelegates(t *testing.T) {
	f := &fakeBackend{flushErr: errors.New("push failed")}
	install(t, f)

	if err := Flush(); err == nil {
		t.Fatal("expected flush error")
	}
	if f.flushCount != 1 {
		t.Fatalf("flushCount = %d", f.flushCount)
	}
}
