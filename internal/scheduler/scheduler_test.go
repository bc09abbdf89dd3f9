package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/paristimemachine/galligeo/internal/domain"
)

// captureLog records every Create call.
type captureLog struct {
	mu    sync.Mutex
	calls []string // "owner/trigger"
}

func (c *captureLog) Create(_ context.Context, owner, trigger, _ string) (*domain.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, owner+"/"+trigger)
	return &domain.Snapshot{}, nil
}

func (c *captureLog) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *captureLog) waitFor(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if calls := c.snapshot(); len(calls) >= n {
			return calls
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d captures, have %v", n, c.snapshot())
	return nil
}

func TestScheduler_DebounceCollapsesBurst(t *testing.T) {
	caps := &captureLog{}
	s := New(caps, Options{Settle: 40 * time.Millisecond})
	s.Start()
	defer s.Stop()

	// Three rapid mutations inside the settle window.
	s.NotifyMutation("u1")
	time.Sleep(10 * time.Millisecond)
	s.NotifyMutation("u1")
	time.Sleep(10 * time.Millisecond)
	s.NotifyMutation("u1")

	calls := caps.waitFor(t, 1)
	if calls[0] != "u1/"+domain.TriggerUserAction {
		t.Fatalf("unexpected capture %q", calls[0])
	}

	// Let any stray timer fire; the burst must have produced exactly one.
	time.Sleep(100 * time.Millisecond)
	if got := caps.snapshot(); len(got) != 1 {
		t.Fatalf("burst should collapse to one capture, got %v", got)
	}
}

func TestScheduler_IntervalCapturesDirtyOwnersOnly(t *testing.T) {
	caps := &captureLog{}
	s := New(caps, Options{AutoEnabled: true, Interval: 30 * time.Millisecond})
	s.Start()
	defer s.Stop()

	s.NotifyMutation("u1")
	calls := caps.waitFor(t, 1)
	if calls[0] != "u1/"+domain.TriggerAuto {
		t.Fatalf("unexpected capture %q", calls[0])
	}

	// Once captured the owner is clean again; quiet ticks capture nothing.
	time.Sleep(100 * time.Millisecond)
	if got := caps.snapshot(); len(got) != 1 {
		t.Fatalf("clean owners must not be recaptured, got %v", got)
	}
}

func TestScheduler_EnableDisableTogglesIntervalCapture(t *testing.T) {
	caps := &captureLog{}
	s := New(caps, Options{Interval: 20 * time.Millisecond})
	s.Start()
	defer s.Stop()

	// Disabled at construction: ticks pass without capturing.
	s.NotifyMutation("u1")
	time.Sleep(80 * time.Millisecond)
	if got := caps.snapshot(); len(got) != 0 {
		t.Fatalf("disabled scheduler must not auto-capture, got %v", got)
	}

	s.Enable()
	calls := caps.waitFor(t, 1)
	if calls[0] != "u1/"+domain.TriggerAuto {
		t.Fatalf("unexpected capture %q", calls[0])
	}

	s.Disable()
	s.NotifyMutation("u1")
	time.Sleep(80 * time.Millisecond)
	if got := caps.snapshot(); len(got) != 1 {
		t.Fatalf("disable must stop interval capture, got %v", got)
	}
}

func TestScheduler_FlushIsSynchronousAndClears(t *testing.T) {
	caps := &captureLog{}
	s := New(caps, Options{})
	s.Start()
	defer s.Stop()

	s.NotifyMutation("u1")
	s.NotifyMutation("u2")
	s.Flush(context.Background(), domain.TriggerUnload)

	got := caps.snapshot()
	if len(got) != 2 {
		t.Fatalf("flush should capture both dirty owners, got %v", got)
	}
	seen := map[string]bool{}
	for _, c := range got {
		seen[c] = true
	}
	if !seen["u1/"+domain.TriggerUnload] || !seen["u2/"+domain.TriggerUnload] {
		t.Fatalf("wrong flush triggers: %v", got)
	}

	// A second flush has nothing left to do.
	s.Flush(context.Background(), domain.TriggerUnload)
	if got := caps.snapshot(); len(got) != 2 {
		t.Fatalf("second flush must be a no-op, got %v", got)
	}
}

func TestScheduler_StopCancelsPendingSettle(t *testing.T) {
	caps := &captureLog{}
	s := New(caps, Options{Settle: 50 * time.Millisecond})
	s.Start()

	s.NotifyMutation("u1")
	s.Stop()

	time.Sleep(120 * time.Millisecond)
	if got := caps.snapshot(); len(got) != 0 {
		t.Fatalf("stopped scheduler must not capture, got %v", got)
	}

	// After Stop further mutations are ignored rather than panicking.
	s.NotifyMutation("u1")
}
