package checks

import (
	"context"
	"testing"
	"time"
)

type staticChecker struct {
	id     string
	status Status
	delay  time.Duration
	panics bool
}

func (c staticChecker) ID() string    { return c.id }
func (c staticChecker) Title() string { return "проверка " + c.id }

func (c staticChecker) Check(ctx context.Context, _ *Input) Result {
	if c.panics {
		panic("boom")
	}
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
		}
	}
	return Result{ID: c.id, Title: c.Title(), Status: c.status}
}

func TestRunnerPanicIsolation(t *testing.T) {
	checkers := []Checker{
		staticChecker{id: "first", status: StatusOK},
		staticChecker{id: "второй", panics: true},
		staticChecker{id: "third", status: StatusFail},
	}

	results := NewRunner().Run(context.Background(), checkers, &Input{})
	if len(results) != len(checkers) {
		t.Fatalf("got %d results, want %d", len(results), len(checkers))
	}
	if results[0].Status != StatusOK || results[2].Status != StatusFail {
		t.Errorf("neighbor results corrupted: %+v", results)
	}
	if results[1].Status != StatusUnavailable {
		t.Errorf("panicking checker status = %s, want unavailable", results[1].Status)
	}
	if len(results[1].Limitations) == 0 {
		t.Error("panicking checker must carry a limitation note")
	}
}

func TestRunnerWatchdog(t *testing.T) {
	r := &Runner{Concurrency: 2, Timeout: 50 * time.Millisecond}
	checkers := []Checker{
		sleeper{d: 5 * time.Second},
		staticChecker{id: "fast", status: StatusOK},
	}

	start := time.Now()
	results := r.Run(context.Background(), checkers, &Input{})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("battery stalled for %v waiting on a slow checker", elapsed)
	}

	if results[0].Status != StatusUnavailable {
		t.Errorf("slow checker status = %s, want unavailable", results[0].Status)
	}
	if results[1].Status != StatusOK {
		t.Errorf("fast checker status = %s, want ok", results[1].Status)
	}
}

func TestRunnerPreservesOrder(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	checkers := make([]Checker, 0, len(ids))
	for i, id := range ids {
		// Later checkers finish first.
		delay := time.Duration(len(ids)-i) * 10 * time.Millisecond
		checkers = append(checkers, staticChecker{id: id, status: StatusOK, delay: delay})
	}

	results := NewRunner().Run(context.Background(), checkers, &Input{})
	for i, id := range ids {
		if results[i].ID != id {
			t.Fatalf("results[%d] = %s, want %s (order not stable)", i, results[i].ID, id)
		}
	}
}

// sleeper ignores its context entirely, imitating a checker stuck in a
// blocking call.
type sleeper struct{ d time.Duration }

func (sleeper) ID() string    { return "sleeper" }
func (sleeper) Title() string { return "зависшая проверка" }
func (s sleeper) Check(context.Context, *Input) Result {
	time.Sleep(s.d)
	return Result{ID: "sleeper", Status: StatusOK}
}

func TestRunnerHonorsParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewRunner().Run(ctx, []Checker{sleeper{d: 2 * time.Second}}, &Input{})

	if results[0].Status != StatusUnavailable {
		t.Errorf("status = %s, want unavailable under canceled context", results[0].Status)
	}
}

func TestDefaultBatteryOrder(t *testing.T) {
	battery := DefaultBattery(nil)
	if len(battery) < 10 {
		t.Fatalf("battery unexpectedly small: %d checkers", len(battery))
	}

	seen := make(map[string]bool)
	for _, c := range battery {
		if c.ID() == "" || c.Title() == "" {
			t.Errorf("checker %T lacks identity", c)
		}
		if seen[c.ID()] {
			t.Errorf("duplicate checker id %s", c.ID())
		}
		seen[c.ID()] = true
	}
	if battery[0].ID() != IDPrivacyPolicy {
		t.Errorf("battery starts with %s, want %s", battery[0].ID(), IDPrivacyPolicy)
	}
}
