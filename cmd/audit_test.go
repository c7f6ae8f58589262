package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/avoronkov/pdnaudit/internal/engine"
	"github.com/avoronkov/pdnaudit/internal/score"
)

func writeTargetsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write targets file: %v", err)
	}
	return path
}

func TestReadTargetsFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "plain list",
			content: "https://a.ru\nhttps://b.ru\n",
			want:    []string{"https://a.ru", "https://b.ru"},
		},
		{
			name:    "comments and blank lines skipped",
			content: "# batch for monday\n\nhttps://a.ru\n   \n# trailing note\nhttps://b.ru\n",
			want:    []string{"https://a.ru", "https://b.ru"},
		},
		{
			name:    "duplicates collapse keeping first position",
			content: "https://a.ru\nhttps://b.ru\nhttps://a.ru\nhttps://c.ru\n",
			want:    []string{"https://a.ru", "https://b.ru", "https://c.ru"},
		},
		{
			name:    "surrounding whitespace trimmed",
			content: "  https://a.ru  \n\thttps://b.ru\n",
			want:    []string{"https://a.ru", "https://b.ru"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTargetsFile(t, tt.content)
			got, err := readTargetsFile(path)
			if err != nil {
				t.Fatalf("readTargetsFile() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("readTargetsFile() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("empty file is an error", func(t *testing.T) {
		path := writeTargetsFile(t, "# only comments\n\n")
		if _, err := readTargetsFile(path); err == nil {
			t.Error("expected error for a file with no targets")
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		if _, err := readTargetsFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
			t.Error("expected error for a missing file")
		}
	})
}

// stubRunner counts calls per target and can fail targets outright or
// report unavailable checks for the first N attempts.
type stubRunner struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]error
	degraded map[string]int
}

func newStubRunner() *stubRunner {
	return &stubRunner{
		calls:    make(map[string]int),
		failures: make(map[string]error),
		degraded: make(map[string]int),
	}
}

func (s *stubRunner) RunAudit(_ context.Context, req engine.Request) (*engine.Report, error) {
	s.mu.Lock()
	s.calls[req.URL]++
	attempt := s.calls[req.URL]
	s.mu.Unlock()

	if err, ok := s.failures[req.URL]; ok {
		return nil, err
	}

	rep := &engine.Report{
		ID:      fmt.Sprintf("%s#%d", req.URL, attempt),
		Target:  req.URL,
		Summary: score.Summary{Score: 80, Total: 13},
	}
	if attempt <= s.degraded[req.URL] {
		rep.Summary.Unavailable = 2
	}
	return rep, nil
}

func (s *stubRunner) callCount(target string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[target]
}

func makeRequests(targets ...string) []engine.Request {
	reqs := make([]engine.Request, len(targets))
	for i, t := range targets {
		reqs[i] = engine.Request{URL: t}
	}
	return reqs
}

func TestBatchRunnerKeepsSubmissionOrder(t *testing.T) {
	targets := []string{"https://a.ru", "https://b.ru", "https://c.ru", "https://d.ru", "https://e.ru"}
	stub := newStubRunner()

	var done int32
	br := &batchRunner{Concurrency: 3, RateLimit: 100, OnDone: func() { atomic.AddInt32(&done, 1) }}
	results := br.Run(context.Background(), stub, makeRequests(targets...))

	if len(results) != len(targets) {
		t.Fatalf("got %d results, want %d", len(results), len(targets))
	}
	for i, res := range results {
		if res.Target != targets[i] {
			t.Errorf("results[%d].Target = %q, want %q", i, res.Target, targets[i])
		}
		if res.Err != nil {
			t.Errorf("results[%d].Err = %v, want nil", i, res.Err)
		}
		if res.Report == nil {
			t.Errorf("results[%d].Report is nil", i)
		}
	}
	if got := atomic.LoadInt32(&done); got != int32(len(targets)) {
		t.Errorf("OnDone fired %d times, want %d", got, len(targets))
	}
}

func TestBatchRunnerRecordsErrors(t *testing.T) {
	stub := newStubRunner()
	stub.failures["https://bad.ru"] = errors.New("target is not a valid URL or hostname")

	br := &batchRunner{Concurrency: 2, RateLimit: 100}
	results := br.Run(context.Background(), stub, makeRequests("https://ok.ru", "https://bad.ru"))

	if results[0].Err != nil {
		t.Errorf("healthy target got error: %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("failing target got no error")
	}
	if results[1].Report != nil {
		t.Error("failing target got a report")
	}
}

func TestBatchRunnerDefaults(t *testing.T) {
	br := &batchRunner{}
	if got := br.concurrency(); got != 1 {
		t.Errorf("concurrency() = %d, want 1", got)
	}
	if got := br.rateLimit(); got != 1 {
		t.Errorf("rateLimit() = %d, want 1", got)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		res  batchResult
		want bool
	}{
		{
			name: "validation error never retries",
			res:  batchResult{Err: errors.New("empty target")},
			want: false,
		},
		{
			name: "clean report settles",
			res:  batchResult{Report: &engine.Report{Summary: score.Summary{Score: 90}}},
			want: false,
		},
		{
			name: "unavailable checks retry",
			res:  batchResult{Report: &engine.Report{Summary: score.Summary{Score: 60, Unavailable: 3}}},
			want: true,
		},
		{
			name: "missing report does not retry",
			res:  batchResult{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.res); got != tt.want {
				t.Errorf("retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunWithRetriesSettlesDegradedTargets(t *testing.T) {
	stub := newStubRunner()
	stub.degraded["https://flaky.ru"] = 1 // first attempt unavailable, second clean

	br := &batchRunner{Concurrency: 2, RateLimit: 100}
	reqs := makeRequests("https://ok.ru", "https://flaky.ru")

	var retries int
	results := runWithRetries(context.Background(), br, stub, reqs, 3, func(count, attempt, max int) {
		retries++
		if count != 1 {
			t.Errorf("retry pass covered %d targets, want 1", count)
		}
	})

	if retries != 1 {
		t.Errorf("retry fired %d times, want 1", retries)
	}
	if got := stub.callCount("https://ok.ru"); got != 1 {
		t.Errorf("healthy target audited %d times, want 1", got)
	}
	if got := stub.callCount("https://flaky.ru"); got != 2 {
		t.Errorf("flaky target audited %d times, want 2", got)
	}
	if results[1].Report.Summary.Unavailable != 0 {
		t.Errorf("flaky target still has %d unavailable checks after retry", results[1].Report.Summary.Unavailable)
	}
	// Submission order survives the patch-back.
	if results[0].Target != "https://ok.ru" || results[1].Target != "https://flaky.ru" {
		t.Errorf("order changed: %q, %q", results[0].Target, results[1].Target)
	}
}

func TestRunWithRetriesStopsAtMaxAttempts(t *testing.T) {
	stub := newStubRunner()
	stub.degraded["https://down.ru"] = 10 // never recovers

	br := &batchRunner{Concurrency: 1, RateLimit: 100}
	results := runWithRetries(context.Background(), br, stub, makeRequests("https://down.ru"), 3, nil)

	if got := stub.callCount("https://down.ru"); got != 3 {
		t.Errorf("target audited %d times, want 3", got)
	}
	if results[0].Report.Summary.Unavailable == 0 {
		t.Error("expected the final report to still carry unavailable checks")
	}
}

func TestRunWithRetriesSkipsValidationFailures(t *testing.T) {
	stub := newStubRunner()
	stub.failures["https://bad.ru"] = errors.New("target is not a valid URL or hostname")

	br := &batchRunner{Concurrency: 1, RateLimit: 100}
	runWithRetries(context.Background(), br, stub, makeRequests("https://bad.ru"), 5, nil)

	if got := stub.callCount("https://bad.ru"); got != 1 {
		t.Errorf("failing target audited %d times, want 1", got)
	}
}

func TestResolveAuditTargetsSourceExclusion(t *testing.T) {
	restore := func() {
		auditFile = ""
		auditList = ""
	}
	defer restore()

	t.Run("no source", func(t *testing.T) {
		restore()
		if _, err := resolveAuditTargets(context.Background(), nil); err == nil {
			t.Error("expected error when no target source is given")
		}
	})

	t.Run("positional with file", func(t *testing.T) {
		restore()
		auditFile = "targets.txt"
		if _, err := resolveAuditTargets(context.Background(), []string{"https://a.ru"}); err == nil {
			t.Error("expected error when both a URL and --file are given")
		}
	})

	t.Run("positional only", func(t *testing.T) {
		restore()
		got, err := resolveAuditTargets(context.Background(), []string{"https://a.ru"})
		if err != nil {
			t.Fatalf("resolveAuditTargets() error = %v", err)
		}
		if len(got) != 1 || got[0] != "https://a.ru" {
			t.Errorf("resolveAuditTargets() = %v", got)
		}
	})
}
