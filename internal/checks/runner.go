package checks

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultConcurrency bounds how many checkers run at once. Most are
	// pure text scans; the cap mainly protects the outbound I/O ones.
	DefaultConcurrency = 8
	// DefaultCheckTimeout is the per-checker watchdog.
	DefaultCheckTimeout = 20 * time.Second
)

// Runner executes a battery of checkers against one Input. Results come
// back in registration order regardless of completion order, so downstream
// penalty aggregation is deterministic.
type Runner struct {
	Concurrency int
	Timeout     time.Duration
}

func NewRunner() *Runner {
	return &Runner{Concurrency: DefaultConcurrency, Timeout: DefaultCheckTimeout}
}

// Run fans the checkers out and collects every result. A checker that
// panics or outlives its watchdog yields an unavailable result; the rest of
// the battery is never affected.
func (r *Runner) Run(ctx context.Context, checkers []Checker, in *Input) []Result {
	results := make([]Result, len(checkers))

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency())

	for i, c := range checkers {
		i, c := i, c
		g.Go(func() error {
			results[i] = r.runOne(ctx, c, in)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// runOne guards a single checker with a watchdog: the checker runs in its
// own goroutine and the watchdog selects between its result and the
// deadline. A timed-out checker keeps running until its context fires, but
// its late result lands in a buffered channel nobody reads.
func (r *Runner) runOne(ctx context.Context, c Checker, in *Input) Result {
	checkCtx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	started := time.Now()
	done := make(chan Result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- Result{
					ID:          c.ID(),
					Title:       c.Title(),
					Status:      StatusUnavailable,
					Limitations: []string{fmt.Sprintf("внутренняя ошибка проверки: %v", p)},
				}
			}
		}()
		done <- c.Check(checkCtx, in)
	}()

	var res Result
	select {
	case res = <-done:
	case <-checkCtx.Done():
		res = Result{
			ID:          c.ID(),
			Title:       c.Title(),
			Status:      StatusUnavailable,
			Limitations: []string{"проверка не уложилась в отведённое время"},
		}
	}
	res.DurationMS = time.Since(started).Milliseconds()
	return res
}

func (r *Runner) concurrency() int {
	if r.Concurrency > 0 {
		return r.Concurrency
	}
	return DefaultConcurrency
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultCheckTimeout
}
