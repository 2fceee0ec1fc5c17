package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"repomatch/internal/logging"
	"repomatch/internal/recommend"
)

// Recommender is satisfied by *recommend.Engine.
type Recommender interface {
	Recommend(ctx context.Context, username string, p recommend.Params) (*recommend.Result, error)
}

// BatchOptions bounds a batch run.
type BatchOptions struct {
	Concurrency   int     // <= 0 means 1
	RatePerSecond float64 // <= 0 means unlimited
	Burst         int
	// OnResult, if set, is called once per successful user. Calls are serialized.
	OnResult func(*recommend.Result)
}

// RunBatch computes recommendations for every user. A failing user does not
// stop the others; all failures come back together in one error.
func RunBatch(ctx context.Context, r Recommender, users []string, p recommend.Params, opts BatchOptions) (map[string]*recommend.Result, error) {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)

	conc := opts.Concurrency
	if conc < 1 {
		conc = 1
	}

	start := time.Now()
	var (
		mu      sync.Mutex
		results = make(map[string]*recommend.Result, len(users))
		errs    *multierror.Error
	)
	var g errgroup.Group
	g.SetLimit(conc)
	for _, u := range users {
		u := u
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", u, err))
				mu.Unlock()
				return nil
			}
			res, err := r.Recommend(ctx, u, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", u, err))
				return nil
			}
			results[u] = res
			if opts.OnResult != nil {
				opts.OnResult(res)
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	if errs != nil {
		failed = len(errs.Errors)
	}
	logging.Info("batch_done", map[string]any{
		"users": len(users), "ok": len(results), "failed": failed,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return results, errs.ErrorOrNil()
}

// RunBatchLoop runs RunBatch on a ticker until ctx is cancelled. users is
// called before every run so newly stored owners are picked up. interval must
// be positive.
func RunBatchLoop(ctx context.Context, r Recommender, users func(context.Context) ([]string, error), p recommend.Params, opts BatchOptions, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("batch loop interval must be positive, got %v", interval)
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	runOnce := func() {
		list, err := users(ctx)
		if err != nil {
			logging.Error("batch_users_error", map[string]any{"error": err.Error()})
			return
		}
		if _, err := RunBatch(ctx, r, list, p, opts); err != nil {
			logging.Error("batch_error", map[string]any{"error": err.Error()})
		}
	}
	// run immediately
	runOnce()
	for {
		select {
		case <-ctx.Done():
			logging.Info("batch_loop_stop", nil)
			return ctx.Err()
		case <-t.C:
			runOnce()
		}
	}
}
