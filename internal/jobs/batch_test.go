package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repomatch/internal/model"
	"repomatch/internal/recommend"
	"repomatch/internal/store/sqlitestore"
)

type fakeRecommender struct {
	fail     map[string]error
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeRecommender) Recommend(ctx context.Context, username string, p recommend.Params) (*recommend.Result, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		old := f.peak.Load()
		if n <= old || f.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	if err := f.fail[username]; err != nil {
		return nil, err
	}
	return &recommend.Result{Username: username}, nil
}

func TestRunBatchCollectsResultsAndErrors(t *testing.T) {
	storeErr := &sqlitestore.AccessError{Op: "owned repos", Err: errors.New("locked")}
	f := &fakeRecommender{fail: map[string]error{
		"bob":   storeErr,
		"carol": &recommend.ConfigurationError{Field: "top_n", Value: 0, Reason: "must be greater than 0"},
	}}
	var seen []string
	res, err := RunBatch(context.Background(), f, []string{"alice", "bob", "carol", "dave"}, recommend.DefaultParams(),
		BatchOptions{Concurrency: 2, OnResult: func(r *recommend.Result) { seen = append(seen, r.Username) }})

	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)

	var ae *sqlitestore.AccessError
	assert.ErrorAs(t, err, &ae)

	assert.Len(t, res, 2)
	assert.Contains(t, res, "alice")
	assert.Contains(t, res, "dave")
	assert.ElementsMatch(t, []string{"alice", "dave"}, seen)
	assert.LessOrEqual(t, f.peak.Load(), int32(2))
}

func TestRunBatchCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeRecommender{}
	res, err := RunBatch(ctx, f, []string{"a", "b"}, recommend.DefaultParams(),
		BatchOptions{Concurrency: 1, RatePerSecond: 0.001, Burst: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res)
}

func TestRunBatchAgainstStore(t *testing.T) {
	ctx := context.Background()
	db, err := sqlitestore.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.CreateSchema(ctx))
	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, r := range []model.RepositoryRecord{
		{OwnerUsername: "alice", FullName: "alice/cli", Description: model.StringPtr("command line tool"), Language: model.StringPtr("Go"), Stars: 1, CreatedAt: created},
		{OwnerUsername: "bob", FullName: "bob/cli", Description: model.StringPtr("command line tool"), Language: model.StringPtr("Go"), Stars: 9, CreatedAt: created},
		{OwnerUsername: "carol", FullName: "carol/web", Description: model.StringPtr("web server"), Language: model.StringPtr("Rust"), Stars: 4, CreatedAt: created},
	} {
		require.NoError(t, db.PutRepository(ctx, r))
	}
	users, err := db.Owners(ctx)
	require.NoError(t, err)

	engine := recommend.NewEngine(db)
	res, err := RunBatch(ctx, engine, users, recommend.DefaultParams(), BatchOptions{Concurrency: 3, RatePerSecond: 100, Burst: 3})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Len(t, res["alice"].Similar, 2)
	require.Len(t, res["alice"].ByLanguage, 1)
	assert.Equal(t, "bob/cli", res["alice"].ByLanguage[0].FullName)
}

func TestRunBatchLoopRunsImmediatelyAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	users := func(context.Context) ([]string, error) {
		if calls.Add(1) == 2 {
			cancel()
		}
		return []string{"alice"}, nil
	}
	err := RunBatchLoop(ctx, &fakeRecommender{}, users, recommend.DefaultParams(), BatchOptions{}, time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestRunBatchLoopRejectsNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		var calls atomic.Int32
		users := func(context.Context) ([]string, error) {
			calls.Add(1)
			return []string{"alice"}, nil
		}
		err := RunBatchLoop(context.Background(), &fakeRecommender{}, users, recommend.DefaultParams(), BatchOptions{}, interval)
		require.Error(t, err, "interval %v", interval)
		assert.Contains(t, err.Error(), "must be positive")
		assert.Zero(t, calls.Load())
	}
}
