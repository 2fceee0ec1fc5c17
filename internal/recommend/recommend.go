package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"repomatch/internal/features"
	"repomatch/internal/logging"
	"repomatch/internal/metrics"
	"repomatch/internal/model"
	"repomatch/internal/store/sqlitestore"
)

// Store is the read side the engine needs.
type Store interface {
	OwnedRepos(ctx context.Context, username string) ([]model.RepositoryRecord, error)
	CandidateRepos(ctx context.Context, username string) ([]model.RepositoryRecord, error)
	LanguageSource
}

// Result holds both recommendation lists for one user.
type Result struct {
	Username    string              `json:"username"`
	Similar     []model.ScoredRepo  `json:"similar"`
	ByLanguage  []model.RepoSummary `json:"by_language"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// Engine produces recommendations. It keeps no per-request state, so one
// Engine may serve concurrent requests.
type Engine struct {
	store       Store
	now         func() time.Time
	maxFeatures int
}

// NewEngine returns an Engine reading from store with the wall clock and the
// default vocabulary cap.
func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now, maxFeatures: features.DefaultMaxFeatures}
}

// WithClock returns a copy of e that uses now as the reference clock for
// repository ages. e itself is not modified.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	c := *e
	c.now = now
	return &c
}

// WithMaxFeatures returns a copy of e with the TF-IDF vocabulary cap set to n.
// e itself is not modified.
func (e *Engine) WithMaxFeatures(n int) *Engine {
	c := *e
	c.maxFeatures = n
	return &c
}

// Recommend runs the similarity path and the language path for username.
func (e *Engine) Recommend(ctx context.Context, username string, p Params) (*Result, error) {
	start := time.Now()
	metrics.RecommendRuns.Inc()
	defer metrics.ObserveRecommendDuration(start)

	reqID := uuid.NewString()
	res, err := e.recommend(ctx, reqID, username, p)
	if err != nil {
		metrics.IncRecommendError(errorKind(err))
		logging.Error("recommend_error", map[string]any{
			"request_id": reqID, "username": username, "error": err.Error(),
		})
		return nil, err
	}
	logging.Info("recommend_ok", map[string]any{
		"request_id":  reqID,
		"username":    username,
		"similar":     len(res.Similar),
		"by_language": len(res.ByLanguage),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return res, nil
}

func (e *Engine) recommend(ctx context.Context, reqID, username string, p Params) (*Result, error) {
	if username == "" {
		return nil, ErrEmptyUsername
	}
	method, err := p.Validate()
	if err != nil {
		return nil, err
	}

	ref := e.now().UTC()
	owned, err := e.store.OwnedRepos(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("recommend %s: %w", username, err)
	}
	cands, err := e.store.CandidateRepos(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("recommend %s: %w", username, err)
	}
	user := features.Preprocess(owned, ref)
	candidates := features.Preprocess(cands, ref)
	logging.Debug("recommend_loaded", map[string]any{
		"request_id": reqID, "owned": len(user), "candidates": len(candidates),
	})

	similar, err := e.similar(user, candidates, method, p.TopN)
	if err != nil {
		return nil, fmt.Errorf("recommend %s: similarity: %w", username, err)
	}
	byLang, err := RecommendByLanguage(ctx, e.store, username, user, p.TopClusters, p.ReposPerCluster)
	if err != nil {
		return nil, fmt.Errorf("recommend %s: clusters: %w", username, err)
	}
	if byLang == nil {
		byLang = []model.RepoSummary{}
	}
	return &Result{Username: username, Similar: similar, ByLanguage: byLang, GeneratedAt: ref}, nil
}

func (e *Engine) similar(user, candidates []model.PreprocessedRecord, method Method, n int) ([]model.ScoredRepo, error) {
	um, cm := features.Build(user, candidates, e.maxFeatures)
	ranked, err := RankBySimilarity(um, cm, method, n)
	if err != nil {
		return nil, err
	}
	out := make([]model.ScoredRepo, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, model.ScoredRepo{RepoSummary: model.Summarize(candidates[r.Index]), Score: r.Score})
	}
	return out, nil
}

func errorKind(err error) string {
	var cfgErr *ConfigurationError
	var fsErr *FeatureSpaceMismatchError
	var storeErr *sqlitestore.AccessError
	switch {
	case errors.Is(err, ErrEmptyUsername), errors.As(err, &cfgErr):
		return "config"
	case errors.As(err, &fsErr):
		return "feature_space"
	case errors.As(err, &storeErr):
		return "store"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "other"
}
