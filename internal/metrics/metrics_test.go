package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposure(t *testing.T) {
	RecommendRuns.Inc()
	IncRecommendError("config")
	IncStoreQuery("owned repos")
	IncCommandRun("recommend")
	IncCommandError("recommend")
	CandidatesScored.Observe(12)
	ObserveRecommendDuration(time.Now().Add(-1500 * time.Millisecond))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, m := range []string{
		"repomatch_recommend_runs_total",
		"repomatch_recommend_errors_total",
		"repomatch_recommend_duration_seconds",
		"repomatch_candidates_scored",
		"repomatch_store_queries_total",
		"repomatch_command_runs_total",
		"repomatch_command_errors_total",
	} {
		assert.Contains(t, body, m)
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStartServerWithoutAddr(t *testing.T) {
	t.Setenv("METRICS_ADDR", "")
	assert.Nil(t, StartServer(""))
}
