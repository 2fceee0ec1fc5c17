package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecommendRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "repomatch_recommend_runs_total",
		Help: "Total recommendation requests",
	})
	RecommendErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "repomatch_recommend_errors_total",
		Help: "Total failed recommendation requests by error kind",
	}, []string{"kind"})
	RecommendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "repomatch_recommend_duration_seconds",
		Help:    "Recommendation request duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	CandidatesScored = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "repomatch_candidates_scored",
		Help:    "Candidates scored per similarity request",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
	StoreQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "repomatch_store_queries_total",
		Help: "Total store queries by operation",
	}, []string{"op"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "repomatch_command_runs_total",
		Help: "Total CLI command runs",
	}, []string{"cmd"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "repomatch_command_errors_total",
		Help: "Total CLI command errors",
	}, []string{"cmd"})
)

func init() {
	prometheus.MustRegister(RecommendRuns, RecommendErrors, RecommendDuration, CandidatesScored,
		StoreQueries, CommandRuns, CommandErrors)
}

// Router returns a chi router exposing /metrics and /health.
func Router() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090"). An empty
// addr falls back to METRICS_ADDR; if that is empty too nothing is started
// and nil is returned.
func StartServer(addr string) *http.Server {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return nil
	}
	srv := &http.Server{Addr: addr, Handler: Router(), ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

// ObserveRecommendDuration records a request duration.
func ObserveRecommendDuration(start time.Time) {
	RecommendDuration.Observe(time.Since(start).Seconds())
}

// IncRecommendError counts a failed request under kind.
func IncRecommendError(kind string) { RecommendErrors.WithLabelValues(kind).Inc() }

// IncStoreQuery counts one store query.
func IncStoreQuery(op string) { StoreQueries.WithLabelValues(op).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
