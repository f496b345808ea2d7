package metrics

import (
	"net/http"
	"strconv"
	"time"

	"samarth-go/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DatasetsLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "samarth_datasets_loaded",
			Help: "Number of datasets loaded into the registry",
		},
		[]string{"kind"},
	)

	QuestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "samarth_questions_total",
			Help: "Total number of parsed questions by action",
		},
		[]string{"action"},
	)

	VerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "samarth_verdicts_total",
			Help: "Total number of feasibility verdicts by status and primary reason",
		},
		[]string{"status", "reason"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "samarth_analysis_duration_seconds",
			Help:    "Duration of analyzer runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "samarth_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "samarth_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// ObserveVerdict counts a verdict under its primary reason
func ObserveVerdict(v models.Verdict) {
	reason := string(v.PrimaryReason())
	if reason == "" {
		reason = "none"
	}
	VerdictsTotal.WithLabelValues(string(v.Status), reason).Inc()
}

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Use the route pattern if available, otherwise use the path
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		status := strconv.Itoa(ww.Status())
		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
