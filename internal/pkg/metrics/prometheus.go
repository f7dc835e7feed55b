package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reportflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// Report Execution Metrics
	ReportExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportflow_report_executions_total",
			Help: "Total number of report executions",
		},
		[]string{"trigger", "status"},
	)

	ReportExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reportflow_report_execution_duration_seconds",
			Help:    "Report execution duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"trigger"},
	)

	ExecutionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reportflow_report_executions_in_flight",
			Help: "Number of report executions currently running",
		},
	)

	ManualSendsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reportflow_manual_sends_rejected_total",
			Help: "Manual sends rejected by the cooldown",
		},
	)

	// Scheduler Metrics
	SweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reportflow_scheduler_sweeps_total",
			Help: "Total number of due-schedule sweeps",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reportflow_scheduler_sweep_duration_seconds",
			Help:    "Sweep duration in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	DueSchedules = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reportflow_scheduler_due_schedules",
			Help: "Due schedules found by the last sweep",
		},
	)

	ActiveSchedules = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reportflow_schedules_active",
			Help: "Number of active report schedules",
		},
	)

	LeasesRecoveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reportflow_scheduler_leases_recovered_total",
			Help: "Expired execution leases released by recovery",
		},
	)

	RunsPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reportflow_report_runs_pruned_total",
			Help: "Run history rows deleted by retention cleanup",
		},
	)

	RateLimitHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportflow_rate_limit_hits_total",
			Help: "Requests rejected by the API rate limiter",
		},
		[]string{"endpoint"},
	)
)

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware records HTTP metrics labelled by route pattern.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func RecordExecution(trigger, status string, duration time.Duration) {
	ReportExecutionsTotal.WithLabelValues(trigger, status).Inc()
	if duration > 0 {
		ReportExecutionDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	}
}

func RecordSweep(duration time.Duration, due int) {
	SweepsTotal.Inc()
	SweepDuration.Observe(duration.Seconds())
	DueSchedules.Set(float64(due))
}

func RecordRateLimitHit(endpoint string) {
	RateLimitHitsTotal.WithLabelValues(endpoint).Inc()
}
