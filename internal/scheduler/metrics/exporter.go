package metrics

import (
	"encoding/json"
	"net/http"
	"time"
)

const (
	HealthStarting = "starting"
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
)

// Exporter serves collector state over HTTP. A scheduler whose last sweep is
// older than staleAfter reports degraded; zero disables the check.
type Exporter struct {
	collector  *Collector
	staleAfter time.Duration
	now        func() time.Time
}

func NewExporter(collector *Collector, staleAfter time.Duration) *Exporter {
	return &Exporter{collector: collector, staleAfter: staleAfter, now: time.Now}
}

// Status classifies a snapshot.
func (e *Exporter) Status(s *Snapshot) string {
	switch {
	case s.LastSweepAt == nil:
		return HealthStarting
	case e.staleAfter > 0 && e.now().Sub(*s.LastSweepAt) > e.staleAfter:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}

func (e *Exporter) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, e.collector.Snapshot())
	}
}

func (e *Exporter) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := e.collector.Snapshot()
		status := e.Status(snapshot)

		code := http.StatusOK
		if status == HealthDegraded {
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, map[string]interface{}{
			"status":        status,
			"last_sweep_at": snapshot.LastSweepAt,
			"in_flight":     snapshot.InFlight,
			"failed_total":  snapshot.FailedTotal,
			"uptime_s":      snapshot.UptimeSeconds,
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
