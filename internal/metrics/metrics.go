// Package metrics exposes Prometheus collectors for the tracker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ItemsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lapse_items",
			Help: "Number of knowledge items by lifecycle status",
		},
		[]string{"status"},
	)

	TotalCost = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lapse_total_cost",
			Help: "Sum of item costs plus all renewal costs",
		},
	)

	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lapse_mutations_total",
			Help: "Total number of state mutations by activity type",
		},
		[]string{"type"},
	)

	ReminderScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lapse_reminder_scans_total",
			Help: "Total number of reminder scans by outcome",
		},
		[]string{"outcome"},
	)

	InboxImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lapse_inbox_imports_total",
			Help: "Total number of inbox files processed by outcome",
		},
		[]string{"outcome"},
	)

	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lapse_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "lapse_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "route"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request counts and durations labelled by chi route
// pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RequestCount.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
