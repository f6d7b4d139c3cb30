// Package metrics provides Prometheus metrics for the shop service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Simplici0/woodshop/internal/costing"
)

var (
	// Cost rollup metrics
	CostRollupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "woodshop_cost_rollups_total",
			Help: "Total number of product cost rollups",
		},
		[]string{"source"},
	)

	CostIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "woodshop_cost_issues_total",
			Help: "Data anomalies met during cost rollups",
		},
		[]string{"kind"},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "woodshop_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "woodshop_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Import metrics
	CSVRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "woodshop_csv_rows_total",
			Help: "Product CSV rows processed by result",
		},
		[]string{"result"},
	)
)

// Reporter counts rollup issues by kind.
func Reporter() costing.Reporter {
	return costing.ReporterFunc(func(i costing.Issue) {
		CostIssuesTotal.WithLabelValues(i.Kind.String()).Inc()
	})
}

// RecordRollup counts one rollup from source ("api", "dashboard", "cli", ...).
func RecordRollup(source string) {
	CostRollupsTotal.WithLabelValues(source).Inc()
}

// RecordCSVRows counts imported and rejected rows.
func RecordCSVRows(imported, rejected int) {
	CSVRowsTotal.WithLabelValues("imported").Add(float64(imported))
	CSVRowsTotal.WithLabelValues("rejected").Add(float64(rejected))
}

// Middleware records request counts and latency labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
