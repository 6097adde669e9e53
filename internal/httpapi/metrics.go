package httpapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bukukas",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests processed, by route, method and status.",
	}, []string{"route", "method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bukukas",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency, by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
)

func observeRequest(method string, path string, status int, elapsed time.Duration) {
	route := routeLabel(path)
	requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// routeLabel collapses resource ids so the metric cardinality stays bounded:
// /api/v1/orders/42/valuation becomes /api/v1/orders/:id/valuation.
func routeLabel(path string) string {
	const prefix = "/api/v1/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	segments := strings.Split(strings.TrimPrefix(path, prefix), "/")
	if len(segments) >= 2 && segments[1] != "" {
		switch segments[1] {
		case "login", "csrf-token", "cost", "summary", "trend", "categories", "staff":
		default:
			segments[1] = ":id"
		}
	}
	return prefix + strings.Join(segments, "/")
}
