package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(httpRequestsTotal, rateLimitedTotal) }

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Gateway requests by route pattern, method and status.",
		},
		[]string{"route", "method", "status"},
	)

	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Requests rejected by the per-user limiter or generation lock.",
		},
		[]string{"reason"}, // 'rate', 'in_flight'
	)
)

func IncHTTPRequest(route, method string, status int) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

func IncRateLimited(reason string) {
	rateLimitedTotal.WithLabelValues(norm(reason)).Inc()
}
