// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpLabels = []string{"method", "route", "status"}

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "capturerelay_http_request_duration_seconds",
		Help:    "Time until the handler returned, including streamed bodies.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, httpLabels)

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "capturerelay_http_requests_in_flight",
		Help: "Requests currently being served.",
	})

	// Relay bodies range from small playlists to multi-gigabyte downloads.
	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "capturerelay_http_response_size_bytes",
		Help:    "Response body size in bytes.",
		Buckets: prometheus.ExponentialBuckets(256, 8, 9),
	}, httpLabels)
)

// Metrics observes latency and body size per chi route pattern. Raw paths
// would explode cardinality and relay query strings are never used.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			labels := prometheus.Labels{
				"method": r.Method,
				"route":  routePattern(r),
				"status": strconv.Itoa(sw.statusCode),
			}
			httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
			if sw.bytesWritten > 0 {
				httpResponseSize.With(labels).Observe(float64(sw.bytesWritten))
			}
		})
	}
}
