package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels for upstream calls.
const (
	OutcomeOK          = "ok"
	OutcomeRateLimited = "rate_limited"
	OutcomeRejected    = "rejected"
	OutcomeNetwork     = "network"
	OutcomeParse       = "parse"
)

// MeterName is the instrumentation scope used for OTel instruments.
const MeterName = "capturerelay.upstream"

var (
	// UpstreamRequestsTotal counts calls to vendor endpoints by component, operation and outcome.
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capturerelay_upstream_requests_total",
		Help: "Upstream vendor requests by component, operation and outcome",
	}, []string{"component", "op", "outcome"})

	// UpstreamDuration tracks time to response headers for vendor calls.
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "capturerelay_upstream_duration_seconds",
		Help:    "Latency of upstream vendor requests until response headers",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"component", "op"})
)

// ObserveUpstream records one upstream exchange in Prometheus and in the
// globally registered OTel meter provider.
func ObserveUpstream(ctx context.Context, component, op, outcome string, d time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(component, op, outcome).Inc()
	UpstreamDuration.WithLabelValues(component, op).Observe(d.Seconds())

	// Runtime provider lookup, no init-time binding.
	meter := otel.GetMeterProvider().Meter(MeterName)
	hist, err := meter.Float64Histogram("capturerelay.upstream.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Latency of upstream vendor requests"),
	)
	if err != nil {
		return
	}
	hist.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}
