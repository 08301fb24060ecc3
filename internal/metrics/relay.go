package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogScopeFallbackTotal counts listings retried without tokenized URLs.
	CatalogScopeFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capturerelay_catalog_scope_fallback_total",
		Help: "Catalog listings retried without tokenized URLs after a scope rejection",
	})

	// CatalogCapturesListed observes the number of captures per successful listing.
	CatalogCapturesListed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "capturerelay_catalog_captures_listed",
		Help:    "Number of captures returned per successful catalog listing",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	})

	// RelayBlockedTotal counts relay targets refused before any network I/O.
	RelayBlockedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capturerelay_relay_blocked_total",
		Help: "Relay requests refused before contacting upstream, by reason",
	}, []string{"reason"}) // host_not_allowed|invalid_url|missing_cookie

	// PlaylistRewritesTotal counts HLS playlists rewritten to point back at the relay.
	PlaylistRewritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capturerelay_playlist_rewrites_total",
		Help: "HLS playlists rewritten by the stream relay",
	})

	// RelayBytesTotal counts body bytes relayed to clients by operation.
	RelayBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capturerelay_relay_bytes_total",
		Help: "Bytes relayed to clients by operation",
	}, []string{"op"}) // preview|stream|download|pull
)

// IncRelayBlocked records a refused relay target.
func IncRelayBlocked(reason string) {
	RelayBlockedTotal.WithLabelValues(reason).Inc()
}

// AddRelayBytes records relayed body bytes.
func AddRelayBytes(op string, n int64) {
	if n <= 0 {
		return
	}
	RelayBytesTotal.WithLabelValues(op).Add(float64(n))
}
