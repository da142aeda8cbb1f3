// Package metrics holds the Prometheus collectors for upstream calls and catalog outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "iptv_addon"

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeDegraded = "degraded"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Upstream requests by backend, action and outcome",
	}, []string{"backend", "action", "outcome"}) // backend=xtream|m3u

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Upstream request latency in seconds",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"backend", "action"})

	catalogResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_results_total",
		Help:      "Assembled results by resource, content type and outcome",
	}, []string{"resource", "type", "outcome"}) // resource=catalog|meta|genres

	playlistItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "playlist_items_parsed",
		Help:      "Number of items parsed per playlist download",
		Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
	})

	tokenDecodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_decode_failures_total",
		Help:      "Requests whose descriptor token could not be decoded, by resource",
	}, []string{"resource"})
)

// ObserveUpstream records one upstream call.
func ObserveUpstream(backend, action string, start time.Time, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	upstreamRequests.WithLabelValues(backend, action, outcome).Inc()
	upstreamDuration.WithLabelValues(backend, action).Observe(time.Since(start).Seconds())
}

// RecordResult counts an assembled result as ok or degraded.
func RecordResult(resource, contentType string, degraded bool) {
	outcome := OutcomeOK
	if degraded {
		outcome = OutcomeDegraded
	}
	catalogResults.WithLabelValues(resource, contentType, outcome).Inc()
}

// RecordPlaylistItems observes the size of a parsed playlist.
func RecordPlaylistItems(n int) {
	playlistItems.Observe(float64(n))
}

// RecordTokenDecodeFailure counts an undecodable descriptor token.
func RecordTokenDecodeFailure(resource string) {
	tokenDecodeFailures.WithLabelValues(resource).Inc()
}
