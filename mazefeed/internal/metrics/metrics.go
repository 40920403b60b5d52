// Package metrics holds the Prometheus collectors of the maze feed service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons used with EventsDropped.
const (
	ReasonInvalid    = "invalid"
	ReasonDuplicate  = "duplicate"
	ReasonResolution = "resolution"
	ReasonCancelled  = "cancelled"
)

var (
	// Feed ingestion
	EventsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mazefeed_events_received_total",
			Help: "Total number of maze events delivered by the transport",
		},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mazefeed_events_dropped_total",
			Help: "Total number of maze events that never reached the feed",
		},
		[]string{"reason"},
	)

	RecordsAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mazefeed_records_appended_total",
			Help: "Total number of maze records appended to the feed",
		},
	)

	FeedSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mazefeed_feed_size",
			Help: "Current number of maze records held in memory",
		},
	)

	InFlightResolutions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mazefeed_inflight_resolutions",
			Help: "Number of maze events currently being resolved",
		},
	)

	// Resolution
	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mazefeed_resolution_duration_seconds",
			Help:    "Time taken to resolve all images of one maze event",
			Buckets: prometheus.DefBuckets,
		},
	)

	ObjectResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mazefeed_object_resolutions_total",
			Help: "Object storage resolutions by field and status",
		},
		[]string{"field", "status"},
	)

	CredentialRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mazefeed_credential_requests_total",
			Help: "Credential lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	// Transport
	SubscriptionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mazefeed_subscription_errors_total",
			Help: "Total number of transport-level subscription errors",
		},
	)

	// Presentation
	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mazefeed_active_streams",
			Help: "Number of connected feed stream clients",
		},
	)
)
