// Package network holds the transport-level prometheus collectors.
package network

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/framewire-net/framewire/metrics"
)

// Metrics holds all network-level metrics.
type Metrics struct {
	registry *metrics.ComponentRegistry

	// Connection management
	ConnectionsTotal   *prometheus.CounterVec
	ConnectionsActive  prometheus.Gauge
	ConnectionDuration prometheus.Histogram

	// Frame I/O
	FramesTotal    *prometheus.CounterVec
	FrameSizeBytes *prometheus.HistogramVec

	// Broadcast performance
	BroadcastsTotal     prometheus.Counter
	BroadcastRecipients prometheus.Histogram

	// Codec errors by class
	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates network metrics on the default prometheus registerer.
func NewMetrics() *Metrics {
	return newMetrics(metrics.NewComponentRegistry("framewire", "network"))
}

// NewMetricsWith creates network metrics on an explicit registerer.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	return newMetrics(metrics.NewComponentRegistryWith(reg, "framewire", "network"))
}

func newMetrics(reg *metrics.ComponentRegistry) *Metrics {
	return &Metrics{
		registry: reg,

		ConnectionsTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "connections_total",
			Help: "Total number of network connections by terminal state",
		}, []string{"state"}),

		ConnectionsActive: reg.NewGauge(prometheus.GaugeOpts{
			Name: "connections_active",
			Help: "Number of active network connections",
		}),

		ConnectionDuration: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "connection_duration_seconds",
			Help:    "Duration of network connections",
			Buckets: metrics.NetworkBuckets,
		}),

		FramesTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "frames_total",
			Help: "Total number of frames by direction",
		}, []string{"direction"}),

		FrameSizeBytes: reg.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "frame_size_bytes",
			Help:    "Size of frame payloads in bytes",
			Buckets: metrics.SizeBuckets,
		}, []string{"direction"}),

		BroadcastsTotal: reg.NewCounter(prometheus.CounterOpts{
			Name: "broadcasts_total",
			Help: "Total number of broadcast operations",
		}),

		BroadcastRecipients: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "broadcast_recipients_total",
			Help:    "Number of recipients per broadcast operation",
			Buckets: metrics.CountBuckets,
		}),

		ErrorsTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of codec and transport errors by class",
		}, []string{"type"}),
	}
}
