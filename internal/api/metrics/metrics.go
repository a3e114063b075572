// Package metrics holds the gateway's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfs_http_requests_total",
			Help: "HTTP requests served, by route and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cfs_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfs_uploads_total",
			Help: "File uploads, by result.",
		},
		[]string{"result"},
	)

	UploadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cfs_uploaded_bytes_total",
		Help: "Bytes posted to the channel.",
	})

	IndexLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfs_index_lookups_total",
			Help: "Record lookups against the KV index, by hit or miss.",
		},
		[]string{"result"},
	)

	Syncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfs_sync_runs_total",
			Help: "History sync runs, by result.",
		},
		[]string{"result"},
	)

	SyncMerged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cfs_sync_records_merged_total",
		Help: "Records added to the index by history sync.",
	})

	LinkResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfs_link_resolutions_total",
			Help: "Short link resolutions, by outcome.",
		},
		[]string{"outcome"},
	)

	DeleteTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cfs_delete_tasks_total",
			Help: "Delete queue attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	DeleteQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cfs_delete_queue_depth",
		Help: "Tasks waiting in the delete queue.",
	})

	NetworkOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cfs_network_online",
		Help: "1 when the host reports a network path.",
	})

	NetworkQuality = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cfs_network_quality",
		Help: "Connectivity tier: 0 offline, 1 poor, 2 fair, 3 good, 4 excellent.",
	})

	NetworkLatency = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cfs_network_probe_latency_seconds",
		Help: "Mean latency of successful probes in the last round.",
	})

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cfs_transport_breaker_state",
			Help: "Circuit state per transport method: 0 closed, 1 half open, 2 open.",
		},
		[]string{"name"},
	)
)

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// ObserveNetwork records a published connectivity status.
func ObserveNetwork(online bool, qualityRank int, latency time.Duration) {
	NetworkOnline.Set(boolGauge(online))
	NetworkQuality.Set(float64(qualityRank))
	NetworkLatency.Set(latency.Seconds())
}

// ObserveBreaker records a circuit transition. state is closed, half_open or open.
func ObserveBreaker(name, state string) {
	v := 0.0
	switch state {
	case "half_open":
		v = 1
	case "open":
		v = 2
	}
	BreakerState.WithLabelValues(name).Set(v)
}
