package peer

import (
	"sync"

	"github.com/bsv-blockchain/legacy-p2p/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusPeerMessagesReceived  *prometheus.CounterVec
	prometheusPeerMessagesSent      *prometheus.CounterVec
	prometheusPeerMessageSize       *prometheus.HistogramVec
	prometheusPeerBytesReceived     prometheus.Counter
	prometheusPeerBytesSent         prometheus.Counter
	prometheusPeerHandleDuration    *prometheus.HistogramVec
	prometheusPeerStates            *prometheus.GaugeVec
	prometheusPeerDisconnects       *prometheus.CounterVec
	prometheusPeerHandshakeDuration prometheus.Histogram
	prometheusPeerPingLatency       prometheus.Histogram
	prometheusPeerGetHeadersSkipped prometheus.Counter
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusPeerMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legacy",
			Subsystem: "peer",
			Name:      "messages_received",
			Help:      "Number of messages received, by command",
		},
		[]string{"command"},
	)

	prometheusPeerMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legacy",
			Subsystem: "peer",
			Name:      "messages_sent",
			Help:      "Number of messages sent, by command",
		},
		[]string{"command"},
	)

	prometheusPeerMessageSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "legacy",
			Subsystem: "peer",
			Name:      "message_size",
			Help:      "Size of received frames in bytes, header included",
			Buckets:   util.MetricsBucketsSize,
		},
		[]string{"command"},
	)

	prometheusPeerBytesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "legacy",
			Subsystem: "peer",
			Name:      "bytes_received",
			Help:      "Number of bytes read from all peers",
		},
	)

	prometheusPeerBytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "legacy",
			Subsystem: "peer",
			Name:      "bytes_sent",
			Help:      "Number of bytes written to all peers",
		},
	)

	prometheusPeerHandleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "legacy",
			Subsystem: "peer",
			Name:      "handle_duration",
			Help:      "Time spent handling a received message, by command",
			Buckets:   util.MetricsBucketsMicroSeconds,
		},
		[]string{"command"},
	)

	prometheusPeerStates = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "legacy",
			Subsystem: "peer",
			Name:      "states",
			Help:      "Number of peers per connection state",
		},
		[]string{"state"},
	)

	prometheusPeerDisconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legacy",
			Subsystem: "peer",
			Name:      "disconnects",
			Help:      "Number of disconnects, by error category",
		},
		[]string{"category"},
	)

	prometheusPeerHandshakeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "legacy",
			Subsystem: "peer",
			Name:      "handshake_duration",
			Help:      "Time from connect to the end of the version handshake",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusPeerPingLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "legacy",
			Subsystem: "peer",
			Name:      "ping_latency",
			Help:      "Round trip time of ping/pong",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusPeerGetHeadersSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "legacy",
			Subsystem: "peer",
			Name:      "getheaders_skipped",
			Help:      "Number of getheaders not sent because one was in flight or the rate limit was hit",
		},
	)
}
