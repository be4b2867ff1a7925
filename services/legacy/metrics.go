package legacy

import (
	"sync"

	"github.com/bsv-blockchain/legacy-p2p/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusLegacyPublished     *prometheus.CounterVec
	prometheusLegacyHeaderHeight  prometheus.Gauge
	prometheusLegacyPeers         prometheus.Gauge
	prometheusLegacyDials         *prometheus.CounterVec
	prometheusLegacyDialDuration  prometheus.Histogram
	prometheusLegacyAddressesSeen prometheus.Gauge
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusLegacyPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legacy",
			Name:      "published",
			Help:      "Number of work items handed to the downstream producers, by topic",
		},
		[]string{"topic"},
	)

	prometheusLegacyHeaderHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "legacy",
			Name:      "header_height",
			Help:      "Height of the header chain tip",
		},
	)

	prometheusLegacyPeers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "legacy",
			Name:      "peers",
			Help:      "Number of connected peers",
		},
	)

	prometheusLegacyDials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legacy",
			Name:      "dials",
			Help:      "Number of outbound connection attempts, by result",
		},
		[]string{"result"},
	)

	prometheusLegacyDialDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "legacy",
			Name:      "dial_duration_seconds",
			Help:      "Time to establish an outbound connection",
			Buckets:   util.MetricsBucketsMilliLongSeconds,
		},
	)

	prometheusLegacyAddressesSeen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "legacy",
			Name:      "addresses_known",
			Help:      "Number of addresses in the address book",
		},
	)
}
