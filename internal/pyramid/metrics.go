package pyramid

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts the work of one build on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	TilesWritten    *prometheus.CounterVec
	TilesFailed     *prometheus.CounterVec
	BytesWritten    prometheus.Counter
	Splits          prometheus.Counter
	ImbalanceWarns  prometheus.Counter
	Bisections      prometheus.Counter
	TileDuration    prometheus.Histogram
	SplitDuration   prometheus.Histogram
	DepthsCompleted prometheus.Gauge
}

// NewMetrics registers a fresh set of build metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TilesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "terratiler_tiles_written_total",
			Help: "Total number of terrain tiles written",
		}, []string{"depth"}),
		TilesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "terratiler_tiles_failed_total",
			Help: "Total number of tiles dropped with their subtree",
		}, []string{"depth"}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "terratiler_bytes_written_total",
			Help: "Total tile bytes written",
		}),
		Splits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "terratiler_splits_total",
			Help: "Total number of tile meshes split into children",
		}),
		ImbalanceWarns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "terratiler_split_imbalance_total",
			Help: "Splits with fewer than four children or unknown boundary types",
		}),
		Bisections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "terratiler_bisections_total",
			Help: "Total longest-edge bisection steps",
		}),
		TileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "terratiler_tile_duration_seconds",
			Help:    "Time to refine, encode and split one tile",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		SplitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "terratiler_split_duration_seconds",
			Help:    "Time to split one tile mesh",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		DepthsCompleted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "terratiler_depths_completed",
			Help: "Number of depths fully processed",
		}),
	}

	m.registry.MustRegister(
		m.TilesWritten,
		m.TilesFailed,
		m.BytesWritten,
		m.Splits,
		m.ImbalanceWarns,
		m.Bisections,
		m.TileDuration,
		m.SplitDuration,
		m.DepthsCompleted,
	)
	return m
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes the metrics in Prometheus text format to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func depthLabel(depth int) string { return strconv.Itoa(depth) }
