package world

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const resultLabel = "result"

var (
	regionLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terrain_region_loads",
		Help: "The number of region chunk loads.",
	}, []string{
		resultLabel,
	})

	regionLoadLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "terrain_region_load_latency",
		Help:    "The time to read and install a region chunk.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	})

	regionUnloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terrain_region_unloads",
		Help: "The number of region unloads.",
	})

	streamingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "terrain_streaming_pass_latency",
		Help:    "The time of one streaming pass over every region.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
)

func instrumentRegionLoad(ok bool, start time.Time) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	regionLoads.With(prometheus.Labels{
		resultLabel: result,
	}).Inc()
	regionLoadLatency.Observe(time.Since(start).Seconds())
}

func instrumentRegionUnload() {
	regionUnloads.Inc()
}

func instrumentStreamingPass(start time.Time) {
	streamingLatency.Observe(time.Since(start).Seconds())
}
