package terrain

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const buildKindLabel = "kind"

var (
	quadTreeBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terrain_quadtree_builds",
		Help: "The number of section quadtrees built.",
	}, []string{
		buildKindLabel,
	})

	quadTreeBuildLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "terrain_quadtree_build_latency",
		Help:    "The time to build, serialize and reload a section quadtree.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
)

func instrumentQuadTreeBuild(rebuild bool, start time.Time) {
	kind := "initial"
	if rebuild {
		kind = "rebuild"
	}
	quadTreeBuilds.With(prometheus.Labels{
		buildKindLabel: kind,
	}).Inc()
	quadTreeBuildLatency.Observe(time.Since(start).Seconds())
}
