package renderer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	proxyCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "terrain_render_proxies",
		Help: "The number of live section render proxies.",
	})

	drawCalls = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "terrain_draw_calls",
		Help:    "The number of terrain draw calls per frame.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	drawnTriangles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terrain_drawn_triangles",
		Help: "The number of terrain triangles submitted.",
	})
)

func instrumentProxies(n int) {
	proxyCount.Set(float64(n))
}

func instrumentDraw(calls, triangles int) {
	drawCalls.Observe(float64(calls))
	drawnTriangles.Add(float64(triangles))
}
