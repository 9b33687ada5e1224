package mapsource

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opLabel   = "op"
	editLabel = "kind"

	opCreate = "create"
	opDelete = "delete"
	opLoad   = "load"
	opUnload = "unload"

	editHeight = "height"
	editLayer  = "layer"
)

var (
	sectionOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terrain_section_ops",
		Help: "The number of section table operations.",
	}, []string{
		opLabel,
	})

	pointEdits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terrain_point_edits",
		Help: "The number of section points changed by edits.",
	}, []string{
		editLabel,
	})
)

func instrumentSectionOp(op string) {
	sectionOps.With(prometheus.Labels{
		opLabel: op,
	}).Inc()
}

func instrumentPointEdit(kind string) {
	pointEdits.With(prometheus.Labels{
		editLabel: kind,
	}).Inc()
}
