package grove

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	modeLabel = "mode"
)

var (
	groveListsCompiled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grove_display_lists_compiled_total",
		Help: "The total number of display lists recorded.",
	}, []string{modeLabel})

	groveListsReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grove_display_lists_replayed_total",
		Help: "The total number of display list replays.",
	})

	groveListsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grove_display_lists_live",
		Help: "The number of allocated display lists.",
	})

	groveBoundingBoxesComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grove_bounding_boxes_computed_total",
		Help: "The total number of bounding box recomputes.",
	})

	groveGeometriesReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grove_geometries_released_total",
		Help: "The total number of geometries freed by their last cache node.",
	})

	groveWorldOccurrences = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grove_world_occurrences",
		Help: "The number of registered occurrences across all worlds.",
	})

	groveCollectionInstances = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grove_collection_instances",
		Help: "The number of renderable instances across all collections.",
	})
)

func instrumentListCompiled(mode RenderMode) {
	groveListsCompiled.
		With(prometheus.Labels{modeLabel: mode.String()}).
		Inc()
}

func instrumentListReplayed() {
	groveListsReplayed.Inc()
}

func instrumentListAllocated() {
	groveListsLive.Inc()
}

func instrumentListReleased() {
	groveListsLive.Dec()
}

func instrumentBoundingBoxComputed() {
	groveBoundingBoxesComputed.Inc()
}

func instrumentGeometryReleased() {
	groveGeometriesReleased.Inc()
}

func instrumentOccurrenceAdded() {
	groveWorldOccurrences.Inc()
}

func instrumentOccurrenceRemoved() {
	groveWorldOccurrences.Dec()
}

func instrumentInstanceAdded() {
	groveCollectionInstances.Inc()
}

func instrumentInstanceRemoved() {
	groveCollectionInstances.Dec()
}
