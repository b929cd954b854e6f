package grove

import (
	"fmt"
	"time"
)

// debugStats holds per-frame timing and draw metrics.
// Only populated when World.debug is true.
type debugStats struct {
	syncTime   time.Duration
	renderTime time.Duration
	instances  int
	drawn      int
	listsLive  int
	drawCalls  int
	triangles  int
	culled     int
}

// debugLog reports frame stats through the package logger.
func (w *World) debugLog(stats debugStats) {
	if !w.debug {
		return
	}
	Logger().Debug("grove: frame",
		"sync", stats.syncTime,
		"render", stats.renderTime,
		"instances", stats.instances,
		"drawn", stats.drawn,
		"lists", stats.listsLive,
		"drawCalls", stats.drawCalls,
		"triangles", stats.triangles,
		"culled", stats.culled,
	)
}

// debugCheckTreeDepth warns if the occurrence tree depth exceeds the
// threshold.
const debugMaxTreeDepth = 64

func debugCheckTreeDepth(o *StructOccurrence) {
	depth := 0
	for p := o; p != nil; p = p.parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		Logger().Warn("grove: occurrence tree too deep",
			"depth", depth, "threshold", debugMaxTreeDepth, "occurrence", o.Name())
	}
}

// debugCheckConsistency panics unless the collection holds exactly one entry
// for each occurrence registered with a representation and nothing else.
// Called after every registry mutation in debug mode.
func (w *World) debugCheckConsistency(op string) {
	for _, id := range w.collection.IDs() {
		if _, ok := w.occurrences[id]; !ok {
			panic(fmt.Sprintf("grove debug: %s left render entry %d without occurrence", op, id))
		}
		if _, ok := w.rendered[id]; !ok {
			panic(fmt.Sprintf("grove debug: %s left render entry %d for an occurrence registered without one", op, id))
		}
	}
	for id := range w.rendered {
		if _, ok := w.occurrences[id]; !ok {
			panic(fmt.Sprintf("grove debug: %s kept the render flag of unregistered occurrence %d", op, id))
		}
		if !w.collection.Contains(id) {
			panic(fmt.Sprintf("grove debug: %s left occurrence %d without its render entry", op, id))
		}
	}
}

// SetDebugMode enables or disables debug mode. When enabled, per-frame
// timing stats are logged at debug level, deep occurrence trees are
// reported, and the world checks its two maps agree after every mutation.
func (w *World) SetDebugMode(enabled bool) {
	w.debug = enabled
	globalDebug = enabled
}

// globalDebug mirrors the most recently set World debug flag so that code
// without a World pointer can check it cheaply.
var globalDebug bool
