package world

import (
	"math"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/formats"
)

// TierForDistance maps a Chebyshev region distance to a LOD tier. Tier 0
// reaches loadRadius; each further tier squares the previous reach, with
// a reach of 1 bumped to 2 and reach capped at MaxInt32. Regions past the
// last tier get Unloaded.
func TierForDistance(distance, loadRadius int32, lodLevels int) int {
	if distance < 0 {
		return Unloaded
	}
	reach := int64(loadRadius)
	for tier := 0; tier < lodLevels; tier++ {
		if int64(distance) <= reach {
			return tier
		}
		if reach < 2 {
			reach = 2
		} else {
			reach = min(reach*reach, math.MaxInt32)
		}
	}
	return Unloaded
}

// observerDistance returns the Chebyshev distance in regions from c to the
// nearest observer, or -1 without observers.
func (m *Map) observerDistance(c formats.Coord) int32 {
	best := int32(-1)
	for _, o := range m.observers {
		oc := m.RegionForPosition(o)
		d := max(abs(c.X-oc.X), abs(c.Y-oc.Y))
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// TargetLOD returns the tier streaming would choose for a region.
func (m *Map) TargetLOD(r *Region) int {
	return TierForDistance(m.observerDistance(r.coord), m.opts.LoadRadius, m.LODLevels())
}

// HandleStreaming moves every region to the tier its observer distance
// selects. A region that fails to load keeps its previous state, is not
// retried at the same tier and does not stop the pass. The returned error
// aggregates the failures of this pass.
func (m *Map) HandleStreaming(progress terrain.Progress) error {
	start := time.Now()
	regions := m.Regions()
	progress.SetStatus("streaming regions")
	progress.SetRange(len(regions))

	var errs error
	changed := 0
	for i, r := range regions {
		if progress.Cancelled() {
			return multierr.Append(errs, terrain.ErrCancelled)
		}
		progress.SetValue(i + 1)

		lod := m.TargetLOD(r)
		if lod == r.loadedLOD {
			r.failedLOD = Unloaded
			continue
		}
		if lod != Unloaded && lod == r.failedLOD {
			continue
		}
		if err := m.ChangeRegionLOD(r, lod); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		changed++
	}

	instrumentStreamingPass(start)
	if changed > 0 {
		m.log.Debug("streaming pass",
			zap.Int("changed", changed),
			zap.Duration("took", time.Since(start)))
	}
	return errs
}
