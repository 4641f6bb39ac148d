package picking

import (
	"github.com/spaghettifunk/lagoon/engine/core"
	"github.com/spaghettifunk/lagoon/engine/math"
	"github.com/spaghettifunk/lagoon/engine/scene"
)

// MovementBlockDistance is the bounding-box hit distance below which forward
// movement is stopped, in the units of the hit item's local space.
const MovementBlockDistance float32 = 2.0

/**
 * @brief Picker turns a screen coordinate into the nearest intersected
 * triangle among the opaque render items and maintains the highlight item
 * that draws it. Picking deliberately scans only the opaque layer; it is a
 * selection set, not the full drawable list.
 *
 * As a side effect each pick re-evaluates a movement gate: if any candidate's
 * bounding box is hit closer than MovementBlockDistance, forward movement is
 * blocked. The gate is independent of which triangle (if any) won the pick.
 */
type Picker struct {
	registry  *scene.Registry
	highlight *scene.RenderItem

	movementBlocked bool
}

func New(registry *scene.Registry, highlight *scene.RenderItem) *Picker {
	return &Picker{
		registry:  registry,
		highlight: highlight,
	}
}

// MovementBlocked reports the gate computed by the last Pick call.
func (p *Picker) MovementBlocked() bool {
	return p.movementBlocked
}

/**
 * @brief Pick casts a ray through the given screen pixel and updates the
 * highlight item. On a hit the highlight becomes visible and its draw range
 * is narrowed to exactly the winning triangle; on a miss only the visibility
 * is cleared, the stored range is left alone.
 *
 * @param sx,sy The screen coordinate in pixels.
 * @param width,height The viewport size in pixels.
 * @param camera The camera whose view/projection define the ray.
 * @param ringSize Frame ring size, for dirty propagation of the highlight.
 * @return true if a triangle was picked.
 */
func (p *Picker) Pick(sx, sy, width, height float32, camera *scene.Camera, ringSize int) bool {
	viewRay := math.NewScreenRay(sx, sy, width, height, camera.Proj())
	invView := camera.View().Inverse()

	// Assume nothing is picked to start, so the highlight item is invisible.
	p.highlight.Visible = false

	bestT := math.K_INFINITY
	var bestItem *scene.RenderItem
	var bestTriangle uint32

	nearestBox := math.K_INFINITY

	for _, item := range p.registry.Layer(scene.LayerOpaque) {
		if !item.Visible || item.Geometry == nil {
			continue
		}

		// Map the pristine view-space ray into this item's local space.
		// Each candidate gets its own transformed copy.
		toLocal := invView.Mul(item.World.Inverse())
		localRay := viewRay.Transform(toLocal).Normalized()

		// Bounding-box early-out: skip the per-triangle scan entirely for
		// items whose box the ray misses.
		boxT, ok := localRay.IntersectsExtents(item.Bounds)
		if !ok {
			continue
		}
		if boxT < nearestBox {
			nearestBox = boxT
		}

		indices := item.Geometry.Indices
		vertices := item.Geometry.Vertices
		triCount := item.IndexCount / 3

		for tri := uint32(0); tri < triCount; tri++ {
			base := item.StartIndex + tri*3
			i0 := int32(indices[base+0]) + item.BaseVertex
			i1 := int32(indices[base+1]) + item.BaseVertex
			i2 := int32(indices[base+2]) + item.BaseVertex

			t, hit := localRay.IntersectsTriangle(
				vertices[i0].Position,
				vertices[i1].Position,
				vertices[i2].Position)
			if !hit {
				continue
			}
			// Strictly smaller wins; an equal distance keeps the earlier find.
			if t < bestT {
				bestT = t
				bestItem = item
				bestTriangle = tri
			}
		}
	}

	p.movementBlocked = nearestBox <= MovementBlockDistance

	if bestItem == nil {
		return false
	}

	core.LogDebug("picked triangle %d of item '%s' at t=%f", bestTriangle, bestItem.Name, bestT)

	p.highlight.Visible = true
	p.highlight.Geometry = bestItem.Geometry
	p.highlight.World = bestItem.World
	p.highlight.IndexCount = 3
	p.highlight.BaseVertex = bestItem.BaseVertex
	p.highlight.StartIndex = bestItem.StartIndex + 3*bestTriangle
	p.highlight.MarkDirty(ringSize)

	return true
}
