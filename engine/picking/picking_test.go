package picking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lagoon/engine/math"
	"github.com/spaghettifunk/lagoon/engine/scene"
)

const (
	screenW = 800.0
	screenH = 600.0
	ring    = 3
)

// quadGeometry is a 2x2 quad in the local xy-plane, facing -z.
func quadGeometry(name string) *scene.MeshGeometry {
	vertices := []math.Vertex3D{
		{Position: math.NewVec3(-1, -1, 0)},
		{Position: math.NewVec3(1, -1, 0)},
		{Position: math.NewVec3(1, 1, 0)},
		{Position: math.NewVec3(-1, 1, 0)},
	}
	indices := []uint32{0, 1, 2, 0, 2, 3}
	return scene.NewMeshGeometry(name, vertices, indices)
}

func quadBounds() math.Extents3D {
	return math.Extents3D{
		Min: math.NewVec3(-1, -1, -0.1),
		Max: math.NewVec3(1, 1, 0.1),
	}
}

func addQuad(registry *scene.Registry, name string, z float32) *scene.RenderItem {
	item := &scene.RenderItem{
		Name:       name,
		World:      math.NewMat4Translation(math.NewVec3(0, 0, z)),
		Geometry:   quadGeometry(name),
		IndexCount: 6,
		Bounds:     quadBounds(),
		Visible:    true,
	}
	return registry.Add(item, scene.LayerOpaque)
}

func centeredCamera() *scene.Camera {
	camera := scene.NewCamera()
	camera.UpdateViewMatrix()
	return camera
}

func TestPickHitsCenteredQuad(t *testing.T) {
	registry := scene.NewRegistry()
	quad := addQuad(registry, "quad", 10.0)
	highlight := &scene.RenderItem{Name: "highlight"}

	picker := New(registry, highlight)
	hit := picker.Pick(screenW/2, screenH/2, screenW, screenH, centeredCamera(), ring)

	require.True(t, hit)
	assert.True(t, highlight.Visible)
	assert.Equal(t, uint32(3), highlight.IndexCount, "highlight draws exactly one triangle")
	assert.Same(t, quad.Geometry, highlight.Geometry)
	assert.Equal(t, quad.World, highlight.World)
	assert.Equal(t, ring, highlight.NumFramesDirty, "highlight must repropagate its constants")

	// The center ray crosses the quad on the shared diagonal; either triangle
	// is a valid winner but the range must land on a triangle boundary.
	assert.Contains(t, []uint32{0, 3}, highlight.StartIndex)
}

func TestPickMissLeavesStoredRange(t *testing.T) {
	registry := scene.NewRegistry()
	addQuad(registry, "quad", 10.0)
	highlight := &scene.RenderItem{Name: "highlight"}
	picker := New(registry, highlight)

	require.True(t, picker.Pick(screenW/2, screenH/2, screenW, screenH, centeredCamera(), ring))
	require.True(t, highlight.Visible)

	// The quad subtends far less than the full viewport at z=10, so the
	// corner pixel misses it.
	hit := picker.Pick(0, 0, screenW, screenH, centeredCamera(), ring)

	assert.False(t, hit)
	assert.False(t, highlight.Visible)
	assert.Equal(t, uint32(3), highlight.IndexCount, "a miss only clears visibility")
}

func TestPickNearestItemWins(t *testing.T) {
	registry := scene.NewRegistry()
	addQuad(registry, "far", 10.0)
	near := addQuad(registry, "near", 5.0)
	highlight := &scene.RenderItem{Name: "highlight"}
	picker := New(registry, highlight)

	require.True(t, picker.Pick(screenW/2, screenH/2, screenW, screenH, centeredCamera(), ring))

	assert.Same(t, near.Geometry, highlight.Geometry)
	assert.Equal(t, near.World, highlight.World)
}

func TestPickPassesThroughBoxOnlyCandidates(t *testing.T) {
	registry := scene.NewRegistry()

	// The decoy sits in front with a wide box the center ray crosses, but
	// its triangles live off to the side of the ray. A box hit alone must
	// not win the pick; the quad behind it holds the intersected triangles.
	decoy := &scene.RenderItem{
		Name:  "decoy",
		World: math.NewMat4Translation(math.NewVec3(0, 0, 5)),
		Geometry: scene.NewMeshGeometry("decoy", []math.Vertex3D{
			{Position: math.NewVec3(2, -1, 0)},
			{Position: math.NewVec3(4, -1, 0)},
			{Position: math.NewVec3(4, 1, 0)},
			{Position: math.NewVec3(2, 1, 0)},
		}, []uint32{0, 1, 2, 0, 2, 3}),
		IndexCount: 6,
		Bounds: math.Extents3D{
			Min: math.NewVec3(-5, -5, -0.1),
			Max: math.NewVec3(5, 5, 0.1),
		},
		Visible: true,
	}
	registry.Add(decoy, scene.LayerOpaque)
	quad := addQuad(registry, "quad", 10.0)

	highlight := &scene.RenderItem{Name: "highlight"}
	picker := New(registry, highlight)

	require.True(t, picker.Pick(screenW/2, screenH/2, screenW, screenH, centeredCamera(), ring))

	assert.Same(t, quad.Geometry, highlight.Geometry)
	assert.Equal(t, quad.World, highlight.World)
	assert.False(t, picker.MovementBlocked(), "decoy box at z=5 is beyond the gate distance")
}

func TestPickSkipsInvisibleItems(t *testing.T) {
	registry := scene.NewRegistry()
	near := addQuad(registry, "near", 5.0)
	far := addQuad(registry, "far", 10.0)
	near.Visible = false

	highlight := &scene.RenderItem{Name: "highlight"}
	picker := New(registry, highlight)

	require.True(t, picker.Pick(screenW/2, screenH/2, screenW, screenH, centeredCamera(), ring))
	assert.Same(t, far.Geometry, highlight.Geometry)
}

func TestMovementGate(t *testing.T) {
	registry := scene.NewRegistry()
	addQuad(registry, "far", 10.0)
	highlight := &scene.RenderItem{Name: "highlight"}
	picker := New(registry, highlight)

	assert.False(t, picker.MovementBlocked(), "gate starts open")

	picker.Pick(screenW/2, screenH/2, screenW, screenH, centeredCamera(), ring)
	assert.False(t, picker.MovementBlocked(), "a distant box leaves the gate open")

	addQuad(registry, "near", 1.5)
	picker.Pick(screenW/2, screenH/2, screenW, screenH, centeredCamera(), ring)
	assert.True(t, picker.MovementBlocked(), "a box inside the stop distance closes the gate")
}

func TestMovementGateIndependentOfTrianglePick(t *testing.T) {
	registry := scene.NewRegistry()

	// The bounds straddle the pick ray but the triangles sit off to the
	// side, so the box is hit and no triangle is.
	item := &scene.RenderItem{
		Name:  "offset",
		World: math.NewMat4Translation(math.NewVec3(0, 0, 1.5)),
		Geometry: scene.NewMeshGeometry("offset", []math.Vertex3D{
			{Position: math.NewVec3(0.5, -1, 0)},
			{Position: math.NewVec3(1.5, -1, 0)},
			{Position: math.NewVec3(1.5, 1, 0)},
		}, []uint32{0, 1, 2}),
		IndexCount: 3,
		Bounds: math.Extents3D{
			Min: math.NewVec3(-2, -2, -0.1),
			Max: math.NewVec3(2, 2, 0.1),
		},
		Visible: true,
	}
	registry.Add(item, scene.LayerOpaque)

	highlight := &scene.RenderItem{Name: "highlight"}
	picker := New(registry, highlight)

	hit := picker.Pick(screenW/2, screenH/2, screenW, screenH, centeredCamera(), ring)

	assert.False(t, hit, "no triangle under the ray")
	assert.True(t, picker.MovementBlocked(), "the near box still closes the gate")
}

func TestPickFromMovedCamera(t *testing.T) {
	registry := scene.NewRegistry()
	quad := addQuad(registry, "quad", 10.0)
	highlight := &scene.RenderItem{Name: "highlight"}
	picker := New(registry, highlight)

	camera := scene.NewCamera()
	camera.LookAt(math.NewVec3(0, 0, -20), math.NewVec3(0, 0, 10), math.NewVec3Up())
	camera.UpdateViewMatrix()

	require.True(t, picker.Pick(screenW/2, screenH/2, screenW, screenH, camera, ring))
	assert.Same(t, quad.Geometry, highlight.Geometry)
	assert.False(t, picker.MovementBlocked(), "box is 30 units out")
}
