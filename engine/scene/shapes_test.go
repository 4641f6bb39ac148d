package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lagoon/engine/math"
)

func TestGenerateGrid(t *testing.T) {
	vertices, indices := GenerateGrid(10.0, 20.0, 5, 3)

	require.Len(t, vertices, 5*3)
	require.Len(t, indices, (5-1)*(3-1)*6)

	// First vertex is the (-x, +z) corner, last the (+x, -z) corner.
	assert.Equal(t, math.NewVec3(-5, 0, 10), vertices[0].Position)
	assert.Equal(t, math.NewVec3(5, 0, -10), vertices[len(vertices)-1].Position)

	// UVs run 0..1 across the grid.
	assert.Equal(t, math.NewVec2(0, 0), vertices[0].Texcoord)
	assert.Equal(t, math.NewVec2(1, 1), vertices[len(vertices)-1].Texcoord)

	for _, v := range vertices {
		assert.Equal(t, math.NewVec3Up(), v.Normal)
	}
	for _, i := range indices {
		assert.Less(t, int(i), len(vertices))
	}
}

func TestGenerateBox(t *testing.T) {
	vertices, indices := GenerateBox(2.0, 4.0, 6.0)

	require.Len(t, indices, 36)

	extents := math.GeometryComputeExtents(vertices)
	assert.Equal(t, math.NewVec3(-1, -2, -3), extents.Min)
	assert.Equal(t, math.NewVec3(1, 2, 3), extents.Max)
}

func TestGenerateCylinder(t *testing.T) {
	vertices, indices := GenerateCylinder(1.0, 1.0, 2.0, 8, 4)

	require.NotEmpty(t, vertices)
	require.NotEmpty(t, indices)
	assert.Zero(t, len(indices)%3, "index data must form whole triangles")

	extents := math.GeometryComputeExtents(vertices)
	assert.InDelta(t, -1.0, extents.Min.Y, 1e-5)
	assert.InDelta(t, 1.0, extents.Max.Y, 1e-5)
	assert.InDelta(t, 1.0, extents.Max.X, 1e-4)

	for _, i := range indices {
		assert.Less(t, int(i), len(vertices))
	}
}

func TestMeshGeometrySubmeshes(t *testing.T) {
	vertices, indices := GenerateBox(1, 1, 1)
	geo := NewMeshGeometry("shapes", vertices, indices)

	geo.AddSubmesh("box", Submesh{
		IndexCount: uint32(len(indices)),
		Bounds:     math.GeometryComputeExtents(vertices),
	})

	sub, err := geo.Submesh("box")
	require.NoError(t, err)
	assert.Equal(t, uint32(len(indices)), sub.IndexCount)

	_, err = geo.Submesh("missing")
	assert.Error(t, err)
}

func TestRegistryAssignsStableIndices(t *testing.T) {
	registry := NewRegistry()

	a := registry.Add(&RenderItem{Name: "a"}, LayerOpaque)
	b := registry.Add(&RenderItem{Name: "b"}, LayerTransparent)

	assert.Equal(t, uint32(0), a.ObjCBIndex)
	assert.Equal(t, uint32(1), b.ObjCBIndex)
	assert.Equal(t, 2, registry.Count())

	assert.Len(t, registry.Layer(LayerOpaque), 1)
	assert.Len(t, registry.Layer(LayerTransparent), 1)
	assert.Empty(t, registry.Layer(LayerHighlight))
}

func TestMaterialRegistry(t *testing.T) {
	materials := NewMaterialRegistry()

	grass, err := materials.Create(MaterialConfig{Name: "grass"})
	require.NoError(t, err)
	water, err := materials.Create(MaterialConfig{Name: "water"})
	require.NoError(t, err)

	assert.Equal(t, uint32(0), grass.CBIndex)
	assert.Equal(t, uint32(1), water.CBIndex)

	_, err = materials.Create(MaterialConfig{Name: "grass"})
	assert.Error(t, err, "duplicate names are rejected")

	got, err := materials.Get("water")
	require.NoError(t, err)
	assert.Same(t, water, got)

	// SetTransform flags the constants for re-propagation.
	water.SetTransform(math.NewMat4Translation(math.NewVec3(0.5, 0, 0)), 3)
	assert.Equal(t, 3, water.NumFramesDirty)
}
