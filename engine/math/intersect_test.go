package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScreenRay(t *testing.T) {
	proj := NewMat4PerspectiveFov(K_QUARTER_PI, 800.0/600.0, 1.0, 1000.0)

	// The center pixel looks straight down +z.
	center := NewScreenRay(400, 300, 800, 600, proj)
	assert.Equal(t, NewVec3Zero(), center.Origin)
	assert.InDelta(t, 0.0, center.Dir.X, 1e-6)
	assert.InDelta(t, 0.0, center.Dir.Y, 1e-6)
	assert.InDelta(t, 1.0, center.Dir.Z, 1e-6)

	// Top-left pixel aims up and to the left in view space.
	corner := NewScreenRay(0, 0, 800, 600, proj)
	assert.Less(t, corner.Dir.X, float32(0))
	assert.Greater(t, corner.Dir.Y, float32(0))
}

func TestRayTransformCarriesScale(t *testing.T) {
	ray := Ray{Origin: NewVec3(1, 0, 0), Dir: NewVec3(0, 0, 1)}

	m := NewMat4Scale(NewVec3(2, 2, 2)).Mul(NewMat4Translation(NewVec3(0, 0, 5)))
	out := ray.Transform(m)

	// The origin picks up translation and scale, the direction only scale.
	assert.InDelta(t, 2.0, out.Origin.X, 1e-6)
	assert.InDelta(t, 5.0, out.Origin.Z, 1e-6)
	assert.InDelta(t, 2.0, out.Dir.Z, 1e-6)
	assert.InDelta(t, 0.0, out.Dir.X, 1e-6)
}

func TestIntersectsExtents(t *testing.T) {
	box := Extents3D{Min: NewVec3(-1, -1, -1), Max: NewVec3(1, 1, 1)}

	hit, ok := Ray{Origin: NewVec3(0, 0, -5), Dir: NewVec3(0, 0, 1)}.IntersectsExtents(box)
	require.True(t, ok)
	assert.InDelta(t, 4.0, hit, 1e-6)

	// Origin inside the box reports distance zero.
	hit, ok = Ray{Origin: NewVec3Zero(), Dir: NewVec3(0, 0, 1)}.IntersectsExtents(box)
	require.True(t, ok)
	assert.Zero(t, hit)

	// Box behind the ray.
	_, ok = Ray{Origin: NewVec3(0, 0, 5), Dir: NewVec3(0, 0, 1)}.IntersectsExtents(box)
	assert.False(t, ok)

	// Parallel to a slab and outside it.
	_, ok = Ray{Origin: NewVec3(3, 0, -5), Dir: NewVec3(0, 0, 1)}.IntersectsExtents(box)
	assert.False(t, ok)

	// Parallel to a slab but inside it.
	hit, ok = Ray{Origin: NewVec3(0.5, 0, -5), Dir: NewVec3(0, 0, 1)}.IntersectsExtents(box)
	require.True(t, ok)
	assert.InDelta(t, 4.0, hit, 1e-6)
}

func TestIntersectsTriangle(t *testing.T) {
	v0 := NewVec3(-1, -1, 5)
	v1 := NewVec3(1, -1, 5)
	v2 := NewVec3(0, 1, 5)

	dist, ok := Ray{Origin: NewVec3Zero(), Dir: NewVec3(0, 0, 1)}.IntersectsTriangle(v0, v1, v2)
	require.True(t, ok)
	assert.InDelta(t, 5.0, dist, 1e-6)

	// Both windings are accepted.
	dist, ok = Ray{Origin: NewVec3Zero(), Dir: NewVec3(0, 0, 1)}.IntersectsTriangle(v0, v2, v1)
	require.True(t, ok)
	assert.InDelta(t, 5.0, dist, 1e-6)

	// Outside the triangle.
	_, ok = Ray{Origin: NewVec3(5, 0, 0), Dir: NewVec3(0, 0, 1)}.IntersectsTriangle(v0, v1, v2)
	assert.False(t, ok)

	// Behind the ray.
	_, ok = Ray{Origin: NewVec3(0, 0, 10), Dir: NewVec3(0, 0, 1)}.IntersectsTriangle(v0, v1, v2)
	assert.False(t, ok)

	// Parallel to the triangle plane.
	_, ok = Ray{Origin: NewVec3(0, 0, 5), Dir: NewVec3(1, 0, 0)}.IntersectsTriangle(v0, v1, v2)
	assert.False(t, ok)
}
