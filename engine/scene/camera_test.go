package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lagoon/engine/math"
)

func assertUnit(t *testing.T, v math.Vec3, label string) {
	t.Helper()
	length := v.X*v.X + v.Y*v.Y + v.Z*v.Z
	assert.InDelta(t, 1.0, length, 1e-5, "%s must be unit length", label)
}

func TestLookAtBuildsOrthonormalBasis(t *testing.T) {
	camera := NewCamera()
	camera.LookAt(math.NewVec3(0, 4, -10), math.NewVec3(0, 4, 0), math.NewVec3Up())
	camera.UpdateViewMatrix()

	assertUnit(t, camera.Look, "look")
	assertUnit(t, camera.Right, "right")
	assertUnit(t, camera.Up, "up")

	assert.InDelta(t, 0.0, camera.Look.Dot(camera.Right), 1e-5)
	assert.InDelta(t, 0.0, camera.Look.Dot(camera.Up), 1e-5)
	assert.InDelta(t, 1.0, camera.Look.Z, 1e-5, "camera aims straight down +z")
}

func TestWalkAndStrafe(t *testing.T) {
	camera := NewCamera()
	camera.UpdateViewMatrix()

	camera.Walk(5.0)
	assert.InDelta(t, 5.0, camera.Position.Z, 1e-5)

	camera.Strafe(2.0)
	assert.InDelta(t, 2.0, camera.Position.X, 1e-5)
}

func TestRotateYTurnsTheBasis(t *testing.T) {
	camera := NewCamera()

	camera.RotateY(math.K_PI / 2.0)
	camera.UpdateViewMatrix()

	// A quarter turn about y swings +z onto +x.
	assert.InDelta(t, 0.0, camera.Look.Z, 1e-5)
	assert.InDelta(t, 1.0, camera.Look.X, 1e-5)
	assertUnit(t, camera.Look, "look")
}

func TestPitchKeepsRightVector(t *testing.T) {
	camera := NewCamera()
	right := camera.Right

	camera.Pitch(0.3)
	camera.UpdateViewMatrix()

	assert.InDelta(t, right.X, camera.Right.X, 1e-5)
	assert.InDelta(t, right.Y, camera.Right.Y, 1e-5)
	assert.InDelta(t, right.Z, camera.Right.Z, 1e-5)
	assert.Less(t, camera.Look.Y, float32(0), "positive pitch angles the look downward")
}

func TestViewMatrixMapsPositionToOrigin(t *testing.T) {
	camera := NewCamera()
	camera.SetPosition(math.NewVec3(3, 4, 5))
	camera.UpdateViewMatrix()

	eye := camera.Position.TransformCoord(camera.View())
	assert.InDelta(t, 0.0, eye.X, 1e-4)
	assert.InDelta(t, 0.0, eye.Y, 1e-4)
	assert.InDelta(t, 0.0, eye.Z, 1e-4)
}

func TestViewMatrixIsLazy(t *testing.T) {
	camera := NewCamera()
	camera.UpdateViewMatrix()
	before := camera.View()

	// Movement without an update leaves the cached matrix in place.
	camera.Walk(10.0)
	assert.Equal(t, before, camera.View())

	camera.UpdateViewMatrix()
	assert.NotEqual(t, before, camera.View())
}

func TestSetLensRebuildsProjection(t *testing.T) {
	camera := NewCamera()
	camera.SetLens(math.K_QUARTER_PI, 2.0, 1.0, 1000.0)

	require.Equal(t, float32(2.0), camera.Aspect)

	// The projection diagonal encodes the aspect: x scale is half the y
	// scale at aspect 2.
	proj := camera.Proj()
	assert.InDelta(t, proj.At(1, 1)/2.0, proj.At(0, 0), 1e-5)
}
