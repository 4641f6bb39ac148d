package waves

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestField(t *testing.T) *HeightField {
	t.Helper()
	hf, err := New(32, 32, 1.0, 0.03, 4.0, 0.2)
	require.NoError(t, err)
	return hf
}

func TestNewValidation(t *testing.T) {
	_, err := New(2, 32, 1.0, 0.03, 4.0, 0.2)
	assert.Error(t, err, "grid with no interior must be rejected")

	// Grids below 5x5 have no cell whose whole disturbance footprint fits
	// inside the boundary ring.
	_, err = New(3, 3, 1.0, 0.03, 4.0, 0.2)
	assert.Error(t, err, "3x3 grid cannot absorb a disturbance")
	_, err = New(4, 4, 1.0, 0.03, 4.0, 0.2)
	assert.Error(t, err, "4x4 grid cannot absorb a disturbance")

	_, err = New(32, 32, -1.0, 0.03, 4.0, 0.2)
	assert.Error(t, err)

	_, err = New(32, 32, 1.0, 0.03, 0.0, 0.2)
	assert.Error(t, err, "zero speed is outside the stable range")

	// dx/(2dt)*sqrt(damping*dt+2) with these parameters is about 23.9, so a
	// speed well past it must fail.
	_, err = New(32, 32, 1.0, 0.03, 100.0, 0.2)
	assert.Error(t, err, "speed past the stability bound must be rejected")
}

func TestGridGeometry(t *testing.T) {
	hf := newTestField(t)

	assert.Equal(t, 32*32, hf.VertexCount())
	assert.Equal(t, 31*31*2, hf.TriangleCount())
	assert.InDelta(t, 31.0, hf.Width(), 1e-5)
	assert.InDelta(t, 31.0, hf.Depth(), 1e-5)

	// Corners of the centred grid.
	first := hf.Position(0)
	assert.InDelta(t, -15.5, first.X, 1e-5)
	assert.InDelta(t, 15.5, first.Z, 1e-5)

	last := hf.Position(hf.VertexCount() - 1)
	assert.InDelta(t, 15.5, last.X, 1e-5)
	assert.InDelta(t, -15.5, last.Z, 1e-5)
}

func TestDisturbRaisesSurface(t *testing.T) {
	hf := newTestField(t)

	assert.Zero(t, hf.Energy(), "a fresh field is flat")

	hf.Disturb(16, 16, 0.5)

	center := hf.Position(16*32 + 16)
	assert.InDelta(t, 0.5, center.Y, 1e-5)
	right := hf.Position(16*32 + 17)
	assert.InDelta(t, 0.25, right.Y, 1e-5, "neighbors get half the magnitude")
}

func TestDisturbClampsNearBoundary(t *testing.T) {
	hf := newTestField(t)

	// A disturbance aimed at the corner lands at (2,2) so its neighbor ring
	// stays off the pinned boundary.
	hf.Disturb(0, 0, 1.0)

	for j := 0; j < 32; j++ {
		assert.Zero(t, hf.Position(j).Y, "boundary row must stay flat")
		assert.Zero(t, hf.Position(31*32+j).Y, "boundary row must stay flat")
	}
	for i := 0; i < 32; i++ {
		assert.Zero(t, hf.Position(i*32).Y, "boundary column must stay flat")
		assert.Zero(t, hf.Position(i*32+31).Y, "boundary column must stay flat")
	}
	assert.InDelta(t, 1.0, hf.Position(2*32+2).Y, 1e-5)
}

func TestDisturbOnSmallestGridStaysInterior(t *testing.T) {
	// 5x5 is the smallest accepted grid; every disturbance lands on the
	// single interior cell (2,2) and its neighbor ring.
	hf, err := New(5, 5, 1.0, 0.03, 4.0, 0.2)
	require.NoError(t, err)

	hf.Disturb(0, 0, 1.0)
	hf.Disturb(4, 4, 1.0)

	for j := 0; j < 5; j++ {
		assert.Zero(t, hf.Position(j).Y, "boundary row must stay flat")
		assert.Zero(t, hf.Position(4*5+j).Y, "boundary row must stay flat")
	}
	for i := 0; i < 5; i++ {
		assert.Zero(t, hf.Position(i*5).Y, "boundary column must stay flat")
		assert.Zero(t, hf.Position(i*5+4).Y, "boundary column must stay flat")
	}
	assert.InDelta(t, 2.0, hf.Position(2*5+2).Y, 1e-5)
}

func TestUpdateStepsOnFixedIncrements(t *testing.T) {
	hf := newTestField(t)
	hf.Disturb(16, 16, 0.5)

	before := hf.Energy()

	// Below the fixed time step: no simulation step runs.
	hf.Update(0.01)
	assert.Equal(t, before, hf.Energy())

	// Crossing the time step advances the solver.
	hf.Update(0.025)
	assert.NotEqual(t, before, hf.Energy())
}

func TestWavesPropagateAndDecay(t *testing.T) {
	hf := newTestField(t)
	hf.Disturb(16, 16, 0.5)

	// After a step the impulse has spread to a cell that was flat.
	hf.Update(0.03)
	assert.NotZero(t, hf.Position(16*32+18).Y)

	peak := hf.Energy()
	require.Greater(t, peak, float32(0))

	// Damping must bleed energy out over a long run.
	for i := 0; i < 2000; i++ {
		hf.Update(0.03)
	}
	assert.Less(t, hf.Energy(), peak*0.5, "damped waves must lose energy")
}

func TestNormalsFollowSurface(t *testing.T) {
	hf := newTestField(t)
	hf.Disturb(16, 16, 2.0)
	hf.Update(0.03)

	// The normal next to the bump must tilt away from straight up.
	n := hf.Normal(16*32 + 17)
	assert.Less(t, n.Y, float32(1.0))

	// Normals stay unit length.
	length := n.X*n.X + n.Y*n.Y + n.Z*n.Z
	assert.InDelta(t, 1.0, length, 1e-4)
}

func TestRetune(t *testing.T) {
	hf := newTestField(t)
	hf.Disturb(16, 16, 0.5)
	energy := hf.Energy()

	require.NoError(t, hf.Retune(8.0, 0.4))
	assert.Equal(t, energy, hf.Energy(), "retuning must not reset the surface")

	assert.Error(t, hf.Retune(100.0, 0.2), "unstable speed must be rejected")
	assert.Error(t, hf.Retune(4.0, -100.0))

	// A rejected retune leaves the old coefficients working.
	hf.Update(0.03)
	assert.Greater(t, hf.Energy(), float32(0))
}
