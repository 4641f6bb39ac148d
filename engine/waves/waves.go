package waves

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/spaghettifunk/lagoon/engine/math"
)

/**
 * @brief HeightField is a discretized wave simulation over a regular 2D grid
 * of height samples. The solver integrates the damped wave equation with a
 * fixed time step; callers feed it frame delta times and it advances in fixed
 * increments internally. Boundary samples are pinned to zero.
 */
type HeightField struct {
	numRows int
	numCols int

	vertexCount   int
	triangleCount int

	// Simulation constants derived from the physical parameters at
	// construction. The update is
	//   next = k1*prev + k2*curr + k3*(sum of 4 neighbors)
	k1 float32
	k2 float32
	k3 float32

	timeStep    float32
	spatialStep float32

	prevSolution []math.Vec3
	currSolution []math.Vec3
	normals      []math.Vec3
	tangentX     []math.Vec3

	accumulated float32
}

/**
 * @brief Creates a new height field simulation.
 *
 * @param rows Grid rows (>= 5 so a disturbable interior exists).
 * @param cols Grid columns (>= 5).
 * @param dx Spatial step between samples.
 * @param dt Fixed simulation time step.
 * @param speed Wave propagation speed. Bounded by the numerical stability
 * limit dx/(2dt) * sqrt(damping*dt + 2).
 * @param damping Energy loss factor; must leave damping*dt + 2 positive.
 */
func New(rows, cols int, dx, dt, speed, damping float32) (*HeightField, error) {
	// Disturb needs the [2, n-3] interior so an impulse and its neighbors
	// stay off the fixed boundary ring.
	if rows < 5 || cols < 5 {
		return nil, fmt.Errorf("height field grid %dx%d too small, need at least 5x5", rows, cols)
	}
	if dx <= 0 || dt <= 0 {
		return nil, fmt.Errorf("height field steps must be positive, got dx=%f dt=%f", dx, dt)
	}

	d := damping*dt + 2.0
	if d <= 0 {
		return nil, fmt.Errorf("damping %f too negative for time step %f", damping, dt)
	}
	maxSpeed := (dx / (2.0 * dt)) * math32.Sqrt(d)
	if speed <= 0 || speed >= maxSpeed {
		return nil, fmt.Errorf("wave speed %f outside stable range (0, %f)", speed, maxSpeed)
	}

	e := (speed * speed) * (dt * dt) / (dx * dx)

	hf := &HeightField{
		numRows:       rows,
		numCols:       cols,
		vertexCount:   rows * cols,
		triangleCount: (rows - 1) * (cols - 1) * 2,
		k1:            (damping*dt - 2.0) / d,
		k2:            (4.0 - 8.0*e) / d,
		k3:            (2.0 * e) / d,
		timeStep:      dt,
		spatialStep:   dx,
		prevSolution:  make([]math.Vec3, rows*cols),
		currSolution:  make([]math.Vec3, rows*cols),
		normals:       make([]math.Vec3, rows*cols),
		tangentX:      make([]math.Vec3, rows*cols),
	}

	// Generate grid vertices in system memory, centred on the origin.
	halfWidth := 0.5 * float32(cols-1) * dx
	halfDepth := 0.5 * float32(rows-1) * dx
	for i := 0; i < rows; i++ {
		z := halfDepth - float32(i)*dx
		for j := 0; j < cols; j++ {
			x := -halfWidth + float32(j)*dx

			hf.prevSolution[i*cols+j] = math.NewVec3(x, 0, z)
			hf.currSolution[i*cols+j] = math.NewVec3(x, 0, z)
			hf.normals[i*cols+j] = math.NewVec3Up()
			hf.tangentX[i*cols+j] = math.NewVec3(1, 0, 0)
		}
	}

	return hf, nil
}

func (hf *HeightField) RowCount() int    { return hf.numRows }
func (hf *HeightField) ColumnCount() int { return hf.numCols }
func (hf *HeightField) VertexCount() int { return hf.vertexCount }

// TriangleCount returns the triangle count of the grid mesh built over the field.
func (hf *HeightField) TriangleCount() int { return hf.triangleCount }

// Width is the world-space extent along x.
func (hf *HeightField) Width() float32 {
	return float32(hf.numCols-1) * hf.spatialStep
}

// Depth is the world-space extent along z.
func (hf *HeightField) Depth() float32 {
	return float32(hf.numRows-1) * hf.spatialStep
}

// Position returns the current solution sample at flat index i.
func (hf *HeightField) Position(i int) math.Vec3 { return hf.currSolution[i] }

// Normal returns the derived surface normal at flat index i.
func (hf *HeightField) Normal(i int) math.Vec3 { return hf.normals[i] }

// TangentX returns the derived +x tangent at flat index i.
func (hf *HeightField) TangentX(i int) math.Vec3 { return hf.tangentX[i] }

/**
 * @brief Advances the simulation. The frame delta is accumulated and the
 * solver steps in fixed timeStep increments, so simulation behaviour is
 * independent of frame rate.
 */
func (hf *HeightField) Update(dt float32) {
	hf.accumulated += dt

	for hf.accumulated >= hf.timeStep {
		hf.step()
		hf.accumulated -= hf.timeStep
	}
}

func (hf *HeightField) step() {
	n := hf.numCols

	// Only interior points are updated; boundary points stay at zero height.
	for i := 1; i < hf.numRows-1; i++ {
		for j := 1; j < n-1; j++ {
			// After this update the previous buffer holds the next
			// solution, so the buffer swap below is free.
			hf.prevSolution[i*n+j].Y =
				hf.k1*hf.prevSolution[i*n+j].Y +
					hf.k2*hf.currSolution[i*n+j].Y +
					hf.k3*(hf.currSolution[(i+1)*n+j].Y+
						hf.currSolution[(i-1)*n+j].Y+
						hf.currSolution[i*n+j+1].Y+
						hf.currSolution[i*n+j-1].Y)
		}
	}

	hf.prevSolution, hf.currSolution = hf.currSolution, hf.prevSolution

	// Derive normals and tangents from finite differences of the new heights.
	for i := 1; i < hf.numRows-1; i++ {
		for j := 1; j < n-1; j++ {
			l := hf.currSolution[i*n+j-1].Y
			r := hf.currSolution[i*n+j+1].Y
			t := hf.currSolution[(i-1)*n+j].Y
			b := hf.currSolution[(i+1)*n+j].Y

			hf.normals[i*n+j] = math.NewVec3(l-r, 2.0*hf.spatialStep, b-t).Normalized()
			hf.tangentX[i*n+j] = math.NewVec3(2.0*hf.spatialStep, r-l, 0.0).Normalized()
		}
	}
}

/**
 * @brief Disturb adds a height impulse of the given magnitude at grid cell
 * (i, j) and half the magnitude at its four neighbors. Indices are clamped so
 * that neither the cell nor its neighbors touch the fixed boundary ring.
 */
func (hf *HeightField) Disturb(i, j int, magnitude float32) {
	i = math.Clamp(i, 2, hf.numRows-3)
	j = math.Clamp(j, 2, hf.numCols-3)

	n := hf.numCols
	halfMag := 0.5 * magnitude

	hf.currSolution[i*n+j].Y += magnitude
	hf.currSolution[i*n+j+1].Y += halfMag
	hf.currSolution[i*n+j-1].Y += halfMag
	hf.currSolution[(i+1)*n+j].Y += halfMag
	hf.currSolution[(i-1)*n+j].Y += halfMag
}

/**
 * @brief Retune replaces the propagation speed and damping without resetting
 * the solution, so a live configuration change does not flatten the surface.
 * The new values must satisfy the same stability bound as construction.
 */
func (hf *HeightField) Retune(speed, damping float32) error {
	dt := hf.timeStep
	dx := hf.spatialStep

	d := damping*dt + 2.0
	if d <= 0 {
		return fmt.Errorf("damping %f too negative for time step %f", damping, dt)
	}
	maxSpeed := (dx / (2.0 * dt)) * math32.Sqrt(d)
	if speed <= 0 || speed >= maxSpeed {
		return fmt.Errorf("wave speed %f outside stable range (0, %f)", speed, maxSpeed)
	}

	e := (speed * speed) * (dt * dt) / (dx * dx)
	hf.k1 = (damping*dt - 2.0) / d
	hf.k2 = (4.0 - 8.0*e) / d
	hf.k3 = (2.0 * e) / d
	return nil
}

// Energy returns the sum of squared sample heights. Useful for tests and for
// judging visual activity; not a physical energy.
func (hf *HeightField) Energy() float32 {
	var sum float32
	for i := range hf.currSolution {
		h := hf.currSolution[i].Y
		sum += h * h
	}
	return sum
}
