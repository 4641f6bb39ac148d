package scene

import (
	"github.com/spaghettifunk/lagoon/engine/math"
)

/**
 * @brief Camera is a first-person walk camera: a position plus an
 * orthonormal right/up/look basis. The view matrix is rebuilt lazily when a
 * move or rotation dirtied the basis.
 *
 * NOTE: Do not set the fields directly; use the movement functions so the
 * view matrix is recalculated when needed.
 */
type Camera struct {
	Position math.Vec3
	Right    math.Vec3
	Up       math.Vec3
	Look     math.Vec3

	NearZ  float32
	FarZ   float32
	Aspect float32
	FovY   float32

	viewDirty bool
	view      math.Mat4
	proj      math.Mat4
}

func NewCamera() *Camera {
	c := &Camera{
		Position: math.NewVec3Zero(),
		Right:    math.NewVec3(1, 0, 0),
		Up:       math.NewVec3(0, 1, 0),
		Look:     math.NewVec3(0, 0, 1),
		viewDirty: true,
	}
	c.SetLens(math.K_QUARTER_PI, 1.0, 1.0, 1000.0)
	return c
}

// SetLens recomputes the projection matrix. Called on every resize with the
// new aspect ratio.
func (c *Camera) SetLens(fovY, aspect, nearZ, farZ float32) {
	c.FovY = fovY
	c.Aspect = aspect
	c.NearZ = nearZ
	c.FarZ = farZ
	c.proj = math.NewMat4PerspectiveFov(fovY, aspect, nearZ, farZ)
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Position = position
	c.viewDirty = true
}

// LookAt re-aims the camera basis from a position toward a target.
func (c *Camera) LookAt(position, target, worldUp math.Vec3) {
	c.Position = position
	c.Look = target.Sub(position).Normalized()
	c.Right = worldUp.Cross(c.Look).Normalized()
	c.Up = c.Look.Cross(c.Right)
	c.viewDirty = true
}

// Walk moves the camera along its look vector.
func (c *Camera) Walk(distance float32) {
	c.Position = c.Position.Add(c.Look.MulScalar(distance))
	c.viewDirty = true
}

// Strafe moves the camera along its right vector.
func (c *Camera) Strafe(distance float32) {
	c.Position = c.Position.Add(c.Right.MulScalar(distance))
	c.viewDirty = true
}

// Pitch rotates the basis about the right vector.
func (c *Camera) Pitch(angle float32) {
	rotation := math.NewMat4AxisAngle(c.Right.Normalized(), angle)
	c.Up = c.Up.TransformNormal(rotation)
	c.Look = c.Look.TransformNormal(rotation)
	c.viewDirty = true
}

// RotateY rotates the basis about the world y-axis.
func (c *Camera) RotateY(angle float32) {
	rotation := math.NewMat4EulerY(angle)
	c.Right = c.Right.TransformNormal(rotation)
	c.Up = c.Up.TransformNormal(rotation)
	c.Look = c.Look.TransformNormal(rotation)
	c.viewDirty = true
}

// UpdateViewMatrix re-orthonormalizes the basis and rebuilds the view matrix
// if anything moved since the last call.
func (c *Camera) UpdateViewMatrix() {
	if !c.viewDirty {
		return
	}

	look := c.Look.Normalized()
	up := look.Cross(c.Right).Normalized()
	right := up.Cross(look)

	c.Look = look
	c.Up = up
	c.Right = right

	view := math.NewMat4Identity()
	view.Set(0, 0, right.X)
	view.Set(1, 0, right.Y)
	view.Set(2, 0, right.Z)
	view.Set(3, 0, -c.Position.Dot(right))

	view.Set(0, 1, up.X)
	view.Set(1, 1, up.Y)
	view.Set(2, 1, up.Z)
	view.Set(3, 1, -c.Position.Dot(up))

	view.Set(0, 2, look.X)
	view.Set(1, 2, look.Y)
	view.Set(2, 2, look.Z)
	view.Set(3, 2, -c.Position.Dot(look))

	c.view = view
	c.viewDirty = false
}

// View returns the current view matrix. UpdateViewMatrix must have run since
// the last movement.
func (c *Camera) View() math.Mat4 {
	return c.view
}

func (c *Camera) Proj() math.Mat4 {
	return c.proj
}
