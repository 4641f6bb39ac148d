package math

import "github.com/chewxy/math32"

// Ray intersection utilities. Rays here follow the picking pipeline: a ray is
// built in view space from a screen coordinate, transformed into each
// candidate's local space, then tested against the candidate's bounds and
// triangles.

/**
 * @brief Builds a view-space ray through the given screen pixel. The origin is
 * the eye (the view-space origin); the direction passes through the point on
 * the near projection window, derived from the projection matrix diagonal.
 *
 * @param sx Screen x in pixels.
 * @param sy Screen y in pixels (top-left origin).
 * @param width Viewport width in pixels.
 * @param height Viewport height in pixels.
 * @param proj The camera projection matrix.
 * @return The view-space ray. The direction is not normalized.
 */
func NewScreenRay(sx, sy, width, height float32, proj Mat4) Ray {
	vx := (2.0*sx/width - 1.0) / proj.At(0, 0)
	vy := (-2.0*sy/height + 1.0) / proj.At(1, 1)

	return Ray{
		Origin: NewVec3Zero(),
		Dir:    NewVec3(vx, vy, 1.0),
	}
}

// Transform maps the ray through m: the origin as a point, the direction as a
// direction. The returned direction is not normalized, so the same matrix can
// carry non-uniform scale.
func (r Ray) Transform(m Mat4) Ray {
	return Ray{
		Origin: r.Origin.TransformCoord(m),
		Dir:    r.Dir.TransformNormal(m),
	}
}

// Normalized returns a copy of the ray with a unit-length direction.
func (r Ray) Normalized() Ray {
	return Ray{Origin: r.Origin, Dir: r.Dir.Normalized()}
}

/**
 * @brief Slab-method ray/AABB intersection. The ray direction must be unit
 * length if the returned distance is to be metric.
 *
 * @param extents The box to test against, in the same space as the ray.
 * @return The distance along the ray to the entry point (0 if the origin is
 * inside the box) and whether the box was hit.
 */
func (r Ray) IntersectsExtents(extents Extents3D) (float32, bool) {
	tmin := float32(-K_INFINITY)
	tmax := K_INFINITY

	origin := [3]float32{r.Origin.X, r.Origin.Y, r.Origin.Z}
	dir := [3]float32{r.Dir.X, r.Dir.Y, r.Dir.Z}
	boxMin := [3]float32{extents.Min.X, extents.Min.Y, extents.Min.Z}
	boxMax := [3]float32{extents.Max.X, extents.Max.Y, extents.Max.Z}

	for axis := 0; axis < 3; axis++ {
		if math32.Abs(dir[axis]) < K_FLOAT_EPSILON {
			// Ray parallel to the slab; miss unless the origin is inside it.
			if origin[axis] < boxMin[axis] || origin[axis] > boxMax[axis] {
				return 0, false
			}
			continue
		}
		inv := 1.0 / dir[axis]
		t1 := (boxMin[axis] - origin[axis]) * inv
		t2 := (boxMax[axis] - origin[axis]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}

	if tmax < 0 {
		// Box entirely behind the ray.
		return 0, false
	}
	if tmin < 0 {
		return 0, true
	}
	return tmin, true
}

/**
 * @brief Möller–Trumbore ray/triangle intersection. Both facings are
 * accepted; only hits at positive distance count.
 *
 * @param v0,v1,v2 The triangle corners, in the same space as the ray.
 * @return The distance along the ray to the hit point and whether it hit.
 */
func (r Ray) IntersectsTriangle(v0, v1, v2 Vec3) (float32, bool) {
	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)

	pvec := r.Dir.Cross(edge2)
	det := edge1.Dot(pvec)
	if math32.Abs(det) < K_FLOAT_EPSILON {
		return 0, false
	}
	invDet := 1.0 / det

	tvec := r.Origin.Sub(v0)
	u := tvec.Dot(pvec) * invDet
	if u < 0.0 || u > 1.0 {
		return 0, false
	}

	qvec := tvec.Cross(edge1)
	v := r.Dir.Dot(qvec) * invDet
	if v < 0.0 || u+v > 1.0 {
		return 0, false
	}

	t := edge2.Dot(qvec) * invDet
	if t <= 0.0 {
		return 0, false
	}
	return t, true
}
