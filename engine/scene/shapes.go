package scene

import (
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/lagoon/engine/math"
)

// Procedural mesh generators for the primitive shapes the scenes are built
// from. All shapes are centred on the local origin.

/**
 * @brief GenerateBox creates a box of the given dimensions with outward
 * normals and per-face texture coordinates. 24 vertices, 36 indices.
 */
func GenerateBox(width, height, depth float32) ([]math.Vertex3D, []uint32) {
	w2 := 0.5 * width
	h2 := 0.5 * height
	d2 := 0.5 * depth

	v := func(px, py, pz, nx, ny, nz, u, vv float32) math.Vertex3D {
		return math.Vertex3D{
			Position: math.NewVec3(px, py, pz),
			Normal:   math.NewVec3(nx, ny, nz),
			Texcoord: math.NewVec2(u, vv),
		}
	}

	vertices := []math.Vertex3D{
		// front face
		v(-w2, -h2, -d2, 0, 0, -1, 0, 1),
		v(-w2, +h2, -d2, 0, 0, -1, 0, 0),
		v(+w2, +h2, -d2, 0, 0, -1, 1, 0),
		v(+w2, -h2, -d2, 0, 0, -1, 1, 1),
		// back face
		v(-w2, -h2, +d2, 0, 0, 1, 1, 1),
		v(+w2, -h2, +d2, 0, 0, 1, 0, 1),
		v(+w2, +h2, +d2, 0, 0, 1, 0, 0),
		v(-w2, +h2, +d2, 0, 0, 1, 1, 0),
		// top face
		v(-w2, +h2, -d2, 0, 1, 0, 0, 1),
		v(-w2, +h2, +d2, 0, 1, 0, 0, 0),
		v(+w2, +h2, +d2, 0, 1, 0, 1, 0),
		v(+w2, +h2, -d2, 0, 1, 0, 1, 1),
		// bottom face
		v(-w2, -h2, -d2, 0, -1, 0, 1, 1),
		v(+w2, -h2, -d2, 0, -1, 0, 0, 1),
		v(+w2, -h2, +d2, 0, -1, 0, 0, 0),
		v(-w2, -h2, +d2, 0, -1, 0, 1, 0),
		// left face
		v(-w2, -h2, +d2, -1, 0, 0, 0, 1),
		v(-w2, +h2, +d2, -1, 0, 0, 0, 0),
		v(-w2, +h2, -d2, -1, 0, 0, 1, 0),
		v(-w2, -h2, -d2, -1, 0, 0, 1, 1),
		// right face
		v(+w2, -h2, -d2, 1, 0, 0, 0, 1),
		v(+w2, +h2, -d2, 1, 0, 0, 0, 0),
		v(+w2, +h2, +d2, 1, 0, 0, 1, 0),
		v(+w2, -h2, +d2, 1, 0, 0, 1, 1),
	}

	indices := make([]uint32, 0, 36)
	for face := uint32(0); face < 6; face++ {
		base := face * 4
		indices = append(indices,
			base, base+1, base+2,
			base, base+2, base+3)
	}

	return vertices, indices
}

/**
 * @brief GenerateGrid creates an m x n vertex grid in the xz-plane, centred
 * on the origin, width along x and depth along z. Triangles wind clockwise
 * seen from +y.
 */
func GenerateGrid(width, depth float32, m, n int) ([]math.Vertex3D, []uint32) {
	halfWidth := 0.5 * width
	halfDepth := 0.5 * depth

	dx := width / float32(n-1)
	dz := depth / float32(m-1)
	du := 1.0 / float32(n-1)
	dv := 1.0 / float32(m-1)

	vertices := make([]math.Vertex3D, m*n)
	for i := 0; i < m; i++ {
		z := halfDepth - float32(i)*dz
		for j := 0; j < n; j++ {
			x := -halfWidth + float32(j)*dx

			vertices[i*n+j] = math.Vertex3D{
				Position: math.NewVec3(x, 0, z),
				Normal:   math.NewVec3Up(),
				Texcoord: math.NewVec2(float32(j)*du, float32(i)*dv),
			}
		}
	}

	indices := make([]uint32, 0, (m-1)*(n-1)*6)
	for i := 0; i < m-1; i++ {
		for j := 0; j < n-1; j++ {
			indices = append(indices,
				uint32(i*n+j),
				uint32(i*n+j+1),
				uint32((i+1)*n+j),

				uint32((i+1)*n+j),
				uint32(i*n+j+1),
				uint32((i+1)*n+j+1))
		}
	}

	return vertices, indices
}

/**
 * @brief GenerateCylinder creates a cylinder along y with the given cap radii.
 * Setting topRadius zero yields a cone.
 */
func GenerateCylinder(bottomRadius, topRadius, height float32, sliceCount, stackCount int) ([]math.Vertex3D, []uint32) {
	vertices := []math.Vertex3D{}

	stackHeight := height / float32(stackCount)
	radiusStep := (topRadius - bottomRadius) / float32(stackCount)

	// Side rings, bottom to top.
	for i := 0; i <= stackCount; i++ {
		y := -0.5*height + float32(i)*stackHeight
		r := bottomRadius + float32(i)*radiusStep

		dTheta := math.K_PI_2 / float32(sliceCount)
		for j := 0; j <= sliceCount; j++ {
			theta := float32(j) * dTheta
			c := math32.Cos(theta)
			s := math32.Sin(theta)

			position := math.NewVec3(r*c, y, r*s)
			// The slope term makes the normal correct for cones as well.
			dr := bottomRadius - topRadius
			bitangent := math.NewVec3(dr*c, -height, dr*s)
			tangent := math.NewVec3(-s, 0, c)
			normal := tangent.Cross(bitangent).Normalized()

			vertices = append(vertices, math.Vertex3D{
				Position: position,
				Normal:   normal,
				Texcoord: math.NewVec2(float32(j)/float32(sliceCount), 1.0-float32(i)/float32(stackCount)),
			})
		}
	}

	ringVertexCount := sliceCount + 1
	indices := []uint32{}
	for i := 0; i < stackCount; i++ {
		for j := 0; j < sliceCount; j++ {
			indices = append(indices,
				uint32(i*ringVertexCount+j),
				uint32((i+1)*ringVertexCount+j),
				uint32((i+1)*ringVertexCount+j+1),

				uint32(i*ringVertexCount+j),
				uint32((i+1)*ringVertexCount+j+1),
				uint32(i*ringVertexCount+j+1))
		}
	}

	vertices, indices = appendCylinderCap(vertices, indices, topRadius, 0.5*height, sliceCount, true)
	vertices, indices = appendCylinderCap(vertices, indices, bottomRadius, -0.5*height, sliceCount, false)

	return vertices, indices
}

func appendCylinderCap(vertices []math.Vertex3D, indices []uint32, radius, y float32, sliceCount int, top bool) ([]math.Vertex3D, []uint32) {
	baseIndex := uint32(len(vertices))

	ny := float32(1)
	if !top {
		ny = -1
	}

	dTheta := math.K_PI_2 / float32(sliceCount)
	for i := 0; i <= sliceCount; i++ {
		x := radius * math32.Cos(float32(i)*dTheta)
		z := radius * math32.Sin(float32(i)*dTheta)

		u, v := float32(0.5), float32(0.5)
		if radius > 0 {
			u = x/(2*radius) + 0.5
			v = z/(2*radius) + 0.5
		}
		vertices = append(vertices, math.Vertex3D{
			Position: math.NewVec3(x, y, z),
			Normal:   math.NewVec3(0, ny, 0),
			Texcoord: math.NewVec2(u, v),
		})
	}

	// Cap centre vertex.
	vertices = append(vertices, math.Vertex3D{
		Position: math.NewVec3(0, y, 0),
		Normal:   math.NewVec3(0, ny, 0),
		Texcoord: math.NewVec2(0.5, 0.5),
	})
	centerIndex := uint32(len(vertices) - 1)

	for i := 0; i < sliceCount; i++ {
		if top {
			indices = append(indices, centerIndex, baseIndex+uint32(i+1), baseIndex+uint32(i))
		} else {
			indices = append(indices, centerIndex, baseIndex+uint32(i), baseIndex+uint32(i+1))
		}
	}

	return vertices, indices
}
