package math

// GeometryGenerateNormals writes a face normal to each triangle's vertices.
// Smoothing across shared vertices should be done in a separate pass if desired.
func GeometryGenerateNormals(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		normal := edge1.Cross(edge2).Normalized()

		vertices[i0].Normal = normal
		vertices[i1].Normal = normal
		vertices[i2].Normal = normal
	}
}

// GeometryComputeExtents returns the axis-aligned bounding box of the vertex
// positions. An empty slice yields a zero box.
func GeometryComputeExtents(vertices []Vertex3D) Extents3D {
	if len(vertices) == 0 {
		return Extents3D{}
	}
	extents := Extents3D{
		Min: vertices[0].Position,
		Max: vertices[0].Position,
	}
	for _, v := range vertices[1:] {
		extents.Min = extents.Min.Min(v.Position)
		extents.Max = extents.Max.Max(v.Position)
	}
	return extents
}

// Center returns the midpoint of the extents.
func (e Extents3D) Center() Vec3 {
	return e.Min.Add(e.Max).MulScalar(0.5)
}
