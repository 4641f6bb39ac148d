package scene

import (
	"fmt"

	"github.com/spaghettifunk/lagoon/engine/math"
	"github.com/spaghettifunk/lagoon/engine/renderer/metadata"
)

/**
 * @brief Submesh is a named draw range within a MeshGeometry's buffers, with
 * the local-space bounds of the covered vertices.
 */
type Submesh struct {
	IndexCount uint32
	StartIndex uint32
	BaseVertex int32
	Bounds     math.Extents3D
}

/**
 * @brief MeshGeometry pairs shared vertex/index buffers with named submesh
 * draw ranges. The CPU-side copies are retained for picking's per-triangle
 * tests. The water geometry is the one mutable case: its vertex buffer handle
 * is redirected each frame to the current frame resource's dynamic buffer.
 */
type MeshGeometry struct {
	Name string

	Vertices []math.Vertex3D
	Indices  []uint32

	VertexBuffer metadata.BufferHandle
	IndexBuffer  metadata.BufferHandle

	submeshes map[string]Submesh
}

func NewMeshGeometry(name string, vertices []math.Vertex3D, indices []uint32) *MeshGeometry {
	return &MeshGeometry{
		Name:      name,
		Vertices:  vertices,
		Indices:   indices,
		submeshes: make(map[string]Submesh),
	}
}

func (g *MeshGeometry) AddSubmesh(name string, submesh Submesh) {
	g.submeshes[name] = submesh
}

// Submesh looks up a named draw range. A missing name is a scene construction
// bug, surfaced as an error so the caller can abort initialization.
func (g *MeshGeometry) Submesh(name string) (Submesh, error) {
	submesh, ok := g.submeshes[name]
	if !ok {
		return Submesh{}, fmt.Errorf("geometry '%s' has no submesh '%s'", g.Name, name)
	}
	return submesh, nil
}
