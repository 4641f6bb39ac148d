package loaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleModel = `VertexCount: 3
TriangleCount: 1
VertexList (pos, normal) {
	1.0 0.0 0.0 0.0 1.0 0.0
	0.0 1.0 0.0 0.0 1.0 0.0
	0.0 0.0 -1.0 0.0 1.0 0.0
}
TriangleList {
	0 1 2
}
`

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestModelLoaderParsesMesh(t *testing.T) {
	loader := &ModelLoader{}
	result, err := loader.Load(writeModel(t, sampleModel))
	require.NoError(t, err)

	mesh, ok := result.(*Mesh)
	require.True(t, ok)
	require.Len(t, mesh.Vertices, 3)
	require.Len(t, mesh.Indices, 3)

	assert.Equal(t, float32(1.0), mesh.Vertices[0].Position.X)
	assert.Equal(t, float32(1.0), mesh.Vertices[0].Normal.Y)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
}

func TestModelLoaderGeneratesSphericalUVs(t *testing.T) {
	loader := &ModelLoader{}
	result, err := loader.Load(writeModel(t, sampleModel))
	require.NoError(t, err)
	mesh := result.(*Mesh)

	// +x axis: the seam start of the wrap, on the equator.
	assert.InDelta(t, 0.0, mesh.Vertices[0].Texcoord.X, 1e-5)
	assert.InDelta(t, 0.5, mesh.Vertices[0].Texcoord.Y, 1e-5)

	// +y axis: the pole.
	assert.InDelta(t, 0.0, mesh.Vertices[1].Texcoord.Y, 1e-5)

	// -z axis: the negative angle must wrap into [0, 1).
	assert.InDelta(t, 0.75, mesh.Vertices[2].Texcoord.X, 1e-5)
	assert.InDelta(t, 0.5, mesh.Vertices[2].Texcoord.Y, 1e-5)
}

func TestModelLoaderErrors(t *testing.T) {
	loader := &ModelLoader{}

	_, err := loader.Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	_, err = loader.Load(writeModel(t, "TriangleCount: 1"))
	assert.Error(t, err, "wrong leading token")

	_, err = loader.Load(writeModel(t, "VertexCount: 0\nTriangleCount: 0\na b c d"))
	assert.Error(t, err, "empty geometry")

	truncated := `VertexCount: 3
TriangleCount: 1
VertexList (pos, normal) {
	1.0 0.0
`
	_, err = loader.Load(writeModel(t, truncated))
	assert.Error(t, err, "truncated vertex data")

	garbage := `VertexCount: 1
TriangleCount: 1
VertexList (pos, normal) {
	1.0 x 0.0 0.0 1.0 0.0
}
TriangleList {
	0 0 0
}
`
	_, err = loader.Load(writeModel(t, garbage))
	assert.Error(t, err, "non-numeric vertex data")
}
