package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleModel = `VertexCount: 3
TriangleCount: 1
VertexList (pos, normal) {
	1.0 0.0 0.0 0.0 1.0 0.0
	0.0 1.0 0.0 0.0 1.0 0.0
	0.0 0.0 1.0 0.0 1.0 0.0
}
TriangleList {
	0 1 2
}
`

func assetRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "models"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "textures"), 0o755))
	return root
}

func TestLoadModel(t *testing.T) {
	root := assetRoot(t)
	path := filepath.Join(root, "models", "skull.txt")
	require.NoError(t, os.WriteFile(path, []byte(triangleModel), 0o644))

	manager := NewManager(root)
	model, err := manager.LoadModel("skull.txt")
	require.NoError(t, err)

	assert.Equal(t, "skull.txt", model.Name)
	assert.Len(t, model.Vertices, 3)
	assert.Equal(t, []uint32{0, 1, 2}, model.Indices)
}

func TestLoadModelRejectsWrongExtension(t *testing.T) {
	manager := NewManager(assetRoot(t))
	_, err := manager.LoadModel("skull.png")
	assert.Error(t, err)
}

func TestLoadModelMissingFile(t *testing.T) {
	manager := NewManager(assetRoot(t))
	_, err := manager.LoadModel("nope.txt")
	assert.Error(t, err)
}

func TestLoadTexture(t *testing.T) {
	root := assetRoot(t)

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 1, color.NRGBA{G: 255, A: 128})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(root, "textures", "grass.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	manager := NewManager(root)
	texture, err := manager.LoadTexture("grass.png")
	require.NoError(t, err)

	assert.Equal(t, uint32(2), texture.Width)
	assert.Equal(t, uint32(2), texture.Height)
	require.Len(t, texture.Pixels, 2*2*4, "pixels must be tightly packed RGBA")

	// First texel is opaque red.
	assert.Equal(t, byte(255), texture.Pixels[0])
	assert.Equal(t, byte(255), texture.Pixels[3])
}

func TestLoadTextureRejectsWrongExtension(t *testing.T) {
	manager := NewManager(assetRoot(t))
	_, err := manager.LoadTexture("grass.txt")
	assert.Error(t, err)
}
