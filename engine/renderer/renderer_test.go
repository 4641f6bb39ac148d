package renderer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lagoon/engine/frame"
	"github.com/spaghettifunk/lagoon/engine/math"
	"github.com/spaghettifunk/lagoon/engine/renderer/metadata"
	"github.com/spaghettifunk/lagoon/engine/scene"
	"github.com/spaghettifunk/lagoon/engine/waves"
)

// mockFence completes work the moment it is submitted, so Acquire never
// blocks in tests.
type mockFence struct {
	completed uint64
}

func (f *mockFence) CompletedValue() uint64 { return f.completed }

func (f *mockFence) WaitFor(value uint64, timeout time.Duration) error {
	f.completed = value
	return nil
}

type recordedDraw struct {
	layer scene.RenderLayer
	data  metadata.GeometryRenderData
}

type mockBackend struct {
	fence *mockFence

	nextBuffer  metadata.BufferHandle
	nextTexture metadata.TextureHandle
	submitted   uint64

	currentLayer scene.RenderLayer
	draws        []recordedDraw
	layerBinds   []scene.RenderLayer

	waitIdleCalls int
	shutdownCalls int
}

func newMockBackend() *mockBackend {
	return &mockBackend{fence: &mockFence{}}
}

func (m *mockBackend) Initialize(appName string, width, height uint32, ringSize int) error {
	return nil
}
func (m *mockBackend) Shutdown() error {
	m.shutdownCalls++
	return nil
}
func (m *mockBackend) Resized(width, height uint32) error { return nil }
func (m *mockBackend) Fence() frame.CompletionFence       { return m.fence }

func (m *mockBackend) CreateGeometryBuffers(name string, vertices []math.Vertex3D, indices []uint32) (metadata.BufferHandle, metadata.BufferHandle, error) {
	m.nextBuffer++
	vb := m.nextBuffer
	m.nextBuffer++
	return vb, m.nextBuffer, nil
}

func (m *mockBackend) CreateDynamicVertexBuffer(name string, vertexCount int) (metadata.BufferHandle, error) {
	m.nextBuffer++
	return m.nextBuffer, nil
}

func (m *mockBackend) CreateTexture(name string, width, height uint32, pixels []byte) (metadata.TextureHandle, error) {
	m.nextTexture++
	return m.nextTexture, nil
}

func (m *mockBackend) BeginFrame(resource *frame.Resource) error { return nil }

func (m *mockBackend) BindLayer(layer scene.RenderLayer) {
	m.currentLayer = layer
	m.layerBinds = append(m.layerBinds, layer)
}

func (m *mockBackend) Draw(resource *frame.Resource, data *metadata.GeometryRenderData) {
	m.draws = append(m.draws, recordedDraw{layer: m.currentLayer, data: *data})
}

func (m *mockBackend) EndFrame(resource *frame.Resource) (uint64, error) {
	m.submitted++
	m.fence.completed = m.submitted
	return m.submitted, nil
}

func (m *mockBackend) WaitIdle() error {
	m.waitIdleCalls++
	return nil
}

func testScene(t *testing.T) (*scene.Registry, *scene.MaterialRegistry, *scene.RenderItem) {
	t.Helper()

	registry := scene.NewRegistry()
	materials := scene.NewMaterialRegistry()

	material, err := materials.Create(scene.MaterialConfig{
		Name:          "stone",
		DiffuseAlbedo: math.NewVec4(1, 1, 1, 1),
		FresnelR0:     math.NewVec3(0.02, 0.02, 0.02),
		Roughness:     0.2,
	})
	require.NoError(t, err)

	vertices, indices := scene.GenerateBox(1, 1, 1)
	geo := scene.NewMeshGeometry("box", vertices, indices)

	item := registry.Add(&scene.RenderItem{
		Name:         "box",
		World:        math.NewMat4Translation(math.NewVec3(1, 2, 3)),
		TexTransform: math.NewMat4Identity(),
		Geometry:     geo,
		Material:     material,
		Topology:     metadata.PRIMITIVE_TOPOLOGY_TRIANGLE_LIST,
		IndexCount:   uint32(len(indices)),
		Visible:      true,
	}, scene.LayerOpaque)
	item.MarkDirty(3)

	return registry, materials, item
}

func newTestRenderer(t *testing.T) (*Renderer, *mockBackend, *scene.RenderItem) {
	t.Helper()

	backend := newMockBackend()
	registry, materials, item := testScene(t)

	r := New(backend, registry, materials)
	require.NoError(t, r.CreateFrameRing(3, 16))
	return r, backend, item
}

func TestObjectConstantPropagation(t *testing.T) {
	r, _, item := newTestRenderer(t)

	want := metadata.ObjectConstants{
		World:        math.NewMat4Transposed(item.World),
		TexTransform: math.NewMat4Transposed(item.TexTransform),
	}

	// Three frames spread the change to all three slots and exhaust the
	// counter.
	for i := 0; i < 3; i++ {
		resource, err := r.BeginFrame()
		require.NoError(t, err)
		r.UpdateObjectConstants(resource)
		assert.Equal(t, want, resource.ObjectCB.At(int(item.ObjCBIndex)))
	}
	assert.Zero(t, item.NumFramesDirty)

	// A clean item copies nothing more: stale slots stay as they are.
	item.World = math.NewMat4Translation(math.NewVec3(9, 9, 9))
	resource, err := r.BeginFrame()
	require.NoError(t, err)
	r.UpdateObjectConstants(resource)
	assert.Equal(t, want, resource.ObjectCB.At(int(item.ObjCBIndex)),
		"an undirtied change must not propagate")

	// MarkDirty restarts propagation with the new value.
	item.MarkDirty(r.RingSize())
	r.UpdateObjectConstants(resource)
	assert.Equal(t, math.NewMat4Transposed(item.World),
		resource.ObjectCB.At(int(item.ObjCBIndex)).World)
	assert.Equal(t, 2, item.NumFramesDirty)
}

func TestMaterialConstantPropagation(t *testing.T) {
	r, _, _ := newTestRenderer(t)

	material, err := r.materials.Get("stone")
	require.NoError(t, err)
	material.MarkDirty(3)

	for i := 0; i < 3; i++ {
		resource, err := r.BeginFrame()
		require.NoError(t, err)
		r.UpdateMaterialConstants(resource)

		got := resource.MaterialCB.At(int(material.CBIndex))
		assert.Equal(t, material.DiffuseAlbedo, got.DiffuseAlbedo)
		assert.Equal(t, material.Roughness, got.Roughness)
	}
	assert.Zero(t, material.NumFramesDirty)
}

func TestUpdatePassConstants(t *testing.T) {
	r, _, _ := newTestRenderer(t)
	require.NoError(t, r.OnResized(800, 600))

	camera := scene.NewCamera()
	camera.SetPosition(math.NewVec3(1, 2, 3))
	camera.UpdateViewMatrix()

	resource, err := r.BeginFrame()
	require.NoError(t, err)

	lights := make([]metadata.Light, metadata.MAX_LIGHTS+4)
	for i := range lights {
		lights[i].SpotPower = float32(i)
	}

	r.UpdatePassConstants(resource, camera, PassInfo{
		TotalTime:    12.5,
		DeltaTime:    0.016,
		AmbientLight: math.NewVec4(0.25, 0.25, 0.35, 1.0),
		Lights:       lights,
	})

	pass := resource.PassCB.At(0)
	assert.Equal(t, camera.Position, pass.EyePos)
	assert.Equal(t, float32(12.5), pass.TotalTime)
	assert.Equal(t, math.NewVec2(800, 600), pass.RenderTargetSize)
	assert.InDelta(t, 1.0/800.0, pass.InvRenderTargetSize.X, 1e-7)
	assert.Equal(t, float32(metadata.MAX_LIGHTS-1), pass.Lights[metadata.MAX_LIGHTS-1].SpotPower,
		"the light array is truncated, not overrun")
}

func TestUpdateWaveVertices(t *testing.T) {
	r, _, _ := newTestRenderer(t)

	field, err := waves.New(4, 4, 1.0, 0.03, 4.0, 0.2)
	require.NoError(t, err)

	vertices, indices := scene.GenerateGrid(field.Width(), field.Depth(), 4, 4)
	water := scene.NewMeshGeometry("water", vertices, indices)
	require.NoError(t, r.CreateGeometryBuffers(water))
	staticVB := water.VertexBuffer

	resource, err := r.BeginFrame()
	require.NoError(t, err)
	r.UpdateWaveVertices(resource, field, water)

	assert.Equal(t, resource.WaveVB, water.VertexBuffer,
		"the draw must be redirected to the slot's dynamic buffer")
	assert.NotEqual(t, staticVB, water.VertexBuffer)

	// Corner UVs: first sample is the (-x, +z) corner.
	first := resource.WaveVertices.At(0)
	assert.InDelta(t, 0.0, first.Texcoord.X, 1e-5)
	assert.InDelta(t, 0.0, first.Texcoord.Y, 1e-5)

	last := resource.WaveVertices.At(field.VertexCount() - 1)
	assert.InDelta(t, 1.0, last.Texcoord.X, 1e-5)
	assert.InDelta(t, 1.0, last.Texcoord.Y, 1e-5)

	// Each slot owns a distinct dynamic buffer.
	second, err := r.BeginFrame()
	require.NoError(t, err)
	assert.NotEqual(t, resource.WaveVB, second.WaveVB)
}

func TestDrawFrameRecordsVisibleItemsInLayerOrder(t *testing.T) {
	r, backend, item := newTestRenderer(t)

	// A second, transparent item and an invisible one.
	transparent := r.registry.Add(&scene.RenderItem{
		Name:       "water",
		World:      math.NewMat4Identity(),
		Geometry:   item.Geometry,
		Topology:   metadata.PRIMITIVE_TOPOLOGY_TRIANGLE_LIST,
		IndexCount: 6,
		Visible:    true,
	}, scene.LayerTransparent)

	r.registry.Add(&scene.RenderItem{
		Name:       "hidden",
		Geometry:   item.Geometry,
		IndexCount: 6,
		Visible:    false,
	}, scene.LayerOpaque)

	resource, err := r.BeginFrame()
	require.NoError(t, err)
	require.NoError(t, r.DrawFrame(resource))

	require.Len(t, backend.draws, 2, "hidden items must not be drawn")
	assert.Equal(t, scene.LayerOpaque, backend.draws[0].layer)
	assert.Equal(t, item.ObjCBIndex, backend.draws[0].data.ObjectCBIndex)
	assert.Equal(t, scene.LayerTransparent, backend.draws[1].layer)
	assert.Equal(t, transparent.ObjCBIndex, backend.draws[1].data.ObjectCBIndex)

	assert.Equal(t, uint64(1), resource.FenceValue,
		"the slot must remember the fence value its reuse is gated on")
}

func TestDrawFrameSkipsEmptyHighlight(t *testing.T) {
	r, backend, item := newTestRenderer(t)

	highlight := r.registry.Add(&scene.RenderItem{
		Name:       "highlight",
		World:      math.NewMat4Identity(),
		Geometry:   item.Geometry,
		IndexCount: 0,
		Visible:    true,
	}, scene.LayerHighlight)

	resource, err := r.BeginFrame()
	require.NoError(t, err)
	require.NoError(t, r.DrawFrame(resource))
	require.Len(t, backend.draws, 1, "an empty draw range records nothing")

	// After a pick narrows the range the highlight is drawn last.
	highlight.IndexCount = 3
	resource, err = r.BeginFrame()
	require.NoError(t, err)
	require.NoError(t, r.DrawFrame(resource))

	lastDraw := backend.draws[len(backend.draws)-1]
	assert.Equal(t, scene.LayerHighlight, lastDraw.layer)
	assert.Equal(t, uint32(3), lastDraw.data.IndexCount)
}

func TestShutdownDrainsBeforeBackendRelease(t *testing.T) {
	r, backend, _ := newTestRenderer(t)

	resource, err := r.BeginFrame()
	require.NoError(t, err)
	require.NoError(t, r.DrawFrame(resource))

	require.NoError(t, r.Shutdown())
	assert.Equal(t, 1, backend.waitIdleCalls)
	assert.Equal(t, 1, backend.shutdownCalls)
}
