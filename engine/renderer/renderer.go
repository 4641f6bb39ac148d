package renderer

import (
	"fmt"

	"github.com/spaghettifunk/lagoon/engine/frame"
	"github.com/spaghettifunk/lagoon/engine/math"
	"github.com/spaghettifunk/lagoon/engine/renderer/metadata"
	"github.com/spaghettifunk/lagoon/engine/scene"
	"github.com/spaghettifunk/lagoon/engine/waves"
)

// drawOrder is the layer sequence for a frame: opaque first, then the
// alpha-tested and sprite layers, blended geometry, and the pick highlight
// on top.
var drawOrder = [...]scene.RenderLayer{
	scene.LayerOpaque,
	scene.LayerAlphaTested,
	scene.LayerTreeSprites,
	scene.LayerTransparent,
	scene.LayerHighlight,
}

/**
 * @brief Renderer owns the frame resource ring and turns scene state into
 * backend draw submissions. All per-frame state travels through the
 * *frame.Resource acquired at the top of the tick; nothing here is ambient
 * global state.
 */
type Renderer struct {
	backend Backend

	registry  *scene.Registry
	materials *scene.MaterialRegistry

	ring *frame.Ring

	width  uint32
	height uint32
}

func New(backend Backend, registry *scene.Registry, materials *scene.MaterialRegistry) *Renderer {
	return &Renderer{
		backend:   backend,
		registry:  registry,
		materials: materials,
	}
}

/**
 * @brief CreateFrameRing sizes and allocates the ring from the finished
 * scene: one object constant slot per render item, one material slot per
 * material, and a dynamic vertex buffer per ring slot for the wave surface.
 * Must run after scene construction and before the first frame.
 */
func (r *Renderer) CreateFrameRing(ringSize int, waveVertexCount int) error {
	ring, err := frame.NewRing(frame.RingConfig{
		Size:            ringSize,
		ObjectCount:     r.registry.Count(),
		MaterialCount:   r.materials.Count(),
		WaveVertexCount: waveVertexCount,
	}, r.backend.Fence())
	if err != nil {
		return err
	}

	for i := 0; i < ringSize; i++ {
		handle, err := r.backend.CreateDynamicVertexBuffer(fmt.Sprintf("waves_vb_%d", i), waveVertexCount)
		if err != nil {
			return fmt.Errorf("failed to create dynamic wave vertex buffer %d: %w", i, err)
		}
		ring.Resource(i).WaveVB = handle
	}

	r.ring = ring
	return nil
}

// CreateGeometryBuffers uploads the geometry's CPU-side vertex/index data and
// stores the resulting buffer handles on it.
func (r *Renderer) CreateGeometryBuffers(geometry *scene.MeshGeometry) error {
	vb, ib, err := r.backend.CreateGeometryBuffers(geometry.Name, geometry.Vertices, geometry.Indices)
	if err != nil {
		return err
	}
	geometry.VertexBuffer = vb
	geometry.IndexBuffer = ib
	return nil
}

// CreateTexture uploads RGBA pixels and returns the texture's handle.
func (r *Renderer) CreateTexture(name string, width, height uint32, pixels []byte) (metadata.TextureHandle, error) {
	return r.backend.CreateTexture(name, width, height, pixels)
}

func (r *Renderer) Ring() *frame.Ring {
	return r.ring
}

func (r *Renderer) RingSize() int {
	if r.ring == nil {
		return frame.DefaultRingSize
	}
	return r.ring.Size()
}

func (r *Renderer) OnResized(width, height uint32) error {
	r.width = width
	r.height = height
	return r.backend.Resized(width, height)
}

/**
 * @brief BeginFrame rotates the ring and blocks until the acquired slot's
 * previously submitted work completed. The returned resource is the frame
 * context every subsequent update/record call takes.
 */
func (r *Renderer) BeginFrame() (*frame.Resource, error) {
	return r.ring.Acquire()
}

/**
 * @brief UpdateObjectConstants copies the constants of every render item
 * whose dirty counter is still positive into the current slot at the item's
 * stable index, then decrements the counter. A change is thereby propagated
 * to each of the ring's slots exactly once.
 */
func (r *Renderer) UpdateObjectConstants(resource *frame.Resource) {
	for _, item := range r.registry.AllItems() {
		if item.NumFramesDirty <= 0 {
			continue
		}

		resource.ObjectCB.CopyData(int(item.ObjCBIndex), metadata.ObjectConstants{
			World:        math.NewMat4Transposed(item.World),
			TexTransform: math.NewMat4Transposed(item.TexTransform),
		})

		item.NumFramesDirty--
	}
}

// UpdateMaterialConstants is the material counterpart of
// UpdateObjectConstants, with the same propagation guarantee.
func (r *Renderer) UpdateMaterialConstants(resource *frame.Resource) {
	for _, material := range r.materials.All() {
		if material.NumFramesDirty <= 0 {
			continue
		}

		resource.MaterialCB.CopyData(int(material.CBIndex), metadata.MaterialConstants{
			DiffuseAlbedo: material.DiffuseAlbedo,
			FresnelR0:     material.FresnelR0,
			Roughness:     material.Roughness,
			Transform:     math.NewMat4Transposed(material.Transform),
		})

		material.NumFramesDirty--
	}
}

type PassInfo struct {
	TotalTime    float32
	DeltaTime    float32
	AmbientLight math.Vec4
	Lights       []metadata.Light
}

// UpdatePassConstants rebuilds the per-frame pass block from the camera and
// lighting info and writes it into the current slot.
func (r *Renderer) UpdatePassConstants(resource *frame.Resource, camera *scene.Camera, info PassInfo) {
	view := camera.View()
	proj := camera.Proj()
	viewProj := view.Mul(proj)

	pass := metadata.PassConstants{
		View:         math.NewMat4Transposed(view),
		InvView:      math.NewMat4Transposed(view.Inverse()),
		Proj:         math.NewMat4Transposed(proj),
		InvProj:      math.NewMat4Transposed(proj.Inverse()),
		ViewProj:     math.NewMat4Transposed(viewProj),
		InvViewProj:  math.NewMat4Transposed(viewProj.Inverse()),
		EyePos:       camera.Position,
		NearZ:        camera.NearZ,
		FarZ:         camera.FarZ,
		TotalTime:    info.TotalTime,
		DeltaTime:    info.DeltaTime,
		AmbientLight: info.AmbientLight,
	}
	pass.RenderTargetSize = math.NewVec2(float32(r.width), float32(r.height))
	if r.width > 0 && r.height > 0 {
		pass.InvRenderTargetSize = math.NewVec2(1.0/float32(r.width), 1.0/float32(r.height))
	}
	for i, light := range info.Lights {
		if i >= metadata.MAX_LIGHTS {
			break
		}
		pass.Lights[i] = light
	}

	resource.PassCB.CopyData(0, pass)
}

/**
 * @brief UpdateWaveVertices refreshes the current slot's dynamic vertex
 * buffer from the simulation state and redirects the water geometry's vertex
 * buffer to it, so this frame draws the solution it just computed while
 * in-flight frames keep their own copies.
 */
func (r *Renderer) UpdateWaveVertices(resource *frame.Resource, field *waves.HeightField, water *scene.MeshGeometry) {
	width := field.Width()
	depth := field.Depth()

	for i := 0; i < field.VertexCount(); i++ {
		position := field.Position(i)

		resource.WaveVertices.CopyData(i, math.Vertex3D{
			Position: position,
			Normal:   field.Normal(i),
			// Derive the UV from the planar position so the texture stays
			// anchored while heights change.
			Texcoord: math.NewVec2(0.5+position.X/width, 0.5-position.Z/depth),
		})
	}

	water.VertexBuffer = resource.WaveVB
}

/**
 * @brief DrawFrame records and submits the frame: layers in fixed order,
 * visible items only, one indexed draw each. The slot's FenceValue is set to
 * the value EndFrame will signal, which is what gates the slot's reuse.
 */
func (r *Renderer) DrawFrame(resource *frame.Resource) error {
	if err := r.backend.BeginFrame(resource); err != nil {
		return err
	}

	for _, layer := range drawOrder {
		items := r.registry.Layer(layer)
		if len(items) == 0 {
			continue
		}
		r.backend.BindLayer(layer)

		for _, item := range items {
			if !item.Visible || item.Geometry == nil || item.IndexCount == 0 {
				continue
			}

			data := metadata.GeometryRenderData{
				VertexBuffer:  item.Geometry.VertexBuffer,
				IndexBuffer:   item.Geometry.IndexBuffer,
				Topology:      item.Topology,
				IndexCount:    item.IndexCount,
				StartIndex:    item.StartIndex,
				BaseVertex:    item.BaseVertex,
				ObjectCBIndex: item.ObjCBIndex,
			}
			if item.Material != nil {
				data.Texture = item.Material.Texture
				data.MaterialCB = item.Material.CBIndex
			}
			r.backend.Draw(resource, &data)
		}
	}

	fenceValue, err := r.backend.EndFrame(resource)
	if err != nil {
		return err
	}
	resource.FenceValue = fenceValue
	return nil
}

/**
 * @brief Shutdown drains all in-flight GPU work before the backend releases
 * its resources. The drain is mandatory; tearing down while a frame is still
 * executing leaves the GPU reading freed memory.
 */
func (r *Renderer) Shutdown() error {
	if r.ring != nil {
		if err := r.ring.Drain(); err != nil {
			return err
		}
	}
	if err := r.backend.WaitIdle(); err != nil {
		return err
	}
	return r.backend.Shutdown()
}
