package renderer

import (
	"github.com/spaghettifunk/lagoon/engine/frame"
	"github.com/spaghettifunk/lagoon/engine/math"
	"github.com/spaghettifunk/lagoon/engine/renderer/metadata"
	"github.com/spaghettifunk/lagoon/engine/scene"
)

/**
 * @brief Backend is the command submission and presentation collaborator.
 * One implementation exists per graphics API (vulkan). The renderer front
 * end drives it once per frame: BeginFrame, a sequence of BindLayer/Draw
 * calls, then EndFrame which submits, presents and signals the completion
 * fence with the returned value.
 */
type Backend interface {
	Initialize(appName string, width, height uint32, ringSize int) error
	Shutdown() error

	// Resized reacts to a window size change before the next frame.
	Resized(width, height uint32) error

	// Fence exposes the backend's completion counter for the frame ring.
	Fence() frame.CompletionFence

	// CreateGeometryBuffers uploads immutable vertex/index data and returns
	// the buffer handles.
	CreateGeometryBuffers(name string, vertices []math.Vertex3D, indices []uint32) (metadata.BufferHandle, metadata.BufferHandle, error)

	// CreateDynamicVertexBuffer allocates one host-writable vertex buffer,
	// called once per ring slot for the wave surface.
	CreateDynamicVertexBuffer(name string, vertexCount int) (metadata.BufferHandle, error)

	// CreateTexture uploads RGBA pixels and returns the texture's slot in
	// the bound texture array.
	CreateTexture(name string, width, height uint32, pixels []byte) (metadata.TextureHandle, error)

	// BeginFrame acquires the backbuffer and opens the slot's command list.
	BeginFrame(resource *frame.Resource) error
	// BindLayer switches to the pipeline state for the given layer.
	BindLayer(layer scene.RenderLayer)
	// Draw records one indexed draw using the current pipeline.
	Draw(resource *frame.Resource, data *metadata.GeometryRenderData)
	// EndFrame uploads the slot's constant data, submits, presents, and
	// returns the fence value that will be signaled on completion.
	EndFrame(resource *frame.Resource) (uint64, error)

	// WaitIdle blocks until the device finished all submitted work.
	WaitIdle() error
}
