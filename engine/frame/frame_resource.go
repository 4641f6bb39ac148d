package frame

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/lagoon/engine/core"
	"github.com/spaghettifunk/lagoon/engine/math"
	"github.com/spaghettifunk/lagoon/engine/renderer/metadata"
)

// DefaultRingSize is the number of frames the CPU may record ahead of the
// GPU. Three balances latency against pipeline stalls.
const DefaultRingSize = 3

// DefaultWaitTimeout bounds the fence wait. Expiry means the device stopped
// consuming work and is treated as device lost.
const DefaultWaitTimeout = 10 * time.Second

/**
 * @brief CompletionFence is the monotonically increasing counter the GPU
 * signals as submitted work completes. The Vulkan backend implements it over
 * per-submission fences; tests drive a plain counter.
 */
type CompletionFence interface {
	// CompletedValue returns the highest fence value the GPU has reached.
	CompletedValue() uint64
	// WaitFor blocks until CompletedValue() >= value or the timeout expires.
	WaitFor(value uint64, timeout time.Duration) error
}

/**
 * @brief UploadBuffer is a CPU-writable, GPU-visible array of constant
 * elements with a fixed stride. Elements are addressed by the stable index
 * assigned to the owning entity at scene construction.
 */
type UploadBuffer[T any] struct {
	elements []T
}

func NewUploadBuffer[T any](elementCount int) *UploadBuffer[T] {
	return &UploadBuffer[T]{
		elements: make([]T, elementCount),
	}
}

// CopyData writes one element at the given index. The index must be below the
// element count established at construction.
func (ub *UploadBuffer[T]) CopyData(index int, data T) {
	ub.elements[index] = data
}

// At returns the element at the given index.
func (ub *UploadBuffer[T]) At(index int) T {
	return ub.elements[index]
}

func (ub *UploadBuffer[T]) Len() int {
	return len(ub.elements)
}

// Raw exposes the backing slice for backend upload.
func (ub *UploadBuffer[T]) Raw() []T {
	return ub.elements
}

/**
 * @brief Resource is one slot in the frame ring: everything the CPU writes
 * for a single frame while the GPU may still be consuming the other slots.
 */
type Resource struct {
	// Position of this slot in the ring.
	Index int

	// Per-object constants, one element per render item.
	ObjectCB *UploadBuffer[metadata.ObjectConstants]
	// Per-material constants, one element per material.
	MaterialCB *UploadBuffer[metadata.MaterialConstants]
	// The single per-pass constant block.
	PassCB *UploadBuffer[metadata.PassConstants]

	// CPU staging for the wave surface vertices, uploaded to WaveVB each
	// frame the simulation runs.
	WaveVertices *UploadBuffer[math.Vertex3D]
	// The GPU dynamic vertex buffer this slot owns.
	WaveVB metadata.BufferHandle

	// Fence value recorded when this slot's command list was last
	// submitted. Zero means never submitted.
	FenceValue uint64
}

/**
 * @brief Ring is the fixed-size circle of frame resources. Acquire gates slot
 * reuse on the completion fence, which bounds CPU run-ahead to size-1 frames
 * and sequences ownership handover of the slot's buffers without locks.
 */
type Ring struct {
	resources   []*Resource
	current     int
	fence       CompletionFence
	waitTimeout time.Duration
}

type RingConfig struct {
	// Size is the number of frames in flight; at least 1.
	Size int
	// ObjectCount sizes each slot's object constant buffer.
	ObjectCount int
	// MaterialCount sizes each slot's material constant buffer.
	MaterialCount int
	// WaveVertexCount sizes each slot's dynamic vertex buffer.
	WaveVertexCount int
	// WaitTimeout overrides DefaultWaitTimeout when positive.
	WaitTimeout time.Duration
}

func NewRing(config RingConfig, fence CompletionFence) (*Ring, error) {
	if config.Size < 1 {
		return nil, fmt.Errorf("frame ring size must be at least 1, got %d", config.Size)
	}
	if fence == nil {
		return nil, fmt.Errorf("frame ring needs a completion fence")
	}

	timeout := config.WaitTimeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	ring := &Ring{
		resources:   make([]*Resource, config.Size),
		current:     config.Size - 1,
		fence:       fence,
		waitTimeout: timeout,
	}
	for i := range ring.resources {
		ring.resources[i] = &Resource{
			Index:        i,
			ObjectCB:     NewUploadBuffer[metadata.ObjectConstants](config.ObjectCount),
			MaterialCB:   NewUploadBuffer[metadata.MaterialConstants](config.MaterialCount),
			PassCB:       NewUploadBuffer[metadata.PassConstants](1),
			WaveVertices: NewUploadBuffer[math.Vertex3D](config.WaveVertexCount),
		}
	}
	return ring, nil
}

func (r *Ring) Size() int {
	return len(r.resources)
}

// Resource returns the slot at the given ring index.
func (r *Ring) Resource(index int) *Resource {
	return r.resources[index]
}

/**
 * @brief Acquire advances to the next slot and blocks until the GPU has
 * finished the work last submitted from it. A slot that was never submitted,
 * or whose fence value has already been reached, is returned without waiting.
 *
 * A wait failure is unrecoverable: the device stopped signalling and the
 * caller must treat it as device lost.
 */
func (r *Ring) Acquire() (*Resource, error) {
	r.current = (r.current + 1) % len(r.resources)
	resource := r.resources[r.current]

	if resource.FenceValue != 0 && r.fence.CompletedValue() < resource.FenceValue {
		if err := r.fence.WaitFor(resource.FenceValue, r.waitTimeout); err != nil {
			core.LogError("frame ring: wait for fence value %d failed: %s", resource.FenceValue, err)
			return nil, fmt.Errorf("%w: %v", core.ErrDeviceLost, err)
		}
	}

	return resource, nil
}

// Current returns the most recently acquired slot.
func (r *Ring) Current() *Resource {
	return r.resources[r.current]
}

// HighestSubmitted returns the largest fence value recorded across slots.
// Shutdown drains the queue by waiting for this value.
func (r *Ring) HighestSubmitted() uint64 {
	var highest uint64
	for _, resource := range r.resources {
		if resource.FenceValue > highest {
			highest = resource.FenceValue
		}
	}
	return highest
}

// Drain blocks until all submitted work has completed. Must run before
// resources are released at shutdown; skipping it frees memory the GPU may
// still be reading.
func (r *Ring) Drain() error {
	highest := r.HighestSubmitted()
	if highest == 0 || r.fence.CompletedValue() >= highest {
		return nil
	}
	if err := r.fence.WaitFor(highest, r.waitTimeout); err != nil {
		return fmt.Errorf("%w: %v", core.ErrDeviceLost, err)
	}
	return nil
}
