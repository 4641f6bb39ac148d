package scene

import (
	"github.com/google/uuid"

	"github.com/spaghettifunk/lagoon/engine/core"
	"github.com/spaghettifunk/lagoon/engine/math"
	"github.com/spaghettifunk/lagoon/engine/renderer/metadata"
)

/**
 * @brief RenderLayer partitions render items by the pipeline state they are
 * drawn with. Draw order follows the declaration order below, except that
 * transparent items draw after the alpha-tested ones.
 */
type RenderLayer uint8

const (
	LayerOpaque RenderLayer = iota
	LayerAlphaTested
	LayerTreeSprites
	LayerTransparent
	LayerHighlight
	LayerCount
)

/**
 * @brief RenderItem is one drawable instance: a transform paired with shared
 * geometry and a shared material. Items are created during scene construction
 * and live for the whole run; the registry owns them and everything else
 * holds plain pointers.
 */
type RenderItem struct {
	ID   uuid.UUID
	Name string

	// Local-to-world transform.
	World math.Mat4
	// Texture coordinate transform.
	TexTransform math.Mat4

	// Count of frame resources that still need this item's constants
	// re-copied. Set to the ring size whenever World/TexTransform change.
	NumFramesDirty int

	// Stable index into the per-frame object constant buffers.
	ObjCBIndex uint32

	Geometry *MeshGeometry
	Material *Material

	Topology metadata.PrimitiveTopology

	// Draw parameters into Geometry's index buffer.
	IndexCount uint32
	StartIndex uint32
	BaseVertex int32

	// Local-space bounding box used by picking for the early-out test.
	Bounds math.Extents3D

	Visible bool
}

// MarkDirty flags the item's constants for re-copy into every frame slot.
func (ri *RenderItem) MarkDirty(ringSize int) {
	ri.NumFramesDirty = ringSize
}

// SetWorld replaces the world transform and flags the constants dirty.
func (ri *RenderItem) SetWorld(world math.Mat4, ringSize int) {
	ri.World = world
	ri.MarkDirty(ringSize)
}

/**
 * @brief Registry owns every render item in the scene plus the per-layer
 * partitions used for pipeline-state-grouped drawing. Items are never removed
 * during a run.
 */
type Registry struct {
	items  []*RenderItem
	layers [LayerCount][]*RenderItem
}

func NewRegistry() *Registry {
	return &Registry{}
}

/**
 * @brief Add takes ownership of the item, assigns its identifier and stable
 * object constant buffer index, and files it under the given layer.
 */
func (r *Registry) Add(item *RenderItem, layer RenderLayer) *RenderItem {
	item.ID = core.IdentifierAcquireNewID(item)
	item.ObjCBIndex = uint32(len(r.items))
	r.items = append(r.items, item)
	r.layers[layer] = append(r.layers[layer], item)
	return item
}

// AllItems returns every registered item, in registration order.
func (r *Registry) AllItems() []*RenderItem {
	return r.items
}

// Layer returns the items filed under the given layer.
func (r *Registry) Layer(layer RenderLayer) []*RenderItem {
	return r.layers[layer]
}

// Count returns the total number of registered items.
func (r *Registry) Count() int {
	return len(r.items)
}
