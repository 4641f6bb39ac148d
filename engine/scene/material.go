package scene

import (
	"fmt"

	"github.com/spaghettifunk/lagoon/engine/math"
	"github.com/spaghettifunk/lagoon/engine/renderer/metadata"
)

/**
 * @brief Material holds shared shading parameters. Many render items
 * reference the same material; they treat it as read-only. Material
 * animation (the scrolling water texture) goes through SetTransform so the
 * dirty counter is maintained.
 */
type Material struct {
	Name string

	// Stable slot in the per-frame material constant buffers.
	CBIndex uint32

	// Index of the diffuse texture in the backend texture array.
	Texture metadata.TextureHandle

	// Count of frame resources that still need this material's constants
	// re-copied.
	NumFramesDirty int

	DiffuseAlbedo math.Vec4
	FresnelR0     math.Vec3
	Roughness     float32

	// UV transform applied on top of each item's TexTransform.
	Transform math.Mat4
}

// MarkDirty flags the material's constants for re-copy into every frame slot.
func (m *Material) MarkDirty(ringSize int) {
	m.NumFramesDirty = ringSize
}

// SetTransform replaces the UV transform and flags the constants dirty.
func (m *Material) SetTransform(transform math.Mat4, ringSize int) {
	m.Transform = transform
	m.MarkDirty(ringSize)
}

/**
 * @brief MaterialRegistry owns the scene's materials, keyed by name. CB slots
 * are assigned in creation order and stay stable for the run.
 */
type MaterialRegistry struct {
	byName  map[string]*Material
	ordered []*Material
}

func NewMaterialRegistry() *MaterialRegistry {
	return &MaterialRegistry{
		byName: make(map[string]*Material),
	}
}

type MaterialConfig struct {
	Name          string
	Texture       metadata.TextureHandle
	DiffuseAlbedo math.Vec4
	FresnelR0     math.Vec3
	Roughness     float32
}

func (mr *MaterialRegistry) Create(config MaterialConfig) (*Material, error) {
	if _, exists := mr.byName[config.Name]; exists {
		return nil, fmt.Errorf("material '%s' already registered", config.Name)
	}

	material := &Material{
		Name:          config.Name,
		CBIndex:       uint32(len(mr.ordered)),
		Texture:       config.Texture,
		DiffuseAlbedo: config.DiffuseAlbedo,
		FresnelR0:     config.FresnelR0,
		Roughness:     config.Roughness,
		Transform:     math.NewMat4Identity(),
	}

	mr.byName[config.Name] = material
	mr.ordered = append(mr.ordered, material)
	return material, nil
}

func (mr *MaterialRegistry) Get(name string) (*Material, error) {
	material, ok := mr.byName[name]
	if !ok {
		return nil, fmt.Errorf("material '%s' not found", name)
	}
	return material, nil
}

// All returns every material in CB slot order.
func (mr *MaterialRegistry) All() []*Material {
	return mr.ordered
}

func (mr *MaterialRegistry) Count() int {
	return len(mr.ordered)
}
