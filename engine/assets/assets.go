package assets

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spaghettifunk/lagoon/engine/assets/loaders"
	"github.com/spaghettifunk/lagoon/engine/math"
)

type ResourceType uint8

const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeImage
	ResourceTypeModel
)

// ModelData is the parsed form of a text-format mesh.
type ModelData struct {
	Name     string
	Vertices []math.Vertex3D
	Indices  []uint32
}

// TextureData is a decoded image, normalized to tightly packed RGBA.
type TextureData struct {
	Name   string
	Width  uint32
	Height uint32
	Pixels []byte
}

type Loader interface {
	Load(path string) (interface{}, error)
}

/**
 * @brief Manager resolves asset names under a root directory and dispatches
 * to the loader registered for the file's type. Loaders are stateless;
 * the manager is safe for concurrent loads.
 */
type Manager struct {
	root    string
	loaders map[ResourceType]Loader

	mutex sync.RWMutex
}

func NewManager(root string) *Manager {
	m := &Manager{
		root:    root,
		loaders: make(map[ResourceType]Loader),
	}

	m.registerLoader(ResourceTypeModel, &loaders.ModelLoader{})
	m.registerLoader(ResourceTypeImage, &loaders.TextureLoader{})

	return m
}

func (m *Manager) registerLoader(assetType ResourceType, loader Loader) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.loaders[assetType] = loader
}

func (m *Manager) loaderFor(assetType ResourceType) (Loader, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	loader, exists := m.loaders[assetType]
	if !exists {
		return nil, fmt.Errorf("no loader registered for asset type %d", assetType)
	}
	return loader, nil
}

// LoadModel loads models/<name> under the asset root.
func (m *Manager) LoadModel(name string) (*ModelData, error) {
	path := filepath.Join(m.root, "models", name)
	if determineAssetType(path) != ResourceTypeModel {
		return nil, fmt.Errorf("%s is not a model file", path)
	}

	loader, err := m.loaderFor(ResourceTypeModel)
	if err != nil {
		return nil, err
	}
	raw, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	mesh := raw.(*loaders.Mesh)

	return &ModelData{
		Name:     name,
		Vertices: mesh.Vertices,
		Indices:  mesh.Indices,
	}, nil
}

// LoadTexture loads textures/<name> under the asset root.
func (m *Manager) LoadTexture(name string) (*TextureData, error) {
	path := filepath.Join(m.root, "textures", name)
	if determineAssetType(path) != ResourceTypeImage {
		return nil, fmt.Errorf("%s is not an image file", path)
	}

	loader, err := m.loaderFor(ResourceTypeImage)
	if err != nil {
		return nil, err
	}
	raw, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	img := raw.(*loaders.Image)

	return &TextureData{
		Name:   name,
		Width:  img.Width,
		Height: img.Height,
		Pixels: img.Pixels,
	}, nil
}

func determineAssetType(path string) ResourceType {
	switch filepath.Ext(path) {
	case ".png", ".jpg", ".bmp":
		return ResourceTypeImage
	case ".txt", ".m3d":
		return ResourceTypeModel
	default:
		return ResourceTypeNone
	}
}
