package engine

import (
	"github.com/spaghettifunk/lagoon/engine/assets"
	"github.com/spaghettifunk/lagoon/engine/config"
	"github.com/spaghettifunk/lagoon/engine/core"
	"github.com/spaghettifunk/lagoon/engine/frame"
	"github.com/spaghettifunk/lagoon/engine/renderer"
	"github.com/spaghettifunk/lagoon/engine/scene"
)

type ApplicationConfig struct {
	// Path of the TOML configuration file, watched for live changes.
	ConfigPath string
	LogLevel   core.LogLevel
}

/**
 * @brief Game is the application half of the engine contract. The engine
 * fills in the shared collaborators (renderer, registries, assets, loaded
 * config) before FnInitialize runs; the game builds the scene in
 * FnInitialize and drives it through FnUpdate/FnRender each tick.
 */
type Game struct {
	ApplicationConfig *ApplicationConfig

	// Populated by engine.New before any hook runs.
	Config    *config.Config
	Renderer  *renderer.Renderer
	Registry  *scene.Registry
	Materials *scene.MaterialRegistry
	Assets    *assets.Manager

	State interface{}

	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func() error

// Update runs before the frame ring is acquired: input, camera, picking,
// anything that does not write per-frame GPU state.
type Update func(deltaTime float64) error

// Render receives the acquired frame resource and fills its constant
// buffers and dynamic vertex data for this tick.
type Render func(resource *frame.Resource, deltaTime float64) error

type OnResize func(width uint32, height uint32) error
type Shutdown func() error
