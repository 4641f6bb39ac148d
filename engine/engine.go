package engine

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/lagoon/engine/assets"
	"github.com/spaghettifunk/lagoon/engine/config"
	"github.com/spaghettifunk/lagoon/engine/core"
	"github.com/spaghettifunk/lagoon/engine/platform"
	"github.com/spaghettifunk/lagoon/engine/renderer"
	"github.com/spaghettifunk/lagoon/engine/renderer/vulkan"
	"github.com/spaghettifunk/lagoon/engine/scene"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool

	platform      *platform.Platform
	backend       *vulkan.VulkanRenderer
	renderer      *renderer.Renderer
	assetManager  *assets.Manager
	config        *config.Config
	configWatcher *config.Watcher

	width    uint32
	height   uint32
	clock    *core.Clock
	lastTime float64

	// Seconds since the frame stats were last logged.
	statsAccum float64
}

func New(g *Game) (*Engine, error) {
	core.LoggingSetLevel(g.ApplicationConfig.LogLevel)

	cfg, err := config.Load(g.ApplicationConfig.ConfigPath)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	p, err := platform.New()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	registry := scene.NewRegistry()
	materials := scene.NewMaterialRegistry()

	backend := vulkan.New(p, "assets/shaders")
	r := renderer.New(backend, registry, materials)

	// Hand the game its collaborators before any hook runs.
	g.Config = cfg
	g.Renderer = r
	g.Registry = registry
	g.Materials = materials
	g.Assets = assets.NewManager("assets")

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		platform:     p,
		backend:      backend,
		renderer:     r,
		assetManager: g.Assets,
		config:       cfg,
		isRunning:    true,
		isSuspended:  false,
		width:        cfg.Window.Width,
		height:       cfg.Window.Height,
		lastTime:     0,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	// initialize input
	if err := core.InputInitialize(); err != nil {
		return err
	}

	// initialize events
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	// initialize metrics
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	cfg := e.config
	if err := e.platform.Startup(cfg.Window.Title,
		cfg.Window.PosX,
		cfg.Window.PosY,
		cfg.Window.Width,
		cfg.Window.Height); err != nil {
		return err
	}

	if err := e.backend.Initialize(cfg.Window.Title, e.width, e.height, cfg.Frames.RingSize); err != nil {
		return err
	}
	if err := e.renderer.OnResized(e.width, e.height); err != nil {
		return err
	}

	// Watch the configuration file so tunables apply without a restart.
	// Run collects queued reloads each frame and fires
	// EVENT_CODE_CONFIG_CHANGED on the frame thread; the game listens for
	// the event itself.
	watcher, err := config.Watch(e.gameInstance.ApplicationConfig.ConfigPath)
	if err != nil {
		core.LogWarn("config watch unavailable: %s", err.Error())
	} else {
		e.configWatcher = watcher
	}

	// The game builds the scene and the frame ring here.
	if err := e.gameInstance.FnInitialize(); err != nil {
		return err
	}

	if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

/**
 * @brief Run is the frame scheduler. Each tick pumps the platform, lets the
 * game consume input, acquires a frame resource from the ring (blocking on
 * the completion fence if the GPU is behind), lets the game fill the slot's
 * per-frame data, and records and submits the frame. A frame that lands in
 * the middle of a swapchain rebuild is skipped; device loss and fence
 * expiry terminate the loop.
 */
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine must be initialized before it can run")
	}
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		e.platform.PumpMessages()

		if e.isSuspended {
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		// Apply queued config reloads here so listeners mutate simulation
		// state on the frame thread only.
		if e.configWatcher != nil {
			if cfg := e.configWatcher.Pending(); cfg != nil {
				core.EventFire(core.EventContext{
					Type: core.EVENT_CODE_CONFIG_CHANGED,
					Data: cfg,
				})
			}
		}

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogFatal("game update failed, shutting down: %s", err.Error())
			e.isRunning = false
			break
		}

		resource, err := e.renderer.BeginFrame()
		if err != nil {
			// The only acquire failure is the fence wait, which is fatal.
			core.LogFatal("frame acquire failed: %s", err.Error())
			e.isRunning = false
			break
		}

		if err := e.gameInstance.FnRender(resource, delta); err != nil {
			core.LogFatal("game render failed, shutting down: %s", err.Error())
			e.isRunning = false
			break
		}

		if err := e.renderer.DrawFrame(resource); err != nil {
			if errors.Is(err, core.ErrSwapchainBooting) {
				// The swapchain is mid-rebuild. Nothing was submitted;
				// skip the frame and try again.
				e.lastTime = currentTime
				continue
			}
			core.LogFatal("frame submission failed: %s", err.Error())
			e.isRunning = false
			break
		}

		e.clock.Update()
		core.MetricsUpdate(e.clock.Elapsed() - currentTime)

		e.statsAccum += delta
		if e.statsAccum >= 5 {
			fps, frameMS := core.MetricsFrame()
			core.LogDebug("%.0f fps, %.2f ms avg frame", fps, frameMS)
			e.statsAccum = 0
		}

		// Input state copy happens last so pressed/released edges computed
		// by the game this frame are still valid.
		core.InputUpdate(delta)

		e.lastTime = currentTime
	}

	return nil
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	if e.configWatcher != nil {
		e.configWatcher.Close()
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError(err.Error())
		}
	}
	// Drains the frame ring before backend teardown.
	if err := e.renderer.Shutdown(); err != nil {
		return err
	}
	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	if err := core.InputShutdown(); err != nil {
		return err
	}
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	return nil
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
	}
}

func (e *Engine) onResized(context core.EventContext) {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event data associated with the event type `%d`", context.Type)
		return
	}

	width := se.WindowWidth
	height := se.WindowHeight

	if width == e.width && height == e.height {
		return
	}
	e.width = width
	e.height = height

	core.LogDebug("window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("window minimized, suspending application.")
		e.isSuspended = true
		return
	}

	if e.isSuspended {
		core.LogInfo("window restored, resuming application.")
		e.isSuspended = false
	}
	if err := e.renderer.OnResized(width, height); err != nil {
		core.LogError(err.Error())
	}
	if err := e.gameInstance.FnOnResize(width, height); err != nil {
		core.LogError(err.Error())
	}
}
