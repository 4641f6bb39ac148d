package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/lagoon/engine/core"
)

// Window is boot-time only.
type Window struct {
	Title  string `toml:"title"`
	PosX   uint32 `toml:"pos_x"`
	PosY   uint32 `toml:"pos_y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

// Frames is boot-time only; the ring cannot be resized while frames are in
// flight.
type Frames struct {
	RingSize int `toml:"ring_size"`
}

type Waves struct {
	// Grid shape and steps are boot-time only.
	Rows        int     `toml:"rows"`
	Columns     int     `toml:"columns"`
	SpatialStep float32 `toml:"spatial_step"`
	TimeStep    float32 `toml:"time_step"`

	// Live tunables, re-applied on file change.
	Speed   float32 `toml:"speed"`
	Damping float32 `toml:"damping"`
}

type Disturb struct {
	// Live tunables, re-applied on file change.
	Interval     float32 `toml:"interval"`
	MinMagnitude float32 `toml:"min_magnitude"`
	MaxMagnitude float32 `toml:"max_magnitude"`
}

/**
 * @brief Config is the application configuration read from lagoon.toml.
 * Structural values (window geometry, ring size, wave grid shape) are read
 * once at boot; the tunable subset is re-read whenever the file changes on
 * disk and published through EVENT_CODE_CONFIG_CHANGED.
 */
type Config struct {
	Window  Window  `toml:"window"`
	Frames  Frames  `toml:"frames"`
	Waves   Waves   `toml:"waves"`
	Disturb Disturb `toml:"disturb"`
}

func Default() *Config {
	return &Config{
		Window: Window{
			Title:  "Lagoon",
			PosX:   100,
			PosY:   100,
			Width:  1280,
			Height: 720,
		},
		Frames: Frames{
			RingSize: 3,
		},
		Waves: Waves{
			Rows:        128,
			Columns:     128,
			SpatialStep: 1.0,
			TimeStep:    0.03,
			Speed:       4.0,
			Damping:     0.2,
		},
		Disturb: Disturb{
			Interval:     0.25,
			MinMagnitude: 0.2,
			MaxMagnitude: 0.5,
		},
	}
}

func (c *Config) validate() error {
	if c.Frames.RingSize < 1 {
		return fmt.Errorf("ring size %d must be at least 1", c.Frames.RingSize)
	}
	// 5x5 is the simulator floor; smaller grids have no disturbable interior.
	if c.Waves.Rows < 5 || c.Waves.Columns < 5 {
		return fmt.Errorf("wave grid %dx%d too small, need at least 5x5", c.Waves.Rows, c.Waves.Columns)
	}
	if c.Disturb.Interval <= 0 {
		return fmt.Errorf("disturb interval %f must be positive", c.Disturb.Interval)
	}
	if c.Disturb.MinMagnitude > c.Disturb.MaxMagnitude {
		return fmt.Errorf("disturb magnitude range [%f, %f] is inverted", c.Disturb.MinMagnitude, c.Disturb.MaxMagnitude)
	}
	return nil
}

/**
 * @brief Load reads the TOML file at path over the defaults. A missing file
 * is not an error; the defaults are returned so the application runs without
 * any configuration on disk.
 */
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			core.LogWarn("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

/**
 * @brief Watcher re-reads the configuration file whenever it is written and
 * queues the fresh *Config for the frame thread, which collects it through
 * Pending and fires EVENT_CODE_CONFIG_CHANGED there. Event listeners touch
 * live simulation state, so the watcher goroutine never invokes them itself.
 * A reload that fails to parse or validate is logged and dropped; the last
 * good configuration stays in effect. Rapid successive writes coalesce to
 * the newest reload.
 */
type Watcher struct {
	path     string
	fsnotify *fsnotify.Watcher
	done     chan struct{}
	changes  chan *Config
}

func Watch(path string) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file. Editors that write via
	// rename-and-replace would otherwise drop the watch on first save.
	dir := filepath.Dir(path)
	if err := fsWatch.Add(dir); err != nil {
		fsWatch.Close()
		return nil, err
	}

	w := &Watcher{
		path:     path,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		changes:  make(chan *Config, 1),
	}
	go w.start()

	return w, nil
}

// Pending returns the newest queued reload, or nil when nothing changed.
// Called once per frame on the frame thread.
func (w *Watcher) Pending() *Config {
	select {
	case cfg := <-w.changes:
		return cfg
	default:
		return nil
	}
}

func (w *Watcher) start() {
	for {
		select {
		case e := <-w.fsnotify.Events:
			if filepath.Clean(e.Name) != filepath.Clean(w.path) {
				continue
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			cfg, err := Load(w.path)
			if err != nil {
				core.LogError("config reload failed, keeping previous values: %s", err.Error())
				continue
			}
			core.LogInfo("config %s changed, queueing tunables", w.path)

			// Replace any reload the frame thread has not collected yet.
			select {
			case <-w.changes:
			default:
			}
			w.changes <- cfg

		case e := <-w.fsnotify.Errors:
			core.LogError(e.Error())

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

func (w *Watcher) Close() {
	close(w.done)
}
