package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lagoon.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[window]
title = "Test"
width = 640
height = 480

[waves]
speed = 6.0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Test", cfg.Window.Title)
	assert.Equal(t, uint32(640), cfg.Window.Width)
	assert.Equal(t, uint32(480), cfg.Window.Height)
	assert.Equal(t, float32(6.0), cfg.Waves.Speed)

	// Untouched sections keep their defaults.
	assert.Equal(t, 3, cfg.Frames.RingSize)
	assert.Equal(t, float32(0.25), cfg.Disturb.Interval)
	assert.Equal(t, 128, cfg.Waves.Rows)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := writeConfig(t, "[window\ntitle =")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"zero ring size": `
[frames]
ring_size = 0
`,
		"tiny wave grid": `
[waves]
rows = 2
columns = 2
`,
		"wave grid below the disturbable floor": `
[waves]
rows = 4
columns = 4
`,
		"zero disturb interval": `
[disturb]
interval = 0.0
`,
		"inverted disturb range": `
[disturb]
min_magnitude = 0.9
max_magnitude = 0.1
`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().validate())
}

func TestWatcherQueuesReloadsForTheCaller(t *testing.T) {
	path := writeConfig(t, `
[waves]
speed = 6.0
`)
	w, err := Watch(path)
	require.NoError(t, err)
	defer w.Close()

	require.Nil(t, w.Pending(), "no reload queued before any write")

	require.NoError(t, os.WriteFile(path, []byte(`
[waves]
speed = 7.0
`), 0o644))

	// The reload is delivered on the caller's goroutine, never pushed into
	// listeners from the watch goroutine.
	var cfg *Config
	require.Eventually(t, func() bool {
		cfg = w.Pending()
		return cfg != nil
	}, 5*time.Second, 10*time.Millisecond)

	assert.InDelta(t, 7.0, cfg.Waves.Speed, 1e-6)
	assert.Nil(t, w.Pending(), "a collected reload is not delivered twice")
}

func TestWatcherDropsInvalidReloads(t *testing.T) {
	path := writeConfig(t, `
[waves]
speed = 6.0
`)
	w, err := Watch(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte(`
[disturb]
interval = 0.0
`), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(`
[waves]
speed = 8.0
`), 0o644))

	var cfg *Config
	require.Eventually(t, func() bool {
		cfg = w.Pending()
		return cfg != nil
	}, 5*time.Second, 10*time.Millisecond)

	// Only the good write survives; the invalid one was logged and dropped.
	assert.InDelta(t, 8.0, cfg.Waves.Speed, 1e-6)
}
