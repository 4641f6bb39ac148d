package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMetrics(t *testing.T) {
	t.Helper()
	require.NoError(t, MetricsInitialize())
	*metricsState = MetricsState{}
}

func TestMetricsFrameTracksFPSAndAverage(t *testing.T) {
	setupMetrics(t)

	// 30 frames of 50 ms: the FPS window closes when the accumulated frame
	// time crosses one second, the rolling average when the 30-sample ring
	// wraps.
	for i := 0; i < 30; i++ {
		MetricsUpdate(0.05)
	}

	fps, frameMS := MetricsFrame()
	assert.InDelta(t, 20.0, fps, 1e-9)
	assert.InDelta(t, 50.0, frameMS, 1e-9)
}

func TestMetricsFrameBeforeAnyWindowCloses(t *testing.T) {
	setupMetrics(t)

	MetricsUpdate(0.016)

	fps, frameMS := MetricsFrame()
	assert.Zero(t, fps, "no full second elapsed yet")
	assert.Zero(t, frameMS, "rolling window has not wrapped yet")
}
