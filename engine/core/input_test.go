package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupInput(t *testing.T) {
	t.Helper()
	require.NoError(t, InputInitialize())
	t.Cleanup(func() {
		_ = InputShutdown()
		_ = EventSystemShutdown()
	})
	// Drop any state a previous test left behind.
	*inputState = InputState{}
}

func TestKeyStateRollsOverOnUpdate(t *testing.T) {
	setupInput(t)

	require.NoError(t, InputProcessKey(KEY_W, true))
	assert.True(t, InputIsKeyDown(KEY_W))
	assert.False(t, InputWasKeyDown(KEY_W))

	require.NoError(t, InputUpdate(0.016))
	assert.True(t, InputIsKeyDown(KEY_W))
	assert.True(t, InputWasKeyDown(KEY_W))

	require.NoError(t, InputProcessKey(KEY_W, false))
	assert.False(t, InputIsKeyDown(KEY_W))
	assert.True(t, InputWasKeyDown(KEY_W))
}

func TestButtonPressedIsAnEdge(t *testing.T) {
	setupInput(t)

	require.NoError(t, InputProcessButton(BUTTON_RIGHT, true))
	assert.True(t, InputIsButtonPressed(BUTTON_RIGHT), "fresh press is an edge")

	// Held across a frame boundary: still down, no longer an edge.
	require.NoError(t, InputUpdate(0.016))
	assert.True(t, InputIsButtonDown(BUTTON_RIGHT))
	assert.False(t, InputIsButtonPressed(BUTTON_RIGHT))

	require.NoError(t, InputProcessButton(BUTTON_RIGHT, false))
	require.NoError(t, InputUpdate(0.016))
	assert.False(t, InputIsButtonPressed(BUTTON_RIGHT))

	// Release then press again: a new edge.
	require.NoError(t, InputProcessButton(BUTTON_RIGHT, true))
	assert.True(t, InputIsButtonPressed(BUTTON_RIGHT))
}

func TestMousePositionTracksPreviousFrame(t *testing.T) {
	setupInput(t)

	require.NoError(t, InputProcessMouseMove(100, 200))
	x, y := InputGetMousePosition()
	assert.Equal(t, int32(100), x)
	assert.Equal(t, int32(200), y)

	require.NoError(t, InputUpdate(0.016))
	require.NoError(t, InputProcessMouseMove(130, 190))

	px, py := InputGetPreviousMousePosition()
	assert.Equal(t, int32(100), px)
	assert.Equal(t, int32(200), py)

	x, y = InputGetMousePosition()
	assert.Equal(t, int32(130), x)
	assert.Equal(t, int32(190), y)
}

func TestEventDispatch(t *testing.T) {
	require.True(t, EventSystemInitialize())
	t.Cleanup(func() { _ = EventSystemShutdown() })

	var received []EventContext
	EventRegister(EVENT_CODE_CONFIG_CHANGED, func(context EventContext) {
		received = append(received, context)
	})

	fired := EventFire(EventContext{Type: EVENT_CODE_CONFIG_CHANGED, Data: "payload"})
	require.True(t, fired)
	require.Len(t, received, 1)
	assert.Equal(t, "payload", received[0].Data)

	assert.False(t, EventFire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}),
		"a code with no listeners reports false")
}
