package frame

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lagoon/engine/core"
	"github.com/spaghettifunk/lagoon/engine/math"
	"github.com/spaghettifunk/lagoon/engine/renderer/metadata"
)

// fakeFence drives the ring from tests: CompletedValue is set directly, and
// every wait is recorded so tests can assert when the ring blocked.
type fakeFence struct {
	completed uint64
	waits     []uint64

	// When set, WaitFor advances completed to the requested value instead
	// of failing.
	signalOnWait bool
}

func (f *fakeFence) CompletedValue() uint64 {
	return f.completed
}

func (f *fakeFence) WaitFor(value uint64, timeout time.Duration) error {
	f.waits = append(f.waits, value)
	if f.signalOnWait {
		f.completed = value
		return nil
	}
	return fmt.Errorf("fence stuck at %d, wanted %d", f.completed, value)
}

func newTestRing(t *testing.T, fence CompletionFence) *Ring {
	t.Helper()
	ring, err := NewRing(RingConfig{
		Size:            3,
		ObjectCount:     8,
		MaterialCount:   4,
		WaveVertexCount: 16,
	}, fence)
	require.NoError(t, err)
	return ring
}

func TestNewRingValidation(t *testing.T) {
	_, err := NewRing(RingConfig{Size: 0}, &fakeFence{})
	assert.Error(t, err)

	_, err = NewRing(RingConfig{Size: 3}, nil)
	assert.Error(t, err)
}

func TestRingSlotsAreIndependent(t *testing.T) {
	ring := newTestRing(t, &fakeFence{})

	a, err := ring.Acquire()
	require.NoError(t, err)
	a.ObjectCB.CopyData(0, metadata.ObjectConstants{World: math.NewMat4Identity()})

	b, err := ring.Acquire()
	require.NoError(t, err)

	assert.NotEqual(t, a.Index, b.Index)
	assert.Equal(t, metadata.ObjectConstants{}, b.ObjectCB.At(0),
		"slots must not share constant storage")
}

func TestAcquireCyclesWithoutWaitingWhenWorkIsDone(t *testing.T) {
	fence := &fakeFence{}
	ring := newTestRing(t, fence)

	var fenceValue uint64
	seen := make([]int, 0, 6)

	for i := 0; i < 6; i++ {
		resource, err := ring.Acquire()
		require.NoError(t, err)
		seen = append(seen, resource.Index)

		fenceValue++
		resource.FenceValue = fenceValue
		// The GPU keeps up: every submission completes immediately.
		fence.completed = fenceValue
	}

	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, seen)
	assert.Empty(t, fence.waits, "a caught-up fence must never block acquisition")
}

func TestAcquireBlocksOnSlotReuse(t *testing.T) {
	fence := &fakeFence{signalOnWait: true}
	ring := newTestRing(t, fence)

	var fenceValue uint64
	// Fill the ring without the GPU completing anything.
	for i := 0; i < 3; i++ {
		resource, err := ring.Acquire()
		require.NoError(t, err)
		fenceValue++
		resource.FenceValue = fenceValue
	}
	require.Empty(t, fence.waits, "fresh slots are free")

	// The fourth frame wraps to slot 0 and must wait for its submission.
	resource, err := ring.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 0, resource.Index)
	assert.Equal(t, []uint64{1}, fence.waits)
}

func TestAcquireFailsAsDeviceLostWhenFenceStalls(t *testing.T) {
	fence := &fakeFence{}
	ring := newTestRing(t, fence)

	var fenceValue uint64
	for i := 0; i < 3; i++ {
		resource, err := ring.Acquire()
		require.NoError(t, err)
		fenceValue++
		resource.FenceValue = fenceValue
	}

	_, err := ring.Acquire()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDeviceLost)
}

func TestDrain(t *testing.T) {
	fence := &fakeFence{signalOnWait: true}
	ring := newTestRing(t, fence)

	// Nothing submitted: drain is a no-op.
	require.NoError(t, ring.Drain())
	assert.Empty(t, fence.waits)

	resource, err := ring.Acquire()
	require.NoError(t, err)
	resource.FenceValue = 7

	require.NoError(t, ring.Drain())
	assert.Equal(t, []uint64{7}, fence.waits, "drain waits for the highest submission")
}
