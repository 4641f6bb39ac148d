package testbed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisturbWindowFitsEveryAcceptedGrid(t *testing.T) {
	// 5 is the smallest grid the simulator accepts; every size above it must
	// yield a non-empty window inside the disturbable interior [2, n-3].
	for n := 5; n <= 256; n++ {
		lo, hi := disturbWindow(n)

		assert.LessOrEqual(t, lo, hi, "empty window for grid size %d", n)
		assert.GreaterOrEqual(t, lo, int32(2), "window touches the boundary ring for grid size %d", n)
		assert.LessOrEqual(t, hi, int32(n-3), "window touches the boundary ring for grid size %d", n)
	}
}

func TestDisturbWindowKeepsMarginOnLargeGrids(t *testing.T) {
	lo, hi := disturbWindow(128)
	assert.Equal(t, int32(4), lo)
	assert.Equal(t, int32(123), hi)
}
