package core

import (
	"errors"
)

var (
	// ErrDeviceLost marks an unrecoverable device or driver failure.
	ErrDeviceLost = errors.New("graphics device lost")
	// ErrFenceTimeout is returned when a fence wait expires. Treated as device lost.
	ErrFenceTimeout = errors.New("fence wait timed out")
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrUnknown          = errors.New("unknown")
)
