package vulkan

import (
	"fmt"
	"sync"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lagoon/engine/core"
)

/**
 * @brief SubmissionFence exposes the queue's progress as one monotonically
 * increasing counter. Each submission takes the next value and a binary
 * vk.Fence; because a single queue signals fences in submission order,
 * observing fence N signaled implies every value up to N has completed.
 *
 * The frame ring consumes this through frame.CompletionFence.
 */
type SubmissionFence struct {
	device vk.Device

	mu        sync.Mutex
	next      uint64
	completed uint64
	pending   []submission
}

type submission struct {
	value uint64
	fence vk.Fence
}

func NewSubmissionFence(device vk.Device) *SubmissionFence {
	return &SubmissionFence{device: device}
}

// NextValue reserves the value the caller will signal with its submission.
func (f *SubmissionFence) NextValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return f.next
}

// Register associates a reserved value with the binary fence passed to
// vkQueueSubmit. Values must be registered in submission order.
func (f *SubmissionFence) Register(value uint64, fence vk.Fence) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, submission{value: value, fence: fence})
}

// CompletedValue polls pending fences in order and returns the highest value
// the device has reached.
func (f *SubmissionFence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.pending) > 0 {
		head := f.pending[0]
		if vk.GetFenceStatus(f.device, head.fence) != vk.Success {
			break
		}
		f.completed = head.value
		f.pending = f.pending[1:]
	}
	return f.completed
}

// WaitFor blocks until the device has reached the given value or the timeout
// expires. Timeout expiry reports core.ErrFenceTimeout; the caller treats it
// as device lost.
func (f *SubmissionFence) WaitFor(value uint64, timeout time.Duration) error {
	f.mu.Lock()
	if value <= f.completed {
		f.mu.Unlock()
		return nil
	}

	// The fence for the last submission at or before the target value covers
	// every earlier one on the same queue.
	var target vk.Fence
	for _, s := range f.pending {
		if s.value > value {
			break
		}
		target = s.fence
	}
	f.mu.Unlock()

	if target == vk.NullFence {
		// Value was reserved but never submitted.
		return fmt.Errorf("fence value %d has no registered submission", value)
	}

	result := vk.WaitForFences(f.device, 1, []vk.Fence{target}, vk.True, uint64(timeout.Nanoseconds()))
	switch result {
	case vk.Success:
	case vk.Timeout:
		core.LogError("submission fence: timed out waiting for value %d", value)
		return fmt.Errorf("%w: waiting for value %d", core.ErrFenceTimeout, value)
	case vk.ErrorDeviceLost:
		return fmt.Errorf("%w: %s", core.ErrDeviceLost, ResultString(result))
	default:
		return fmt.Errorf("vkWaitForFences failed with %s", ResultString(result))
	}

	f.mu.Lock()
	for len(f.pending) > 0 && f.pending[0].value <= value {
		f.completed = f.pending[0].value
		f.pending = f.pending[1:]
	}
	f.mu.Unlock()
	return nil
}
