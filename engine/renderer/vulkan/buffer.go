package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lagoon/engine/core"
)

/**
 * @brief Buffer wraps one vk.Buffer and its backing allocation. Host-visible
 * buffers stay persistently mapped for their lifetime.
 */
type Buffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	// Non-nil only for host-visible buffers.
	Mapped unsafe.Pointer
}

func BufferCreate(context *Context, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags, mapOnCreate bool) (*Buffer, error) {
	buffer := &Buffer{Size: size}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("vkCreateBuffer failed with %s", ResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Handle = handle

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryType == -1 {
		err := fmt.Errorf("required memory type not found, buffer not valid")
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		err := fmt.Errorf("vkAllocateMemory for buffer failed with %s", ResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		err := fmt.Errorf("vkBindBufferMemory failed with %s", ResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	if mapOnCreate {
		var mapped unsafe.Pointer
		if res := vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, 0, size, 0, &mapped); res != vk.Success {
			err := fmt.Errorf("vkMapMemory failed with %s", ResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
		buffer.Mapped = mapped
	}

	return buffer, nil
}

// LoadData copies bytes into the buffer's persistent mapping. Only valid for
// buffers created with mapOnCreate.
func (b *Buffer) LoadData(data []byte) error {
	if b.Mapped == nil {
		return fmt.Errorf("buffer is not host mapped")
	}
	if vk.DeviceSize(len(data)) > b.Size {
		return fmt.Errorf("data size %d exceeds buffer size %d", len(data), b.Size)
	}
	vk.Memcopy(b.Mapped, data)
	return nil
}

// CopyTo records nothing; it performs an immediate buffer-to-buffer copy on
// the graphics queue through a single use command buffer.
func (b *Buffer) CopyTo(context *Context, dest *Buffer, size vk.DeviceSize) error {
	commandBuffer, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}

	copyRegion := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}
	vk.CmdCopyBuffer(commandBuffer.Handle, b.Handle, dest.Handle, 1, []vk.BufferCopy{copyRegion})

	return commandBuffer.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue)
}

func (b *Buffer) Destroy(context *Context) {
	if b.Mapped != nil {
		vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
		b.Mapped = nil
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = vk.NullBuffer
	}
	b.Size = 0
}

// uploadDeviceLocal creates a device-local buffer and fills it through a
// host-visible staging buffer.
func uploadDeviceLocal(context *Context, data []byte, usage vk.BufferUsageFlags) (*Buffer, error) {
	size := vk.DeviceSize(len(data))

	staging, err := BufferCreate(
		context,
		size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
		true)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	if err := staging.LoadData(data); err != nil {
		return nil, err
	}

	local, err := BufferCreate(
		context,
		size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		false)
	if err != nil {
		return nil, err
	}

	if err := staging.CopyTo(context, local, size); err != nil {
		local.Destroy(context)
		return nil, err
	}
	return local, nil
}

// rawBytes reinterprets a slice of fixed-layout structs as its byte image.
func rawBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var t T
	stride := unsafe.Sizeof(t)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), uintptr(len(data))*stride)
}
