package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lagoon/engine/core"
)

type Framebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *Renderpass
}

func FramebufferCreate(context *Context, renderpass *Renderpass, width, height uint32, attachments []vk.ImageView) (*Framebuffer, error) {
	framebuffer := &Framebuffer{
		Attachments: make([]vk.ImageView, len(attachments)),
		Renderpass:  renderpass,
	}
	copy(framebuffer.Attachments, attachments)

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(framebuffer.Attachments)),
		PAttachments:    framebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferCreateInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("vkCreateFramebuffer failed with %s", ResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	framebuffer.Handle = handle
	return framebuffer, nil
}

func (f *Framebuffer) Destroy(context *Context) {
	vk.DestroyFramebuffer(context.Device.LogicalDevice, f.Handle, context.Allocator)
	f.Attachments = nil
	f.Handle = vk.NullFramebuffer
	f.Renderpass = nil
}
