package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ignite/bootstrap/core"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
}

func FramebufferCreate(device *Device, renderpass *VulkanRenderpass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	framebuffer := &VulkanFramebuffer{
		Attachments: make([]vk.ImageView, len(attachments)),
		Renderpass:  renderpass,
	}
	copy(framebuffer.Attachments, attachments)

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(framebuffer.Attachments)),
		PAttachments:    framebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if res := vk.CreateFramebuffer(device.LogicalDevice, &createInfo, device.allocator, &handle); res != vk.Success {
		err := resourceError("vkCreateFramebuffer", res)
		core.LogError(err.Error())
		return nil, err
	}
	framebuffer.Handle = handle

	return framebuffer, nil
}

func (fb *VulkanFramebuffer) Destroy(device *Device) {
	if fb.Handle != vk.NullFramebuffer {
		vk.DestroyFramebuffer(device.LogicalDevice, fb.Handle, device.allocator)
		fb.Handle = vk.NullFramebuffer
	}
	fb.Attachments = nil
	fb.Renderpass = nil
}
