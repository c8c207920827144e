package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ignite/bootstrap/core"
)

// VulkanImage is an image the application owns, its backing memory and,
// optionally, a view. Swapchain images do not pass through here, the
// presentation engine owns those.
type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format
}

func ImageCreate(device *Device, imageType vk.ImageType, width, height uint32, format vk.Format,
	tiling vk.ImageTiling, usage vk.ImageUsageFlags, memoryFlags vk.MemoryPropertyFlags,
	createView bool, viewAspectFlags vk.ImageAspectFlags) (*VulkanImage, error) {

	image := &VulkanImage{
		Width:  width,
		Height: height,
		Format: format,
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: imageType,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	if res := vk.CreateImage(device.LogicalDevice, &imageCreateInfo, device.allocator, &image.Handle); res != vk.Success {
		err := resourceError("vkCreateImage", res)
		core.LogError(err.Error())
		return nil, err
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device.LogicalDevice, image.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := device.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryType == -1 {
		return nil, fmt.Errorf("%w: no suitable memory type for image", ErrResourceCreation)
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	if res := vk.AllocateMemory(device.LogicalDevice, &allocateInfo, device.allocator, &image.Memory); res != vk.Success {
		err := resourceError("vkAllocateMemory", res)
		core.LogError(err.Error())
		return nil, err
	}
	if res := vk.BindImageMemory(device.LogicalDevice, image.Handle, image.Memory, 0); res != vk.Success {
		err := resourceError("vkBindImageMemory", res)
		core.LogError(err.Error())
		return nil, err
	}

	if createView {
		if err := image.ViewCreate(device, format, viewAspectFlags); err != nil {
			return nil, err
		}
	}

	return image, nil
}

func (i *VulkanImage) ViewCreate(device *Device, format vk.Format, aspectFlags vk.ImageAspectFlags) error {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    i.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	if res := vk.CreateImageView(device.LogicalDevice, &viewCreateInfo, device.allocator, &i.View); res != vk.Success {
		err := resourceError("vkCreateImageView", res)
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (i *VulkanImage) Destroy(device *Device) {
	if i.View != vk.NullImageView {
		vk.DestroyImageView(device.LogicalDevice, i.View, device.allocator)
		i.View = vk.NullImageView
	}
	if i.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device.LogicalDevice, i.Memory, device.allocator)
		i.Memory = vk.NullDeviceMemory
	}
	if i.Handle != vk.NullImage {
		vk.DestroyImage(device.LogicalDevice, i.Handle, device.allocator)
		i.Handle = vk.NullImage
	}
}
