package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/ignite/bootstrap/core"
	"github.com/spaghettifunk/ignite/bootstrap/maths"
)

const (
	defaultSwapchainWidth  = 256
	defaultSwapchainHeight = 256
)

// Swapchain owns the presentable image set plus the state the presentation
// loop needs: views, format, extent and the wrapping frame index.
type Swapchain struct {
	ID          uuid.UUID
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	ImageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView

	// CurrentFrame wraps in [0, ImageCount).
	CurrentFrame uint32

	DepthAttachment *VulkanImage

	builder *SwapchainBuilder
}

// SwapchainBuilder derives image count, surface format, present mode and
// extent from the surface capabilities, applying documented defaults for
// anything the caller leaves unset.
type SwapchainBuilder struct {
	device *Device

	desiredExtent       Optional[vk.Extent2D]
	desiredFormats      []vk.SurfaceFormat
	desiredPresentModes []vk.PresentMode
	imageUsage          Optional[vk.ImageUsageFlags]
	arrayLayers         Optional[uint32]
	preTransform        Optional[vk.SurfaceTransformFlagBits]
	compositeAlpha      Optional[vk.CompositeAlphaFlagBits]
	clipped             Optional[bool]
	oldSwapchain        vk.Swapchain
	depthAttachment     bool
}

func NewSwapchainBuilder(device *Device) *SwapchainBuilder {
	return &SwapchainBuilder{
		device:       device,
		oldSwapchain: vk.NullSwapchain,
	}
}

func (b *SwapchainBuilder) SetDesiredExtent(width, height uint32) *SwapchainBuilder {
	b.desiredExtent = NewOptional(vk.Extent2D{Width: width, Height: height})
	return b
}

// AddDesiredFormat appends a (format, color space) pair. Pairs are matched
// against the surface's supported list in the order they were added.
func (b *SwapchainBuilder) AddDesiredFormat(format vk.SurfaceFormat) *SwapchainBuilder {
	b.desiredFormats = append(b.desiredFormats, format)
	return b
}

// AddDesiredPresentMode appends a present mode, matched in insertion order.
func (b *SwapchainBuilder) AddDesiredPresentMode(mode vk.PresentMode) *SwapchainBuilder {
	b.desiredPresentModes = append(b.desiredPresentModes, mode)
	return b
}

func (b *SwapchainBuilder) SetImageUsageFlags(usage vk.ImageUsageFlags) *SwapchainBuilder {
	b.imageUsage = NewOptional(usage)
	return b
}

func (b *SwapchainBuilder) SetImageArrayLayerCount(count uint32) *SwapchainBuilder {
	b.arrayLayers = NewOptional(count)
	return b
}

func (b *SwapchainBuilder) SetPreTransform(transform vk.SurfaceTransformFlagBits) *SwapchainBuilder {
	b.preTransform = NewOptional(transform)
	return b
}

func (b *SwapchainBuilder) SetCompositeAlpha(alpha vk.CompositeAlphaFlagBits) *SwapchainBuilder {
	b.compositeAlpha = NewOptional(alpha)
	return b
}

func (b *SwapchainBuilder) SetClipped(clipped bool) *SwapchainBuilder {
	b.clipped = NewOptional(clipped)
	return b
}

// SetOldSwapchain passes the previous swapchain as a reuse hint so the
// driver can replace it atomically. The old handle still has to be
// destroyed by the caller after the build.
func (b *SwapchainBuilder) SetOldSwapchain(old vk.Swapchain) *SwapchainBuilder {
	b.oldSwapchain = old
	return b
}

// EnableDepthAttachment makes the build create a depth image and view
// sized to the swapchain extent.
func (b *SwapchainBuilder) EnableDepthAttachment() *SwapchainBuilder {
	b.depthAttachment = true
	return b
}

func (b *SwapchainBuilder) Build() (*Swapchain, error) {
	device := b.device
	pd := device.Physical

	if pd.Surface == vk.NullSurface {
		return nil, fmt.Errorf("%w: swapchain requires a surface", ErrSurfaceMissing)
	}

	support, err := QuerySwapchainSupport(pd.Handle, pd.Surface)
	if err != nil {
		return nil, err
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return nil, fmt.Errorf("%w: surface reports no formats or present modes", ErrCapabilityQuery)
	}

	desiredFormats := b.desiredFormats
	if len(desiredFormats) == 0 {
		desiredFormats = defaultSurfaceFormats()
	}
	desiredPresentModes := b.desiredPresentModes
	if len(desiredPresentModes) == 0 {
		desiredPresentModes = defaultPresentModes()
	}

	surfaceFormat := chooseSurfaceFormat(support.Formats, desiredFormats)
	presentMode := choosePresentMode(support.PresentModes, desiredPresentModes)
	extent := chooseExtent(support.Capabilities, b.desiredExtent.GetOr(vk.Extent2D{
		Width:  defaultSwapchainWidth,
		Height: defaultSwapchainHeight,
	}))
	imageCount := chooseImageCount(support.Capabilities)
	arrayLayers := chooseArrayLayers(support.Capabilities, b.arrayLayers.GetOr(1))

	swapchain := &Swapchain{
		ID:          uuid.New(),
		ImageFormat: surfaceFormat,
		PresentMode: presentMode,
		Extent:      extent,
		builder:     b,
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          pd.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: arrayLayers,
		ImageUsage:       b.imageUsage.GetOr(vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)),
		PreTransform:     b.preTransform.GetOr(support.Capabilities.CurrentTransform),
		CompositeAlpha:   b.compositeAlpha.GetOr(vk.CompositeAlphaOpaqueBit),
		PresentMode:      presentMode,
		OldSwapchain:     b.oldSwapchain,
	}
	if b.clipped.GetOr(true) {
		swapchainCreateInfo.Clipped = vk.True
	}

	// Images rendered on the graphics queue must be readable by the present
	// queue, so differing families share concurrently.
	if device.GraphicsQueueIndex != device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			device.GraphicsQueueIndex,
			device.PresentQueueIndex,
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchainHandle vk.Swapchain
	if res := vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, device.allocator, &swapchainHandle); res != vk.Success {
		err := resourceError("vkCreateSwapchainKHR", res)
		core.LogError(err.Error())
		return nil, err
	}
	swapchain.Handle = swapchainHandle

	// Start with a zero frame index.
	swapchain.CurrentFrame = 0

	// The driver may have created more images than requested. The actual
	// list is authoritative.
	swapchain.ImageCount = 0
	if res := vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil); res != vk.Success {
		err := resourceError("vkGetSwapchainImagesKHR", res)
		core.LogError(err.Error())
		return nil, err
	}
	if swapchain.ImageCount == 0 {
		err := fmt.Errorf("%w: swapchain owns no images", ErrResourceCreation)
		core.LogError(err.Error())
		return nil, err
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	if res := vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images); res != vk.Success {
		err := resourceError("vkGetSwapchainImagesKHR", res)
		core.LogError(err.Error())
		return nil, err
	}

	swapchain.Views = make([]vk.ImageView, swapchain.ImageCount)
	for i := 0; i < int(swapchain.ImageCount); i++ {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    swapchain.Images[i],
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		if res := vk.CreateImageView(device.LogicalDevice, &viewInfo, device.allocator, &swapchain.Views[i]); res != vk.Success {
			err := resourceError("vkCreateImageView", res)
			core.LogError(err.Error())
			return nil, err
		}
	}

	if b.depthAttachment {
		if err := device.DetectDepthFormat(); err != nil {
			return nil, err
		}
		depthAttachment, err := ImageCreate(
			device,
			vk.ImageType2d,
			extent.Width,
			extent.Height,
			device.DepthFormat,
			vk.ImageTilingOptimal,
			vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			true,
			vk.ImageAspectFlags(vk.ImageAspectDepthBit))
		if err != nil {
			return nil, err
		}
		swapchain.DepthAttachment = depthAttachment
	}

	core.LogInfo("swapchain %s created: %dx%d, %d images", swapchain.ID, extent.Width, extent.Height, swapchain.ImageCount)

	return swapchain, nil
}

// Rebuild creates a replacement swapchain with the same builder settings
// but a new extent, handing the current handle to the driver as a reuse
// hint. The old handle and views are NOT destroyed here.
func (s *Swapchain) Rebuild(width, height uint32) (*Swapchain, error) {
	s.builder.SetDesiredExtent(width, height)
	s.builder.SetOldSwapchain(s.Handle)
	return s.builder.Build()
}

// DestroyImageViews destroys only the views. The images belong to the
// swapchain and go away with it. Safe to call more than once.
func (s *Swapchain) DestroyImageViews(device *Device) {
	for _, view := range s.Views {
		if view != vk.NullImageView {
			vk.DestroyImageView(device.LogicalDevice, view, device.allocator)
		}
	}
	s.Views = nil
}

func (s *Swapchain) Destroy(device *Device) {
	vk.DeviceWaitIdle(device.LogicalDevice)
	if s.DepthAttachment != nil {
		s.DepthAttachment.Destroy(device)
		s.DepthAttachment = nil
	}
	s.DestroyImageViews(device)
	if s.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device.LogicalDevice, s.Handle, device.allocator)
		s.Handle = vk.NullSwapchain
	}
}

func defaultSurfaceFormats() []vk.SurfaceFormat {
	return []vk.SurfaceFormat{
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatR8g8b8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
}

func defaultPresentModes() []vk.PresentMode {
	return []vk.PresentMode{
		vk.PresentModeMailbox,
		vk.PresentModeFifo,
	}
}

// chooseSurfaceFormat returns the first desired pair the surface supports.
// When nothing matches it falls back to the first supported format, which
// is always usable.
func chooseSurfaceFormat(available, desired []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, want := range desired {
		for _, have := range available {
			if have.Format == want.Format && have.ColorSpace == want.ColorSpace {
				return have
			}
		}
	}
	return available[0]
}

// choosePresentMode returns the first desired mode the surface supports.
// FIFO support is mandated, so it is the universal fallback.
func choosePresentMode(available, desired []vk.PresentMode) vk.PresentMode {
	for _, want := range desired {
		for _, have := range available {
			if have == want {
				return have
			}
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent uses the surface's fixed extent when it reports one. The
// max-uint sentinel means the surface takes whatever the swapchain picks,
// clamped to the reported bounds.
func chooseExtent(capabilities vk.SurfaceCapabilities, desired vk.Extent2D) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	return vk.Extent2D{
		Width:  maths.Clamp(desired.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: maths.Clamp(desired.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

// chooseImageCount requests one image over the minimum so acquisition does
// not stall on the driver, capped when the surface caps the count.
func chooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

func chooseArrayLayers(capabilities vk.SurfaceCapabilities, requested uint32) uint32 {
	return maths.Clamp(requested, 1, capabilities.MaxImageArrayLayers)
}
