package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ignite/bootstrap/core"
)

// Device owns the logical device, one queue per classified role, and the
// command pool for graphics work.
type Device struct {
	Physical      *PhysicalDevice
	LogicalDevice vk.Device

	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32
	ComputeQueueIndex  uint32
	TransferQueueIndex uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	ComputeQueue  vk.Queue
	TransferQueue vk.Queue

	GraphicsCommandPool vk.CommandPool

	DepthFormat vk.Format

	allocator *vk.AllocationCallbacks
}

// DeviceBuilder turns a selected physical device into a logical one.
type DeviceBuilder struct {
	physicalDevice    *PhysicalDevice
	extensionFeatures []DeviceExtensionFeature
	queueSetup        []vk.DeviceQueueCreateInfo
}

func NewDeviceBuilder(physicalDevice *PhysicalDevice) *DeviceBuilder {
	return &DeviceBuilder{
		physicalDevice: physicalDevice,
	}
}

// AddExtensionFeature appends one of the typed extension payloads. Order is
// preserved in the resulting extension list.
func (b *DeviceBuilder) AddExtensionFeature(feature DeviceExtensionFeature) *DeviceBuilder {
	b.extensionFeatures = append(b.extensionFeatures, feature)
	return b
}

// SetCustomQueueSetup replaces the deduplicated per-role queue layout with
// the caller's own create infos.
func (b *DeviceBuilder) SetCustomQueueSetup(infos []vk.DeviceQueueCreateInfo) *DeviceBuilder {
	b.queueSetup = infos
	return b
}

func (b *DeviceBuilder) Build() (*Device, error) {
	pd := b.physicalDevice

	core.LogInfo("creating logical device...")

	device := &Device{
		Physical:          pd,
		PresentQueueIndex: QueueIndexMaxValue,
		allocator:         nil,
	}

	device.GraphicsQueueIndex = QueueFamilyGraphicsIndex(pd.QueueFamilies)
	if device.GraphicsQueueIndex == QueueIndexMaxValue {
		return nil, fmt.Errorf("%w: no graphics queue family", ErrUnsatisfiedRequirement)
	}
	if pd.Surface != vk.NullSurface {
		device.PresentQueueIndex = QueueFamilyPresentIndex(pd.Handle, pd.Surface, pd.QueueFamilies)
	}
	device.ComputeQueueIndex = computeFamilyIndex(pd.QueueFamilies, device.GraphicsQueueIndex)
	device.TransferQueueIndex = transferFamilyIndex(pd.QueueFamilies, device.GraphicsQueueIndex)

	queueCreateInfos := b.queueSetup
	if len(queueCreateInfos) == 0 {
		// Do not create additional queues for shared indices.
		indices := []uint32{device.GraphicsQueueIndex}
		for _, index := range []uint32{device.PresentQueueIndex, device.ComputeQueueIndex, device.TransferQueueIndex} {
			if index != QueueIndexMaxValue && !containsIndex(indices, index) {
				indices = append(indices, index)
			}
		}

		queueCreateInfos = make([]vk.DeviceQueueCreateInfo, len(indices))
		for i := range indices {
			queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
				SType:            vk.StructureTypeDeviceQueueCreateInfo,
				QueueFamilyIndex: indices[i],
				QueueCount:       1,
				PQueuePriorities: []float32{1.0},
			}
		}
	}

	extensionNames := append([]string{}, pd.Extensions...)

	// Devices that advertise VK_KHR_portability_subset must enable it.
	supported, err := queryDeviceExtensions(pd.Handle)
	if err != nil {
		return nil, err
	}
	if containsString(supported, "VK_KHR_portability_subset") && !containsString(extensionNames, "VK_KHR_portability_subset") {
		core.LogInfo("adding required extension 'VK_KHR_portability_subset'")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	for _, feature := range b.extensionFeatures {
		for _, name := range feature.extensionNames() {
			if !containsString(extensionNames, name) {
				extensionNames = append(extensionNames, name)
			}
		}
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{pd.Features},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
		// Device layers are deprecated and ignored, so pass nothing.
		EnabledLayerCount:   0,
		PpEnabledLayerNames: nil,
	}

	if res := vk.CreateDevice(pd.Handle, &deviceCreateInfo, device.allocator, &device.LogicalDevice); res != vk.Success {
		err := resourceError("vkCreateDevice", res)
		core.LogError(err.Error())
		return nil, err
	}
	core.LogInfo("logical device created")

	vk.GetDeviceQueue(device.LogicalDevice, device.GraphicsQueueIndex, 0, &device.GraphicsQueue)
	if device.PresentQueueIndex != QueueIndexMaxValue {
		vk.GetDeviceQueue(device.LogicalDevice, device.PresentQueueIndex, 0, &device.PresentQueue)
	}
	vk.GetDeviceQueue(device.LogicalDevice, device.ComputeQueueIndex, 0, &device.ComputeQueue)
	vk.GetDeviceQueue(device.LogicalDevice, device.TransferQueueIndex, 0, &device.TransferQueue)

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if res := vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, device.allocator, &device.GraphicsCommandPool); res != vk.Success {
		err := resourceError("vkCreateCommandPool", res)
		core.LogError(err.Error())
		return nil, err
	}

	return device, nil
}

// computeFamilyIndex prefers a dedicated compute family, then a separate one,
// then whatever family carries the compute bit. The graphics family commonly
// ends up being that last resort.
func computeFamilyIndex(families []vk.QueueFamilyProperties, graphicsIndex uint32) uint32 {
	if index := QueueFamilyDedicatedComputeIndex(families); index != QueueIndexMaxValue {
		return index
	}
	if index := QueueFamilySeparateComputeIndex(families); index != QueueIndexMaxValue {
		return index
	}
	for i := range families {
		if vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueComputeBit != 0 {
			return uint32(i)
		}
	}
	return graphicsIndex
}

func transferFamilyIndex(families []vk.QueueFamilyProperties, graphicsIndex uint32) uint32 {
	if index := QueueFamilyDedicatedTransferIndex(families); index != QueueIndexMaxValue {
		return index
	}
	if index := QueueFamilySeparateTransferIndex(families); index != QueueIndexMaxValue {
		return index
	}
	for i := range families {
		if vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueTransferBit != 0 {
			return uint32(i)
		}
	}
	// graphics queues accept transfer work even without the bit
	return graphicsIndex
}

func containsIndex(list []uint32, want uint32) bool {
	for _, index := range list {
		if index == want {
			return true
		}
	}
	return false
}

// DetectDepthFormat picks the first depth format the hardware supports for
// depth stencil attachments and caches it on the device.
func (d *Device) DetectDepthFormat() error {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)

	for _, format := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(d.Physical.Handle, format, &properties)
		properties.Deref()

		if (vk.FormatFeatureFlags(properties.LinearTilingFeatures) & flags) == flags {
			d.DepthFormat = format
			return nil
		} else if (vk.FormatFeatureFlags(properties.OptimalTilingFeatures) & flags) == flags {
			d.DepthFormat = format
			return nil
		}
	}
	return fmt.Errorf("%w: no supported depth format", ErrCapabilityQuery)
}

// FindMemoryIndex returns the first memory type matching the filter and the
// property flags, or -1. One linear scan, first fit.
func (d *Device) FindMemoryIndex(typeFilter uint32, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.Physical.Handle, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}

	core.LogWarn("unable to find suitable memory type")
	return -1
}

func (d *Device) WaitIdle() error {
	if res := vk.DeviceWaitIdle(d.LogicalDevice); res != vk.Success {
		return fmt.Errorf("vkDeviceWaitIdle returned %s", ResultString(res))
	}
	return nil
}

func (d *Device) Destroy() {
	d.GraphicsQueue = nil
	d.PresentQueue = nil
	d.ComputeQueue = nil
	d.TransferQueue = nil

	core.LogDebug("destroying graphics command pool...")
	vk.DestroyCommandPool(d.LogicalDevice, d.GraphicsCommandPool, d.allocator)

	core.LogDebug("destroying logical device...")
	if d.LogicalDevice != nil {
		vk.DestroyDevice(d.LogicalDevice, d.allocator)
		d.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	d.Physical = nil
}
