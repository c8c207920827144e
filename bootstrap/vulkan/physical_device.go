package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ignite/bootstrap/core"
)

// PhysicalDevice is the outcome of selection: the chosen adapter plus
// everything later builders need without asking the driver again.
type PhysicalDevice struct {
	Handle  vk.PhysicalDevice
	Surface vk.Surface

	Name       string
	Properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties

	// Features holds the feature set selection required, not everything the
	// hardware offers. The device builder enables exactly these.
	Features vk.PhysicalDeviceFeatures

	QueueFamilies []vk.QueueFamilyProperties

	// Extensions lists what the logical device should enable: the required
	// set plus whichever desired ones the hardware turned out to support.
	Extensions []string
}

// physicalDeviceDesc is a selection candidate with every capability the
// suitability scan reads captured up front, so scoring never talks to the
// driver.
type physicalDeviceDesc struct {
	handle        vk.PhysicalDevice
	name          string
	properties    vk.PhysicalDeviceProperties
	features      vk.PhysicalDeviceFeatures
	memory        vk.PhysicalDeviceMemoryProperties
	queueFamilies []vk.QueueFamilyProperties
	extensions    []string

	presentIndex      uint32
	swapchainAdequate bool
}

func newPhysicalDeviceDesc(handle vk.PhysicalDevice, surface vk.Surface, needsPresent bool) physicalDeviceDesc {
	desc := physicalDeviceDesc{
		handle:       handle,
		presentIndex: QueueIndexMaxValue,
	}

	vk.GetPhysicalDeviceProperties(handle, &desc.properties)
	desc.properties.Deref()
	desc.name = vk.ToString(desc.properties.DeviceName[:])

	vk.GetPhysicalDeviceFeatures(handle, &desc.features)
	desc.features.Deref()

	vk.GetPhysicalDeviceMemoryProperties(handle, &desc.memory)
	desc.memory.Deref()
	for i := uint32(0); i < desc.memory.MemoryHeapCount; i++ {
		desc.memory.MemoryHeaps[i].Deref()
	}

	desc.queueFamilies = queryQueueFamilies(handle)

	if names, err := queryDeviceExtensions(handle); err != nil {
		core.LogWarn("device %s: %s", desc.name, err)
	} else {
		desc.extensions = names
	}

	// The surface-bound capabilities only matter when presentation is on the
	// table, and both queries fail closed.
	if needsPresent && surface != vk.NullSurface {
		desc.presentIndex = QueueFamilyPresentIndex(handle, surface, desc.queueFamilies)
		if support, err := QuerySwapchainSupport(handle, surface); err == nil {
			desc.swapchainAdequate = len(support.Formats) > 0 && len(support.PresentModes) > 0
		}
	}

	return desc
}
