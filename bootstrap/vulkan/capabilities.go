package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

const ValidationLayerName = "VK_LAYER_KHRONOS_validation"

// SystemInfo reports what the local Vulkan runtime offers before an instance
// exists: every layer, every extension, and the two availability flags the
// instance builder cares about most.
type SystemInfo struct {
	LayerNames     []string
	ExtensionNames []string

	ValidationLayersAvailable bool
	DebugUtilsAvailable       bool
}

// QuerySystemInfo enumerates instance layers and extensions. Extensions
// provided by a layer count as available alongside the core ones.
func QuerySystemInfo(loader *Loader) (*SystemInfo, error) {
	if !loader.ok() {
		return nil, fmt.Errorf("%w: loader not initialized", ErrCapabilityQuery)
	}

	si := &SystemInfo{}

	var layerCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&layerCount, nil); res != vk.Success {
		return nil, queryError("vkEnumerateInstanceLayerProperties", res)
	}
	availableLayers := make([]vk.LayerProperties, layerCount)
	if res := vk.EnumerateInstanceLayerProperties(&layerCount, availableLayers); res != vk.Success {
		return nil, queryError("vkEnumerateInstanceLayerProperties", res)
	}
	for i := range availableLayers {
		availableLayers[i].Deref()
		si.LayerNames = append(si.LayerNames, vk.ToString(availableLayers[i].LayerName[:]))
	}

	if err := si.appendExtensionsForLayer(""); err != nil {
		return nil, err
	}
	for _, layer := range si.LayerNames {
		// layer extension lists are best-effort, a broken layer is not fatal
		si.appendExtensionsForLayer(layer)
	}

	si.ValidationLayersAvailable = si.IsLayerAvailable(ValidationLayerName)
	si.DebugUtilsAvailable = si.IsExtensionAvailable(vk.ExtDebugUtilsExtensionName)

	return si, nil
}

func (si *SystemInfo) appendExtensionsForLayer(layerName string) error {
	var extCount uint32
	if res := vk.EnumerateInstanceExtensionProperties(layerName, &extCount, nil); res != vk.Success {
		return queryError("vkEnumerateInstanceExtensionProperties", res)
	}
	extensions := make([]vk.ExtensionProperties, extCount)
	if res := vk.EnumerateInstanceExtensionProperties(layerName, &extCount, extensions); res != vk.Success {
		return queryError("vkEnumerateInstanceExtensionProperties", res)
	}
	for i := range extensions {
		extensions[i].Deref()
		name := vk.ToString(extensions[i].ExtensionName[:])
		if !containsString(si.ExtensionNames, name) {
			si.ExtensionNames = append(si.ExtensionNames, name)
		}
	}
	return nil
}

func (si *SystemInfo) IsLayerAvailable(name string) bool {
	return containsString(si.LayerNames, name)
}

func (si *SystemInfo) IsExtensionAvailable(name string) bool {
	return containsString(si.ExtensionNames, name)
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

// SwapchainSupportInfo is what a physical device can do with a surface.
type SwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// QuerySwapchainSupport gathers surface capabilities, formats and present
// modes for a device. Every struct comes back fully dereferenced, so callers
// read plain Go fields.
func QuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (*SwapchainSupportInfo, error) {
	if surface == vk.NullSurface {
		return nil, fmt.Errorf("%w: swapchain support query needs a surface", ErrSurfaceMissing)
	}

	supportInfo := &SwapchainSupportInfo{}

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		return nil, queryError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res)
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return nil, queryError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
	}
	if formatCount > 0 {
		supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, supportInfo.Formats); res != vk.Success {
			return nil, queryError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return nil, queryError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
	}
	if presentModeCount > 0 {
		supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes); res != vk.Success {
			return nil, queryError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
		}
	}

	return supportInfo, nil
}

// queryQueueFamilies returns the device's queue families, dereferenced.
func queryQueueFamilies(physicalDevice vk.PhysicalDevice) []vk.QueueFamilyProperties {
	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &familyCount, families)
	for i := range families {
		families[i].Deref()
	}
	return families
}

// queryDeviceExtensions returns the names of every extension the device
// supports.
func queryDeviceExtensions(physicalDevice vk.PhysicalDevice) ([]string, error) {
	var extCount uint32
	if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &extCount, nil); res != vk.Success {
		return nil, queryError("vkEnumerateDeviceExtensionProperties", res)
	}
	extensions := make([]vk.ExtensionProperties, extCount)
	if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &extCount, extensions); res != vk.Success {
		return nil, queryError("vkEnumerateDeviceExtensionProperties", res)
	}
	names := make([]string, 0, extCount)
	for i := range extensions {
		extensions[i].Deref()
		names = append(names, vk.ToString(extensions[i].ExtensionName[:]))
	}
	return names, nil
}
