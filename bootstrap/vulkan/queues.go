package vulkan

import (
	vk "github.com/goki/vulkan"
)

// QueueIndexMaxValue is the sentinel meaning "no such queue family". It sits
// far above the handful of families real hardware reports.
const QueueIndexMaxValue uint32 = 65536

type surfaceSupportFunc func(familyIndex uint32) (bool, error)

func realSurfaceSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) surfaceSupportFunc {
	return func(familyIndex uint32) (bool, error) {
		var supported vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(physicalDevice, familyIndex, surface, &supported); res != vk.Success {
			return false, queryError("vkGetPhysicalDeviceSurfaceSupportKHR", res)
		}
		return supported == vk.True, nil
	}
}

// QueueFamilyGraphicsIndex returns the first family advertising graphics.
func QueueFamilyGraphicsIndex(families []vk.QueueFamilyProperties) uint32 {
	for i := range families {
		if vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueGraphicsBit != 0 {
			return uint32(i)
		}
	}
	return QueueIndexMaxValue
}

// QueueFamilyDedicatedComputeIndex returns the first family with compute but
// neither graphics nor transfer.
func QueueFamilyDedicatedComputeIndex(families []vk.QueueFamilyProperties) uint32 {
	for i := range families {
		flags := vk.QueueFlagBits(families[i].QueueFlags)
		if flags&vk.QueueComputeBit == 0 {
			continue
		}
		if flags&vk.QueueGraphicsBit != 0 || flags&vk.QueueTransferBit != 0 {
			continue
		}
		return uint32(i)
	}
	return QueueIndexMaxValue
}

// QueueFamilyDedicatedTransferIndex returns the first family with transfer
// but neither graphics nor compute.
func QueueFamilyDedicatedTransferIndex(families []vk.QueueFamilyProperties) uint32 {
	for i := range families {
		flags := vk.QueueFlagBits(families[i].QueueFlags)
		if flags&vk.QueueTransferBit == 0 {
			continue
		}
		if flags&vk.QueueGraphicsBit != 0 || flags&vk.QueueComputeBit != 0 {
			continue
		}
		return uint32(i)
	}
	return QueueIndexMaxValue
}

// QueueFamilySeparateComputeIndex returns a compute family away from the
// graphics one. A family that also lacks transfer wins immediately; otherwise
// the last acceptable family stands.
func QueueFamilySeparateComputeIndex(families []vk.QueueFamilyProperties) uint32 {
	index := QueueIndexMaxValue
	for i := range families {
		flags := vk.QueueFlagBits(families[i].QueueFlags)
		if flags&vk.QueueComputeBit == 0 || flags&vk.QueueGraphicsBit != 0 {
			continue
		}
		if flags&vk.QueueTransferBit == 0 {
			return uint32(i)
		}
		index = uint32(i)
	}
	return index
}

// QueueFamilySeparateTransferIndex returns a transfer family away from the
// graphics one, preferring one without compute.
func QueueFamilySeparateTransferIndex(families []vk.QueueFamilyProperties) uint32 {
	index := QueueIndexMaxValue
	for i := range families {
		flags := vk.QueueFlagBits(families[i].QueueFlags)
		if flags&vk.QueueTransferBit == 0 || flags&vk.QueueGraphicsBit != 0 {
			continue
		}
		if flags&vk.QueueComputeBit == 0 {
			return uint32(i)
		}
		index = uint32(i)
	}
	return index
}

// QueueFamilyPresentIndex returns the first family able to present to the
// surface. A failing support query aborts the scan and yields the sentinel.
func QueueFamilyPresentIndex(physicalDevice vk.PhysicalDevice, surface vk.Surface, families []vk.QueueFamilyProperties) uint32 {
	return queueFamilyPresentIndex(families, realSurfaceSupport(physicalDevice, surface))
}

func queueFamilyPresentIndex(families []vk.QueueFamilyProperties, supported surfaceSupportFunc) uint32 {
	for i := range families {
		ok, err := supported(uint32(i))
		if err != nil {
			return QueueIndexMaxValue
		}
		if ok {
			return uint32(i)
		}
	}
	return QueueIndexMaxValue
}
