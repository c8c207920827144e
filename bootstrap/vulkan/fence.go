package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ignite/bootstrap/core"
)

// VulkanFence pairs the handle with a CPU-side signaled flag so redundant
// waits and resets turn into no-ops.
type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(device *Device, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	if res := vk.CreateFence(device.LogicalDevice, &fenceCreateInfo, device.allocator, &fence.Handle); res != vk.Success {
		err := resourceError("vkCreateFence", res)
		core.LogError(err.Error())
		return nil, err
	}
	return fence, nil
}

// Wait blocks until the fence signals or the timeout expires. Reports whether
// the fence is signaled on return.
func (f *VulkanFence) Wait(device *Device, timeoutNS uint64) bool {
	if f.IsSignaled {
		return true
	}

	res := vk.WaitForFences(device.LogicalDevice, 1, []vk.Fence{f.Handle}, vk.True, timeoutNS)
	switch res {
	case vk.Success:
		f.IsSignaled = true
		return true
	case vk.Timeout:
		core.LogWarn("fence wait timed out")
	case vk.ErrorDeviceLost:
		core.LogError("fence wait failed, VK_ERROR_DEVICE_LOST")
	case vk.ErrorOutOfHostMemory:
		core.LogError("fence wait failed, VK_ERROR_OUT_OF_HOST_MEMORY")
	case vk.ErrorOutOfDeviceMemory:
		core.LogError("fence wait failed, VK_ERROR_OUT_OF_DEVICE_MEMORY")
	default:
		core.LogError("fence wait failed, %s", ResultString(res))
	}
	return false
}

func (f *VulkanFence) Reset(device *Device) error {
	if !f.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(device.LogicalDevice, 1, []vk.Fence{f.Handle}); res != vk.Success {
		err := fmt.Errorf("failed to reset fence, %s", ResultString(res))
		core.LogError(err.Error())
		return err
	}
	f.IsSignaled = false
	return nil
}

func (f *VulkanFence) Destroy(device *Device) {
	if f.Handle != vk.NullFence {
		vk.DestroyFence(device.LogicalDevice, f.Handle, device.allocator)
		f.Handle = vk.NullFence
	}
	f.IsSignaled = false
}
