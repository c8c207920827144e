package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ignite/bootstrap/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	State  VulkanCommandBufferState
}

func NewCommandBuffer(device *Device, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	commandBuffer := &VulkanCommandBuffer{
		State: COMMAND_BUFFER_STATE_NOT_ALLOCATED,
	}

	level := vk.CommandBufferLevelPrimary
	if !isPrimary {
		level = vk.CommandBufferLevelSecondary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              level,
		CommandBufferCount: 1,
	}

	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
		err := resourceError("vkAllocateCommandBuffers", res)
		core.LogError(err.Error())
		return nil, err
	}
	commandBuffer.Handle = handles[0]
	commandBuffer.State = COMMAND_BUFFER_STATE_READY

	return commandBuffer, nil
}

func (cb *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := vk.BeginCommandBuffer(cb.Handle, &beginInfo); res != vk.Success {
		err := resourceError("vkBeginCommandBuffer", res)
		core.LogError(err.Error())
		return err
	}
	cb.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (cb *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(cb.Handle); res != vk.Success {
		err := resourceError("vkEndCommandBuffer", res)
		core.LogError(err.Error())
		return err
	}
	cb.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (cb *VulkanCommandBuffer) UpdateSubmitted() {
	cb.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (cb *VulkanCommandBuffer) Reset() {
	cb.State = COMMAND_BUFFER_STATE_READY
}

func (cb *VulkanCommandBuffer) Free(device *Device, pool vk.CommandPool) {
	if cb.Handle != nil {
		vk.FreeCommandBuffers(device.LogicalDevice, pool, 1, []vk.CommandBuffer{cb.Handle})
		cb.Handle = nil
	}
	cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

// AllocateAndBeginSingleUse hands out a primary buffer already recording
// with the one-time-submit flag. Pair with EndSingleUse.
func AllocateAndBeginSingleUse(device *Device, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := NewCommandBuffer(device, pool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Free(device, pool)
		return nil, err
	}
	return cb, nil
}

// EndSingleUse ends recording, submits to the queue, blocks until the work
// retires and frees the buffer.
func (cb *VulkanCommandBuffer) EndSingleUse(device *Device, pool vk.CommandPool, queue vk.Queue) error {
	if err := cb.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
	}
	if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
		err := resourceError("vkQueueSubmit", res)
		core.LogError(err.Error())
		return err
	}

	if res := vk.QueueWaitIdle(queue); res != vk.Success {
		err := resourceError("vkQueueWaitIdle", res)
		core.LogError(err.Error())
		return err
	}

	cb.Free(device, pool)
	return nil
}
