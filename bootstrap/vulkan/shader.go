package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ignite/bootstrap/core"
)

// VulkanShaderStage holds a shader module together with the pipeline
// stage info that references it.
type VulkanShaderStage struct {
	Handle                vk.ShaderModule
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderStage creates a shader module from SPIR-V words. sizeBytes is
// the byte size of the original bytecode, which is what CodeSize expects.
func NewShaderStage(device *Device, words []uint32, sizeBytes uint32, stageFlag vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	if len(words) == 0 {
		err := resourceError("vkCreateShaderModule", vk.ErrorInitializationFailed)
		core.LogError("shader stage created with empty bytecode")
		return nil, err
	}

	stage := &VulkanShaderStage{}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(sizeBytes),
		PCode:    words,
	}

	if res := vk.CreateShaderModule(device.LogicalDevice, &createInfo, device.allocator, &stage.Handle); res != vk.Success {
		err := resourceError("vkCreateShaderModule", res)
		core.LogError(err.Error())
		return nil, err
	}

	stage.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stageFlag,
		Module: stage.Handle,
		PName:  VulkanSafeString("main"),
	}

	return stage, nil
}

func (s *VulkanShaderStage) Destroy(device *Device) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(device.LogicalDevice, s.Handle, device.allocator)
		s.Handle = vk.NullShaderModule
	}
}
