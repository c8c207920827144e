package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ignite/bootstrap/core"
)

// VulkanRenderpass is a single-subpass render pass that clears, draws and
// hands the image to the presentation engine. The depth attachment is
// optional.
type VulkanRenderpass struct {
	Handle vk.RenderPass

	X, Y, W, H float32
	R, G, B, A float32

	Depth   float32
	Stencil uint32

	HasDepth bool
}

// RenderpassCreate builds the pass for the given color format. Pass
// vk.FormatUndefined as depthFormat to skip the depth attachment.
func RenderpassCreate(device *Device, colorFormat, depthFormat vk.Format,
	x, y, w, h float32,
	r, g, b, a, depth float32, stencil uint32) (*VulkanRenderpass, error) {

	renderpass := &VulkanRenderpass{
		X: x, Y: y, W: w, H: h,
		R: r, G: g, B: b, A: a,
		Depth:    depth,
		Stencil:  stencil,
		HasDepth: depthFormat != vk.FormatUndefined,
	}

	colorAttachment := vk.AttachmentDescription{
		Format:         colorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}

	attachments := []vk.AttachmentDescription{colorAttachment}

	colorAttachmentReference := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{colorAttachmentReference},
	}

	if renderpass.HasDepth {
		depthAttachment := vk.AttachmentDescription{
			Format:         depthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		attachments = append(attachments, depthAttachment)

		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: 1,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	if res := vk.CreateRenderPass(device.LogicalDevice, &createInfo, device.allocator, &renderpass.Handle); res != vk.Success {
		err := resourceError("vkCreateRenderPass", res)
		core.LogError(err.Error())
		return nil, err
	}

	return renderpass, nil
}

// Begin records vkCmdBeginRenderPass with the pass clear values.
func (rp *VulkanRenderpass) Begin(commandBuffer *VulkanCommandBuffer, framebuffer vk.Framebuffer) {
	clearValueCount := 1
	if rp.HasDepth {
		clearValueCount = 2
	}
	clearValues := make([]vk.ClearValue, clearValueCount)
	clearValues[0].SetColor([]float32{rp.R, rp.G, rp.B, rp.A})
	if rp.HasDepth {
		clearValues[1].SetDepthStencil(rp.Depth, rp.Stencil)
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.Handle,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: int32(rp.X), Y: int32(rp.Y)},
			Extent: vk.Extent2D{Width: uint32(rp.W), Height: uint32(rp.H)},
		},
		ClearValueCount: uint32(clearValueCount),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (rp *VulkanRenderpass) End(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}

func (rp *VulkanRenderpass) Destroy(device *Device) {
	if rp.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(device.LogicalDevice, rp.Handle, device.allocator)
		rp.Handle = vk.NullRenderPass
	}
}
