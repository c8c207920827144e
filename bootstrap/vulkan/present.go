package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ignite/bootstrap/core"
)

// FrameRecorder records draw commands for one swapchain image. It runs
// between Begin and End on an already-allocated command buffer, once at
// presenter creation and again after every swapchain recreation.
type FrameRecorder func(commandBuffer *VulkanCommandBuffer, framebuffer *VulkanFramebuffer, imageIndex uint32) error

// presenterOps isolates the driver calls the frame loop makes so the loop
// logic is testable without a device.
type presenterOps interface {
	waitForFence(fence *VulkanFence) bool
	resetFence(fence *VulkanFence) error
	acquireNextImage(semaphore vk.Semaphore) (uint32, vk.Result)
	submit(commandBuffer vk.CommandBuffer, waitSemaphore, signalSemaphore vk.Semaphore, fence vk.Fence) vk.Result
	deviceWaitIdle()
	present(waitSemaphore vk.Semaphore, imageIndex uint32) vk.Result
}

// Presenter owns the swapchain, its framebuffers, the per-image command
// buffers and the synchronization objects, and drives the per-frame
// acquire/submit/present loop. One presenter per thread; access is not
// synchronized internally.
type Presenter struct {
	device     *Device
	swapchain  *Swapchain
	renderpass *VulkanRenderpass

	framebuffers []*VulkanFramebuffer

	commandPool    vk.CommandPool
	commandBuffers []*VulkanCommandBuffer

	// Parallel arrays indexed by frame slot, sized to the image count.
	imageAvailable []vk.Semaphore
	renderFinished []vk.Semaphore
	inFlight       []*VulkanFence
	// imagesInFlight[i] is the fence guarding image i, nil when the image
	// has never been handed out.
	imagesInFlight []*VulkanFence

	recorder FrameRecorder

	ops     presenterOps
	rebuild func() error

	pendingWidth  uint32
	pendingHeight uint32
}

func NewPresenter(device *Device, swapchain *Swapchain, renderpass *VulkanRenderpass, recorder FrameRecorder) (*Presenter, error) {
	p := &Presenter{
		device:        device,
		swapchain:     swapchain,
		renderpass:    renderpass,
		recorder:      recorder,
		pendingWidth:  swapchain.Extent.Width,
		pendingHeight: swapchain.Extent.Height,
	}
	p.ops = &realPresenterOps{p: p}
	p.rebuild = p.recreateSwapchain

	if err := p.createFramebuffers(); err != nil {
		return nil, err
	}
	if err := p.createCommandBuffers(); err != nil {
		return nil, err
	}
	if err := p.recordCommandBuffers(); err != nil {
		return nil, err
	}
	if err := p.createSyncObjects(); err != nil {
		return nil, err
	}

	return p, nil
}

// Swapchain returns the currently live swapchain. The pointer changes on
// recreation.
func (p *Presenter) Swapchain() *Swapchain {
	return p.swapchain
}

// NotifyResize records the latest framebuffer size. The new extent takes
// effect at the next recreation, which the acquire or present result
// triggers once the surface reports itself stale.
func (p *Presenter) NotifyResize(width, height uint32) {
	p.pendingWidth = width
	p.pendingHeight = height
}

// DrawFrame runs one acquire/submit/present cycle. Transient surface
// failures recreate the swapchain internally. Fatal presentation failures
// are logged and the frame dropped; only a failed recreation surfaces as
// an error.
func (p *Presenter) DrawFrame() error {
	frame := p.swapchain.CurrentFrame

	// The slot's previous submission must retire before its objects are
	// reused. Unbounded wait.
	if !p.ops.waitForFence(p.inFlight[frame]) {
		core.LogError("in-flight fence wait failed on frame slot %d, frame dropped", frame)
		return nil
	}

	imageIndex, result := p.ops.acquireNextImage(p.imageAvailable[frame])
	if result == vk.ErrorOutOfDate {
		// Stale surface. Rebuild and let the caller come back next tick.
		return p.rebuild()
	}
	if result != vk.Success && result != vk.Suboptimal {
		core.LogError("%v", fmt.Errorf("%w: vkAcquireNextImageKHR returned %s", ErrFatalPresentation, ResultString(result)))
		return nil
	}

	// The acquired image may still be guarded by an older frame slot.
	if p.imagesInFlight[imageIndex] != nil {
		if !p.ops.waitForFence(p.imagesInFlight[imageIndex]) {
			core.LogError("fence wait failed on in-flight image %d, frame dropped", imageIndex)
			return nil
		}
	}
	p.imagesInFlight[imageIndex] = p.inFlight[frame]

	if err := p.ops.resetFence(p.inFlight[frame]); err != nil {
		core.LogError("%v", err)
		return nil
	}
	result = p.ops.submit(
		p.commandBuffers[imageIndex].Handle,
		p.imageAvailable[frame],
		p.renderFinished[frame],
		p.inFlight[frame].Handle,
	)
	if result != vk.Success {
		core.LogError("%v", fmt.Errorf("%w: vkQueueSubmit returned %s", ErrFatalPresentation, ResultString(result)))
		return nil
	}
	p.commandBuffers[imageIndex].UpdateSubmitted()

	// Full idle between submit and present trades throughput for a model
	// with no cross-frame GPU overlap.
	p.ops.deviceWaitIdle()

	result = p.ops.present(p.renderFinished[frame], imageIndex)
	if result == vk.ErrorOutOfDate || result == vk.Suboptimal {
		return p.rebuild()
	}
	if result != vk.Success {
		core.LogError("%v", fmt.Errorf("%w: vkQueuePresentKHR returned %s", ErrFatalPresentation, ResultString(result)))
		return nil
	}

	p.swapchain.CurrentFrame = (frame + 1) % p.swapchain.ImageCount
	return nil
}

// RecordCommandBuffers re-records every per-image command buffer, waiting
// for the device to go idle first. Replaces the recorder when a non-nil
// one is passed. Used when the recorded content changes, e.g. a pipeline
// swap after a shader reload.
func (p *Presenter) RecordCommandBuffers(recorder FrameRecorder) error {
	if err := p.device.WaitIdle(); err != nil {
		return err
	}
	if recorder != nil {
		p.recorder = recorder
	}
	if res := vk.ResetCommandPool(p.device.LogicalDevice, p.commandPool, vk.CommandPoolResetFlags(0)); res != vk.Success {
		err := resourceError("vkResetCommandPool", res)
		core.LogError(err.Error())
		return err
	}
	for _, commandBuffer := range p.commandBuffers {
		commandBuffer.Reset()
	}
	return p.recordCommandBuffers()
}

// recreateSwapchain tears down everything sized to the swapchain and
// rebuilds it at the pending extent, handing the old swapchain to the
// driver as a reuse hint. A zero-area extent defers the rebuild until a
// real size arrives.
func (p *Presenter) recreateSwapchain() error {
	width, height := p.pendingWidth, p.pendingHeight
	if width == 0 || height == 0 {
		core.LogDebug("swapchain recreation deferred: zero-area framebuffer")
		return nil
	}

	if err := p.device.WaitIdle(); err != nil {
		return err
	}

	p.destroyCommandBuffers()
	p.destroyFramebuffers()

	old := p.swapchain
	oldImageCount := old.ImageCount
	old.DestroyImageViews(p.device)
	if old.DepthAttachment != nil {
		old.DepthAttachment.Destroy(p.device)
		old.DepthAttachment = nil
	}

	rebuilt, err := old.Rebuild(width, height)
	if err != nil {
		return err
	}
	// The old handle was only kept alive as the reuse hint.
	if old.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(p.device.LogicalDevice, old.Handle, p.device.allocator)
		old.Handle = vk.NullSwapchain
	}
	p.swapchain = rebuilt

	p.renderpass.W = float32(rebuilt.Extent.Width)
	p.renderpass.H = float32(rebuilt.Extent.Height)

	if err := p.createFramebuffers(); err != nil {
		return err
	}
	if err := p.createCommandBuffers(); err != nil {
		return err
	}
	if err := p.recordCommandBuffers(); err != nil {
		return err
	}

	// Sync objects are sized to the image count, so a changed count means
	// a fresh set. Otherwise only the image guards reset: the old fences
	// belong to retired work.
	if rebuilt.ImageCount != oldImageCount {
		p.destroySyncObjects()
		if err := p.createSyncObjects(); err != nil {
			return err
		}
	} else {
		for i := range p.imagesInFlight {
			p.imagesInFlight[i] = nil
		}
	}

	core.LogInfo("swapchain %s recreated at %dx%d", rebuilt.ID, rebuilt.Extent.Width, rebuilt.Extent.Height)
	return nil
}

func (p *Presenter) createFramebuffers() error {
	sc := p.swapchain
	p.framebuffers = make([]*VulkanFramebuffer, sc.ImageCount)
	for i := uint32(0); i < sc.ImageCount; i++ {
		attachments := []vk.ImageView{sc.Views[i]}
		if sc.DepthAttachment != nil {
			attachments = append(attachments, sc.DepthAttachment.View)
		}
		framebuffer, err := FramebufferCreate(p.device, p.renderpass, sc.Extent.Width, sc.Extent.Height, attachments)
		if err != nil {
			return err
		}
		p.framebuffers[i] = framebuffer
	}
	return nil
}

func (p *Presenter) destroyFramebuffers() {
	for _, framebuffer := range p.framebuffers {
		if framebuffer != nil {
			framebuffer.Destroy(p.device)
		}
	}
	p.framebuffers = nil
}

func (p *Presenter) createCommandBuffers() error {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: p.device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(p.device.LogicalDevice, &poolCreateInfo, p.device.allocator, &pool); res != vk.Success {
		err := resourceError("vkCreateCommandPool", res)
		core.LogError(err.Error())
		return err
	}
	p.commandPool = pool

	p.commandBuffers = make([]*VulkanCommandBuffer, p.swapchain.ImageCount)
	for i := range p.commandBuffers {
		commandBuffer, err := NewCommandBuffer(p.device, p.commandPool, true)
		if err != nil {
			return err
		}
		p.commandBuffers[i] = commandBuffer
	}
	return nil
}

func (p *Presenter) destroyCommandBuffers() {
	for _, commandBuffer := range p.commandBuffers {
		if commandBuffer != nil {
			commandBuffer.Free(p.device, p.commandPool)
		}
	}
	p.commandBuffers = nil
	if p.commandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(p.device.LogicalDevice, p.commandPool, p.device.allocator)
		p.commandPool = vk.NullCommandPool
	}
}

func (p *Presenter) recordCommandBuffers() error {
	if p.recorder == nil {
		return nil
	}
	for i, commandBuffer := range p.commandBuffers {
		if err := commandBuffer.Begin(false, false, false); err != nil {
			return err
		}
		if err := p.recorder(commandBuffer, p.framebuffers[i], uint32(i)); err != nil {
			return err
		}
		if err := commandBuffer.End(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Presenter) createSyncObjects() error {
	count := p.swapchain.ImageCount
	p.imageAvailable = make([]vk.Semaphore, count)
	p.renderFinished = make([]vk.Semaphore, count)
	p.inFlight = make([]*VulkanFence, count)
	p.imagesInFlight = make([]*VulkanFence, count)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := uint32(0); i < count; i++ {
		if res := vk.CreateSemaphore(p.device.LogicalDevice, &semaphoreCreateInfo, p.device.allocator, &p.imageAvailable[i]); res != vk.Success {
			err := resourceError("vkCreateSemaphore", res)
			core.LogError(err.Error())
			return err
		}
		if res := vk.CreateSemaphore(p.device.LogicalDevice, &semaphoreCreateInfo, p.device.allocator, &p.renderFinished[i]); res != vk.Success {
			err := resourceError("vkCreateSemaphore", res)
			core.LogError(err.Error())
			return err
		}
		// Created signaled so the first wait on a fresh slot passes.
		fence, err := NewFence(p.device, true)
		if err != nil {
			return err
		}
		p.inFlight[i] = fence
	}
	return nil
}

func (p *Presenter) destroySyncObjects() {
	for _, semaphore := range p.imageAvailable {
		if semaphore != vk.NullSemaphore {
			vk.DestroySemaphore(p.device.LogicalDevice, semaphore, p.device.allocator)
		}
	}
	for _, semaphore := range p.renderFinished {
		if semaphore != vk.NullSemaphore {
			vk.DestroySemaphore(p.device.LogicalDevice, semaphore, p.device.allocator)
		}
	}
	for _, fence := range p.inFlight {
		if fence != nil {
			fence.Destroy(p.device)
		}
	}
	p.imageAvailable = nil
	p.renderFinished = nil
	p.inFlight = nil
	p.imagesInFlight = nil
}

// Destroy tears the presenter down, swapchain included. The renderpass
// stays with its creator.
func (p *Presenter) Destroy() {
	if err := p.device.WaitIdle(); err != nil {
		core.LogWarn("device wait idle during presenter teardown: %v", err)
	}
	p.destroySyncObjects()
	p.destroyCommandBuffers()
	p.destroyFramebuffers()
	p.swapchain.Destroy(p.device)
}

type realPresenterOps struct {
	p *Presenter
}

func (o *realPresenterOps) waitForFence(fence *VulkanFence) bool {
	return fence.Wait(o.p.device, math.MaxUint64)
}

func (o *realPresenterOps) resetFence(fence *VulkanFence) error {
	return fence.Reset(o.p.device)
}

func (o *realPresenterOps) acquireNextImage(semaphore vk.Semaphore) (uint32, vk.Result) {
	var imageIndex uint32
	result := vk.AcquireNextImage(o.p.device.LogicalDevice, o.p.swapchain.Handle, math.MaxUint64, semaphore, vk.NullFence, &imageIndex)
	return imageIndex, result
}

func (o *realPresenterOps) submit(commandBuffer vk.CommandBuffer, waitSemaphore, signalSemaphore vk.Semaphore, fence vk.Fence) vk.Result {
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{waitSemaphore},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signalSemaphore},
	}
	return vk.QueueSubmit(o.p.device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence)
}

func (o *realPresenterOps) deviceWaitIdle() {
	vk.DeviceWaitIdle(o.p.device.LogicalDevice)
}

func (o *realPresenterOps) present(waitSemaphore vk.Semaphore, imageIndex uint32) vk.Result {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{waitSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{o.p.swapchain.Handle},
		PImageIndices:      []uint32{imageIndex},
		PResults:           nil,
	}
	return vk.QueuePresent(o.p.device.PresentQueue, &presentInfo)
}
