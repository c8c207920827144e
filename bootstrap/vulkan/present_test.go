package vulkan

import (
	"strings"
	"testing"

	vk "github.com/goki/vulkan"
)

type fakePresenterOps struct {
	waitResult    bool
	acquireIndex  uint32
	acquireResult vk.Result
	submitResult  vk.Result
	presentResult vk.Result

	waitedFences   []*VulkanFence
	presentedIndex uint32
	events         []string
}

func newFakeOps() *fakePresenterOps {
	return &fakePresenterOps{waitResult: true}
}

func (f *fakePresenterOps) waitForFence(fence *VulkanFence) bool {
	f.events = append(f.events, "wait")
	f.waitedFences = append(f.waitedFences, fence)
	return f.waitResult
}

func (f *fakePresenterOps) resetFence(fence *VulkanFence) error {
	f.events = append(f.events, "reset")
	return nil
}

func (f *fakePresenterOps) acquireNextImage(vk.Semaphore) (uint32, vk.Result) {
	f.events = append(f.events, "acquire")
	return f.acquireIndex, f.acquireResult
}

func (f *fakePresenterOps) submit(vk.CommandBuffer, vk.Semaphore, vk.Semaphore, vk.Fence) vk.Result {
	f.events = append(f.events, "submit")
	return f.submitResult
}

func (f *fakePresenterOps) deviceWaitIdle() {
	f.events = append(f.events, "idle")
}

func (f *fakePresenterOps) present(_ vk.Semaphore, imageIndex uint32) vk.Result {
	f.events = append(f.events, "present")
	f.presentedIndex = imageIndex
	return f.presentResult
}

func (f *fakePresenterOps) count(event string) int {
	n := 0
	for _, e := range f.events {
		if e == event {
			n++
		}
	}
	return n
}

// testPresenter builds a presenter wired to fakes, bypassing the driver.
func testPresenter(imageCount uint32) (*Presenter, *fakePresenterOps, *int) {
	ops := newFakeOps()
	p := &Presenter{
		swapchain:      &Swapchain{ImageCount: imageCount},
		imageAvailable: make([]vk.Semaphore, imageCount),
		renderFinished: make([]vk.Semaphore, imageCount),
		inFlight:       make([]*VulkanFence, imageCount),
		imagesInFlight: make([]*VulkanFence, imageCount),
		commandBuffers: make([]*VulkanCommandBuffer, imageCount),
		pendingWidth:   800,
		pendingHeight:  600,
	}
	for i := range p.inFlight {
		p.inFlight[i] = &VulkanFence{IsSignaled: true}
		p.commandBuffers[i] = &VulkanCommandBuffer{State: COMMAND_BUFFER_STATE_RECORDING_ENDED}
	}
	p.ops = ops

	rebuilds := 0
	p.rebuild = func() error {
		rebuilds++
		return nil
	}
	return p, ops, &rebuilds
}

func TestDrawFrameAdvancesFrameSlot(t *testing.T) {
	p, ops, rebuilds := testPresenter(3)
	ops.acquireIndex = 1

	if err := p.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}

	if p.swapchain.CurrentFrame != 1 {
		t.Errorf("CurrentFrame = %d, want 1", p.swapchain.CurrentFrame)
	}
	if got := strings.Join(ops.events, " "); got != "wait acquire reset submit idle present" {
		t.Errorf("event order = %q", got)
	}
	if ops.presentedIndex != 1 {
		t.Errorf("presented image %d, want the acquired image 1", ops.presentedIndex)
	}
	if p.imagesInFlight[1] != p.inFlight[0] {
		t.Error("acquired image is not guarded by the submitting frame's fence")
	}
	if p.commandBuffers[1].State != COMMAND_BUFFER_STATE_SUBMITTED {
		t.Errorf("command buffer state = %d, want submitted", p.commandBuffers[1].State)
	}
	if *rebuilds != 0 {
		t.Errorf("rebuilds = %d, want 0", *rebuilds)
	}
}

func TestDrawFrameWrapsFrameSlot(t *testing.T) {
	p, _, _ := testPresenter(3)
	p.swapchain.CurrentFrame = 2

	if err := p.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	if p.swapchain.CurrentFrame != 0 {
		t.Errorf("CurrentFrame = %d, want wrap to 0", p.swapchain.CurrentFrame)
	}
}

func TestDrawFrameAcquireOutOfDateRebuilds(t *testing.T) {
	p, ops, rebuilds := testPresenter(2)
	ops.acquireResult = vk.ErrorOutOfDate

	if err := p.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}

	if *rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", *rebuilds)
	}
	if ops.count("submit") != 0 || ops.count("present") != 0 {
		t.Errorf("submitted or presented after a stale acquire: %v", ops.events)
	}
	if p.swapchain.CurrentFrame != 0 {
		t.Errorf("CurrentFrame = %d, want no advance", p.swapchain.CurrentFrame)
	}
}

func TestDrawFrameAcquireSuboptimalStillDraws(t *testing.T) {
	p, ops, rebuilds := testPresenter(2)
	ops.acquireResult = vk.Suboptimal

	if err := p.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	if ops.count("submit") != 1 || ops.count("present") != 1 {
		t.Errorf("suboptimal acquire should draw normally: %v", ops.events)
	}
	if *rebuilds != 0 {
		t.Errorf("rebuilds = %d, want 0", *rebuilds)
	}
	if p.swapchain.CurrentFrame != 1 {
		t.Errorf("CurrentFrame = %d, want 1", p.swapchain.CurrentFrame)
	}
}

func TestDrawFrameAcquireHardFailureDropsFrame(t *testing.T) {
	p, ops, rebuilds := testPresenter(2)
	ops.acquireResult = vk.ErrorDeviceLost

	if err := p.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v, fatal failures stay internal", err)
	}

	if ops.count("submit") != 0 || ops.count("present") != 0 {
		t.Errorf("submitted or presented after a failed acquire: %v", ops.events)
	}
	if *rebuilds != 0 {
		t.Errorf("rebuilds = %d, want 0", *rebuilds)
	}
	if p.swapchain.CurrentFrame != 0 {
		t.Errorf("CurrentFrame = %d, want no advance", p.swapchain.CurrentFrame)
	}
}

func TestDrawFrameWaitsForImageStillInFlight(t *testing.T) {
	p, ops, _ := testPresenter(2)
	guard := &VulkanFence{IsSignaled: true}
	ops.acquireIndex = 0
	p.imagesInFlight[0] = guard

	if err := p.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}

	if len(ops.waitedFences) != 2 {
		t.Fatalf("fence waits = %d, want slot fence plus image guard", len(ops.waitedFences))
	}
	if ops.waitedFences[0] != p.inFlight[0] || ops.waitedFences[1] != guard {
		t.Error("waited on the wrong fences")
	}
	if p.imagesInFlight[0] != p.inFlight[0] {
		t.Error("image guard not replaced by the current frame's fence")
	}
}

func TestDrawFrameSkipsImageWaitWhenUnguarded(t *testing.T) {
	p, ops, _ := testPresenter(2)

	if err := p.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	if len(ops.waitedFences) != 1 {
		t.Errorf("fence waits = %d, want only the slot fence", len(ops.waitedFences))
	}
}

func TestDrawFrameInFlightWaitFailureDropsFrame(t *testing.T) {
	p, ops, _ := testPresenter(2)
	ops.waitResult = false

	if err := p.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	if ops.count("acquire") != 0 {
		t.Errorf("acquired after a failed slot wait: %v", ops.events)
	}
	if p.swapchain.CurrentFrame != 0 {
		t.Errorf("CurrentFrame = %d, want no advance", p.swapchain.CurrentFrame)
	}
}

func TestDrawFrameSubmitFailureDropsFrame(t *testing.T) {
	p, ops, rebuilds := testPresenter(2)
	ops.submitResult = vk.ErrorDeviceLost

	if err := p.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v, fatal failures stay internal", err)
	}

	if ops.count("present") != 0 {
		t.Errorf("presented after a failed submit: %v", ops.events)
	}
	if p.commandBuffers[0].State == COMMAND_BUFFER_STATE_SUBMITTED {
		t.Error("command buffer marked submitted after a failed submit")
	}
	if *rebuilds != 0 {
		t.Errorf("rebuilds = %d, want 0", *rebuilds)
	}
	if p.swapchain.CurrentFrame != 0 {
		t.Errorf("CurrentFrame = %d, want no advance", p.swapchain.CurrentFrame)
	}
}

func TestDrawFramePresentOutOfDateRebuilds(t *testing.T) {
	p, ops, rebuilds := testPresenter(2)
	ops.presentResult = vk.ErrorOutOfDate

	if err := p.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	if *rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", *rebuilds)
	}
	if ops.count("submit") != 1 {
		t.Errorf("submits = %d, the frame was already submitted", ops.count("submit"))
	}
	if p.swapchain.CurrentFrame != 0 {
		t.Errorf("CurrentFrame = %d, want no advance", p.swapchain.CurrentFrame)
	}
}

func TestDrawFramePresentSuboptimalRebuilds(t *testing.T) {
	p, ops, rebuilds := testPresenter(2)
	ops.presentResult = vk.Suboptimal

	if err := p.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v", err)
	}
	if *rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", *rebuilds)
	}
	if p.swapchain.CurrentFrame != 0 {
		t.Errorf("CurrentFrame = %d, want no advance", p.swapchain.CurrentFrame)
	}
}

func TestDrawFramePresentHardFailureDropsFrame(t *testing.T) {
	p, ops, rebuilds := testPresenter(2)
	ops.presentResult = vk.ErrorDeviceLost

	if err := p.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame() error = %v, fatal failures stay internal", err)
	}
	if *rebuilds != 0 {
		t.Errorf("rebuilds = %d, want 0", *rebuilds)
	}
	if ops.count("present") != 1 {
		t.Errorf("presents = %d, want 1", ops.count("present"))
	}
	if p.swapchain.CurrentFrame != 0 {
		t.Errorf("CurrentFrame = %d, want no advance", p.swapchain.CurrentFrame)
	}
}

func TestRecreateSwapchainDefersOnZeroArea(t *testing.T) {
	// No device attached: if the zero-area boot-out is missing the call
	// below panics instead of deferring.
	p := &Presenter{
		swapchain:     &Swapchain{ImageCount: 2},
		pendingWidth:  0,
		pendingHeight: 600,
	}

	if err := p.recreateSwapchain(); err != nil {
		t.Fatalf("recreateSwapchain() error = %v", err)
	}
}

func TestNotifyResizeStoresPendingExtent(t *testing.T) {
	p, _, _ := testPresenter(2)
	p.NotifyResize(1024, 768)

	if p.pendingWidth != 1024 || p.pendingHeight != 768 {
		t.Errorf("pending extent = %dx%d, want 1024x768", p.pendingWidth, p.pendingHeight)
	}
}
