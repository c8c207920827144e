package demo

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ignite/bootstrap/assets"
	"github.com/spaghettifunk/ignite/bootstrap/config"
	"github.com/spaghettifunk/ignite/bootstrap/core"
	"github.com/spaghettifunk/ignite/bootstrap/platform"
	"github.com/spaghettifunk/ignite/bootstrap/vulkan"
)

const (
	vertexShaderName   = "triangle.vert.spv"
	fragmentShaderName = "triangle.frag.spv"
)

// Demo drives the whole bootstrap chain end to end: instance, surface,
// device selection, swapchain and presentation loop, drawing a single
// triangle. Shader edits under the configured directory rebuild the
// pipeline while the loop keeps running.
type Demo struct {
	config   *config.Config
	platform *platform.Platform

	loader   *vulkan.Loader
	instance *vulkan.Instance
	surface  vk.Surface
	device   *vulkan.Device

	renderpass *vulkan.VulkanRenderpass
	presenter  *vulkan.Presenter

	shaderManager *assets.ShaderManager
	vertStage     *vulkan.VulkanShaderStage
	fragStage     *vulkan.VulkanShaderStage
	pipeline      *vulkan.VulkanPipeline

	clock    core.Clock
	lastTime float64

	isRunning   bool
	isSuspended bool
	width       uint32
	height      uint32

	// reload carries at most one pending shader-change notification from
	// the watcher goroutine to the frame loop.
	reload chan struct{}
}

func New(configPath string) (*Demo, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if level, err := core.ParseLogLevel(cfg.Log.Level); err == nil {
		core.SetLogLevel(level)
	} else {
		core.LogWarn("unknown log level %q, keeping the default", cfg.Log.Level)
	}

	return &Demo{
		config:    cfg,
		platform:  platform.New(),
		reload:    make(chan struct{}, 1),
		isRunning: true,
		width:     cfg.Window.Width,
		height:    cfg.Window.Height,
	}, nil
}

// Initialize opens the window and walks the chain in dependency order:
// loader, instance, surface, physical device, logical device, swapchain,
// renderpass, pipeline, presenter.
func (d *Demo) Initialize() error {
	cfg := d.config

	if err := d.platform.Startup(cfg.Window.Title,
		cfg.Window.PosX, cfg.Window.PosY,
		cfg.Window.Width, cfg.Window.Height,
		cfg.Window.Resizable); err != nil {
		return err
	}

	loader, err := vulkan.InitializeLoader()
	if err != nil {
		return err
	}
	d.loader = loader

	instance, err := vulkan.NewInstanceBuilder(loader).
		SetAppName(cfg.Window.Title).
		SetEngineName("Ignite").
		RequestValidationLayers(cfg.Renderer.Validation).
		EnableExtensions(d.platform.GetRequiredInstanceExtensions()...).
		Build()
	if err != nil {
		return err
	}
	d.instance = instance

	surface, err := vulkan.CreateVulkanSurface(d.platform, instance)
	if err != nil {
		return err
	}
	d.surface = surface

	physicalDevice, err := vulkan.NewPhysicalDeviceSelector(instance).
		SetSurface(surface).
		PreferDeviceType(preferredDeviceType(cfg.Renderer.Device.PreferredType)).
		AllowAnyDeviceType(cfg.Renderer.Device.AllowAnyType).
		SetRequiredFeatures(vk.PhysicalDeviceFeatures{SamplerAnisotropy: vk.True}).
		Select()
	if err != nil {
		return err
	}

	device, err := vulkan.NewDeviceBuilder(physicalDevice).Build()
	if err != nil {
		return err
	}
	d.device = device

	swapchainBuilder := vulkan.NewSwapchainBuilder(device).
		SetDesiredExtent(d.width, d.height).
		EnableDepthAttachment()
	if cfg.Renderer.Swapchain.VSync {
		swapchainBuilder.AddDesiredPresentMode(vk.PresentModeFifo)
	}
	swapchain, err := swapchainBuilder.Build()
	if err != nil {
		return err
	}

	renderpass, err := vulkan.RenderpassCreate(device,
		swapchain.ImageFormat.Format, device.DepthFormat,
		0, 0, float32(swapchain.Extent.Width), float32(swapchain.Extent.Height),
		0.0, 0.0, 0.2, 1.0,
		1.0, 0)
	if err != nil {
		return err
	}
	d.renderpass = renderpass

	shaderManager, err := assets.NewShaderManager(cfg.Renderer.ShaderDir)
	if err != nil {
		return err
	}
	d.shaderManager = shaderManager

	if err := d.createPipeline(); err != nil {
		return err
	}

	presenter, err := vulkan.NewPresenter(device, swapchain, renderpass, d.recordFrame)
	if err != nil {
		return err
	}
	d.presenter = presenter

	d.platform.SetResizeHandler(d.onResize)

	if err := d.shaderManager.Initialize(d.onShaderChange); err != nil {
		return err
	}

	core.LogInfo("demo initialized on device '%s'", physicalDevice.Name)
	return nil
}

// Run pumps window events and draws until the window closes or a shutdown
// is requested. A minimized window parks the loop on the event queue.
func (d *Demo) Run() error {
	core.MetricsInitialize()

	d.clock.Start()
	d.clock.Update()
	d.lastTime = d.clock.Elapsed()

	frameCount := 0
	for d.isRunning && !d.platform.ShouldClose() {
		d.platform.PumpMessages()

		if d.isSuspended {
			d.platform.WaitEvents()
			continue
		}

		select {
		case <-d.reload:
			if err := d.reloadPipeline(); err != nil {
				core.LogError("shader reload failed, keeping previous pipeline: %v", err)
			}
		default:
		}

		d.clock.Update()
		currentTime := d.clock.Elapsed()
		delta := currentTime - d.lastTime

		if err := d.presenter.DrawFrame(); err != nil {
			return err
		}

		core.MetricsUpdate(delta)
		frameCount++
		if frameCount%120 == 0 {
			d.platform.SetTitle(fmt.Sprintf("%s  |  %.1f fps (%.2f ms)",
				d.config.Window.Title, core.MetricsFPS(), core.MetricsFrameTime()))
		}

		d.lastTime = currentTime
	}

	return nil
}

// RequestShutdown stops the frame loop. Safe to call from another
// goroutine, e.g. a signal handler.
func (d *Demo) RequestShutdown() {
	d.isRunning = false
	// Wake the loop if it is parked on WaitEvents.
	d.platform.PostEmptyEvent()
}

// Shutdown destroys everything in reverse creation order. Must run on the
// thread that called Initialize.
func (d *Demo) Shutdown() error {
	core.LogInfo("shutting down...")
	d.isRunning = false

	if d.shaderManager != nil {
		if err := d.shaderManager.Close(); err != nil {
			core.LogWarn("closing shader watcher: %v", err)
		}
	}

	if d.presenter != nil {
		d.presenter.Destroy()
		d.presenter = nil
	}
	if d.pipeline != nil {
		d.pipeline.Destroy(d.device)
		d.pipeline = nil
	}
	if d.vertStage != nil {
		d.vertStage.Destroy(d.device)
		d.vertStage = nil
	}
	if d.fragStage != nil {
		d.fragStage.Destroy(d.device)
		d.fragStage = nil
	}
	if d.renderpass != nil {
		d.renderpass.Destroy(d.device)
		d.renderpass = nil
	}
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
	}
	if d.instance != nil {
		d.instance.DestroySurface(d.surface)
		d.surface = vk.NullSurface
		d.instance.Destroy()
		d.instance = nil
	}

	d.platform.Shutdown()
	return nil
}

// recordFrame records the triangle for one swapchain image. Viewport and
// scissor are dynamic, so re-recording after a resize picks the new extent
// up from the renderpass dimensions.
func (d *Demo) recordFrame(commandBuffer *vulkan.VulkanCommandBuffer, framebuffer *vulkan.VulkanFramebuffer, imageIndex uint32) error {
	rp := d.renderpass
	rp.Begin(commandBuffer, framebuffer.Handle)

	viewport := vk.Viewport{
		X: 0, Y: 0,
		Width:    rp.W,
		Height:   rp.H,
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})

	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: uint32(rp.W), Height: uint32(rp.H)},
	}
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})

	d.pipeline.Bind(commandBuffer, vk.PipelineBindPointGraphics)
	// The vertex shader generates the three vertices itself.
	vk.CmdDraw(commandBuffer.Handle, 3, 1, 0, 0)

	rp.End(commandBuffer)
	return nil
}

// createPipeline loads the SPIR-V blobs and builds the shader stages and
// the graphics pipeline. On success the new objects replace the fields;
// on failure the fields keep whatever they held.
func (d *Demo) createPipeline() error {
	vertBlob, err := d.shaderManager.LoadShader(vertexShaderName)
	if err != nil {
		return err
	}
	fragBlob, err := d.shaderManager.LoadShader(fragmentShaderName)
	if err != nil {
		return err
	}

	vertStage, err := vulkan.NewShaderStage(d.device, vertBlob.Words, uint32(len(vertBlob.Data)), vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	fragStage, err := vulkan.NewShaderStage(d.device, fragBlob.Words, uint32(len(fragBlob.Data)), vk.ShaderStageFragmentBit)
	if err != nil {
		vertStage.Destroy(d.device)
		return err
	}

	pipeline, err := vulkan.NewGraphicsPipeline(d.device, &vulkan.VulkanPipelineConfig{
		Renderpass: d.renderpass,
		Stages: []vk.PipelineShaderStageCreateInfo{
			vertStage.ShaderStageCreateInfo,
			fragStage.ShaderStageCreateInfo,
		},
		Viewport: vk.Viewport{
			X: 0, Y: 0,
			Width:    d.renderpass.W,
			Height:   d.renderpass.H,
			MinDepth: 0,
			MaxDepth: 1,
		},
		Scissor: vk.Rect2D{
			Extent: vk.Extent2D{Width: uint32(d.renderpass.W), Height: uint32(d.renderpass.H)},
		},
		CullMode:   vk.CullModeBackBit,
		DepthTest:  true,
		DepthWrite: true,
	})
	if err != nil {
		vertStage.Destroy(d.device)
		fragStage.Destroy(d.device)
		return err
	}

	d.vertStage = vertStage
	d.fragStage = fragStage
	d.pipeline = pipeline
	return nil
}

// reloadPipeline swaps the pipeline for one built from the current shader
// files and re-records the command buffers. A failed build leaves the old
// pipeline drawing.
func (d *Demo) reloadPipeline() error {
	core.LogInfo("shader change detected, rebuilding pipeline")

	oldPipeline, oldVert, oldFrag := d.pipeline, d.vertStage, d.fragStage
	if err := d.createPipeline(); err != nil {
		return err
	}

	// The old pipeline may still be referenced by submitted work.
	if err := d.device.WaitIdle(); err != nil {
		return err
	}
	oldPipeline.Destroy(d.device)
	oldVert.Destroy(d.device)
	oldFrag.Destroy(d.device)

	return d.presenter.RecordCommandBuffers(nil)
}

// onShaderChange runs on the watcher goroutine. It only nudges the frame
// loop; the actual rebuild happens between frames.
func (d *Demo) onShaderChange(path string) {
	core.LogDebug("shader file changed: %s", path)
	select {
	case d.reload <- struct{}{}:
	default:
	}
}

func (d *Demo) onResize(width, height uint32) {
	d.width, d.height = width, height
	d.presenter.NotifyResize(width, height)

	if width == 0 || height == 0 {
		core.LogInfo("window minimized, suspending rendering")
		d.isSuspended = true
		return
	}
	if d.isSuspended {
		core.LogInfo("window restored, resuming rendering")
		d.isSuspended = false
	}
}

func preferredDeviceType(name string) vk.PhysicalDeviceType {
	switch name {
	case "integrated":
		return vk.PhysicalDeviceTypeIntegratedGpu
	case "virtual":
		return vk.PhysicalDeviceTypeVirtualGpu
	case "cpu":
		return vk.PhysicalDeviceTypeCpu
	default:
		return vk.PhysicalDeviceTypeDiscreteGpu
	}
}
