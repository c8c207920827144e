package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ignite/bootstrap/core"
	"github.com/spaghettifunk/ignite/bootstrap/platform"
)

// Instance wraps the created VkInstance together with the pieces that share
// its lifetime.
type Instance struct {
	Handle     vk.Instance
	APIVersion uint32
	Headless   bool

	debugMessenger vk.DebugReportCallback
	allocator      *vk.AllocationCallbacks
}

// InstanceBuilder assembles layers, extensions and application info, then
// creates the instance in one go.
type InstanceBuilder struct {
	loader *Loader

	appName       string
	engineName    string
	appVersion    uint32
	engineVersion uint32
	apiVersion    uint32

	layers     []string
	extensions []string

	requestValidation bool
	headless          bool
}

func NewInstanceBuilder(loader *Loader) *InstanceBuilder {
	return &InstanceBuilder{
		loader:        loader,
		appName:       "Ignite Application",
		engineName:    "Ignite",
		appVersion:    uint32(vk.MakeVersion(1, 0, 0)),
		engineVersion: uint32(vk.MakeVersion(1, 0, 0)),
		apiVersion:    uint32(vk.MakeVersion(1, 0, 0)),
	}
}

func (b *InstanceBuilder) SetAppName(name string) *InstanceBuilder {
	b.appName = name
	return b
}

func (b *InstanceBuilder) SetEngineName(name string) *InstanceBuilder {
	b.engineName = name
	return b
}

func (b *InstanceBuilder) SetAppVersion(major, minor, patch uint32) *InstanceBuilder {
	b.appVersion = major<<22 | minor<<12 | patch
	return b
}

func (b *InstanceBuilder) SetEngineVersion(major, minor, patch uint32) *InstanceBuilder {
	b.engineVersion = major<<22 | minor<<12 | patch
	return b
}

// RequireAPIVersion sets the instance API version to ask for. An unavailable
// version surfaces as an error from Build.
func (b *InstanceBuilder) RequireAPIVersion(major, minor, patch uint32) *InstanceBuilder {
	b.apiVersion = major<<22 | minor<<12 | patch
	return b
}

// EnableLayer adds a layer that must be present, unlike the best-effort
// validation request.
func (b *InstanceBuilder) EnableLayer(name string) *InstanceBuilder {
	b.layers = append(b.layers, name)
	return b
}

func (b *InstanceBuilder) EnableExtension(name string) *InstanceBuilder {
	b.extensions = append(b.extensions, name)
	return b
}

func (b *InstanceBuilder) EnableExtensions(names ...string) *InstanceBuilder {
	b.extensions = append(b.extensions, names...)
	return b
}

// RequestValidationLayers turns on the Khronos validation layer and the debug
// reporting callback when the runtime has them. Missing support downgrades to
// a warning instead of failing the build.
func (b *InstanceBuilder) RequestValidationLayers(request bool) *InstanceBuilder {
	b.requestValidation = request
	return b
}

// SetHeadless marks the instance as never presenting. Surface extensions are
// then not expected in the extension list.
func (b *InstanceBuilder) SetHeadless(headless bool) *InstanceBuilder {
	b.headless = headless
	return b
}

func (b *InstanceBuilder) Build() (*Instance, error) {
	if !b.loader.ok() {
		return nil, fmt.Errorf("instance builder needs an initialized loader")
	}

	systemInfo, err := QuerySystemInfo(b.loader)
	if err != nil {
		return nil, err
	}

	extensions := append([]string{}, b.extensions...)
	if !b.headless && !containsString(extensions, "VK_KHR_surface") {
		extensions = append(extensions, "VK_KHR_surface")
	}
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}

	layers := append([]string{}, b.layers...)

	validation := false
	if b.requestValidation {
		if systemInfo.ValidationLayersAvailable && systemInfo.DebugUtilsAvailable {
			validation = true
			if !containsString(layers, ValidationLayerName) {
				layers = append(layers, ValidationLayerName)
			}
			extensions = append(extensions, vk.ExtDebugUtilsExtensionName, vk.ExtDebugReportExtensionName)
			core.LogInfo("validation layers enabled")
		} else {
			core.LogWarn("validation layers requested but not available, continuing without")
		}
	}

	// Everything assembled so far has to exist, including the extensions the
	// windowing system asked for.
	if missing := missingNames(systemInfo.LayerNames, layers); len(missing) > 0 {
		return nil, fmt.Errorf("%w: instance layers %v", ErrUnsatisfiedRequirement, missing)
	}
	if missing := missingNames(systemInfo.ExtensionNames, extensions); len(missing) > 0 {
		return nil, fmt.Errorf("%w: instance extensions %v", ErrUnsatisfiedRequirement, missing)
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         b.apiVersion,
		ApplicationVersion: b.appVersion,
		EngineVersion:      b.engineVersion,
		PApplicationName:   VulkanSafeString(b.appName),
		PEngineName:        VulkanSafeString(b.engineName),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     VulkanSafeStrings(layers),
	}
	if runtime.GOOS == "darwin" {
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	instance := &Instance{
		APIVersion: b.apiVersion,
		Headless:   b.headless,
		allocator:  nil,
	}

	if res := vk.CreateInstance(&createInfo, instance.allocator, &instance.Handle); res != vk.Success {
		err := resourceError("vkCreateInstance", res)
		core.LogError(err.Error())
		return nil, err
	}
	if err := vk.InitInstance(instance.Handle); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	core.LogInfo("vulkan instance created")

	if validation {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
			PNext:       nil,
		}

		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(instance.Handle, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return nil, err
		}
		instance.debugMessenger = dbg
		core.LogDebug("vulkan debug callback created")
	}

	return instance, nil
}

// Destroy tears down the debug callback and the instance. Surfaces and
// devices created from it must already be gone.
func (i *Instance) Destroy() {
	if i.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(i.Handle, i.debugMessenger, i.allocator)
		i.debugMessenger = vk.NullDebugReportCallback
	}
	vk.DestroyInstance(i.Handle, i.allocator)
	core.LogDebug("vulkan instance destroyed")
}

func (i *Instance) DestroySurface(surface vk.Surface) {
	if surface != vk.NullSurface {
		vk.DestroySurface(i.Handle, surface, i.allocator)
	}
}

// CreateVulkanSurface asks the windowing layer for a presentable surface on
// this instance.
func CreateVulkanSurface(p *platform.Platform, instance *Instance) (vk.Surface, error) {
	surface, err := p.Window.CreateWindowSurface(instance.Handle, nil)
	if err != nil {
		return vk.NullSurface, fmt.Errorf("%w: window surface: %s", ErrResourceCreation, err)
	}
	return vk.SurfaceFromPointer(surface), nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint64, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("[PERF] [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
