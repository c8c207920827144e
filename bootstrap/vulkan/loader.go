package vulkan

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ignite/bootstrap/core"
)

// Loader proves the Vulkan entry points have been resolved. Builders take one
// instead of relying on a package-global "was init called" flag.
type Loader struct {
	initialized bool
}

// InitializeLoader resolves the loader entry points through GLFW and brings
// the bindings up. Call it once from the main thread, after glfw.Init.
func InitializeLoader() (*Loader, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, fmt.Errorf("%w: GLFW found no Vulkan loader", ErrCapabilityQuery)
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vulkan bindings: %s", err)
		return nil, err
	}

	return &Loader{initialized: true}, nil
}

func (l *Loader) ok() bool {
	return l != nil && l.initialized
}
