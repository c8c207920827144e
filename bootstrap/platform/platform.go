package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/ignite/bootstrap/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window

	resizeHandler func(width, height uint32)
}

func New() *Platform {
	return &Platform{}
}

func (p *Platform) Startup(applicationName string, x, y uint32, width, height uint32, resizable bool) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw")
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	if resizable {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Resizable, glfw.False)
	}
	// no OpenGL context, the surface comes from Vulkan
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	w, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		return err
	}
	p.Window = w

	p.Window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})
	p.Window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		if p.resizeHandler != nil {
			p.resizeHandler(uint32(width), uint32(height))
		}
	})

	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	return nil
}

// SetResizeHandler registers the callback invoked on framebuffer size changes.
func (p *Platform) SetResizeHandler(handler func(width, height uint32)) {
	p.resizeHandler = handler
}

func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

// WaitEvents blocks until at least one event arrives. Used while the window
// is minimized and there is nothing to draw.
func (p *Platform) WaitEvents() {
	glfw.WaitEvents()
}

// PostEmptyEvent wakes a WaitEvents call. Callable from any goroutine.
func (p *Platform) PostEmptyEvent() {
	glfw.PostEmptyEvent()
}

func (p *Platform) ShouldClose() bool {
	return p.Window.ShouldClose()
}

func (p *Platform) GetFramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

// SetTitle replaces the window title. Main thread only.
func (p *Platform) SetTitle(title string) {
	p.Window.SetTitle(title)
}

// GetRequiredInstanceExtensions reports the instance extensions the windowing
// system needs for surface creation.
func (p *Platform) GetRequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) Shutdown() {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
}
