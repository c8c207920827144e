package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
)

func TestChooseSurfaceFormat(t *testing.T) {
	available := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}

	tests := []struct {
		name    string
		desired []vk.SurfaceFormat
		want    vk.SurfaceFormat
	}{
		{
			name: "first desired pair that is supported wins",
			desired: []vk.SurfaceFormat{
				{Format: vk.FormatR8g8b8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
				{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			},
			want: available[1],
		},
		{
			name:    "no desired list falls back to first available",
			desired: nil,
			want:    available[0],
		},
		{
			name: "no match falls back to first available",
			desired: []vk.SurfaceFormat{
				{Format: vk.FormatR5g6b5UnormPack16, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			},
			want: available[0],
		},
		{
			name: "format match with wrong color space does not count",
			desired: []vk.SurfaceFormat{
				{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceAdobergbLinear},
			},
			want: available[0],
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chooseSurfaceFormat(available, tt.desired)
			if got != tt.want {
				t.Errorf("chooseSurfaceFormat() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	tests := []struct {
		name      string
		available []vk.PresentMode
		desired   []vk.PresentMode
		want      vk.PresentMode
	}{
		{
			name:      "first desired mode that is supported wins",
			available: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
			desired:   []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox},
			want:      vk.PresentModeMailbox,
		},
		{
			name:      "unsupported desires fall back to fifo",
			available: []vk.PresentMode{vk.PresentModeFifo},
			desired:   []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox},
			want:      vk.PresentModeFifo,
		},
		{
			name:      "empty desired list falls back to fifo",
			available: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate},
			desired:   nil,
			want:      vk.PresentModeFifo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := choosePresentMode(tt.available, tt.desired)
			if got != tt.want {
				t.Errorf("choosePresentMode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChooseExtent(t *testing.T) {
	anySentinel := vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}

	tests := []struct {
		name         string
		capabilities vk.SurfaceCapabilities
		desired      vk.Extent2D
		want         vk.Extent2D
	}{
		{
			name: "fixed surface extent wins over the desired one",
			capabilities: vk.SurfaceCapabilities{
				CurrentExtent:  vk.Extent2D{Width: 1920, Height: 1080},
				MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
				MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
			},
			desired: vk.Extent2D{Width: 800, Height: 600},
			want:    vk.Extent2D{Width: 1920, Height: 1080},
		},
		{
			name: "any-extent sentinel keeps the desired size",
			capabilities: vk.SurfaceCapabilities{
				CurrentExtent:  anySentinel,
				MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
				MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
			},
			desired: vk.Extent2D{Width: 800, Height: 600},
			want:    vk.Extent2D{Width: 800, Height: 600},
		},
		{
			name: "desired size clamps to the surface maximum",
			capabilities: vk.SurfaceCapabilities{
				CurrentExtent:  anySentinel,
				MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
				MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
			},
			desired: vk.Extent2D{Width: 10000, Height: 10000},
			want:    vk.Extent2D{Width: 4096, Height: 4096},
		},
		{
			name: "desired size clamps to the surface minimum",
			capabilities: vk.SurfaceCapabilities{
				CurrentExtent:  anySentinel,
				MinImageExtent: vk.Extent2D{Width: 64, Height: 64},
				MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
			},
			desired: vk.Extent2D{Width: 16, Height: 16},
			want:    vk.Extent2D{Width: 64, Height: 64},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chooseExtent(tt.capabilities, tt.desired)
			if got != tt.want {
				t.Errorf("chooseExtent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		name         string
		capabilities vk.SurfaceCapabilities
		want         uint32
	}{
		{
			name:         "one above the minimum",
			capabilities: vk.SurfaceCapabilities{MinImageCount: 2},
			want:         3,
		},
		{
			name:         "clamped by a nonzero maximum",
			capabilities: vk.SurfaceCapabilities{MinImageCount: 3, MaxImageCount: 3},
			want:         3,
		},
		{
			name:         "zero maximum means unlimited",
			capabilities: vk.SurfaceCapabilities{MinImageCount: 8, MaxImageCount: 0},
			want:         9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chooseImageCount(tt.capabilities); got != tt.want {
				t.Errorf("chooseImageCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChooseArrayLayers(t *testing.T) {
	capabilities := vk.SurfaceCapabilities{MaxImageArrayLayers: 2}

	tests := []struct {
		name      string
		requested uint32
		want      uint32
	}{
		{name: "zero becomes one", requested: 0, want: 1},
		{name: "in range untouched", requested: 2, want: 2},
		{name: "above max clamps down", requested: 5, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chooseArrayLayers(capabilities, tt.requested); got != tt.want {
				t.Errorf("chooseArrayLayers(%d) = %d, want %d", tt.requested, got, tt.want)
			}
		})
	}
}

func TestDestroyImageViewsIsIdempotent(t *testing.T) {
	// Null views never touch the device, so the lifecycle bookkeeping can
	// run without one. A rebuild allocates a fresh slice sized to the new
	// image count, so clearing here is what prevents handle accumulation.
	s := &Swapchain{Views: make([]vk.ImageView, 3)}

	s.DestroyImageViews(nil)
	if s.Views != nil {
		t.Errorf("views after destroy = %v, want nil", s.Views)
	}

	// A second destroy must be a no-op, not a double free.
	s.DestroyImageViews(nil)
	if s.Views != nil {
		t.Error("second destroy resurrected the view slice")
	}
}

func TestDefaultSurfaceFormatsPreferSrgb(t *testing.T) {
	formats := defaultSurfaceFormats()
	if len(formats) == 0 {
		t.Fatal("no default surface formats")
	}
	if formats[0].Format != vk.FormatB8g8r8a8Srgb || formats[0].ColorSpace != vk.ColorSpaceSrgbNonlinear {
		t.Errorf("first default format = %+v, want B8G8R8A8 sRGB nonlinear", formats[0])
	}
}

func TestDefaultPresentModesPreferMailbox(t *testing.T) {
	modes := defaultPresentModes()
	if len(modes) < 2 || modes[0] != vk.PresentModeMailbox || modes[1] != vk.PresentModeFifo {
		t.Errorf("default present modes = %v, want mailbox then fifo", modes)
	}
}
