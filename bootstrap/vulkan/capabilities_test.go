package vulkan

import (
	"testing"
)

func TestSystemInfoLookups(t *testing.T) {
	info := &SystemInfo{
		LayerNames:     []string{"VK_LAYER_KHRONOS_validation", "VK_LAYER_MESA_overlay"},
		ExtensionNames: []string{"VK_KHR_surface", "VK_EXT_debug_utils"},
	}

	if !info.IsLayerAvailable("VK_LAYER_MESA_overlay") {
		t.Error("known layer reported unavailable")
	}
	if info.IsLayerAvailable("VK_LAYER_MISSING") {
		t.Error("unknown layer reported available")
	}
	if !info.IsExtensionAvailable("VK_KHR_surface") {
		t.Error("known extension reported unavailable")
	}
	if info.IsExtensionAvailable("VK_KHR_missing") {
		t.Error("unknown extension reported available")
	}
}

func TestContainsStringExactMatch(t *testing.T) {
	list := []string{"VK_KHR_swapchain", "VK_KHR_surface"}

	if !containsString(list, "VK_KHR_swapchain") {
		t.Error("exact match not found")
	}
	// Prefixes must not count, extension names match whole.
	if containsString(list, "VK_KHR_swap") {
		t.Error("prefix treated as a match")
	}
	if containsString(nil, "VK_KHR_surface") {
		t.Error("match in an empty list")
	}
}
