package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestOptionalUnsetUsesFallback(t *testing.T) {
	var extent Optional[vk.Extent2D]

	if extent.IsSet() {
		t.Error("zero value reports set")
	}
	fallback := vk.Extent2D{Width: 256, Height: 256}
	if got := extent.GetOr(fallback); got != fallback {
		t.Errorf("GetOr() = %+v, want the fallback", got)
	}
}

func TestOptionalSetValueWins(t *testing.T) {
	clipped := NewOptional(false)

	if !clipped.IsSet() {
		t.Error("NewOptional value reports unset")
	}
	// An explicitly stored zero value must shadow the fallback.
	if clipped.GetOr(true) {
		t.Error("GetOr() returned the fallback despite a stored value")
	}
	if value, ok := clipped.Get(); !ok || value {
		t.Errorf("Get() = %v, %v, want the stored false", value, ok)
	}
}
