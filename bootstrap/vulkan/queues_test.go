package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"
)

func family(flags vk.QueueFlagBits) vk.QueueFamilyProperties {
	return vk.QueueFamilyProperties{
		QueueFlags: vk.QueueFlags(flags),
		QueueCount: 1,
	}
}

func TestQueueFamilyGraphicsIndex(t *testing.T) {
	tests := []struct {
		name     string
		families []vk.QueueFamilyProperties
		want     uint32
	}{
		{
			name: "first graphics family wins",
			families: []vk.QueueFamilyProperties{
				family(vk.QueueComputeBit),
				family(vk.QueueGraphicsBit | vk.QueueComputeBit),
				family(vk.QueueGraphicsBit),
			},
			want: 1,
		},
		{
			name: "no graphics family",
			families: []vk.QueueFamilyProperties{
				family(vk.QueueComputeBit),
				family(vk.QueueTransferBit),
			},
			want: QueueIndexMaxValue,
		},
		{
			name:     "empty family list",
			families: nil,
			want:     QueueIndexMaxValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QueueFamilyGraphicsIndex(tt.families); got != tt.want {
				t.Errorf("QueueFamilyGraphicsIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueueFamilyDedicatedComputeIndex(t *testing.T) {
	tests := []struct {
		name     string
		families []vk.QueueFamilyProperties
		want     uint32
	}{
		{
			name: "compute-only family beats the do-everything family",
			families: []vk.QueueFamilyProperties{
				family(vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit),
				family(vk.QueueComputeBit),
			},
			want: 1,
		},
		{
			name: "compute with transfer is not dedicated",
			families: []vk.QueueFamilyProperties{
				family(vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit),
				family(vk.QueueComputeBit | vk.QueueTransferBit),
			},
			want: QueueIndexMaxValue,
		},
		{
			name: "first of several dedicated families",
			families: []vk.QueueFamilyProperties{
				family(vk.QueueGraphicsBit),
				family(vk.QueueComputeBit),
				family(vk.QueueComputeBit),
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QueueFamilyDedicatedComputeIndex(tt.families); got != tt.want {
				t.Errorf("QueueFamilyDedicatedComputeIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueueFamilyDedicatedTransferIndex(t *testing.T) {
	tests := []struct {
		name     string
		families []vk.QueueFamilyProperties
		want     uint32
	}{
		{
			name: "transfer-only family",
			families: []vk.QueueFamilyProperties{
				family(vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit),
				family(vk.QueueComputeBit | vk.QueueTransferBit),
				family(vk.QueueTransferBit),
			},
			want: 2,
		},
		{
			name: "transfer with compute is not dedicated",
			families: []vk.QueueFamilyProperties{
				family(vk.QueueGraphicsBit | vk.QueueTransferBit),
				family(vk.QueueComputeBit | vk.QueueTransferBit),
			},
			want: QueueIndexMaxValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QueueFamilyDedicatedTransferIndex(tt.families); got != tt.want {
				t.Errorf("QueueFamilyDedicatedTransferIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueueFamilySeparateComputeIndex(t *testing.T) {
	tests := []struct {
		name     string
		families []vk.QueueFamilyProperties
		want     uint32
	}{
		{
			name: "transfer-free compute family short-circuits",
			families: []vk.QueueFamilyProperties{
				family(vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit),
				family(vk.QueueComputeBit | vk.QueueTransferBit),
				family(vk.QueueComputeBit),
				family(vk.QueueComputeBit | vk.QueueTransferBit),
			},
			want: 2,
		},
		{
			name: "last compute-with-transfer family stands when no better",
			families: []vk.QueueFamilyProperties{
				family(vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit),
				family(vk.QueueComputeBit | vk.QueueTransferBit),
				family(vk.QueueComputeBit | vk.QueueTransferBit),
			},
			want: 2,
		},
		{
			name: "graphics families never qualify",
			families: []vk.QueueFamilyProperties{
				family(vk.QueueGraphicsBit | vk.QueueComputeBit),
			},
			want: QueueIndexMaxValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QueueFamilySeparateComputeIndex(tt.families); got != tt.want {
				t.Errorf("QueueFamilySeparateComputeIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueueFamilySeparateTransferIndex(t *testing.T) {
	tests := []struct {
		name     string
		families []vk.QueueFamilyProperties
		want     uint32
	}{
		{
			name: "compute-free transfer family short-circuits",
			families: []vk.QueueFamilyProperties{
				family(vk.QueueGraphicsBit | vk.QueueTransferBit),
				family(vk.QueueComputeBit | vk.QueueTransferBit),
				family(vk.QueueTransferBit),
			},
			want: 2,
		},
		{
			name: "last transfer-with-compute family stands when no better",
			families: []vk.QueueFamilyProperties{
				family(vk.QueueGraphicsBit | vk.QueueTransferBit),
				family(vk.QueueComputeBit | vk.QueueTransferBit),
				family(vk.QueueComputeBit | vk.QueueTransferBit),
			},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QueueFamilySeparateTransferIndex(tt.families); got != tt.want {
				t.Errorf("QueueFamilySeparateTransferIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueueFamilyPresentIndexFindsFirstSupported(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		family(vk.QueueGraphicsBit),
		family(vk.QueueComputeBit),
		family(vk.QueueTransferBit),
	}
	supported := func(familyIndex uint32) (bool, error) {
		return familyIndex == 2, nil
	}

	if got := queueFamilyPresentIndex(families, supported); got != 2 {
		t.Errorf("queueFamilyPresentIndex() = %d, want 2", got)
	}
}

func TestQueueFamilyPresentIndexNoneSupported(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		family(vk.QueueGraphicsBit),
		family(vk.QueueComputeBit),
	}
	supported := func(uint32) (bool, error) {
		return false, nil
	}

	if got := queueFamilyPresentIndex(families, supported); got != QueueIndexMaxValue {
		t.Errorf("queueFamilyPresentIndex() = %d, want sentinel %d", got, QueueIndexMaxValue)
	}
}

func TestQueueFamilyPresentIndexQueryErrorFailsClosed(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		family(vk.QueueGraphicsBit),
		family(vk.QueueGraphicsBit),
	}
	// The second family would support presentation, but an error on the
	// first must abort the scan rather than report a guess.
	calls := 0
	supported := func(familyIndex uint32) (bool, error) {
		calls++
		if familyIndex == 0 {
			return false, errors.New("device lost")
		}
		return true, nil
	}

	if got := queueFamilyPresentIndex(families, supported); got != QueueIndexMaxValue {
		t.Errorf("queueFamilyPresentIndex() = %d, want sentinel %d", got, QueueIndexMaxValue)
	}
	if calls != 1 {
		t.Errorf("support queries after error = %d, want 1", calls)
	}
}
