package vulkan

import (
	"fmt"
	"reflect"

	gu "github.com/docker/go-units"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ignite/bootstrap/core"
)

// suitability is the three-way verdict of one candidate against the
// criteria. The first fully matching device wins outright; otherwise the last
// partial match in enumeration order does.
type suitability int

const (
	suitabilityNo suitability = iota
	suitabilityPartial
	suitabilityYes
)

type selectionCriteria struct {
	preferredType vk.PhysicalDeviceType
	allowAnyType  bool

	requirePresent           bool
	requireDedicatedCompute  bool
	requireDedicatedTransfer bool
	requireSeparateCompute   bool
	requireSeparateTransfer  bool

	requiredVersion uint32
	desiredVersion  uint32

	requiredMemSize vk.DeviceSize
	desiredMemSize  vk.DeviceSize

	requiredExtensions []string
	desiredExtensions  []string

	requiredFeatures vk.PhysicalDeviceFeatures

	useFirstDevice bool
	deferSurface   bool
}

// PhysicalDeviceSelector scores every adapter the instance can see against a
// set of chained criteria and picks the best match.
type PhysicalDeviceSelector struct {
	instance *Instance
	surface  vk.Surface
	criteria selectionCriteria
}

func NewPhysicalDeviceSelector(instance *Instance) *PhysicalDeviceSelector {
	return &PhysicalDeviceSelector{
		instance: instance,
		criteria: selectionCriteria{
			preferredType:   vk.PhysicalDeviceTypeDiscreteGpu,
			allowAnyType:    true,
			requirePresent:  true,
			requiredVersion: uint32(vk.MakeVersion(1, 0, 0)),
			desiredVersion:  uint32(vk.MakeVersion(1, 0, 0)),
		},
	}
}

func (s *PhysicalDeviceSelector) SetSurface(surface vk.Surface) *PhysicalDeviceSelector {
	s.surface = surface
	return s
}

func (s *PhysicalDeviceSelector) PreferDeviceType(deviceType vk.PhysicalDeviceType) *PhysicalDeviceSelector {
	s.criteria.preferredType = deviceType
	return s
}

// AllowAnyDeviceType downgrades a device-type mismatch to a partial match
// instead of a rejection. On by default.
func (s *PhysicalDeviceSelector) AllowAnyDeviceType(allow bool) *PhysicalDeviceSelector {
	s.criteria.allowAnyType = allow
	return s
}

func (s *PhysicalDeviceSelector) RequirePresent(require bool) *PhysicalDeviceSelector {
	s.criteria.requirePresent = require
	return s
}

func (s *PhysicalDeviceSelector) RequireDedicatedComputeQueue() *PhysicalDeviceSelector {
	s.criteria.requireDedicatedCompute = true
	return s
}

func (s *PhysicalDeviceSelector) RequireDedicatedTransferQueue() *PhysicalDeviceSelector {
	s.criteria.requireDedicatedTransfer = true
	return s
}

func (s *PhysicalDeviceSelector) RequireSeparateComputeQueue() *PhysicalDeviceSelector {
	s.criteria.requireSeparateCompute = true
	return s
}

func (s *PhysicalDeviceSelector) RequireSeparateTransferQueue() *PhysicalDeviceSelector {
	s.criteria.requireSeparateTransfer = true
	return s
}

func (s *PhysicalDeviceSelector) SetRequiredVersion(major, minor uint32) *PhysicalDeviceSelector {
	s.criteria.requiredVersion = major<<22 | minor<<12
	return s
}

func (s *PhysicalDeviceSelector) SetDesiredVersion(major, minor uint32) *PhysicalDeviceSelector {
	s.criteria.desiredVersion = major<<22 | minor<<12
	return s
}

func (s *PhysicalDeviceSelector) SetRequiredMemorySize(size vk.DeviceSize) *PhysicalDeviceSelector {
	s.criteria.requiredMemSize = size
	return s
}

func (s *PhysicalDeviceSelector) SetDesiredMemorySize(size vk.DeviceSize) *PhysicalDeviceSelector {
	s.criteria.desiredMemSize = size
	return s
}

func (s *PhysicalDeviceSelector) AddRequiredExtension(name string) *PhysicalDeviceSelector {
	s.criteria.requiredExtensions = append(s.criteria.requiredExtensions, name)
	return s
}

func (s *PhysicalDeviceSelector) AddDesiredExtension(name string) *PhysicalDeviceSelector {
	s.criteria.desiredExtensions = append(s.criteria.desiredExtensions, name)
	return s
}

func (s *PhysicalDeviceSelector) SetRequiredFeatures(features vk.PhysicalDeviceFeatures) *PhysicalDeviceSelector {
	s.criteria.requiredFeatures = features
	return s
}

// DeferSurfaceInitialization skips every surface-bound check so a device can
// be chosen before a surface exists. The caller promises to provide one
// before building a swapchain.
func (s *PhysicalDeviceSelector) DeferSurfaceInitialization() *PhysicalDeviceSelector {
	s.criteria.deferSurface = true
	return s
}

// SelectFirstDeviceUnconditionally takes the first enumerated adapter without
// running any checks, including the required ones. Meant for debugging.
func (s *PhysicalDeviceSelector) SelectFirstDeviceUnconditionally() *PhysicalDeviceSelector {
	s.criteria.useFirstDevice = true
	return s
}

// Select enumerates the physical devices and applies the criteria.
func (s *PhysicalDeviceSelector) Select() (*PhysicalDevice, error) {
	needsPresent := s.criteria.requirePresent && !s.criteria.deferSurface

	if needsPresent && s.surface == vk.NullSurface {
		return nil, fmt.Errorf("%w: selection requires presentation support", ErrSurfaceMissing)
	}
	if needsPresent && !containsString(s.criteria.requiredExtensions, vk.KhrSwapchainExtensionName) {
		s.criteria.requiredExtensions = append(s.criteria.requiredExtensions, vk.KhrSwapchainExtensionName)
	}

	var deviceCount uint32
	if res := vk.EnumeratePhysicalDevices(s.instance.Handle, &deviceCount, nil); res != vk.Success {
		return nil, queryError("vkEnumeratePhysicalDevices", res)
	}
	if deviceCount == 0 {
		return nil, fmt.Errorf("%w: no physical devices with Vulkan support", ErrCapabilityQuery)
	}
	handles := make([]vk.PhysicalDevice, deviceCount)
	if res := vk.EnumeratePhysicalDevices(s.instance.Handle, &deviceCount, handles); res != vk.Success {
		return nil, queryError("vkEnumeratePhysicalDevices", res)
	}

	descs := make([]physicalDeviceDesc, 0, deviceCount)
	for _, handle := range handles {
		descs = append(descs, newPhysicalDeviceDesc(handle, s.surface, needsPresent))
	}

	return s.selectFrom(descs)
}

func (s *PhysicalDeviceSelector) selectFrom(descs []physicalDeviceDesc) (*PhysicalDevice, error) {
	if len(descs) == 0 {
		return nil, fmt.Errorf("%w: no candidates to select from", ErrNoSuitableDevice)
	}

	if s.criteria.useFirstDevice {
		core.LogDebug("selecting first device '%s' unconditionally", descs[0].name)
		return s.newPhysicalDevice(descs[0]), nil
	}

	var partial *physicalDeviceDesc
	for i := range descs {
		switch s.isDeviceSuitable(&descs[i]) {
		case suitabilityYes:
			return s.newPhysicalDevice(descs[i]), nil
		case suitabilityPartial:
			// a later partial match replaces an earlier one
			partial = &descs[i]
		}
	}
	if partial == nil {
		return nil, fmt.Errorf("%w: %d candidate(s) rejected", ErrNoSuitableDevice, len(descs))
	}
	return s.newPhysicalDevice(*partial), nil
}

// isDeviceSuitable runs the fixed sequence of checks. Required criteria
// reject outright; desired ones only downgrade the verdict to partial.
func (s *PhysicalDeviceSelector) isDeviceSuitable(desc *physicalDeviceDesc) suitability {
	suitable := suitabilityYes
	needsPresent := s.criteria.requirePresent && !s.criteria.deferSurface

	if desc.properties.ApiVersion < s.criteria.requiredVersion {
		core.LogDebug("device '%s' rejected, API version too low", desc.name)
		return suitabilityNo
	}
	if desc.properties.ApiVersion < s.criteria.desiredVersion {
		suitable = suitabilityPartial
	}

	dedicatedCompute := QueueFamilyDedicatedComputeIndex(desc.queueFamilies) != QueueIndexMaxValue
	dedicatedTransfer := QueueFamilyDedicatedTransferIndex(desc.queueFamilies) != QueueIndexMaxValue
	separateCompute := QueueFamilySeparateComputeIndex(desc.queueFamilies) != QueueIndexMaxValue
	separateTransfer := QueueFamilySeparateTransferIndex(desc.queueFamilies) != QueueIndexMaxValue

	if s.criteria.requireDedicatedCompute && !dedicatedCompute {
		core.LogDebug("device '%s' rejected, no dedicated compute queue family", desc.name)
		return suitabilityNo
	}
	if s.criteria.requireDedicatedTransfer && !dedicatedTransfer {
		core.LogDebug("device '%s' rejected, no dedicated transfer queue family", desc.name)
		return suitabilityNo
	}
	if s.criteria.requireSeparateCompute && !separateCompute {
		core.LogDebug("device '%s' rejected, no separate compute queue family", desc.name)
		return suitabilityNo
	}
	if s.criteria.requireSeparateTransfer && !separateTransfer {
		core.LogDebug("device '%s' rejected, no separate transfer queue family", desc.name)
		return suitabilityNo
	}

	if needsPresent && desc.presentIndex == QueueIndexMaxValue {
		core.LogDebug("device '%s' rejected, no queue family can present", desc.name)
		return suitabilityNo
	}

	if missing := missingNames(desc.extensions, s.criteria.requiredExtensions); len(missing) > 0 {
		core.LogDebug("device '%s' rejected, missing required extensions %v", desc.name, missing)
		return suitabilityNo
	}
	if missing := missingNames(desc.extensions, s.criteria.desiredExtensions); len(missing) > 0 {
		suitable = suitabilityPartial
	}

	if needsPresent && !desc.swapchainAdequate {
		core.LogDebug("device '%s' rejected, surface reports no formats or present modes", desc.name)
		return suitabilityNo
	}

	if desc.properties.DeviceType != s.criteria.preferredType {
		if s.criteria.allowAnyType {
			suitable = suitabilityPartial
		} else {
			core.LogDebug("device '%s' rejected, wrong device type", desc.name)
			return suitabilityNo
		}
	}

	if missing := missingFeatures(s.criteria.requiredFeatures, desc.features); len(missing) > 0 {
		core.LogDebug("device '%s' rejected, missing features %v", desc.name, missing)
		return suitabilityNo
	}

	requiredMemoryMet := false
	desiredMemoryMet := false
	for i := uint32(0); i < desc.memory.MemoryHeapCount; i++ {
		heap := desc.memory.MemoryHeaps[i]
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit == 0 {
			continue
		}
		if heap.Size > s.criteria.requiredMemSize {
			requiredMemoryMet = true
		}
		if heap.Size > s.criteria.desiredMemSize {
			desiredMemoryMet = true
		}
	}
	if !requiredMemoryMet {
		core.LogDebug("device '%s' rejected, not enough device local memory", desc.name)
		return suitabilityNo
	}
	if !desiredMemoryMet {
		suitable = suitabilityPartial
	}

	return suitable
}

func (s *PhysicalDeviceSelector) newPhysicalDevice(desc physicalDeviceDesc) *PhysicalDevice {
	extensions := append([]string{}, s.criteria.requiredExtensions...)
	for _, name := range s.criteria.desiredExtensions {
		if containsString(desc.extensions, name) && !containsString(extensions, name) {
			extensions = append(extensions, name)
		}
	}

	core.LogInfo("selected device '%s' (%s, %s device local memory)",
		desc.name,
		deviceTypeString(desc.properties.DeviceType),
		gu.BytesSize(float64(deviceLocalMemory(desc.memory))))

	return &PhysicalDevice{
		Handle:        desc.handle,
		Surface:       s.surface,
		Name:          desc.name,
		Properties:    desc.properties,
		Memory:        desc.memory,
		Features:      s.criteria.requiredFeatures,
		QueueFamilies: desc.queueFamilies,
		Extensions:    extensions,
	}
}

// missingNames reports which wanted entries are absent from supported.
func missingNames(supported, wanted []string) []string {
	var missing []string
	for _, name := range wanted {
		if !containsString(supported, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// missingFeatures compares the two feature sets bit by bit and names every
// required feature the device lacks. There is no wildcard, each Bool32 field
// is checked on its own.
func missingFeatures(required, supported vk.PhysicalDeviceFeatures) []string {
	var missing []string
	tf := reflect.TypeOf(required)
	rv := reflect.ValueOf(required)
	sv := reflect.ValueOf(supported)
	for f := 0; f < tf.NumField(); f++ {
		sf := tf.Field(f)
		if sf.Anonymous || sf.PkgPath != "" || sf.Type.Kind() != reflect.Uint32 {
			continue
		}
		if rv.Field(f).Uint() == 1 && sv.Field(f).Uint() != 1 {
			missing = append(missing, sf.Name)
		}
	}
	return missing
}

// deviceLocalMemory returns the size of the largest device local heap.
func deviceLocalMemory(memory vk.PhysicalDeviceMemoryProperties) vk.DeviceSize {
	var largest vk.DeviceSize
	for i := uint32(0); i < memory.MemoryHeapCount; i++ {
		heap := memory.MemoryHeaps[i]
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit == 0 {
			continue
		}
		if heap.Size > largest {
			largest = heap.Size
		}
	}
	return largest
}

func deviceTypeString(deviceType vk.PhysicalDeviceType) string {
	switch deviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "unknown"
	}
}
