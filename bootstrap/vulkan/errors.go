package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
)

// The error kinds surfaced by this package. Callers match them with
// errors.Is; the wrapped message carries the specific call and VkResult.
var (
	// ErrCapabilityQuery means an enumeration call itself failed or came
	// back empty, before any selection logic ran.
	ErrCapabilityQuery = errors.New("vulkan: capability query failed")

	// ErrUnsatisfiedRequirement means an explicitly required layer,
	// extension or version is not available.
	ErrUnsatisfiedRequirement = errors.New("vulkan: required capability not available")

	// ErrNoSuitableDevice means every enumerated physical device scored
	// unsuitable against the selection criteria.
	ErrNoSuitableDevice = errors.New("vulkan: no suitable physical device found")

	// ErrSurfaceMissing means an operation that needs a presentation
	// surface was configured without one.
	ErrSurfaceMissing = errors.New("vulkan: surface handle not provided")

	// ErrResourceCreation means a create or allocate call failed.
	ErrResourceCreation = errors.New("vulkan: resource creation failed")

	// ErrFatalPresentation means a queue operation during presentation
	// failed with something other than the recoverable swapchain states.
	ErrFatalPresentation = errors.New("vulkan: presentation failed")
)

func resourceError(what string, result vk.Result) error {
	return fmt.Errorf("%w: %s returned %s", ErrResourceCreation, what, ResultString(result))
}

func queryError(what string, result vk.Result) error {
	return fmt.Errorf("%w: %s returned %s", ErrCapabilityQuery, what, ResultString(result))
}
