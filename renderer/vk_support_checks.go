package renderer

import (
	"log"

	"github.com/pkg/errors"
)

// Capabilities is everything the renderer needs to know about a physical device in combination with the
// target surface. It is recorded fresh per query and never updated afterwards.
type Capabilities struct {
	Families     QueueFamilyIndices
	Formats      []SurfaceFormat
	PresentModes []PresentMode
	Surface      SurfaceCapabilities
}

// Complete reports whether graphics and present queue families were both found.
func (c Capabilities) Complete() bool {
	return c.Families.IsComplete()
}

// ProbeCapabilities queries the queue families and surface support details of pd for the given surface.
func ProbeCapabilities(in Instance, pd PhysicalDevice, surface Surface) (Capabilities, error) {
	var caps Capabilities
	var err error
	caps.Families, err = findQueueFamilies(in, pd, surface)
	if err != nil {
		return caps, err
	}
	caps.Surface, err = in.SurfaceCapabilities(pd, surface)
	if err != nil {
		return caps, errors.Wrap(err, "read surface capabilities")
	}
	caps.Formats, err = in.SurfaceFormats(pd, surface)
	if err != nil {
		return caps, errors.Wrap(err, "read surface formats")
	}
	caps.PresentModes, err = in.SurfacePresentModes(pd, surface)
	if err != nil {
		return caps, errors.Wrap(err, "read surface present modes")
	}
	return caps, nil
}

func checkDeviceExtensionSupport(in Instance, pd PhysicalDevice, requiredDeviceExt []string) (bool, error) {
	supportedExt, err := in.DeviceExtensions(pd)
	if err != nil {
		return false, errors.Wrap(err, "read device extensions")
	}
	log.Printf("Required device extensions: %v", requiredDeviceExt)
	log.Printf("Available device extensions (%d) [...]", len(supportedExt))
	return AllOfAinB(requiredDeviceExt, supportedExt), nil
}

// isDeviceSuitable checks queue families, required device extensions and swap chain adequacy. The surface
// details are only queried once the extensions are known to be supported.
func isDeviceSuitable(in Instance, pd PhysicalDevice, surface Surface, requiredExt []string) (Capabilities, bool, error) {
	extensionsSupported, err := checkDeviceExtensionSupport(in, pd, requiredExt)
	if err != nil {
		return Capabilities{}, false, err
	}
	if !extensionsSupported {
		families, err := findQueueFamilies(in, pd, surface)
		return Capabilities{Families: families}, false, err
	}

	caps, err := ProbeCapabilities(in, pd, surface)
	if err != nil {
		return caps, false, err
	}
	isSwapChainAdequate := len(caps.Formats) > 0 && len(caps.PresentModes) > 0
	return caps, caps.Complete() && isSwapChainAdequate, nil
}

// SelectPhysicalDevice returns the first suitable device in enumeration order. There is no ranking, a later
// and more capable device never wins over an earlier suitable one.
func SelectPhysicalDevice(in Instance, surface Surface, requiredExt []string) (PhysicalDevice, Capabilities, error) {
	availableDevices, err := in.PhysicalDevices()
	if err != nil {
		return 0, Capabilities{}, &InitializationError{Stage: "physical device", Err: err}
	}
	if len(availableDevices) == 0 {
		return 0, Capabilities{}, ErrNoVulkanDevice
	}
	for _, pd := range availableDevices {
		caps, suitable, err := isDeviceSuitable(in, pd, surface, requiredExt)
		if err != nil {
			return 0, Capabilities{}, &InitializationError{Stage: "physical device", Err: err}
		}
		if suitable {
			log.Printf("Found suitable device: %s", in.DeviceName(pd))
			return pd, caps, nil
		}
		log.Printf("Skipping unsuitable device: %s", in.DeviceName(pd))
	}
	return 0, Capabilities{}, ErrNoSuitableDevice
}
