package renderer

import (
	"log"
)

// DefaultDeviceExtensions are the device extensions every candidate device must support.
var DefaultDeviceExtensions = []string{
	"VK_KHR_swapchain",
}

// DeviceContext bundles the selected physical device with the logical device created on it and the queues
// the renderer submits to. GraphicsQ and PresentQ are the same queue when both roles share a family.
type DeviceContext struct {
	PhysicalDevice PhysicalDevice
	Families       QueueFamilyIndices

	D         Device
	GraphicsQ Queue
	PresentQ  Queue
}

// NewDeviceContext creates the logical device on pd, requesting one queue for every distinct family in
// families, and fetches the graphics and present queues.
func NewDeviceContext(in Instance, pd PhysicalDevice, families QueueFamilyIndices, extensions []string, validationLayers []string) (*DeviceContext, error) {
	if !families.IsComplete() {
		return nil, &DeviceCreationError{Err: ErrNoSuitableDevice}
	}
	queueInfos := families.toQueueCreateInfos()
	device, err := in.CreateDevice(pd, DeviceDesc{
		Queues:           queueInfos,
		Extensions:       extensions,
		ValidationLayers: validationLayers,
	})
	if err != nil {
		return nil, &DeviceCreationError{Err: err}
	}
	dc := &DeviceContext{
		PhysicalDevice: pd,
		Families:       families,
		D:              device,
		GraphicsQ:      device.GetQueue(*families.GraphicsFamily, 0),
		PresentQ:       device.GetQueue(*families.PresentFamily, 0),
	}
	log.Printf("Created logical device with %d queue families (graphics: %d, present: %d)",
		len(queueInfos), *families.GraphicsFamily, *families.PresentFamily)
	return dc, nil
}

// destroy the logical device. The instance and surface are owned by the caller.
func (dc *DeviceContext) destroy() {
	dc.D.Destroy()
}
