package renderer

import (
	"github.com/pkg/errors"
)

type QueueFamilyIndices struct {
	GraphicsFamily *uint32
	PresentFamily  *uint32
}

// findQueueFamilies picks the first family supporting graphics and the first family able to present to the
// surface. The scan stops as soon as both are found, so both roles may end up on the same family.
func findQueueFamilies(in Instance, pd PhysicalDevice, surf Surface) (QueueFamilyIndices, error) {
	indices := QueueFamilyIndices{}
	qFamilies, err := in.QueueFamilies(pd)
	if err != nil {
		return indices, errors.Wrap(err, "read queue families")
	}

	for i := range qFamilies {
		if indices.GraphicsFamily == nil && qFamilies[i].Graphics {
			indices.GraphicsFamily = new(uint32)
			*indices.GraphicsFamily = uint32(i)
		}
		if indices.PresentFamily == nil {
			presentSupport, err := in.SurfaceSupport(pd, uint32(i), surf)
			if err != nil {
				return indices, errors.Wrapf(err, "read surface support of queue family %d", i)
			}
			if presentSupport {
				indices.PresentFamily = new(uint32)
				*indices.PresentFamily = uint32(i)
			}
		}
		if indices.IsComplete() {
			break
		}
	}
	return indices, nil
}

// IsComplete reports whether both a graphics and a present family were found.
func (q QueueFamilyIndices) IsComplete() bool {
	return q.GraphicsFamily != nil && q.PresentFamily != nil
}

// Shared reports whether graphics and presentation run on the same family. Only valid for complete indices.
func (q QueueFamilyIndices) Shared() bool {
	return *q.GraphicsFamily == *q.PresentFamily
}

func (q QueueFamilyIndices) uniqueFamilies() []uint32 {
	var uniqIndices []uint32
	for _, idx := range []*uint32{q.GraphicsFamily, q.PresentFamily} {
		if idx != nil && !inList(*idx, uniqIndices) {
			uniqIndices = append(uniqIndices, *idx)
		}
	}
	return uniqIndices
}

// toQueueCreateInfos requests a single queue with priority 1.0 for every distinct family.
func (q QueueFamilyIndices) toQueueCreateInfos() []DeviceQueueDesc {
	uniqIndices := q.uniqueFamilies()
	infos := make([]DeviceQueueDesc, len(uniqIndices))
	for i := range uniqIndices {
		infos[i] = DeviceQueueDesc{
			Family:   uniqIndices[i],
			Count:    1,
			Priority: 1.0,
		}
	}
	return infos
}
