package common

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"

	"vk_triangle/renderer"
)

// deviceReport is what gets logged for each entry of the instance's device list before the renderer picks one.
type deviceReport struct {
	index    int
	handle   renderer.PhysicalDevice
	name     string
	kind     string
	vendor   string
	api      string
	driver   string
	families []string
}

func newDeviceReport(index int, handle renderer.PhysicalDevice, props vk.PhysicalDeviceProperties,
	qFamilies []vk.QueueFamilyProperties) deviceReport {
	vendor := vk.VendorId(props.VendorID)
	r := deviceReport{
		index:  index,
		handle: handle,
		name:   vk.ToString(props.DeviceName[:]),
		kind:   deviceTypeName(props.DeviceType),
		vendor: vendorName(vendor),
		api:    vk.Version(props.ApiVersion).String(),
		driver: driverVersion(vendor, props.DriverVersion),
	}
	for i := range qFamilies {
		r.families = append(r.families, queueFamilySummary(qFamilies[i]))
	}
	return r
}

func (r deviceReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "device %d: %s (%s, handle %d)\n", r.index, r.name, r.kind, r.handle)
	fmt.Fprintf(&sb, "  vendor %s, api %s, driver %s", r.vendor, r.api, r.driver)
	for i, f := range r.families {
		fmt.Fprintf(&sb, "\n  family %d: %s", i, f)
	}
	return sb.String()
}

// Vendor ids are PCI ids, except Mesa which registered a Khronos id.
var vendorNames = map[vk.VendorId]string{
	0x1002:  "AMD",
	0x1010:  "ImgTec",
	0x10DE:  "NVIDIA",
	0x13B5:  "ARM",
	0x5143:  "Qualcomm",
	0x8086:  "INTEL",
	0x10005: "Mesa",
}

func vendorName(v vk.VendorId) string {
	if name, ok := vendorNames[v]; ok {
		return name
	}
	return "unknown"
}

// driverVersion decodes the vendor specific driver version. NVIDIA packs four fields into 10.8.8.6 bits.
func driverVersion(vendor vk.VendorId, raw uint32) string {
	if vendor != 0x10DE {
		return vk.Version(raw).String()
	}
	return fmt.Sprintf("%d.%d.%d.%d", raw>>22&0x3ff, raw>>14&0xff, raw>>6&0xff, raw&0x3f)
}

var deviceTypeNames = map[vk.PhysicalDeviceType]string{
	vk.PhysicalDeviceTypeOther:         "other",
	vk.PhysicalDeviceTypeIntegratedGpu: "integrated gpu",
	vk.PhysicalDeviceTypeDiscreteGpu:   "discrete gpu",
	vk.PhysicalDeviceTypeVirtualGpu:    "virtual gpu",
	vk.PhysicalDeviceTypeCpu:           "cpu",
}

func deviceTypeName(dt vk.PhysicalDeviceType) string {
	if name, ok := deviceTypeNames[dt]; ok {
		return name
	}
	return "unknown"
}

var queueFlagNames = []struct {
	bit  vk.QueueFlagBits
	name string
}{
	{vk.QueueGraphicsBit, "graphics"},
	{vk.QueueComputeBit, "compute"},
	{vk.QueueTransferBit, "transfer"},
	{vk.QueueSparseBindingBit, "sparse"},
	{vk.QueueProtectedBit, "protected"},
}

func queueFlags(bits vk.QueueFlags) []string {
	var names []string
	for _, f := range queueFlagNames {
		if vk.QueueFlagBits(bits)&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	return names
}

func queueFamilySummary(q vk.QueueFamilyProperties) string {
	return fmt.Sprintf("%d queues [%s]", q.QueueCount, strings.Join(queueFlags(q.QueueFlags), " "))
}

// layerTable lists the instance layers one per line, name first so the requested ones are easy to spot.
func layerTable(layers []vk.LayerProperties) string {
	var sb strings.Builder
	for i := range layers {
		fmt.Fprintf(&sb, " %-40s %8s  %s\n",
			vk.ToString(layers[i].LayerName[:]),
			vk.Version(layers[i].SpecVersion).String(),
			vk.ToString(layers[i].Description[:]))
	}
	return sb.String()
}
