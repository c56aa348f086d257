package common

import (
	"log"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// debugReport forwards validation layer messages to the log. It only exists when the instance was created with
// the debug report extension.
type debugReport struct {
	callback vk.DebugReportCallback
}

func newDebugReport(instance vk.Instance) (*debugReport, error) {
	createInfo := &vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit | vk.DebugReportWarningBit | vk.DebugReportErrorBit),
		PfnCallback: logDebugReport,
	}
	var callback vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(instance, createInfo, nil, &callback)); err != nil {
		return nil, errors.Wrap(err, "vkCreateDebugReportCallbackEXT")
	}
	return &debugReport{callback: callback}, nil
}

func (d *debugReport) destroy(instance vk.Instance) {
	vk.DestroyDebugReportCallback(instance, d.callback, nil)
}

func logDebugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64,
	messageCode int32, layerPrefix string, message string, userData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		log.Printf("[VALIDATION ERROR %d] %s: %s", messageCode, layerPrefix, message)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		log.Printf("[VALIDATION WARNING %d] %s: %s", messageCode, layerPrefix, message)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		log.Printf("[VALIDATION PERF %d] %s: %s", messageCode, layerPrefix, message)
	default:
		log.Printf("[VALIDATION %d] %s: %s", messageCode, layerPrefix, message)
	}
	return vk.False
}
