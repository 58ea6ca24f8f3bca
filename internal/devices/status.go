package devices

import (
	"fmt"

	"github.com/KevinKickass/KilnTelemetry/internal/types"
)

// normalizeStatus flattens both status device shapes into one entry per
// 4-byte record. Nested modules get the parent id and name as prefix.
func normalizeStatus(devices []statusDeviceEntry) ([]types.StatusEntry, error) {
	var entries []types.StatusEntry

	for _, device := range devices {
		if len(device.Modules) == 0 {
			if device.Offset == nil {
				return nil, fmt.Errorf("status device %s has neither offset nor modules", device.DeviceID)
			}
			entries = append(entries, types.StatusEntry{
				DeviceID:    device.DeviceID,
				DeviceName:  device.DeviceName,
				DeviceType:  device.DeviceType,
				Tag:         device.Tag,
				Description: device.Description,
				Offset:      *device.Offset,
			})
			continue
		}

		for _, module := range device.Modules {
			entries = append(entries, types.StatusEntry{
				DeviceID:    device.DeviceID + "_" + module.Tag,
				DeviceName:  device.DeviceName + " - " + module.Description,
				DeviceType:  device.DeviceType,
				Tag:         module.Tag,
				Description: module.Description,
				Offset:      module.Offset,
			})
		}
	}

	return entries, nil
}
