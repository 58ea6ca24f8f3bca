package devices

import (
	"fmt"

	"github.com/KevinKickass/KilnTelemetry/internal/types"
	"go.uber.org/zap"
)

// Composer places module instances inside a block. An instance without an
// explicit offset starts where the previous module of the same device ended,
// beginning at the device's base offset.
type Composer struct {
	catalog *types.Catalog
	logger  *zap.Logger
}

func NewComposer(catalog *types.Catalog, logger *zap.Logger) *Composer {
	return &Composer{
		catalog: catalog,
		logger:  logger,
	}
}

// ComposeDevice resolves offsets and checks that every module type exists and
// every tag is unique within the device.
func (c *Composer) ComposeDevice(entry deviceEntry, blockSize int) (types.DeviceLayout, error) {
	device := types.DeviceLayout{
		DeviceID:   entry.DeviceID,
		DeviceName: entry.DeviceName,
		DeviceType: entry.DeviceType,
		Category:   entry.Category,
		Modules:    make([]types.ModuleInstance, 0, len(entry.Modules)),
		Merges:     entry.Merges,
	}
	if device.DeviceName == "" {
		device.DeviceName = entry.DeviceID
	}

	seen := make(map[string]bool, len(entry.Modules))
	offset := entry.BaseOffset

	for i, module := range entry.Modules {
		layout, ok := c.catalog.Lookup(module.ModuleType)
		if !ok {
			return types.DeviceLayout{}, fmt.Errorf("device %s module %d (%s): %w: %s",
				entry.DeviceID, i, module.Tag, types.ErrModuleNotFound, module.ModuleType)
		}
		if seen[module.Tag] {
			return types.DeviceLayout{}, fmt.Errorf("device %s: duplicate module tag %s", entry.DeviceID, module.Tag)
		}
		seen[module.Tag] = true

		if module.Offset != nil {
			offset = *module.Offset
		}

		if blockSize > 0 && offset+layout.TotalSize > blockSize {
			c.logger.Warn("Module extends past block end",
				zap.String("device_id", entry.DeviceID),
				zap.String("module_tag", module.Tag),
				zap.Int("offset", offset),
				zap.Int("module_size", layout.TotalSize),
				zap.Int("block_size", blockSize))
		}

		device.Modules = append(device.Modules, types.ModuleInstance{
			ModuleType:   module.ModuleType,
			Tag:          module.Tag,
			Offset:       offset,
			Description:  module.Description,
			Converter:    module.Converter,
			CurrentRatio: module.CurrentRatio,
		})

		offset += layout.TotalSize
	}

	for _, merge := range entry.Merges {
		for _, source := range merge.Sources {
			if !seen[source] {
				return types.DeviceLayout{}, fmt.Errorf("device %s merge %s: unknown source tag %s",
					entry.DeviceID, merge.Tag, source)
			}
		}
	}

	c.logger.Debug("Device composed",
		zap.String("device_id", device.DeviceID),
		zap.Int("modules", len(device.Modules)),
		zap.Int("end_offset", offset))

	return device, nil
}
