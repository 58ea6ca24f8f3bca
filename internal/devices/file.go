package devices

import (
	"github.com/KevinKickass/KilnTelemetry/internal/types"
)

// On-disk shapes. YAML documents are converted to JSON, validated and then
// decoded into these.

type catalogFile struct {
	Modules []types.ModuleLayout `json:"modules"`
}

type blockFile struct {
	DBConfig      dbConfig            `json:"db_config"`
	Devices       []deviceEntry       `json:"devices"`
	StatusDevices []statusDeviceEntry `json:"status_devices"`
}

type dbConfig struct {
	DBNumber  int             `json:"db_number"`
	DBName    string          `json:"db_name"`
	TotalSize int             `json:"total_size"`
	Kind      types.BlockKind `json:"kind"`
}

type deviceEntry struct {
	DeviceID   string              `json:"device_id"`
	DeviceName string              `json:"device_name"`
	DeviceType string              `json:"device_type"`
	Category   string              `json:"category"`
	BaseOffset int                 `json:"base_offset"`
	Modules    []moduleEntry       `json:"modules"`
	Merges     []types.ModuleMerge `json:"merges"`
}

// moduleEntry leaves Offset nil when the module follows the previous one.
type moduleEntry struct {
	ModuleType   string  `json:"module_type"`
	Tag          string  `json:"tag"`
	Offset       *int    `json:"offset"`
	Description  string  `json:"description"`
	Converter    string  `json:"converter"`
	CurrentRatio float64 `json:"current_ratio"`
}

// statusDeviceEntry is either flat (Tag and Offset set) or nested (Modules
// set).
type statusDeviceEntry struct {
	DeviceID    string              `json:"device_id"`
	DeviceName  string              `json:"device_name"`
	DeviceType  string              `json:"device_type"`
	Tag         string              `json:"tag"`
	Offset      *int                `json:"offset"`
	Description string              `json:"description"`
	Modules     []statusModuleEntry `json:"modules"`
}

type statusModuleEntry struct {
	Tag         string `json:"tag"`
	Offset      int    `json:"offset"`
	Description string `json:"description"`
}
