package pipeline

import (
	"strconv"
	"time"

	"github.com/KevinKickass/KilnTelemetry/internal/converter"
	"github.com/KevinKickass/KilnTelemetry/internal/decoder"
	"github.com/google/uuid"
)

// Measurement is the measurement name of every converted module point.
const Measurement = "sensor_data"

// Point is one converted module reading, shaped for a time-series writer.
type Point struct {
	Measurement string            `json:"measurement"`
	Tags        map[string]string `json:"tags"`
	Fields      converter.Reading `json:"fields"`
	Timestamp   time.Time         `json:"timestamp"`
}

func newPoint(readID uuid.UUID, dbNumber int, device decoder.DeviceResult, module decoder.ModuleResult, reading converter.Reading) Point {
	return Point{
		Measurement: Measurement,
		Tags: map[string]string{
			"device_id":   device.DeviceID,
			"device_type": device.DeviceType,
			"module_type": module.ModuleType,
			"module_tag":  module.Tag,
			"db_number":   strconv.Itoa(dbNumber),
			"read_id":     readID.String(),
		},
		Fields:    reading,
		Timestamp: device.Timestamp,
	}
}

// Result is everything produced from one block buffer.
type Result struct {
	ReadID   uuid.UUID              `json:"read_id"`
	DBNumber int                    `json:"db_number"`
	Devices  []decoder.DeviceResult `json:"devices,omitempty"`
	Status   []decoder.StatusResult `json:"status,omitempty"`
	Points   []Point                `json:"points,omitempty"`
}
