package converter

import (
	"fmt"
	"strings"

	"github.com/KevinKickass/KilnTelemetry/internal/types"
	"go.uber.org/zap"
)

// DisplacementMode is the range setting of the DB4 vibration transmitter.
type DisplacementMode string

const (
	// HighRange covers 0-60000 μm at 1 μm resolution.
	HighRange DisplacementMode = "high_range"
	// HighPrecision covers 0-600 μm at 0.01 μm resolution.
	HighPrecision DisplacementMode = "high_precision"
)

func ParseDisplacementMode(s string) (DisplacementMode, error) {
	switch DisplacementMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", HighRange:
		return HighRange, nil
	case HighPrecision:
		return HighPrecision, nil
	}
	return "", fmt.Errorf("invalid displacement mode: %q", s)
}

func (m DisplacementMode) scale() float64 {
	if m == HighPrecision {
		return 0.01
	}
	return 1.0
}

func (m DisplacementMode) maxDisplacement() float64 {
	if m == HighPrecision {
		return 600
	}
	return 60000
}

type valueRange struct {
	min, max float64
	unit     string
}

var (
	frequencyRange    = valueRange{0, 10000, "Hz"}
	accelerationRange = valueRange{0, 100, "m/s²"}
	velocityRMSRange  = valueRange{0, 50, "mm/s"}
)

// VibrationConverter handles the single-device DB4 vibration transmitter.
// Out-of-range values are logged and still returned.
type VibrationConverter struct {
	logger *zap.Logger
	mode   DisplacementMode
}

func NewVibrationConverter(mode DisplacementMode, logger *zap.Logger) *VibrationConverter {
	return &VibrationConverter{
		logger: logger,
		mode:   mode,
	}
}

func (c *VibrationConverter) Kind() Kind {
	return KindVibrationSelected
}

func (c *VibrationConverter) Mode() DisplacementMode {
	return c.mode
}

func (c *VibrationConverter) Convert(raw Fields, opts Options) Reading {
	out := make(Reading, 12)
	displacement := valueRange{0, c.mode.maxDisplacement(), "μm"}

	set := func(key, input string, factor float64, r valueRange, places int) {
		v, ok := raw.Float(input)
		if !ok {
			return
		}
		v *= factor
		checkRange(c.logger, key, v, r)
		out[key] = round(v, places)
	}

	set("dx", "DX", c.mode.scale(), displacement, 2)
	set("dy", "DY", c.mode.scale(), displacement, 2)
	set("dz", "DZ", c.mode.scale(), displacement, 2)

	set("freq_x", "HZX", 1, frequencyRange, 1)
	set("freq_y", "HZY", 1, frequencyRange, 1)
	set("freq_z", "HZZ", 1, frequencyRange, 1)

	set("acc_peak_x", "KX", 1, accelerationRange, 2)
	set("acc_peak_y", "AAVGY", 1, accelerationRange, 2)
	set("acc_peak_z", "AAVGZ", 1, accelerationRange, 2)

	set("vrms_x", "VRMSX", 1, velocityRMSRange, 1)
	set("vrms_y", "VRMSY", 1, velocityRMSRange, 1)
	// the transmitter names its Z velocity channel VRMGZ
	set("vrms_z", "VRMGZ", 1, velocityRMSRange, 1)

	if len(out) == 0 {
		for name, field := range raw {
			if field.Value.Kind == types.ValueStruct {
				continue
			}
			out[strings.ToLower(name)] = field.Value.Interface()
		}
	}

	return out
}

func (c *VibrationConverter) OutputFields() []OutputField {
	return []OutputField{
		{Name: "dx", DisplayName: "X displacement amplitude", Unit: "μm"},
		{Name: "dy", DisplayName: "Y displacement amplitude", Unit: "μm"},
		{Name: "dz", DisplayName: "Z displacement amplitude", Unit: "μm"},
		{Name: "freq_x", DisplayName: "X vibration frequency", Unit: "Hz"},
		{Name: "freq_y", DisplayName: "Y vibration frequency", Unit: "Hz"},
		{Name: "freq_z", DisplayName: "Z vibration frequency", Unit: "Hz"},
		{Name: "acc_peak_x", DisplayName: "X acceleration peak", Unit: "m/s²"},
		{Name: "acc_peak_y", DisplayName: "Y acceleration peak", Unit: "m/s²"},
		{Name: "acc_peak_z", DisplayName: "Z acceleration peak", Unit: "m/s²"},
		{Name: "vrms_x", DisplayName: "X velocity RMS", Unit: "mm/s"},
		{Name: "vrms_y", DisplayName: "Y velocity RMS", Unit: "mm/s"},
		{Name: "vrms_z", DisplayName: "Z velocity RMS", Unit: "mm/s"},
	}
}

func checkRange(logger *zap.Logger, field string, v float64, r valueRange) {
	if v >= r.min && v <= r.max {
		return
	}
	logger.Warn("Value out of range",
		zap.String("field", field),
		zap.Float64("value", v),
		zap.Float64("min", r.min),
		zap.Float64("max", r.max),
		zap.String("unit", r.unit))
}
