package converter

import "go.uber.org/zap"

var (
	db6VelocityRange     = valueRange{0, 100, "mm/s"}
	db6DisplacementRange = valueRange{0, 600, "μm"}
)

// VibrationDB6Converter handles the shared-block vibration sensors whose
// velocity, displacement and frequency groups are merged into one module
// before conversion.
type VibrationDB6Converter struct {
	logger        *zap.Logger
	highPrecision bool
}

func NewVibrationDB6Converter(highPrecision bool, logger *zap.Logger) *VibrationDB6Converter {
	return &VibrationDB6Converter{
		logger:        logger,
		highPrecision: highPrecision,
	}
}

func (c *VibrationDB6Converter) Kind() Kind {
	return KindVibrationDB6
}

func (c *VibrationDB6Converter) HighPrecision() bool {
	return c.highPrecision
}

func (c *VibrationDB6Converter) Convert(raw Fields, opts Options) Reading {
	out := make(Reading, 9)

	displacementFactor := 1.0
	if c.highPrecision {
		displacementFactor = 0.01
	}

	set := func(key, input string, factor float64, r valueRange, places int) {
		v, ok := raw.Float(input)
		if !ok {
			return
		}
		v *= factor
		checkRange(c.logger, key, v, r)
		out[key] = round(v, places)
	}

	set("vx", "VX", 1, db6VelocityRange, 2)
	set("vy", "VY", 1, db6VelocityRange, 2)
	set("vz", "VZ", 1, db6VelocityRange, 2)

	set("dx", "DX", displacementFactor, db6DisplacementRange, 2)
	set("dy", "DY", displacementFactor, db6DisplacementRange, 2)
	set("dz", "DZ", displacementFactor, db6DisplacementRange, 2)

	set("hzx", "HZX", 1, frequencyRange, 1)
	set("hzy", "HZY", 1, frequencyRange, 1)
	set("hzz", "HZZ", 1, frequencyRange, 1)

	return out
}

func (c *VibrationDB6Converter) OutputFields() []OutputField {
	return []OutputField{
		{Name: "vx", DisplayName: "X velocity amplitude", Unit: "mm/s"},
		{Name: "vy", DisplayName: "Y velocity amplitude", Unit: "mm/s"},
		{Name: "vz", DisplayName: "Z velocity amplitude", Unit: "mm/s"},
		{Name: "dx", DisplayName: "X displacement amplitude", Unit: "μm"},
		{Name: "dy", DisplayName: "Y displacement amplitude", Unit: "μm"},
		{Name: "dz", DisplayName: "Z displacement amplitude", Unit: "μm"},
		{Name: "hzx", DisplayName: "X vibration frequency", Unit: "Hz"},
		{Name: "hzy", DisplayName: "Y vibration frequency", Unit: "Hz"},
		{Name: "hzz", DisplayName: "Z vibration frequency", Unit: "Hz"},
	}
}
