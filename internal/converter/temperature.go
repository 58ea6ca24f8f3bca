package converter

import "math"

const (
	DefaultTemperatureScale = 0.1

	// Readings below this are treated as a sign-flipped sensor fault and
	// reported by magnitude. Historical workaround, kept for compatibility.
	temperatureFaultThreshold = -10.0
)

type TemperatureConverter struct{}

func NewTemperatureConverter() *TemperatureConverter {
	return &TemperatureConverter{}
}

func (c *TemperatureConverter) Kind() Kind {
	return KindTemperature
}

// Convert reads Temperature as a signed 16-bit count of 0.1 °C unless
// opts.Scale says otherwise.
func (c *TemperatureConverter) Convert(raw Fields, opts Options) Reading {
	value, ok := raw.Float("Temperature")
	if !ok {
		return Reading{}
	}

	scale := DefaultTemperatureScale
	if opts.Scale != nil {
		scale = *opts.Scale
	}

	temperature := math.Trunc(value) * scale
	if temperature < temperatureFaultThreshold {
		temperature = math.Abs(temperature)
	}

	return Reading{"temperature": round(temperature, 1)}
}

func (c *TemperatureConverter) OutputFields() []OutputField {
	return []OutputField{
		{Name: "temperature", DisplayName: "Temperature", Unit: "°C"},
	}
}
