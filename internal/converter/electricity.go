package converter

const (
	CurrentRatioDefault = 20.0
	CurrentRatioRoller  = 60.0
	CurrentRatioSCR     = 20.0

	scaleVoltage = 0.1
	scaleCurrent = 0.001
	scalePower   = 0.001
	scaleEnergy  = 2.0
)

// ElectricityConverter calibrates three-phase meter readings. Line voltages
// and per-phase powers are decoded but not emitted.
type ElectricityConverter struct{}

func NewElectricityConverter() *ElectricityConverter {
	return &ElectricityConverter{}
}

func (c *ElectricityConverter) Kind() Kind {
	return KindElectricity
}

// CurrentRatio picks the CT ratio: an explicit ratio wins, then SCR, then
// roller kiln, then the hopper/fan default.
func CurrentRatio(opts Options) float64 {
	switch {
	case opts.CurrentRatio != nil:
		return *opts.CurrentRatio
	case opts.IsSCR:
		return CurrentRatioSCR
	case opts.IsRollerKiln:
		return CurrentRatioRoller
	default:
		return CurrentRatioDefault
	}
}

func (c *ElectricityConverter) Convert(raw Fields, opts Options) Reading {
	ratio := CurrentRatio(opts)
	out := make(Reading, 8)

	set := func(name string, factor float64) {
		if v, ok := raw.Float(name); ok {
			out[name] = round(v*factor, 2)
		}
	}

	set("Ua_0", scaleVoltage)
	set("Ua_1", scaleVoltage)
	set("Ua_2", scaleVoltage)
	set("I_0", scaleCurrent*ratio)
	set("I_1", scaleCurrent*ratio)
	set("I_2", scaleCurrent*ratio)
	set("Pt", scalePower*ratio)
	set("ImpEp", scaleEnergy)

	return out
}

func (c *ElectricityConverter) OutputFields() []OutputField {
	return []OutputField{
		{Name: "Ua_0", DisplayName: "Phase A voltage", Unit: "V"},
		{Name: "Ua_1", DisplayName: "Phase B voltage", Unit: "V"},
		{Name: "Ua_2", DisplayName: "Phase C voltage", Unit: "V"},
		{Name: "I_0", DisplayName: "Phase A current", Unit: "A"},
		{Name: "I_1", DisplayName: "Phase B current", Unit: "A"},
		{Name: "I_2", DisplayName: "Phase C current", Unit: "A"},
		{Name: "Pt", DisplayName: "Total active power", Unit: "kW"},
		{Name: "ImpEp", DisplayName: "Imported active energy", Unit: "kWh"},
	}
}
