package converter

// DefaultWeighInterval is the polling interval assumed for feed rate, in
// seconds.
const DefaultWeighInterval = 5.0

// divisionTable maps status word bits 8-11 to the indicator's division value.
// Code 15 is undefined and treated as 1.
var divisionTable = [16]float64{
	1, 2, 5, 10, 20, 50,
	0.1, 0.2, 0.5,
	0.01, 0.02, 0.05,
	0.001, 0.002, 0.005,
	1,
}

func DivisionValue(code uint8) float64 {
	return divisionTable[code&0x0F]
}

// WeightStatus is the decoded weighing indicator status word.
type WeightStatus struct {
	Outputs       [5]bool `json:"outputs"`
	IsStable      bool    `json:"is_stable"`
	IsZero        bool    `json:"is_zero"`
	IsOverload    bool    `json:"is_overload"`
	DivisionCode  uint8   `json:"division_code"`
	DivisionValue float64 `json:"division_value"`
	Inputs        [3]bool `json:"inputs"`
	BatchComplete bool    `json:"batch_complete"`
}

func ParseStatusWord(word uint16) WeightStatus {
	code := uint8(word>>8) & 0x0F

	var status WeightStatus
	for i := range status.Outputs {
		status.Outputs[i] = word&(1<<uint(i)) != 0
	}
	status.IsStable = word&0x0020 != 0
	status.IsZero = word&0x0040 != 0
	status.IsOverload = word&0x0080 != 0
	status.DivisionCode = code
	status.DivisionValue = DivisionValue(code)
	for i := range status.Inputs {
		status.Inputs[i] = word&(1<<uint(12+i)) != 0
	}
	status.BatchComplete = word&0x8000 != 0

	return status
}

// WeightConverter scales hopper weights by the division value the indicator
// reports in its status word and derives the feed rate from the previous
// weight.
type WeightConverter struct{}

func NewWeightConverter() *WeightConverter {
	return &WeightConverter{}
}

func (c *WeightConverter) Kind() Kind {
	return KindWeight
}

// Convert emits weight (kg) and feed_rate (kg/h, positive while discharging).
// GrossWeight is preferred; GrossWeight_W is used when the DWord reads exactly
// zero.
func (c *WeightConverter) Convert(raw Fields, opts Options) Reading {
	out := make(Reading, 4)

	word, hasStatus := raw.Float("StatusWord")
	status := ParseStatusWord(uint16(word))
	if hasStatus {
		out["is_stable"] = status.IsStable
		out["is_overload"] = status.IsOverload
	}

	rawWeight, ok := raw.Float("GrossWeight")
	if !ok || rawWeight == 0 {
		if w, wok := raw.Float("GrossWeight_W"); wok {
			rawWeight, ok = w, true
		}
	}
	if !ok {
		return out
	}

	scale := status.DivisionValue
	if opts.ForceScale != nil {
		scale = *opts.ForceScale
	}
	weight := rawWeight * scale

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultWeighInterval
	}

	feedRate := 0.0
	if opts.PreviousWeight != nil {
		feedRate = (*opts.PreviousWeight - weight) / interval * 3600
	}

	out["weight"] = round(weight, 3)
	out["feed_rate"] = round(feedRate, 2)
	return out
}

func (c *WeightConverter) OutputFields() []OutputField {
	return []OutputField{
		{Name: "weight", DisplayName: "Weight", Unit: "kg"},
		{Name: "feed_rate", DisplayName: "Feed rate", Unit: "kg/h"},
		{Name: "is_stable", DisplayName: "Stable", Unit: ""},
		{Name: "is_overload", DisplayName: "Overload", Unit: ""},
	}
}
