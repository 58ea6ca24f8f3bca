package converter

// PM10Converter passes dust concentrations through. The sensor reports
// calibrated μg/m³ values so nothing is scaled.
type PM10Converter struct{}

func NewPM10Converter() *PM10Converter {
	return &PM10Converter{}
}

func (c *PM10Converter) Kind() Kind {
	return KindPM10
}

func (c *PM10Converter) Convert(raw Fields, opts Options) Reading {
	out := make(Reading, 4)

	if v, ok := raw.First("PM10", "Concentration"); ok {
		out["pm10"] = round(v, 1)
		out["concentration"] = round(v, 1)
	} else {
		// no dust reading is a valid zero
		out["concentration"] = 0.0
	}
	if v, ok := raw.First("PM2_5", "PM2.5"); ok {
		out["pm2_5"] = round(v, 1)
	}
	if v, ok := raw.First("PM1_0", "PM1.0"); ok {
		out["pm1_0"] = round(v, 1)
	}

	return out
}

func (c *PM10Converter) OutputFields() []OutputField {
	return []OutputField{
		{Name: "pm10", DisplayName: "PM10", Unit: "μg/m³"},
		{Name: "pm2_5", DisplayName: "PM2.5", Unit: "μg/m³"},
		{Name: "pm1_0", DisplayName: "PM1.0", Unit: "μg/m³"},
		{Name: "concentration", DisplayName: "Dust concentration", Unit: "μg/m³"},
	}
}
