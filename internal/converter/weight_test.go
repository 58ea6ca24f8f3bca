package converter

import "testing"

func TestDivisionValue(t *testing.T) {
	want := []float64{1, 2, 5, 10, 20, 50, 0.1, 0.2, 0.5, 0.01, 0.02, 0.05, 0.001, 0.002, 0.005, 1}

	for code := 0; code < 16; code++ {
		if got := DivisionValue(uint8(code)); got != want[code] {
			t.Errorf("code %d: got %v, want %v", code, got, want[code])
		}
		status := ParseStatusWord(uint16(code) << 8)
		if status.DivisionCode != uint8(code) || status.DivisionValue != want[code] {
			t.Errorf("code %d: status %+v", code, status)
		}
	}
}

func TestParseStatusWord(t *testing.T) {
	status := ParseStatusWord(0b1010_0110_1110_0101)

	if want := [5]bool{true, false, true, false, false}; status.Outputs != want {
		t.Errorf("outputs = %v, want %v", status.Outputs, want)
	}
	if !status.IsStable || !status.IsZero || !status.IsOverload {
		t.Errorf("flags = %+v", status)
	}
	if status.DivisionCode != 6 || status.DivisionValue != 0.1 {
		t.Errorf("division = %d/%v", status.DivisionCode, status.DivisionValue)
	}
	if want := [3]bool{false, true, false}; status.Inputs != want {
		t.Errorf("inputs = %v, want %v", status.Inputs, want)
	}
	if !status.BatchComplete {
		t.Error("expected batch complete")
	}
}

func TestWeightConverter_Scale(t *testing.T) {
	c := NewWeightConverter()

	tests := []struct {
		name string
		raw  map[string]float64
		opts Options
		want float64
	}{
		{"code 0", map[string]float64{"StatusWord": 0, "GrossWeight": 1000}, Options{}, 1000},
		{"code 6", map[string]float64{"StatusWord": 0x0600, "GrossWeight": 1000}, Options{}, 100},
		{"code 12", map[string]float64{"StatusWord": 0x0C00, "GrossWeight": 12345}, Options{}, 12.345},
		{"word fallback", map[string]float64{"StatusWord": 0, "GrossWeight": 0, "GrossWeight_W": 750}, Options{}, 750},
		{"dword zero no word", map[string]float64{"GrossWeight": 0}, Options{}, 0},
		{"force scale", map[string]float64{"StatusWord": 0x0600, "GrossWeight": 1000}, Options{ForceScale: Float64(2)}, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.Convert(numbers(tt.raw), tt.opts)
			assertFloat(t, out, "weight", tt.want)
			assertFloat(t, out, "feed_rate", 0)
		})
	}
}

func TestWeightConverter_FeedRate(t *testing.T) {
	c := NewWeightConverter()

	tests := []struct {
		name     string
		previous float64
		current  float64
		interval float64
		want     float64
	}{
		{"discharging", 100, 90, 5, 7200},
		{"filling", 90, 100, 5, -7200},
		{"default interval", 100, 90, 0, 7200},
		{"custom interval", 100, 99, 10, 360},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := numbers(map[string]float64{"StatusWord": 0, "GrossWeight": tt.current})
			out := c.Convert(raw, Options{PreviousWeight: Float64(tt.previous), Interval: tt.interval})
			assertFloat(t, out, "feed_rate", tt.want)
		})
	}
}

func TestWeightConverter_StatusFlags(t *testing.T) {
	out := NewWeightConverter().Convert(numbers(map[string]float64{"StatusWord": 0x00A0, "GrossWeight": 1}), Options{})
	if out["is_stable"] != true || out["is_overload"] != true {
		t.Errorf("flags = %v/%v", out["is_stable"], out["is_overload"])
	}
}

func TestWeightConverter_AbsentInputs(t *testing.T) {
	c := NewWeightConverter()

	out := c.Convert(numbers(map[string]float64{"GrossWeight": 500}), Options{})
	assertFloat(t, out, "weight", 500)
	assertAbsent(t, out, "is_stable", "is_overload")

	out = c.Convert(numbers(map[string]float64{"StatusWord": 0x20}), Options{})
	assertAbsent(t, out, "weight", "feed_rate")
	if out["is_stable"] != true {
		t.Errorf("is_stable = %v", out["is_stable"])
	}
}
