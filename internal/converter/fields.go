// Package converter turns decoded raw module fields into calibrated physical
// readings, one converter per sensor class.
package converter

import (
	"math"

	"github.com/KevinKickass/KilnTelemetry/internal/types"
)

// Fields is the raw input of a converter: the decoded fields of one module.
type Fields map[string]types.DecodedField

func (f Fields) Lookup(name string) (types.Value, bool) {
	field, ok := f[name]
	if !ok {
		return types.Value{}, false
	}
	return field.Value, true
}

// Float returns the numeric value of name. It reports false when the field is
// absent or is a Struct.
func (f Fields) Float(name string) (float64, bool) {
	value, ok := f.Lookup(name)
	if !ok {
		return 0, false
	}
	return value.Float()
}

// Value returns the numeric value of name, or def when it is absent.
func (f Fields) Value(name string, def float64) float64 {
	if v, ok := f.Float(name); ok {
		return v
	}
	return def
}

// First returns the first present numeric field among names.
func (f Fields) First(names ...string) (float64, bool) {
	for _, name := range names {
		if v, ok := f.Float(name); ok {
			return v, true
		}
	}
	return 0, false
}

// Reading is a calibrated, flat field map already in physical units.
// Values are float64 or bool.
type Reading map[string]interface{}

// Options carries the per-call parameters converters accept. Zero values mean
// "not supplied".
type Options struct {
	// Electricity
	IsSCR        bool
	IsRollerKiln bool
	CurrentRatio *float64

	// Temperature
	Scale *float64

	// Weight
	PreviousWeight *float64
	Interval       float64
	ForceScale     *float64
}

// OutputField describes one field a converter may emit.
type OutputField struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Unit        string `json:"unit"`
}

type Converter interface {
	Kind() Kind
	Convert(raw Fields, opts Options) Reading
	OutputFields() []OutputField
}

func Float64(v float64) *float64 {
	return &v
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
