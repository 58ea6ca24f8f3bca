package types

import (
	"encoding/json"
)

type ValueKind int

const (
	ValueNumber ValueKind = iota
	ValueBool
	ValueStruct
)

// Value is a decoded field value: a number, a bool, or the children of a
// Struct field.
type Value struct {
	Kind   ValueKind
	Number float64
	Bool   bool
	Fields map[string]DecodedField
}

func NumberValue(f float64) Value {
	return Value{Kind: ValueNumber, Number: f}
}

func BoolValue(b bool) Value {
	return Value{Kind: ValueBool, Bool: b}
}

func StructValue(fields map[string]DecodedField) Value {
	return Value{Kind: ValueStruct, Fields: fields}
}

// Float returns the numeric value. Bools convert to 0/1, structs report false.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case ValueNumber:
		return v.Number, true
	case ValueBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func (v Value) Interface() interface{} {
	switch v.Kind {
	case ValueBool:
		return v.Bool
	case ValueStruct:
		return v.Fields
	default:
		return v.Number
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// DecodedField is the decode-time output for one field.
type DecodedField struct {
	Value       Value  `json:"value"`
	DisplayName string `json:"display_name"`
	Unit        string `json:"unit"`
}
