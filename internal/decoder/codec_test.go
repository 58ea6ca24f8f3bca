package decoder

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/KevinKickass/KilnTelemetry/internal/types"
)

func TestDecodeField_BigEndian(t *testing.T) {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint16(buf[0:], 0xABCD)
	binary.BigEndian.PutUint32(buf[2:], 0x01020304)
	binary.BigEndian.PutUint16(buf[6:], uint16(0x8000)) // int16 -32768
	binary.BigEndian.PutUint32(buf[8:], uint32(0xFFFFFFFE))
	binary.BigEndian.PutUint32(buf[12:], math.Float32bits(230.5))

	tests := []struct {
		name  string
		field types.FieldSpec
		want  float64
	}{
		{"byte", types.FieldSpec{Name: "b", DataType: types.DataTypeByte, Offset: 0}, 0xAB},
		{"word", types.FieldSpec{Name: "w", DataType: types.DataTypeWord, Offset: 0}, 0xABCD},
		{"dword", types.FieldSpec{Name: "dw", DataType: types.DataTypeDWord, Offset: 2}, 0x01020304},
		{"int negative", types.FieldSpec{Name: "i", DataType: types.DataTypeInt, Offset: 6}, -32768},
		{"dint negative", types.FieldSpec{Name: "di", DataType: types.DataTypeDInt, Offset: 8}, -2},
		{"real", types.FieldSpec{Name: "r", DataType: types.DataTypeReal, Offset: 12}, 230.5},
		{"scaled word", types.FieldSpec{Name: "sw", DataType: types.DataTypeWord, Offset: 0, Scale: 0.5}, 0xABCD * 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := DecodeField(buf, tt.field, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, ok := value.Float()
			if !ok {
				t.Fatalf("expected numeric value, got kind %v", value.Kind)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeField_RealRoundTrip(t *testing.T) {
	inputs := []float32{0, -1.25, 3.14159, 1e-7, 123456.78, float32(math.MaxFloat32)}
	buf := make([]byte, 4)

	for _, in := range inputs {
		binary.BigEndian.PutUint32(buf, math.Float32bits(in))
		value, err := DecodeField(buf, types.FieldSpec{Name: "r", DataType: types.DataTypeReal}, 0)
		if err != nil {
			t.Fatalf("decode %v: %v", in, err)
		}
		if value.Number != float64(in) {
			t.Errorf("round trip %v: got %v", in, value.Number)
		}
	}
}

func TestDecodeField_Base(t *testing.T) {
	buf := []byte{0, 0, 0, 0, 0x00, 0x2A}
	value, err := DecodeField(buf, types.FieldSpec{Name: "w", DataType: types.DataTypeWord, Offset: 2}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value.Number != 42 {
		t.Errorf("got %v, want 42", value.Number)
	}
}

func TestDecodeField_Bool(t *testing.T) {
	buf := []byte{0b1010_0001}

	for bit := 0; bit < 8; bit++ {
		want := buf[0]&(1<<uint(bit)) != 0
		field := types.FieldSpec{Name: "flag", DataType: types.DataTypeBool, BitOffset: bit, Scale: 10}

		value, err := DecodeField(buf, field, 0)
		if err != nil {
			t.Fatalf("bit %d: unexpected error: %v", bit, err)
		}
		if value.Kind != types.ValueBool {
			t.Fatalf("bit %d: expected bool kind, got %v", bit, value.Kind)
		}
		if value.Bool != want {
			t.Errorf("bit %d: got %v, want %v", bit, value.Bool, want)
		}
	}
}

func TestDecodeField_BoolSingleBit(t *testing.T) {
	tests := []struct {
		name string
		b    byte
		bit  int
	}{
		{"bit 0", 0x01, 0},
		{"bit 1", 0x02, 1},
		{"bit 2", 0x04, 2},
		{"bit 3", 0x08, 3},
		{"bit 4", 0x10, 4},
		{"bit 5", 0x20, 5},
		{"bit 6", 0x40, 6},
		{"bit 7", 0x80, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := []byte{tt.b}
			for bit := 0; bit < 8; bit++ {
				value, err := DecodeField(buf, types.FieldSpec{Name: "flag", DataType: types.DataTypeBool, BitOffset: bit}, 0)
				if err != nil {
					t.Fatalf("bit %d: unexpected error: %v", bit, err)
				}
				if want := bit == tt.bit; value.Bool != want {
					t.Errorf("byte %#02x bit %d: got %v, want %v", tt.b, bit, value.Bool, want)
				}
			}
		})
	}
}

func TestDecodeField_InvalidBitOffset(t *testing.T) {
	buf := []byte{0xFF}
	for _, bit := range []int{-1, 8, 15} {
		value, err := DecodeField(buf, types.FieldSpec{Name: "flag", DataType: types.DataTypeBool, BitOffset: bit}, 0)
		if !errors.Is(err, types.ErrInvalidBitOffset) {
			t.Errorf("bit %d: expected ErrInvalidBitOffset, got %v", bit, err)
		}
		if value.Kind != types.ValueNumber || value.Number != 0 {
			t.Errorf("bit %d: expected sentinel 0, got %+v", bit, value)
		}
	}
}

func TestDecodeField_OutOfBounds(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03}

	value, err := DecodeField(buf, types.FieldSpec{Name: "dw", DataType: types.DataTypeDWord, Offset: 0}, 0)
	if !errors.Is(err, types.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if value.Number != 0 {
		t.Errorf("expected sentinel 0, got %v", value.Number)
	}

	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FieldError, got %T", err)
	}
	if fe.Field != "dw" || fe.Offset != 0 || fe.DataType != types.DataTypeDWord {
		t.Errorf("unexpected field error: %+v", fe)
	}
}

func TestDecodeField_UnsupportedType(t *testing.T) {
	_, err := DecodeField([]byte{0, 0, 0, 0}, types.FieldSpec{Name: "s", DataType: "String"}, 0)
	if !errors.Is(err, types.ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestDecodeField_Struct(t *testing.T) {
	buf := make([]byte, 10)
	binary.BigEndian.PutUint16(buf[4:], 50)
	buf[6] = 0b0000_0100

	field := types.FieldSpec{
		Name:     "channel",
		DataType: types.DataTypeStruct,
		Offset:   4,
		Children: []types.FieldSpec{
			{Name: "Temperature", DataType: types.DataTypeInt, Offset: 0, Scale: 0.5, Unit: "°C"},
			{Name: "Alarm", DataType: types.DataTypeBool, Offset: 2, BitOffset: 2},
			{Name: "Nested", DataType: types.DataTypeStruct, Offset: 3, Children: []types.FieldSpec{
				{Name: "Code", DataType: types.DataTypeByte, Offset: 0},
			}},
		},
	}

	value, err := DecodeField(buf, field, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value.Kind != types.ValueStruct {
		t.Fatalf("expected struct kind, got %v", value.Kind)
	}

	temp := value.Fields["Temperature"]
	if temp.Value.Number != 25.0 || temp.Unit != "°C" {
		t.Errorf("unexpected temperature: %+v", temp)
	}
	if !value.Fields["Alarm"].Value.Bool {
		t.Error("expected alarm bit set")
	}
	nested := value.Fields["Nested"].Value
	if nested.Kind != types.ValueStruct {
		t.Fatalf("expected nested struct, got %v", nested.Kind)
	}
	if _, ok := nested.Fields["Code"]; !ok {
		t.Error("expected nested child Code")
	}
}

func TestDecodeField_StructWordReal(t *testing.T) {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint16(buf[4:], 1234)
	binary.BigEndian.PutUint32(buf[8:], math.Float32bits(230.5))

	field := types.FieldSpec{
		Name:     "meter",
		DataType: types.DataTypeStruct,
		Offset:   4,
		Children: []types.FieldSpec{
			{Name: "Count", DataType: types.DataTypeWord, Offset: 0},
			{Name: "Voltage", DataType: types.DataTypeReal, Offset: 4, Unit: "V"},
		},
	}

	value, err := DecodeField(buf, field, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		child string
		want  float64
	}{
		{"Count", 1234},
		{"Voltage", 230.5},
	}
	for _, tt := range tests {
		t.Run(tt.child, func(t *testing.T) {
			child, ok := value.Fields[tt.child]
			if !ok {
				t.Fatalf("child %s missing", tt.child)
			}
			if child.Value.Kind != types.ValueNumber || child.Value.Number != tt.want {
				t.Errorf("got %+v, want %v", child.Value, tt.want)
			}
		})
	}
	if len(value.Fields) != 2 {
		t.Errorf("expected 2 children, got %d", len(value.Fields))
	}
}

func TestDecodeField_StructPartialFailure(t *testing.T) {
	buf := []byte{0x00, 0x07}

	field := types.FieldSpec{
		Name:     "pair",
		DataType: types.DataTypeStruct,
		Children: []types.FieldSpec{
			{Name: "Ok", DataType: types.DataTypeWord, Offset: 0},
			{Name: "Missing", DataType: types.DataTypeReal, Offset: 2},
		},
	}

	value, err := DecodeField(buf, field, 0)
	if !errors.Is(err, types.ErrOutOfBounds) {
		t.Fatalf("expected joined ErrOutOfBounds, got %v", err)
	}
	if value.Fields["Ok"].Value.Number != 7 {
		t.Errorf("expected Ok=7, got %v", value.Fields["Ok"].Value.Number)
	}
	if value.Fields["Missing"].Value.Number != 0 {
		t.Errorf("expected Missing sentinel 0, got %v", value.Fields["Missing"].Value.Number)
	}
}
