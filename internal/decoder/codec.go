// Package decoder turns raw S7 data block bytes into decoded field maps
// using module and device layouts.
package decoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/KevinKickass/KilnTelemetry/internal/types"
)

// FieldError reports a field that could not be decoded. Offset is the
// absolute offset inside the buffer that was handed to DecodeField.
type FieldError struct {
	Field    string
	Offset   int
	DataType types.DataType
	Err      error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s (offset %d, type %s): %v", e.Field, e.Offset, e.DataType, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// DecodeField decodes one field located at base+field.Offset. All multi-byte
// types are big-endian.
//
// A scalar that cannot be decoded yields the sentinel 0.0 together with a
// *FieldError. A Struct always yields its children; children that failed hold
// the sentinel and their errors are joined into the returned error.
func DecodeField(buf []byte, field types.FieldSpec, base int) (types.Value, error) {
	offset := base + field.Offset

	if field.DataType == types.DataTypeStruct {
		return decodeStruct(buf, field, offset)
	}

	value, err := decodeScalar(buf, field, offset)
	if err != nil {
		return types.NumberValue(0), &FieldError{
			Field:    field.Name,
			Offset:   offset,
			DataType: field.DataType,
			Err:      err,
		}
	}
	return value, nil
}

func decodeStruct(buf []byte, field types.FieldSpec, offset int) (types.Value, error) {
	children := make(map[string]types.DecodedField, len(field.Children))
	var errs []error

	for _, child := range field.Children {
		value, err := DecodeField(buf, child, offset)
		if err != nil {
			errs = append(errs, err)
		}
		children[child.Name] = types.DecodedField{
			Value:       value,
			DisplayName: child.Label(),
			Unit:        child.Unit,
		}
	}

	return types.StructValue(children), errors.Join(errs...)
}

func decodeScalar(buf []byte, field types.FieldSpec, offset int) (types.Value, error) {
	size := field.DataType.Size()
	if size == 0 {
		return types.Value{}, fmt.Errorf("%w: %q", types.ErrUnsupportedType, field.DataType)
	}
	if offset < 0 || offset+size > len(buf) {
		return types.Value{}, fmt.Errorf("%w: need %d bytes at %d, buffer has %d",
			types.ErrOutOfBounds, size, offset, len(buf))
	}

	data := buf[offset : offset+size]

	var raw float64
	switch field.DataType {
	case types.DataTypeBool:
		if field.BitOffset < 0 || field.BitOffset > 7 {
			return types.Value{}, fmt.Errorf("%w, got %d", types.ErrInvalidBitOffset, field.BitOffset)
		}
		return types.BoolValue(data[0]&(1<<uint(field.BitOffset)) != 0), nil
	case types.DataTypeByte:
		raw = float64(data[0])
	case types.DataTypeWord:
		raw = float64(binary.BigEndian.Uint16(data))
	case types.DataTypeDWord:
		raw = float64(binary.BigEndian.Uint32(data))
	case types.DataTypeInt:
		raw = float64(int16(binary.BigEndian.Uint16(data)))
	case types.DataTypeDInt:
		raw = float64(int32(binary.BigEndian.Uint32(data)))
	case types.DataTypeReal:
		raw = float64(math.Float32frombits(binary.BigEndian.Uint32(data)))
	}

	if scale := field.EffectiveScale(); scale != 1.0 {
		raw *= scale
	}
	return types.NumberValue(raw), nil
}
