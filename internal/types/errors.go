package types

import "errors"

var (
	// ErrModuleNotFound marks a module instance whose module type has no layout.
	ErrModuleNotFound = errors.New("module layout not found")

	// ErrUnknownModuleType marks a module type with no registered converter.
	ErrUnknownModuleType = errors.New("unknown module type")

	ErrOutOfBounds      = errors.New("field out of bounds")
	ErrInvalidBitOffset = errors.New("bit offset must be 0-7")
	ErrUnsupportedType  = errors.New("unsupported data type")
)
