package types

import (
	"fmt"
	"sort"
	"strings"
)

type DataType string

const (
	DataTypeBool   DataType = "Bool"
	DataTypeByte   DataType = "Byte"
	DataTypeWord   DataType = "Word"
	DataTypeDWord  DataType = "DWord"
	DataTypeInt    DataType = "Int"
	DataTypeDInt   DataType = "DInt"
	DataTypeReal   DataType = "Real"
	DataTypeStruct DataType = "Struct"
)

// ParseDataType accepts the PLC spelling of a type name in any case
// ("DWORD", "dword" and "DWord" are the same type).
func ParseDataType(name string) (DataType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "BOOL":
		return DataTypeBool, nil
	case "BYTE":
		return DataTypeByte, nil
	case "WORD":
		return DataTypeWord, nil
	case "DWORD":
		return DataTypeDWord, nil
	case "INT":
		return DataTypeInt, nil
	case "DINT":
		return DataTypeDInt, nil
	case "REAL":
		return DataTypeReal, nil
	case "STRUCT":
		return DataTypeStruct, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, name)
}

// Size returns the encoded width in bytes. Struct has no fixed width and
// returns 0.
func (d DataType) Size() int {
	switch d {
	case DataTypeBool, DataTypeByte:
		return 1
	case DataTypeWord, DataTypeInt:
		return 2
	case DataTypeDWord, DataTypeDInt, DataTypeReal:
		return 4
	default:
		return 0
	}
}

// FieldSpec describes one field of a module. Struct fields carry Children
// whose offsets are relative to the struct's own offset.
type FieldSpec struct {
	Name        string      `json:"name" yaml:"name"`
	DataType    DataType    `json:"data_type" yaml:"data_type"`
	Offset      int         `json:"offset" yaml:"offset"`
	BitOffset   int         `json:"bit_offset,omitempty" yaml:"bit_offset,omitempty"`
	Scale       float64     `json:"scale,omitempty" yaml:"scale,omitempty"`
	Unit        string      `json:"unit,omitempty" yaml:"unit,omitempty"`
	DisplayName string      `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Children    []FieldSpec `json:"children,omitempty" yaml:"children,omitempty"`
}

// EffectiveScale treats an unset scale as 1.0.
func (f FieldSpec) EffectiveScale() float64 {
	if f.Scale == 0 {
		return 1.0
	}
	return f.Scale
}

func (f FieldSpec) Label() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return f.Name
}

// End returns the first byte after the field, relative to its parent.
func (f FieldSpec) End() int {
	if f.DataType != DataTypeStruct {
		return f.Offset + f.DataType.Size()
	}
	end := f.Offset
	for _, child := range f.Children {
		if e := f.Offset + child.End(); e > end {
			end = e
		}
	}
	return end
}

// ModuleLayout is a reusable byte layout for one sensor or meter class.
type ModuleLayout struct {
	Name        string      `json:"name" yaml:"name"`
	TotalSize   int         `json:"total_size" yaml:"total_size"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []FieldSpec `json:"fields" yaml:"fields"`
}

// ModuleInstance places a module layout at an absolute offset inside a block.
type ModuleInstance struct {
	ModuleType  string `json:"module_type" yaml:"module_type"`
	Tag         string `json:"tag" yaml:"tag"`
	Offset      int    `json:"offset" yaml:"offset"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Converter overrides the converter key; defaults to ModuleType.
	// ConverterNone disables conversion for the instance.
	Converter    string  `json:"converter,omitempty" yaml:"converter,omitempty"`
	CurrentRatio float64 `json:"current_ratio,omitempty" yaml:"current_ratio,omitempty"`
}

const ConverterNone = "none"

func (m ModuleInstance) ConverterKey() string {
	if m.Converter != "" {
		return m.Converter
	}
	return m.ModuleType
}

// ModuleMerge combines the decoded fields of several module instances into
// one logical module after decoding.
type ModuleMerge struct {
	Tag         string            `json:"tag" yaml:"tag"`
	ModuleType  string            `json:"module_type" yaml:"module_type"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Sources     []string          `json:"sources" yaml:"sources"`
	Rename      map[string]string `json:"rename,omitempty" yaml:"rename,omitempty"`
}

type DeviceLayout struct {
	DeviceID   string           `json:"device_id" yaml:"device_id"`
	DeviceName string           `json:"device_name" yaml:"device_name"`
	DeviceType string           `json:"device_type" yaml:"device_type"`
	Category   string           `json:"category,omitempty" yaml:"category,omitempty"`
	Modules    []ModuleInstance `json:"modules" yaml:"modules"`
	Merges     []ModuleMerge    `json:"merges,omitempty" yaml:"merges,omitempty"`
}

// DeviceSummary is the list view of a device.
type DeviceSummary struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	DeviceType string `json:"device_type"`
	Category   string `json:"category"`
}

func (d DeviceLayout) Summary() DeviceSummary {
	return DeviceSummary{
		DeviceID:   d.DeviceID,
		DeviceName: d.DeviceName,
		DeviceType: d.DeviceType,
		Category:   d.Category,
	}
}

// StatusEntry locates one 4-byte module status record in a diagnostic block.
type StatusEntry struct {
	DeviceID    string `json:"device_id"`
	DeviceName  string `json:"device_name"`
	DeviceType  string `json:"device_type"`
	Tag         string `json:"module_tag"`
	Description string `json:"description"`
	Offset      int    `json:"offset"`
}

type BlockKind string

const (
	BlockKindData   BlockKind = "data"
	BlockKindStatus BlockKind = "status"
)

// BlockLayout is everything needed to decode one DB block.
type BlockLayout struct {
	DBNumber  int            `json:"db_number"`
	Name      string         `json:"db_name"`
	TotalSize int            `json:"total_size"`
	Kind      BlockKind      `json:"kind"`
	Devices   []DeviceLayout `json:"devices,omitempty"`
	Status    []StatusEntry  `json:"status,omitempty"`
}

// Catalog indexes module layouts by name. It is read-only after NewCatalog.
type Catalog struct {
	modules map[string]*ModuleLayout
}

func NewCatalog(layouts ...ModuleLayout) (*Catalog, error) {
	c := &Catalog{modules: make(map[string]*ModuleLayout, len(layouts))}
	for i := range layouts {
		layout := layouts[i]
		if layout.Name == "" {
			return nil, fmt.Errorf("module layout at index %d has no name", i)
		}
		if _, exists := c.modules[layout.Name]; exists {
			return nil, fmt.Errorf("duplicate module layout: %s", layout.Name)
		}
		c.modules[layout.Name] = &layout
	}
	return c, nil
}

func (c *Catalog) Lookup(name string) (*ModuleLayout, bool) {
	if c == nil {
		return nil, false
	}
	layout, ok := c.modules[name]
	return layout, ok
}

// Names returns the module names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.modules))
	for name := range c.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) Len() int {
	return len(c.modules)
}
