package decoder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KevinKickass/KilnTelemetry/internal/types"
	"go.uber.org/zap"
)

type ModuleResult struct {
	ModuleType  string                        `json:"module_type"`
	Tag         string                        `json:"tag"`
	Description string                        `json:"description,omitempty"`
	Fields      map[string]types.DecodedField `json:"fields"`
}

type DeviceResult struct {
	DeviceID   string                  `json:"device_id"`
	DeviceName string                  `json:"device_name"`
	DeviceType string                  `json:"device_type"`
	Category   string                  `json:"category,omitempty"`
	Timestamp  time.Time               `json:"timestamp"`
	Modules    map[string]ModuleResult `json:"modules"`

	// Tags lists the keys of Modules in decode order.
	Tags []string `json:"-"`
}

type Decoder struct {
	catalog *types.Catalog
	logger  *zap.Logger
	workers int
	now     func() time.Time
}

type Option func(*Decoder)

// WithWorkers decodes up to n devices of a block concurrently.
func WithWorkers(n int) Option {
	return func(d *Decoder) {
		d.workers = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Decoder) {
		d.now = now
	}
}

func NewDecoder(catalog *types.Catalog, logger *zap.Logger, opts ...Option) *Decoder {
	d := &Decoder{
		catalog: catalog,
		logger:  logger,
		workers: 1,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodeModule decodes every top-level field of layout placed at
// instance.Offset in buf. Fields are bounded by the module region
// [offset, offset+TotalSize), clipped to the buffer; fields that fall outside
// decode to 0 and are logged. A nil layout is a configuration error.
func (d *Decoder) DecodeModule(buf []byte, instance types.ModuleInstance, layout *types.ModuleLayout) (ModuleResult, error) {
	if layout == nil {
		return ModuleResult{}, fmt.Errorf("%w: %s (tag %s)", types.ErrModuleNotFound, instance.ModuleType, instance.Tag)
	}

	region := moduleRegion(buf, instance.Offset, layout.TotalSize)

	result := ModuleResult{
		ModuleType:  instance.ModuleType,
		Tag:         instance.Tag,
		Description: instance.Description,
		Fields:      make(map[string]types.DecodedField, len(layout.Fields)),
	}

	for _, field := range layout.Fields {
		value, err := DecodeField(region, field, 0)
		if err != nil {
			d.logFieldError(instance, field, err)
		}
		result.Fields[field.Name] = types.DecodedField{
			Value:       value,
			DisplayName: field.Label(),
			Unit:        field.Unit,
		}
	}

	return result, nil
}

// DecodeInstance resolves the instance's layout from the catalog and decodes it.
func (d *Decoder) DecodeInstance(buf []byte, instance types.ModuleInstance) (ModuleResult, error) {
	layout, ok := d.catalog.Lookup(instance.ModuleType)
	if !ok {
		return ModuleResult{}, fmt.Errorf("%w: %s (tag %s)", types.ErrModuleNotFound, instance.ModuleType, instance.Tag)
	}
	return d.DecodeModule(buf, instance, layout)
}

// DecodeDevice decodes all modules of a device. A module that cannot be
// decoded is logged and left out of the result.
func (d *Decoder) DecodeDevice(buf []byte, device types.DeviceLayout) DeviceResult {
	result := DeviceResult{
		DeviceID:   device.DeviceID,
		DeviceName: device.DeviceName,
		DeviceType: device.DeviceType,
		Category:   device.Category,
		Timestamp:  d.now(),
		Modules:    make(map[string]ModuleResult, len(device.Modules)),
		Tags:       make([]string, 0, len(device.Modules)),
	}

	for _, instance := range device.Modules {
		module, err := d.DecodeInstance(buf, instance)
		if err != nil {
			d.logger.Error("Module decode failed",
				zap.String("device_id", device.DeviceID),
				zap.String("module_tag", instance.Tag),
				zap.String("module_type", instance.ModuleType),
				zap.Error(err))
			continue
		}
		result.Modules[instance.Tag] = module
		result.Tags = append(result.Tags, instance.Tag)
	}

	for _, merge := range device.Merges {
		applyMerge(&result, merge)
	}

	return result
}

// DecodeBlock decodes every device in order. Results keep the device order
// regardless of the worker count.
func (d *Decoder) DecodeBlock(buf []byte, devices []types.DeviceLayout) []DeviceResult {
	results := make([]DeviceResult, len(devices))

	if d.workers <= 1 || len(devices) <= 1 {
		for i, device := range devices {
			results[i] = d.DecodeDevice(buf, device)
		}
		return results
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, d.workers)
	for i := range devices {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = d.DecodeDevice(buf, devices[i])
		}(i)
	}
	wg.Wait()

	return results
}

func (d *Decoder) logFieldError(instance types.ModuleInstance, field types.FieldSpec, err error) {
	fields := []zap.Field{
		zap.String("module_tag", instance.Tag),
		zap.String("module_type", instance.ModuleType),
		zap.String("field", field.Name),
		zap.String("data_type", string(field.DataType)),
		zap.Int("offset", instance.Offset+field.Offset),
		zap.Error(err),
	}

	var fe *FieldError
	if errors.As(err, &fe) && fe.Field != field.Name {
		// failure inside a Struct
		fields = append(fields, zap.String("child", fe.Field))
	}

	d.logger.Warn("Field decode failed", fields...)
}

func moduleRegion(buf []byte, offset, size int) []byte {
	if offset < 0 || offset >= len(buf) {
		return nil
	}
	end := len(buf)
	if size > 0 && offset+size < end {
		end = offset + size
	}
	return buf[offset:end]
}
