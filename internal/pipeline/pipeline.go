// Package pipeline decodes DB block buffers and converts every module into a
// calibrated Point.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/KevinKickass/KilnTelemetry/internal/converter"
	"github.com/KevinKickass/KilnTelemetry/internal/decoder"
	"github.com/KevinKickass/KilnTelemetry/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	categoryRollerKiln = "roller_kiln"
	categorySCR        = "scr"
)

type Pipeline struct {
	decoder  *decoder.Decoder
	registry *converter.Registry
	interval time.Duration
	history  *weightHistory
	logger   *zap.Logger
	newID    func() uuid.UUID
}

type Option func(*Pipeline)

// WithHistoryOf shares the weight history of prev, so feed rates continue
// across a pipeline rebuild. A nil prev is ignored.
func WithHistoryOf(prev *Pipeline) Option {
	return func(p *Pipeline) {
		if prev != nil {
			p.history = prev.history
		}
	}
}

// New builds a pipeline. interval is the nominal polling interval used for the
// first feed rate after a gap in the history.
func New(dec *decoder.Decoder, registry *converter.Registry, interval time.Duration, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		decoder:  dec,
		registry: registry,
		interval: interval,
		history:  newWeightHistory(),
		logger:   logger,
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check resolves the converter of every module instance up front so a bad
// module type fails at startup instead of on the first read.
func (p *Pipeline) Check(blocks []*types.BlockLayout) error {
	var errs []error

	for _, block := range blocks {
		for _, device := range block.Devices {
			merged := mergedSources(device)
			for _, instance := range device.Modules {
				if merged[instance.Tag] || instance.ConverterKey() == types.ConverterNone {
					continue
				}
				if _, err := converter.ParseKind(instance.ConverterKey()); err != nil {
					errs = append(errs, fmt.Errorf("DB%d %s/%s: %w", block.DBNumber, device.DeviceID, instance.Tag, err))
				}
			}
			for _, merge := range device.Merges {
				if _, err := converter.ParseKind(merge.ModuleType); err != nil {
					errs = append(errs, fmt.Errorf("DB%d %s/%s: %w", block.DBNumber, device.DeviceID, merge.Tag, err))
				}
			}
		}
	}

	return errors.Join(errs...)
}

// Process decodes buf according to block. Data blocks yield device results
// and one Point per converted module; status blocks yield status records.
// Modules whose converter cannot be resolved are skipped and reported in the
// returned error alongside the partial result.
func (p *Pipeline) Process(block *types.BlockLayout, buf []byte) (*Result, error) {
	result := &Result{
		ReadID:   p.newID(),
		DBNumber: block.DBNumber,
	}

	if block.Kind == types.BlockKindStatus {
		result.Status = p.decoder.DecodeStatusCollection(buf, block.Status)
		p.logStatus(result)
		return result, nil
	}

	if block.TotalSize > 0 && len(buf) < block.TotalSize {
		p.logger.Warn("Short block buffer",
			zap.Int("db_number", block.DBNumber),
			zap.Int("expected", block.TotalSize),
			zap.Int("actual", len(buf)))
	}

	result.Devices = p.decoder.DecodeBlock(buf, block.Devices)

	var errs []error
	for i, device := range result.Devices {
		points, err := p.convertDevice(result.ReadID, block.DBNumber, block.Devices[i], device)
		if err != nil {
			errs = append(errs, err)
		}
		result.Points = append(result.Points, points...)
	}

	p.logger.Debug("Block processed",
		zap.Int("db_number", block.DBNumber),
		zap.String("read_id", result.ReadID.String()),
		zap.Int("devices", len(result.Devices)),
		zap.Int("points", len(result.Points)))

	return result, errors.Join(errs...)
}

// ResetHistory forgets all previous weights.
func (p *Pipeline) ResetHistory() {
	p.history.reset()
}

func (p *Pipeline) convertDevice(readID uuid.UUID, dbNumber int, layout types.DeviceLayout, device decoder.DeviceResult) ([]Point, error) {
	instances := make(map[string]types.ModuleInstance, len(layout.Modules))
	for _, instance := range layout.Modules {
		instances[instance.Tag] = instance
	}
	merges := make(map[string]types.ModuleMerge, len(layout.Merges))
	for _, merge := range layout.Merges {
		merges[merge.Tag] = merge
	}

	var points []Point
	var errs []error

	for _, tag := range device.Tags {
		module := device.Modules[tag]

		instance, ok := instances[tag]
		key := instance.ConverterKey()
		if !ok {
			key = merges[tag].ModuleType
		}
		if key == types.ConverterNone {
			continue
		}

		conv, err := p.registry.Get(key)
		if err != nil {
			p.logger.Error("No converter for module",
				zap.String("device_id", device.DeviceID),
				zap.String("module_tag", tag),
				zap.String("converter", key),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s/%s: %w", device.DeviceID, tag, err))
			continue
		}

		opts := p.options(layout, instance, tag, conv.Kind(), device)
		reading := conv.Convert(converter.Fields(module.Fields), opts)

		if conv.Kind() == converter.KindWeight {
			if w, ok := reading["weight"].(float64); ok {
				p.history.store(historyKey(device.DeviceID, tag), weightSample{weight: w, at: device.Timestamp})
			}
		}

		points = append(points, newPoint(readID, dbNumber, device, module, reading))
	}

	return points, errors.Join(errs...)
}

// options derives converter options for the module under tag. instance is
// the zero value for merged modules.
func (p *Pipeline) options(layout types.DeviceLayout, instance types.ModuleInstance, tag string, kind converter.Kind, device decoder.DeviceResult) converter.Options {
	var opts converter.Options

	switch kind {
	case converter.KindElectricity:
		opts.IsRollerKiln = layout.Category == categoryRollerKiln || layout.DeviceType == categoryRollerKiln
		opts.IsSCR = layout.Category == categorySCR || layout.DeviceType == categorySCR
		if instance.CurrentRatio > 0 {
			opts.CurrentRatio = converter.Float64(instance.CurrentRatio)
		}

	case converter.KindWeight:
		opts.Interval = p.interval.Seconds()
		if last, ok := p.history.last(historyKey(device.DeviceID, tag)); ok {
			opts.PreviousWeight = converter.Float64(last.weight)
			if elapsed := device.Timestamp.Sub(last.at); elapsed > 0 {
				opts.Interval = elapsed.Seconds()
			}
		}
	}

	return opts
}

func (p *Pipeline) logStatus(result *Result) {
	for _, status := range result.Status {
		if status.IsNormal {
			continue
		}
		p.logger.Warn("Module status abnormal",
			zap.Int("db_number", result.DBNumber),
			zap.String("device_id", status.DeviceID),
			zap.String("module_tag", status.ModuleTag),
			zap.Bool("error", status.Error),
			zap.String("status_hex", status.StatusHex))
	}
}

func mergedSources(device types.DeviceLayout) map[string]bool {
	sources := make(map[string]bool)
	for _, merge := range device.Merges {
		for _, source := range merge.Sources {
			sources[source] = true
		}
	}
	return sources
}
