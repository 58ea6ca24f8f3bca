package converter

import (
	"fmt"
	"strings"
	"sync"

	"github.com/KevinKickass/KilnTelemetry/internal/types"
	"go.uber.org/zap"
)

// Kind is the closed set of converter implementations.
type Kind int

const (
	KindElectricity Kind = iota + 1
	KindTemperature
	KindPM10
	KindVibrationSelected
	KindVibrationDB6
	KindWeight
)

var kindNames = map[Kind]string{
	KindElectricity:       "ElectricityMeter",
	KindTemperature:       "TemperatureSensor",
	KindPM10:              "PM10Sensor",
	KindVibrationSelected: "VibrationSelected",
	KindVibrationDB6:      "VibrationDB6",
	KindWeight:            "WeighSensor",
}

// kindKeys holds canonical module type names and their business aliases.
var kindKeys = map[string]Kind{
	"ElectricityMeter":   KindElectricity,
	"electricity":        KindElectricity,
	"TemperatureSensor":  KindTemperature,
	"temperature":        KindTemperature,
	"PM10Sensor":         KindPM10,
	"pm10":               KindPM10,
	"VibrationSelected":  KindVibrationSelected,
	"vibration_selected": KindVibrationSelected,
	"VibrationDB6":       KindVibrationDB6,
	"vibration":          KindVibrationDB6,
	"WeighSensor":        KindWeight,
	"weight":             KindWeight,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func Kinds() []Kind {
	return []Kind{
		KindElectricity,
		KindTemperature,
		KindPM10,
		KindVibrationSelected,
		KindVibrationDB6,
		KindWeight,
	}
}

// ParseKind resolves a canonical module type or alias. Keys are matched
// exactly.
func ParseKind(key string) (Kind, error) {
	if kind, ok := kindKeys[strings.TrimSpace(key)]; ok {
		return kind, nil
	}
	return 0, fmt.Errorf("%w: %s", types.ErrUnknownModuleType, key)
}

type RegistryConfig struct {
	DisplacementMode DisplacementMode
	DB6HighPrecision bool
}

// Registry hands out one converter instance per kind, built on first use.
type Registry struct {
	mu        sync.Mutex
	config    RegistryConfig
	logger    *zap.Logger
	instances map[Kind]Converter
}

func NewRegistry(config RegistryConfig, logger *zap.Logger) *Registry {
	if config.DisplacementMode == "" {
		config.DisplacementMode = HighRange
	}
	return &Registry{
		config:    config,
		logger:    logger,
		instances: make(map[Kind]Converter),
	}
}

// Get returns the converter for a module type key.
func (r *Registry) Get(key string) (Converter, error) {
	kind, err := ParseKind(key)
	if err != nil {
		return nil, err
	}
	return r.For(kind), nil
}

// For returns the converter for kind, or nil for a value outside the enum.
func (r *Registry) For(kind Kind) Converter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.instances[kind]; ok {
		return c
	}

	c := r.build(kind)
	if c != nil {
		r.instances[kind] = c
		r.logger.Debug("Converter created", zap.Stringer("kind", kind))
	}
	return c
}

func (r *Registry) build(kind Kind) Converter {
	switch kind {
	case KindElectricity:
		return NewElectricityConverter()
	case KindTemperature:
		return NewTemperatureConverter()
	case KindPM10:
		return NewPM10Converter()
	case KindVibrationSelected:
		return NewVibrationConverter(r.config.DisplacementMode, r.logger.Named("vibration"))
	case KindVibrationDB6:
		return NewVibrationDB6Converter(r.config.DB6HighPrecision, r.logger.Named("vibration_db6"))
	case KindWeight:
		return NewWeightConverter()
	}
	return nil
}
