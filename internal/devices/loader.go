package devices

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/KevinKickass/KilnTelemetry/internal/types"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var layoutExtensions = []string{"", ".yaml", ".yml", ".json"}

// Loader reads module catalogs and block layouts from YAML (or JSON) files,
// validates them against the embedded schemas and caches the result by path.
type Loader struct {
	cache       sync.Map
	validator   *Validator
	searchPaths []string
	logger      *zap.Logger
}

func NewLoader(searchPaths []string, logger *zap.Logger) (*Loader, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	return &Loader{
		validator:   validator,
		searchPaths: searchPaths,
		logger:      logger,
	}, nil
}

func (l *Loader) LoadCatalog(path string) (*types.Catalog, error) {
	key := "catalog:" + path
	if cached, ok := l.cache.Load(key); ok {
		return cached.(*types.Catalog), nil
	}

	data, foundPath, err := l.readJSON(path)
	if err != nil {
		return nil, err
	}

	if err := l.validator.ValidateCatalog(data); err != nil {
		return nil, fmt.Errorf("validation failed for %s: %w", foundPath, err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}

	for i := range file.Modules {
		if err := normalizeFields(file.Modules[i].Fields); err != nil {
			return nil, fmt.Errorf("module %s: %w", file.Modules[i].Name, err)
		}
	}

	catalog, err := types.NewCatalog(file.Modules...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", foundPath, err)
	}

	l.logger.Info("Module catalog loaded",
		zap.String("path", foundPath),
		zap.Int("modules", catalog.Len()))

	l.cache.Store(key, catalog)
	return catalog, nil
}

// LoadBlock loads a block layout and composes its devices against catalog.
func (l *Loader) LoadBlock(path string, catalog *types.Catalog) (*types.BlockLayout, error) {
	key := "block:" + path
	if cached, ok := l.cache.Load(key); ok {
		return cached.(*types.BlockLayout), nil
	}

	data, foundPath, err := l.readJSON(path)
	if err != nil {
		return nil, err
	}

	if err := l.validator.ValidateBlock(data); err != nil {
		return nil, fmt.Errorf("validation failed for %s: %w", foundPath, err)
	}

	var file blockFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block: %w", err)
	}

	block := &types.BlockLayout{
		DBNumber:  file.DBConfig.DBNumber,
		Name:      file.DBConfig.DBName,
		TotalSize: file.DBConfig.TotalSize,
		Kind:      file.DBConfig.Kind,
	}
	if block.Kind == "" {
		block.Kind = types.BlockKindData
		if len(file.StatusDevices) > 0 {
			block.Kind = types.BlockKindStatus
		}
	}

	composer := NewComposer(catalog, l.logger)
	ids := make(map[string]bool, len(file.Devices))
	for _, entry := range file.Devices {
		if ids[entry.DeviceID] {
			return nil, fmt.Errorf("%s: duplicate device id %s", foundPath, entry.DeviceID)
		}
		ids[entry.DeviceID] = true

		device, err := composer.ComposeDevice(entry, block.TotalSize)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", foundPath, err)
		}
		block.Devices = append(block.Devices, device)
	}

	block.Status, err = normalizeStatus(file.StatusDevices)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", foundPath, err)
	}

	l.logger.Info("Block layout loaded",
		zap.String("path", foundPath),
		zap.Int("db_number", block.DBNumber),
		zap.String("kind", string(block.Kind)),
		zap.Int("devices", len(block.Devices)),
		zap.Int("status_entries", len(block.Status)))

	l.cache.Store(key, block)
	return block, nil
}

func (l *Loader) ClearCache() {
	l.cache.Range(func(key, value interface{}) bool {
		l.cache.Delete(key)
		return true
	})
}

// readJSON finds path in the search paths and returns its content as JSON.
// YAML is the usual format; JSON is accepted since it is valid YAML.
func (l *Loader) readJSON(path string) ([]byte, string, error) {
	raw, foundPath, err := l.find(path)
	if err != nil {
		return nil, "", err
	}

	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, "", fmt.Errorf("failed to parse %s: %w", foundPath, err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("failed to convert %s to JSON: %w", foundPath, err)
	}

	return data, foundPath, nil
}

func (l *Loader) find(path string) ([]byte, string, error) {
	candidates := []string{path}
	if !filepath.IsAbs(path) {
		candidates = candidates[:0]
		for _, searchPath := range l.searchPaths {
			candidates = append(candidates, filepath.Join(searchPath, path))
		}
		candidates = append(candidates, path)
	}

	for _, candidate := range candidates {
		for _, ext := range layoutExtensions {
			data, err := os.ReadFile(candidate + ext)
			if err == nil {
				return data, candidate + ext, nil
			}
		}
	}

	return nil, "", fmt.Errorf("layout not found: %s (searched in: %v)", path, l.searchPaths)
}

// normalizeFields rewrites data type names to their canonical spelling.
func normalizeFields(fields []types.FieldSpec) error {
	for i := range fields {
		dataType, err := types.ParseDataType(string(fields[i].DataType))
		if err != nil {
			return fmt.Errorf("field %s: %w", fields[i].Name, err)
		}
		fields[i].DataType = dataType

		if err := normalizeFields(fields[i].Children); err != nil {
			return fmt.Errorf("field %s: %w", fields[i].Name, err)
		}
	}
	return nil
}
