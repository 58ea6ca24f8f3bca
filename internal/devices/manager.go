package devices

import (
	"fmt"
	"sort"
	"sync"

	"github.com/KevinKickass/KilnTelemetry/internal/types"
	"go.uber.org/zap"
)

// Manager owns the module catalog and every loaded block layout.
type Manager struct {
	loader  *Loader
	catalog *types.Catalog
	blocks  map[int]*types.BlockLayout
	mu      sync.RWMutex
	logger  *zap.Logger
}

func NewManager(searchPaths []string, logger *zap.Logger) (*Manager, error) {
	loader, err := NewLoader(searchPaths, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create layout loader: %w", err)
	}

	return &Manager{
		loader: loader,
		blocks: make(map[int]*types.BlockLayout),
		logger: logger,
	}, nil
}

// Load reads the module catalog and then every block file.
func (m *Manager) Load(catalogPath string, blockPaths []string) error {
	if err := m.LoadCatalog(catalogPath); err != nil {
		return err
	}
	for _, path := range blockPaths {
		if _, err := m.LoadBlock(path); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) LoadCatalog(path string) error {
	catalog, err := m.loader.LoadCatalog(path)
	if err != nil {
		return fmt.Errorf("failed to load module catalog %s: %w", path, err)
	}

	m.mu.Lock()
	m.catalog = catalog
	m.mu.Unlock()

	return nil
}

// LoadBlock loads a block layout. The catalog must be loaded first and DB
// numbers must be unique.
func (m *Manager) LoadBlock(path string) (*types.BlockLayout, error) {
	m.mu.RLock()
	catalog := m.catalog
	m.mu.RUnlock()

	if catalog == nil {
		return nil, fmt.Errorf("module catalog not loaded")
	}

	block, err := m.loader.LoadBlock(path, catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load block %s: %w", path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, exists := m.blocks[block.DBNumber]; exists && existing != block {
		return nil, fmt.Errorf("DB%d already loaded (%s)", block.DBNumber, existing.Name)
	}
	m.blocks[block.DBNumber] = block

	return block, nil
}

func (m *Manager) Catalog() *types.Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.catalog
}

func (m *Manager) Block(dbNumber int) (*types.BlockLayout, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	block, exists := m.blocks[dbNumber]
	return block, exists
}

// Blocks returns all loaded blocks ordered by DB number.
func (m *Manager) Blocks() []*types.BlockLayout {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedBlocks(m.blocks)
}

func sortedBlocks(byNumber map[int]*types.BlockLayout) []*types.BlockLayout {
	blocks := make([]*types.BlockLayout, 0, len(byNumber))
	for _, block := range byNumber {
		blocks = append(blocks, block)
	}
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].DBNumber < blocks[j].DBNumber
	})

	return blocks
}

// Device finds a device by id across all data blocks.
func (m *Manager) Device(deviceID string) (types.DeviceLayout, *types.BlockLayout, bool) {
	for _, block := range m.Blocks() {
		for _, device := range block.Devices {
			if device.DeviceID == deviceID {
				return device, block, true
			}
		}
	}
	return types.DeviceLayout{}, nil, false
}

// Devices lists every configured device, block by block.
func (m *Manager) Devices() []types.DeviceSummary {
	var summaries []types.DeviceSummary
	for _, block := range m.Blocks() {
		for _, device := range block.Devices {
			summaries = append(summaries, device.Summary())
		}
	}
	return summaries
}

// LayoutSet is a loaded catalog with its blocks that is not active yet.
type LayoutSet struct {
	Catalog *types.Catalog
	blocks  map[int]*types.BlockLayout
}

// Blocks returns the staged blocks ordered by DB number.
func (s *LayoutSet) Blocks() []*types.BlockLayout {
	return sortedBlocks(s.blocks)
}

// Stage drops cached layouts and loads the whole set again without touching
// the active layouts.
func (m *Manager) Stage(catalogPath string, blockPaths []string) (*LayoutSet, error) {
	m.loader.ClearCache()

	catalog, err := m.loader.LoadCatalog(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load module catalog %s: %w", catalogPath, err)
	}

	blocks := make(map[int]*types.BlockLayout, len(blockPaths))
	for _, path := range blockPaths {
		block, err := m.loader.LoadBlock(path, catalog)
		if err != nil {
			return nil, fmt.Errorf("failed to load block %s: %w", path, err)
		}
		if existing, exists := blocks[block.DBNumber]; exists && existing != block {
			return nil, fmt.Errorf("DB%d already loaded (%s)", block.DBNumber, existing.Name)
		}
		blocks[block.DBNumber] = block
	}

	return &LayoutSet{Catalog: catalog, blocks: blocks}, nil
}

// Commit makes a staged set the active layouts.
func (m *Manager) Commit(set *LayoutSet) {
	m.mu.Lock()
	m.catalog = set.Catalog
	m.blocks = set.blocks
	m.mu.Unlock()

	m.logger.Info("Layouts activated", zap.Int("blocks", len(set.blocks)))
}

// Reload stages and commits in one step. The current layouts are only
// replaced when the whole set loads.
func (m *Manager) Reload(catalogPath string, blockPaths []string) error {
	m.logger.Info("Reloading layouts", zap.Int("blocks", len(blockPaths)))

	set, err := m.Stage(catalogPath, blockPaths)
	if err != nil {
		return err
	}
	m.Commit(set)
	return nil
}
