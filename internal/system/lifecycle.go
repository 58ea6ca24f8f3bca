// Package system wires layouts, the PLC reader and the conversion pipeline
// into one polling service.
package system

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/KevinKickass/KilnTelemetry/internal/config"
	"github.com/KevinKickass/KilnTelemetry/internal/converter"
	"github.com/KevinKickass/KilnTelemetry/internal/decoder"
	"github.com/KevinKickass/KilnTelemetry/internal/devices"
	"github.com/KevinKickass/KilnTelemetry/internal/pipeline"
	"github.com/KevinKickass/KilnTelemetry/internal/plc"
	"github.com/KevinKickass/KilnTelemetry/internal/types"
	"go.uber.org/zap"
)

// Sink receives every processed block.
type Sink interface {
	Write(ctx context.Context, result *pipeline.Result) error
}

// LogSink writes a summary of each result to the logger.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Write(ctx context.Context, result *pipeline.Result) error {
	s.Logger.Info("Block decoded",
		zap.Int("db_number", result.DBNumber),
		zap.String("read_id", result.ReadID.String()),
		zap.Int("devices", len(result.Devices)),
		zap.Int("points", len(result.Points)),
		zap.Int("status_records", len(result.Status)))

	for _, point := range result.Points {
		s.Logger.Debug("Point",
			zap.Any("tags", point.Tags),
			zap.Any("fields", point.Fields))
	}
	return nil
}

type LifecycleManager struct {
	config        *config.Config
	deviceManager *devices.Manager
	registry      *converter.Registry
	pipeline      *pipeline.Pipeline
	reader        plc.BlockReader
	client        *plc.Client
	sink          Sink
	logger        *zap.Logger

	pollerMu sync.Mutex
	poller   *plc.Poller

	stateMu      sync.RWMutex
	currentState SystemState
	lastError    error

	listenersMu     sync.RWMutex
	statusListeners []chan SystemStatus

	shutdownOnce sync.Once
}

// NewLifecycleManager loads the layouts and builds the pipeline. The reader
// is a gos7 client for source s7 and a dump directory for source dump.
func NewLifecycleManager(cfg *config.Config, sink Sink, logger *zap.Logger) (*LifecycleManager, error) {
	deviceManager, err := devices.NewManager(cfg.Layouts.SearchPaths, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create device manager: %w", err)
	}
	if err := deviceManager.Load(cfg.Layouts.Modules, cfg.Layouts.Blocks); err != nil {
		return nil, fmt.Errorf("failed to load layouts: %w", err)
	}

	lm := &LifecycleManager{
		config:          cfg,
		deviceManager:   deviceManager,
		registry:        converter.NewRegistry(cfg.Converters.Registry(), logger),
		sink:            sink,
		logger:          logger,
		currentState:    StateInitializing,
		statusListeners: make([]chan SystemStatus, 0),
	}
	if lm.sink == nil {
		lm.sink = LogSink{Logger: logger}
	}

	p, err := lm.newPipeline(deviceManager.Catalog(), deviceManager.Blocks())
	if err != nil {
		return nil, err
	}
	lm.pipeline = p

	switch cfg.PLC.Source {
	case config.SourceDump:
		lm.reader = plc.NewDumpReader(cfg.PLC.DumpDir)
	default:
		lm.client = plc.NewClient(cfg.PLC.Address, cfg.PLC.Rack, cfg.PLC.Slot, cfg.PLC.Timeout, cfg.PLC.IdleTimeout, logger)
		lm.reader = lm.client
	}

	return lm, nil
}

// newPipeline builds a pipeline for catalog and checks every converter key in
// blocks. The weight history of the active pipeline is carried over.
func (lm *LifecycleManager) newPipeline(catalog *types.Catalog, blocks []*types.BlockLayout) (*pipeline.Pipeline, error) {
	dec := decoder.NewDecoder(catalog, lm.logger, decoder.WithWorkers(lm.config.Decode.Workers))
	p := pipeline.New(dec, lm.registry, lm.config.PLC.PollInterval, lm.logger, pipeline.WithHistoryOf(lm.pipeline))
	if err := p.Check(blocks); err != nil {
		return nil, fmt.Errorf("layout converters: %w", err)
	}
	return p, nil
}

// Start begins polling every configured block.
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting kiln telemetry",
		zap.String("source", lm.config.PLC.Source),
		zap.Int("blocks", len(lm.deviceManager.Blocks())))

	if lm.client != nil {
		// Verbindungsfehler sind nicht fatal, ReadBlock verbindet neu
		if err := lm.client.Connect(); err != nil {
			lm.logger.Warn("Initial PLC connect failed", zap.Error(err))
		}
	}

	if err := lm.startPoller(); err != nil {
		lm.setError(err)
		return err
	}

	if err := lm.setState(StateRunning); err != nil {
		return err
	}

	lm.logger.Info("System started successfully",
		zap.Duration("poll_interval", lm.config.PLC.PollInterval),
		zap.Int("devices", len(lm.deviceManager.Devices())))

	return nil
}

func (lm *LifecycleManager) startPoller() error {
	lm.pollerMu.Lock()
	defer lm.pollerMu.Unlock()

	blocks := lm.deviceManager.Blocks()
	requests := make([]plc.BlockRequest, 0, len(blocks))
	for _, block := range blocks {
		requests = append(requests, plc.BlockRequest{DBNumber: block.DBNumber, Size: block.TotalSize})
	}

	lm.poller = plc.NewPoller(lm.reader, requests, lm.handleBlock, lm.config.PLC.PollInterval, lm.logger)
	return lm.poller.Start()
}

func (lm *LifecycleManager) stopPoller() {
	lm.pollerMu.Lock()
	defer lm.pollerMu.Unlock()

	if lm.poller != nil {
		lm.poller.Stop()
		lm.poller = nil
	}
}

func (lm *LifecycleManager) handleBlock(ctx context.Context, req plc.BlockRequest, buf []byte) {
	block, ok := lm.deviceManager.Block(req.DBNumber)
	if !ok {
		lm.logger.Warn("No layout for block", zap.Int("db_number", req.DBNumber))
		return
	}

	result, err := lm.pipeline.Process(block, buf)
	if err != nil {
		lm.logger.Error("Block conversion incomplete",
			zap.Int("db_number", req.DBNumber),
			zap.Error(err))
	}

	if err := lm.sink.Write(ctx, result); err != nil {
		lm.logger.Error("Sink write failed",
			zap.Int("db_number", req.DBNumber),
			zap.Error(err))
	}
}

// Reload rereads the layout files and restarts polling with them. The old
// layouts stay active when the new ones fail to load.
func (lm *LifecycleManager) Reload() error {
	if err := lm.setState(StateReloading); err != nil {
		return err
	}

	lm.stopPoller()

	reloadErr := lm.reloadLayouts()
	if reloadErr != nil {
		lm.logger.Error("Layout reload failed", zap.Error(reloadErr))
	}

	if err := lm.startPoller(); err != nil {
		lm.setError(err)
		return errors.Join(reloadErr, err)
	}
	if err := lm.setState(StateRunning); err != nil {
		return err
	}

	lm.logger.Info("Layouts reloaded", zap.Int("devices", len(lm.deviceManager.Devices())))
	return reloadErr
}

// reloadLayouts activates the new layouts and pipeline together, and only
// once both load and check.
func (lm *LifecycleManager) reloadLayouts() error {
	set, err := lm.deviceManager.Stage(lm.config.Layouts.Modules, lm.config.Layouts.Blocks)
	if err != nil {
		return err
	}

	p, err := lm.newPipeline(set.Catalog, set.Blocks())
	if err != nil {
		return err
	}

	lm.deviceManager.Commit(set)
	lm.pipeline = p
	return nil
}

// Shutdown stops polling and closes the PLC connection.
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")
		_ = lm.setState(StateStopping)

		done := make(chan struct{})
		go func() {
			lm.stopPoller()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			lm.logger.Warn("Shutdown timeout, forcing stop")
			shutdownErr = fmt.Errorf("shutdown timeout exceeded")
		}

		if lm.client != nil {
			if err := lm.client.Close(); err != nil {
				shutdownErr = errors.Join(shutdownErr, fmt.Errorf("plc close failed: %w", err))
			}
		}

		_ = lm.setState(StateStopped)
		lm.closeListeners()
	})

	return shutdownErr
}

func (lm *LifecycleManager) setState(state SystemState) error {
	lm.stateMu.Lock()
	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.stateMu.Unlock()
		lm.logger.Warn("Rejected state change", zap.Error(err))
		return err
	}
	lm.currentState = state
	if state != StateError {
		lm.lastError = nil
	}
	lm.stateMu.Unlock()

	lm.broadcastStatus()
	return nil
}

func (lm *LifecycleManager) setError(err error) {
	lm.stateMu.Lock()
	lm.currentState = StateError
	lm.lastError = err
	lm.stateMu.Unlock()

	lm.broadcastStatus()
}

// GetCurrentStatus returns the current system status.
func (lm *LifecycleManager) GetCurrentStatus() SystemStatus {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()

	status := SystemStatus{
		State:     lm.currentState,
		Blocks:    len(lm.deviceManager.Blocks()),
		Devices:   len(lm.deviceManager.Devices()),
		Connected: lm.client == nil || lm.client.IsConnected(),
		Timestamp: time.Now().Unix(),
	}
	if lm.lastError != nil {
		status.Error = lm.lastError.Error()
	}
	return status
}

func (lm *LifecycleManager) broadcastStatus() {
	status := lm.GetCurrentStatus()

	lm.listenersMu.RLock()
	defer lm.listenersMu.RUnlock()

	for _, listener := range lm.statusListeners {
		select {
		case listener <- status:
		default:
			// Channel voll, überspringen
		}
	}
}

// SubscribeStatus subscribes to status updates
func (lm *LifecycleManager) SubscribeStatus() chan SystemStatus {
	ch := make(chan SystemStatus, 10)

	lm.listenersMu.Lock()
	lm.statusListeners = append(lm.statusListeners, ch)
	lm.listenersMu.Unlock()

	return ch
}

// UnsubscribeStatus removes ch from the subscribers and closes it. Channels
// that are not subscribed, including those already closed by Shutdown, are
// ignored.
func (lm *LifecycleManager) UnsubscribeStatus(ch chan SystemStatus) {
	lm.listenersMu.Lock()
	defer lm.listenersMu.Unlock()

	i := slices.Index(lm.statusListeners, ch)
	if i < 0 {
		return
	}
	lm.statusListeners = slices.Delete(lm.statusListeners, i, i+1)
	close(ch)
}

func (lm *LifecycleManager) closeListeners() {
	lm.listenersMu.Lock()
	defer lm.listenersMu.Unlock()

	for _, ch := range lm.statusListeners {
		close(ch)
	}
	lm.statusListeners = nil
}

// DeviceManager returns the device manager
func (lm *LifecycleManager) DeviceManager() *devices.Manager {
	return lm.deviceManager
}

// Pipeline returns the active pipeline
func (lm *LifecycleManager) Pipeline() *pipeline.Pipeline {
	return lm.pipeline
}

// Config returns the configuration the manager was built with.
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}
