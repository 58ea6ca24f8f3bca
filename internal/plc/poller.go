package plc

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BlockRequest is one DB block the poller reads every cycle.
type BlockRequest struct {
	DBNumber int
	Size     int
}

// BlockHandler receives every successfully read block.
type BlockHandler func(ctx context.Context, req BlockRequest, buf []byte)

// Poller reads a fixed set of blocks on a ticker. A failed read is logged and
// skipped until the next tick.
type Poller struct {
	reader   BlockReader
	blocks   []BlockRequest
	handler  BlockHandler
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

func NewPoller(reader BlockReader, blocks []BlockRequest, handler BlockHandler, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		reader:   reader,
		blocks:   blocks,
		handler:  handler,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start polls once immediately and then on every tick.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	p.running = true
	p.wg.Add(1)

	go p.pollLoop(p.stopChan)

	p.logger.Info("Poller started",
		zap.Int("blocks", len(p.blocks)),
		zap.Duration("interval", p.interval))

	return nil
}

// Stop ends the poll loop and waits for an in-flight cycle. Concurrent calls
// are safe; only the first one closes the loop.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.stopChan = make(chan struct{})
	p.mu.Unlock()

	p.wg.Wait()

	p.logger.Info("Poller stopped")
}

func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) pollLoop(stop <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.PollOnce()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.PollOnce()
		}
	}
}

// PollOnce reads every block once and hands each buffer to the handler.
func (p *Poller) PollOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	for _, req := range p.blocks {
		buf, err := p.reader.ReadBlock(ctx, req.DBNumber, req.Size)
		if err != nil {
			p.logger.Error("Block read failed",
				zap.Int("db_number", req.DBNumber),
				zap.Int("size", req.Size),
				zap.Error(err))
			continue
		}
		p.handler(ctx, req, buf)
	}
}
