package plc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/robinson/gos7"
	"go.uber.org/zap"
)

const defaultS7Port = "102"

type Client struct {
	address     string
	rack        int
	slot        int
	timeout     time.Duration
	idleTimeout time.Duration
	logger      *zap.Logger

	mu        sync.Mutex
	handler   *gos7.TCPClientHandler
	client    gos7.Client
	connected bool
}

func NewClient(address string, rack, slot int, timeout, idleTimeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		address:     withDefaultPort(address),
		rack:        rack,
		slot:        slot,
		timeout:     timeout,
		idleTimeout: idleTimeout,
		logger:      logger,
	}
}

func withDefaultPort(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(address, defaultS7Port)
}

// Connect opens the ISO-on-TCP connection.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	if c.connected {
		return nil
	}

	handler := gos7.NewTCPClientHandler(c.address, c.rack, c.slot)
	handler.Timeout = c.timeout
	handler.IdleTimeout = c.idleTimeout

	if err := handler.Connect(); err != nil {
		return fmt.Errorf("connection to %s failed: %w", c.address, err)
	}

	c.handler = handler
	c.client = gos7.NewClient(handler)
	c.connected = true

	c.logger.Info("Connected to PLC",
		zap.String("address", c.address),
		zap.Int("rack", c.rack),
		zap.Int("slot", c.slot))

	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if !c.connected {
		return nil
	}

	err := c.handler.Close()
	c.handler = nil
	c.client = nil
	c.connected = false

	return err
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ReadBlock reads size bytes from the start of DB db. It connects on demand;
// a failed read drops the connection so the next call reconnects.
func (c *Client) ReadBlock(ctx context.Context, db int, size int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(); err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	if err := c.client.AGReadDB(db, 0, size, buf); err != nil {
		if cerr := c.closeLocked(); cerr != nil {
			c.logger.Warn("Failed to close PLC connection", zap.Error(cerr))
		}
		return nil, fmt.Errorf("read DB%d (%d bytes) failed: %w", db, size, err)
	}

	return buf, nil
}
