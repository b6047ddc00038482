// Package sim provides an in-process remote device for local development and
// tests. It speaks no wire protocol; config and state changes are driven
// through its control surface and delivered through the same push handlers a
// real transport would use.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/switchbridge/internal/pkg/model"
	"github.com/anicoll/switchbridge/internal/pkg/remote"
)

const DriverName = "sim"

func init() {
	_ = remote.RegisterDriver(DriverName, func(_ context.Context, deviceID, _ string) (remote.Client, error) {
		return New(deviceID), nil
	})
}

type Client struct {
	mu        sync.Mutex
	deviceID  string
	names     []string
	codes     [][]byte
	states    []bool
	timestamp int64
	onConfig  remote.ConfigChangedHandler
	onState   remote.StateChangedHandler
	logger    *zap.Logger
}

// New creates a simulated device. Without options it exposes four switches.
func New(deviceID string, opts ...Option) *Client {
	c := &Client{
		deviceID:  deviceID,
		names:     []string{"Switch 1", "Switch 2", "Switch 3", "Switch 4"},
		timestamp: time.Now().UnixMilli(),
		logger:    zap.L(),
	}
	c.codes = defaultCodes(len(c.names))
	c.states = make([]bool, len(c.names))
	for _, o := range opts {
		o(c)
	}
	return c
}

type Option func(*Client)

func WithSwitches(names ...string) Option {
	return func(c *Client) {
		c.names = names
		c.codes = defaultCodes(len(names))
		c.states = make([]bool, len(names))
	}
}

func defaultCodes(n int) [][]byte {
	codes := make([][]byte, n)
	for i := range codes {
		codes[i] = []byte{0x01}
	}
	return codes
}

func (c *Client) ID() string { return c.deviceID }

func (c *Client) Online() bool { return true }

func (c *Client) SwitchConfig(_ context.Context) (model.ConfigSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := model.ConfigSnapshot{
		Names:     append([]string(nil), c.names...),
		Codes:     make([][]byte, len(c.codes)),
		Timestamp: c.timestamp,
	}
	for i, code := range c.codes {
		snap.Codes[i] = append([]byte(nil), code...)
	}
	return snap, nil
}

func (c *Client) SwitchStates(_ context.Context) ([]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bool(nil), c.states...), nil
}

func (c *Client) OnConfigChanged(handler remote.ConfigChangedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConfig = handler
}

func (c *Client) OnStateChanged(handler remote.StateChangedHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = handler
	return nil
}

func (c *Client) TurnOn(_ context.Context, index int) (bool, error) {
	return c.apply(index, true)
}

func (c *Client) TurnOff(_ context.Context, index int) (bool, error) {
	return c.apply(index, false)
}

func (c *Client) apply(index int, on bool) (bool, error) {
	c.mu.Lock()
	if index < 0 || index >= len(c.states) {
		c.mu.Unlock()
		return false, fmt.Errorf("%w: index %d out of range", remote.ErrCommunication, index)
	}
	c.states[index] = on
	handler := c.onState
	c.mu.Unlock()

	// A real device echoes the resulting state as a push as well.
	if handler != nil {
		go handler(index, on)
	}
	return on, nil
}

// SetConfig replaces the exposed switch set and pushes a config-changed
// event, advancing the epoch timestamp.
func (c *Client) SetConfig(names []string, codes [][]byte) {
	c.mu.Lock()
	c.names = append([]string(nil), names...)
	c.codes = codes
	states := make([]bool, len(names))
	copy(states, c.states)
	c.states = states
	c.timestamp = nextTimestamp(c.timestamp)
	ts := c.timestamp
	handler := c.onConfig
	c.mu.Unlock()

	c.logger.Debug("simulated config change", zap.Int64("timestamp", ts), zap.Int("switches", len(names)))
	if handler != nil {
		go handler(ts)
	}
}

// PushState sets one switch's state out of band and pushes it, as if the
// device had been toggled locally.
func (c *Client) PushState(index int, on bool) {
	c.mu.Lock()
	if index < 0 || index >= len(c.states) {
		c.mu.Unlock()
		return
	}
	c.states[index] = on
	handler := c.onState
	c.mu.Unlock()

	if handler != nil {
		handler(index, on)
	}
}

func nextTimestamp(prev int64) int64 {
	now := time.Now().UnixMilli()
	if now <= prev {
		return prev + 1
	}
	return now
}
