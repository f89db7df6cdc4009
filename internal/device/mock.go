package device

import (
	"fmt"
	"sync"
	"time"
)

// MockClient simulates the rig in memory with timed responses, for running
// the full orchestration stack without hardware. Fault injection fields let
// tests and demos exercise the failure policy.
type MockClient struct {
	mu        sync.Mutex
	connected bool
	position  Position
	status    Status
	recorder  ExchangeRecorder

	// Simulated travel/mix durations. Zero means instantaneous.
	MoveDelay time.Duration
	MixDelay  time.Duration

	// Injected faults, returned by the corresponding operation.
	SpoutErr   error
	DisplayErr error
	MixErr     error
}

// NewMockClient creates a disconnected mock positioned at unknown.
func NewMockClient() *MockClient {
	return &MockClient{
		position: PositionUnknown,
		status:   StatusDisconnected,
	}
}

// Connect marks the mock connected. No transport, no settle period.
func (c *MockClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	c.status = StatusIdle
	return nil
}

// Connected reports whether Connect has been called.
func (c *MockClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SetRecorder installs the audit recorder for subsequent exchanges.
func (c *MockClient) SetRecorder(rec ExchangeRecorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorder = rec
}

// Close disconnects the mock. Idempotent.
func (c *MockClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.status = StatusDisconnected
	return nil
}

// exchange simulates one command round trip, recording it like the serial
// client would.
func (c *MockClient) exchange(command, response string, injected error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		err := &ConnectionError{Port: "mock"}
		c.record(command, "", err)
		return err
	}
	if injected != nil {
		c.record(command, "", injected)
		return injected
	}
	c.record(command, response, nil)
	return nil
}

func (c *MockClient) record(command, response string, err error) {
	if c.recorder != nil {
		c.recorder(command, response, err)
	}
}

func (c *MockClient) moveTo(command string, target Position, wait bool, injected error) error {
	if err := c.exchange(command, respOK, injected); err != nil {
		return err
	}

	c.mu.Lock()
	c.status = StatusMoving
	c.position = PositionMoving
	c.mu.Unlock()

	settle := func() {
		c.mu.Lock()
		c.position = target
		c.status = StatusIdle
		c.mu.Unlock()
	}

	if wait {
		time.Sleep(c.MoveDelay)
		settle()
		return nil
	}

	if c.MoveDelay == 0 {
		settle()
	} else {
		time.AfterFunc(c.MoveDelay, settle)
	}
	return nil
}

// MoveToSpout simulates carriage travel to the dispense point.
func (c *MockClient) MoveToSpout(wait bool) error {
	return c.moveTo(cmdMoveToSpout, PositionSpout, wait, c.SpoutErr)
}

// MoveToDisplay simulates carriage travel to the pickup point.
func (c *MockClient) MoveToDisplay(wait bool) error {
	return c.moveTo(cmdMoveToDisplay, PositionDisplay, wait, c.DisplayErr)
}

// Mix simulates oscillating the carriage.
func (c *MockClient) Mix(oscillations int, wait bool) error {
	if oscillations <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("mix oscillations must be positive, got %d", oscillations)}
	}
	if err := c.exchange(fmt.Sprintf("%s %d", cmdMix, oscillations), respMixing, c.MixErr); err != nil {
		return err
	}

	c.mu.Lock()
	c.status = StatusMixing
	prior := c.position
	c.mu.Unlock()

	settle := func() {
		c.mu.Lock()
		c.status = StatusIdle
		c.position = prior
		c.mu.Unlock()
	}

	if wait {
		time.Sleep(c.MixDelay)
		settle()
		return nil
	}

	if c.MixDelay == 0 {
		settle()
	} else {
		time.AfterFunc(c.MixDelay, settle)
	}
	return nil
}

// Stop halts the simulated rig.
func (c *MockClient) Stop() error {
	if err := c.exchange(cmdStop, respOK, nil); err != nil {
		return err
	}
	c.mu.Lock()
	c.status = StatusIdle
	c.mu.Unlock()
	return nil
}

// QueryStatus returns the simulated activity state.
func (c *MockClient) QueryStatus() (Status, error) {
	if err := c.exchange(cmdStatus, respOK, nil); err != nil {
		return StatusDisconnected, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, nil
}

// QueryPosition returns the simulated carriage position.
func (c *MockClient) QueryPosition() (Position, error) {
	if err := c.exchange(cmdStatus, respOK, nil); err != nil {
		return PositionUnknown, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position, nil
}

// Ensure MockClient implements the interface
var _ Client = (*MockClient)(nil)
