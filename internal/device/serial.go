package device

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SerialClient drives the rig over a real serial link. All command issuance
// is serialized through one mutex; serial links cannot multiplex.
type SerialClient struct {
	cfg Config

	mu        sync.Mutex
	port      serial.Port
	connected bool
	recorder  ExchangeRecorder
}

// NewSerialClient creates a client for the given transport parameters. The
// connection is opened lazily by Connect.
func NewSerialClient(cfg Config) *SerialClient {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 2 * time.Second
	}
	if cfg.MoveTimeout <= 0 {
		cfg.MoveTimeout = 30 * time.Second
	}
	return &SerialClient{cfg: cfg}
}

// Connect opens the serial port, waits out the controller reset, and
// flushes any stray startup bytes. Connecting an already-connected client
// is a no-op.
func (c *SerialClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	if err := c.cfg.Validate(); err != nil {
		return err
	}

	port, err := serial.Open(c.cfg.Port, &serial.Mode{BaudRate: c.cfg.BaudRate})
	if err != nil {
		return &ConnectionError{Port: c.cfg.Port, Err: err}
	}

	// The controller resets when the port opens; anything sent before the
	// settle period is lost.
	time.Sleep(settleDelay)
	_ = port.ResetInputBuffer()

	c.port = port
	c.connected = true
	return nil
}

// Connected reports whether the transport is open.
func (c *SerialClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SetRecorder installs the audit recorder for subsequent exchanges.
func (c *SerialClient) SetRecorder(rec ExchangeRecorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorder = rec
}

// Close shuts the transport. Closing an already-closed client is a no-op,
// never an error.
func (c *SerialClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.connected = false
	port := c.port
	c.port = nil
	if port != nil {
		return port.Close()
	}
	return nil
}

// sendCommand writes one command line and reads one response line. The
// caller must NOT hold the mutex.
func (c *SerialClient) sendCommand(command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendCommandLocked(command)
}

func (c *SerialClient) sendCommandLocked(command string) (string, error) {
	if !c.connected || c.port == nil {
		err := &ConnectionError{Port: c.cfg.Port}
		c.record(command, "", err)
		return "", err
	}

	if _, err := c.port.Write([]byte(command + "\n")); err != nil {
		werr := &ConnectionError{Port: c.cfg.Port, Err: err}
		c.record(command, "", werr)
		return "", werr
	}

	line, err := c.readLine()
	if err != nil {
		c.record(command, "", err)
		return "", err
	}

	if msg, isErr := isErrorToken(line); isErr {
		cerr := &CommandError{Command: command, Message: msg}
		c.record(command, line, cerr)
		return "", cerr
	}

	c.record(command, line, nil)
	return line, nil
}

// readLine reads bytes until newline or the command timeout. go.bug.st
// returns a zero-byte read on timeout rather than an error, so the deadline
// is enforced here.
func (c *SerialClient) readLine() (string, error) {
	deadline := time.Now().Add(c.cfg.CommandTimeout)
	_ = c.port.SetReadTimeout(100 * time.Millisecond)

	var line []byte
	buf := make([]byte, 1)
	for {
		if time.Now().After(deadline) {
			return "", &TimeoutError{Op: "read response", Timeout: c.cfg.CommandTimeout}
		}
		n, err := c.port.Read(buf)
		if err != nil {
			return "", &ConnectionError{Port: c.cfg.Port, Err: err}
		}
		if n == 0 {
			continue
		}
		if buf[0] == '\n' {
			break
		}
		if buf[0] == '\r' {
			continue
		}
		line = append(line, buf[0])
	}
	return string(line), nil
}

func (c *SerialClient) record(command, response string, err error) {
	if c.recorder != nil {
		c.recorder(command, response, err)
	}
}

// MoveToSpout commands the carriage to the dispense point.
func (c *SerialClient) MoveToSpout(wait bool) error {
	if _, err := c.sendCommand(cmdMoveToSpout); err != nil {
		return err
	}
	if !wait {
		return nil
	}
	return c.waitForPosition(PositionSpout, c.cfg.MoveTimeout)
}

// MoveToDisplay commands the carriage to the pickup point.
func (c *SerialClient) MoveToDisplay(wait bool) error {
	if _, err := c.sendCommand(cmdMoveToDisplay); err != nil {
		return err
	}
	if !wait {
		return nil
	}
	return c.waitForPosition(PositionDisplay, c.cfg.MoveTimeout)
}

// Mix oscillates the carriage to stir the sample. The wait budget scales
// with oscillation count.
func (c *SerialClient) Mix(oscillations int, wait bool) error {
	if oscillations <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("mix oscillations must be positive, got %d", oscillations)}
	}
	if _, err := c.sendCommand(fmt.Sprintf("%s %d", cmdMix, oscillations)); err != nil {
		return err
	}
	if !wait {
		return nil
	}
	return c.waitForIdle(mixTimeout(oscillations, c.cfg.MoveTimeout))
}

// Stop halts the rig immediately.
func (c *SerialClient) Stop() error {
	_, err := c.sendCommand(cmdStop)
	return err
}

// QueryStatus asks the rig what it is doing.
func (c *SerialClient) QueryStatus() (Status, error) {
	token, err := c.sendCommand(cmdStatus)
	if err != nil {
		return StatusDisconnected, err
	}
	return statusFromToken(token), nil
}

// QueryPosition asks the rig where the carriage is.
func (c *SerialClient) QueryPosition() (Position, error) {
	token, err := c.sendCommand(cmdStatus)
	if err != nil {
		return PositionUnknown, err
	}
	return positionFromToken(token), nil
}

// waitForPosition polls status until the carriage reports the wanted
// position or the budget runs out.
func (c *SerialClient) waitForPosition(want Position, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		pos, err := c.QueryPosition()
		if err != nil {
			return err
		}
		if pos == want {
			return nil
		}
		time.Sleep(statusPollInterval)
	}
	return &TimeoutError{Op: fmt.Sprintf("wait for position %s", want), Timeout: timeout}
}

// waitForIdle polls status until the rig stops mixing/moving.
func (c *SerialClient) waitForIdle(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		status, err := c.QueryStatus()
		if err != nil {
			return err
		}
		if status == StatusIdle {
			return nil
		}
		time.Sleep(statusPollInterval)
	}
	return &TimeoutError{Op: "wait for idle", Timeout: timeout}
}

// Ensure SerialClient implements the interface
var _ Client = (*SerialClient)(nil)
