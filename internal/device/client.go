// Package device speaks the line-oriented command/response protocol of the
// conveyor/mixing rig. Two client strategies satisfy the same interface: a
// real serial transport and an in-memory mock for running without hardware.
package device

import (
	"strings"
	"time"
)

// Position is where the rig reports its carriage to be.
type Position string

const (
	PositionSpout   Position = "spout"
	PositionDisplay Position = "display"
	PositionUnknown Position = "unknown"
	PositionMoving  Position = "moving"
)

// Status is the rig's activity state.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusMoving       Status = "moving"
	StatusMixing       Status = "mixing"
	StatusError        Status = "error"
	StatusDisconnected Status = "disconnected"
)

// Wire protocol tokens. Commands are newline-terminated; each command gets
// exactly one line of response.
const (
	cmdMoveToSpout   = "MOVE_TO_SPOUT"
	cmdMoveToDisplay = "MOVE_TO_DISPLAY"
	cmdMix           = "MIX"
	cmdStop          = "STOP"
	cmdStatus        = "STATUS"

	respOK        = "OK"
	respAtSpout   = "AT_SPOUT"
	respAtDisplay = "AT_DISPLAY"
	respMixing    = "MIXING"
	respMoving    = "MOVING"

	errorPrefix = "ERROR:"
)

// Timing constants for the physical rig.
const (
	// settleDelay is how long the controller takes to reset after the
	// serial port opens; commands sent earlier are lost.
	settleDelay = 2 * time.Second

	// statusPollInterval is how often wait-mode calls poll STATUS.
	statusPollInterval = 500 * time.Millisecond

	// Mix timing: each oscillation takes roughly mixSecondsPerOscillation,
	// plus a fixed buffer, widened by a safety factor.
	mixSecondsPerOscillation = 2 * time.Second
	mixBuffer                = 5 * time.Second
	mixSafetyFactor          = 1.5
)

// ExchangeRecorder receives every raw command/response exchange, for the
// persisted audit trail. response is empty when the exchange failed before
// a response arrived.
type ExchangeRecorder func(command, response string, err error)

// Client is the device-facing interface shared by the serial and mock
// strategies. When wait is true, positioning and mixing calls block, polling
// status until the expected terminal state or an overall timeout.
type Client interface {
	Connect() error
	MoveToSpout(wait bool) error
	MoveToDisplay(wait bool) error
	Mix(oscillations int, wait bool) error
	Stop() error
	QueryStatus() (Status, error)
	QueryPosition() (Position, error)
	Connected() bool
	SetRecorder(rec ExchangeRecorder)
	Close() error
}

// Config carries the transport parameters for one rig connection.
type Config struct {
	Port           string
	BaudRate       int
	CommandTimeout time.Duration
	MoveTimeout    time.Duration
	Mock           bool
}

// Validate checks that the config can open a connection.
func (c Config) Validate() error {
	if c.Mock {
		return nil
	}
	if c.Port == "" {
		return &ConfigurationError{Reason: "serial port not configured"}
	}
	if c.BaudRate <= 0 {
		return &ConfigurationError{Reason: "baud rate must be positive"}
	}
	return nil
}

// New returns the client strategy selected by the config.
func New(cfg Config) Client {
	if cfg.Mock {
		return NewMockClient()
	}
	return NewSerialClient(cfg)
}

// mixTimeout computes the overall wait budget for a mix operation. The
// budget scales with oscillation count and never drops below the configured
// move timeout.
func mixTimeout(oscillations int, configured time.Duration) time.Duration {
	estimated := time.Duration(oscillations)*mixSecondsPerOscillation + mixBuffer
	if configured > estimated {
		estimated = configured
	}
	return time.Duration(float64(estimated) * mixSafetyFactor)
}

// statusFromToken maps a STATUS response token to a Status.
func statusFromToken(token string) Status {
	switch token {
	case respAtSpout, respAtDisplay, respOK:
		return StatusIdle
	case respMixing:
		return StatusMixing
	case respMoving:
		return StatusMoving
	default:
		return StatusError
	}
}

// positionFromToken maps a STATUS response token to a Position.
func positionFromToken(token string) Position {
	switch token {
	case respAtSpout:
		return PositionSpout
	case respAtDisplay:
		return PositionDisplay
	case respMoving:
		return PositionMoving
	default:
		return PositionUnknown
	}
}

// isErrorToken reports whether a response line is an error, and its message.
func isErrorToken(line string) (string, bool) {
	if strings.HasPrefix(line, errorPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(line, errorPrefix)), true
	}
	return "", false
}
