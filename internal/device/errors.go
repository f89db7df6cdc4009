package device

import (
	"fmt"
	"time"
)

// ConnectionError means the transport could not be opened or is closed.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection failed on %s: %v", e.Port, e.Err)
	}
	return fmt.Sprintf("not connected on %s", e.Port)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// CommandError means the device answered with an explicit error token.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("device rejected %s: %s", e.Command, e.Message)
}

// TimeoutError means no response arrived, or the expected physical state
// was never observed, within the budget.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
}

// ConfigurationError means hardware configuration is missing or invalid for
// the requested operation.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("hardware configuration error: %s", e.Reason)
}
