package app

import (
	"time"

	"github.com/alon-nissan/robotaste-sub000/internal/device"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

// Fallbacks for protocols imported before the timeout columns existed.
const (
	defaultCommandTimeout = 5 * time.Second
	defaultMoveTimeout    = 30 * time.Second
)

// deviceConfig maps a protocol's hardware settings to a transport config.
// Both the cycle orchestrator and the executor resolve configs through this
// one path so the two execution modes drive identical connections.
func deviceConfig(protocol *secondary.ProtocolRecord) device.Config {
	cfg := device.Config{
		Port:           protocol.SerialPort,
		BaudRate:       protocol.BaudRate,
		CommandTimeout: time.Duration(protocol.CommandTimeoutSeconds * float64(time.Second)),
		MoveTimeout:    time.Duration(protocol.MoveTimeoutSeconds * float64(time.Second)),
		Mock:           protocol.MockMode || !protocol.HardwareEnabled,
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}
	if cfg.MoveTimeout <= 0 {
		cfg.MoveTimeout = defaultMoveTimeout
	}
	return cfg
}
