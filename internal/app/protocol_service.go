// Package app contains the application services, implementing the primary
// ports by coordinating the functional core, the repositories, and the
// device layer.
package app

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/alon-nissan/robotaste-sub000/internal/core/phase"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/primary"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

// protocolYAML is the on-disk protocol definition format.
type protocolYAML struct {
	Name     string `yaml:"name"`
	Hardware struct {
		Enabled               bool    `yaml:"enabled"`
		MockMode              bool    `yaml:"mock_mode"`
		SerialPort            string  `yaml:"serial_port"`
		BaudRate              int     `yaml:"baud_rate"`
		CommandTimeoutSeconds float64 `yaml:"command_timeout_seconds"`
		MoveTimeoutSeconds    float64 `yaml:"move_timeout_seconds"`
	} `yaml:"hardware"`
	Mixing struct {
		Enabled      bool `yaml:"enabled"`
		Oscillations int  `yaml:"oscillations"`
	} `yaml:"mixing"`
	MaxCycles     int                `yaml:"max_cycles"`
	PhaseSequence []phase.Definition `yaml:"phase_sequence"`
}

// ProtocolServiceImpl implements the ProtocolService interface.
type ProtocolServiceImpl struct {
	protocolRepo secondary.ProtocolRepository
}

// NewProtocolService creates a new ProtocolService with injected dependencies.
func NewProtocolService(protocolRepo secondary.ProtocolRepository) *ProtocolServiceImpl {
	return &ProtocolServiceImpl{protocolRepo: protocolRepo}
}

// ImportProtocol parses a YAML protocol definition, validates it, and
// persists it.
func (s *ProtocolServiceImpl) ImportProtocol(ctx context.Context, req primary.ImportProtocolRequest) (*primary.ImportProtocolResponse, error) {
	var def protocolYAML
	if err := yaml.Unmarshal(req.YAML, &def); err != nil {
		return nil, fmt.Errorf("failed to parse protocol YAML: %w", err)
	}

	if def.Name == "" {
		return nil, fmt.Errorf("protocol name is required")
	}
	if def.MaxCycles <= 0 {
		return nil, fmt.Errorf("max_cycles must be positive")
	}
	if def.Hardware.Enabled && !def.Hardware.MockMode && def.Hardware.SerialPort == "" {
		return nil, fmt.Errorf("hardware protocols require a serial_port unless mock_mode is set")
	}
	if def.Mixing.Enabled && def.Mixing.Oscillations <= 0 {
		return nil, fmt.Errorf("mixing requires a positive oscillation count")
	}

	// A declared sequence must be structurally valid at import time. The
	// runtime fallback covers rows corrupted after import, not authoring
	// mistakes.
	var sequenceJSON string
	if len(def.PhaseSequence) > 0 {
		seq := phase.Sequence(def.PhaseSequence)
		if err := seq.Validate(); err != nil {
			return nil, fmt.Errorf("invalid phase sequence: %w", err)
		}
		encoded, err := json.Marshal(seq)
		if err != nil {
			return nil, fmt.Errorf("failed to encode phase sequence: %w", err)
		}
		sequenceJSON = string(encoded)
	}

	if existing, err := s.protocolRepo.GetByName(ctx, def.Name); err == nil && existing != nil {
		return nil, fmt.Errorf("protocol %q already exists as %s", def.Name, existing.ID)
	}

	nextID, err := s.protocolRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate protocol ID: %w", err)
	}

	record := &secondary.ProtocolRecord{
		ID:                    nextID,
		Name:                  def.Name,
		HardwareEnabled:       def.Hardware.Enabled,
		MockMode:              def.Hardware.MockMode,
		SerialPort:            def.Hardware.SerialPort,
		BaudRate:              def.Hardware.BaudRate,
		CommandTimeoutSeconds: def.Hardware.CommandTimeoutSeconds,
		MoveTimeoutSeconds:    def.Hardware.MoveTimeoutSeconds,
		MixingEnabled:         def.Mixing.Enabled,
		MixOscillations:       def.Mixing.Oscillations,
		MaxCycles:             def.MaxCycles,
		PhaseSequence:         sequenceJSON,
	}

	if err := s.protocolRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create protocol: %w", err)
	}

	return &primary.ImportProtocolResponse{
		ProtocolID: record.ID,
		Protocol:   s.recordToProtocol(record),
	}, nil
}

// GetProtocol retrieves a protocol by ID.
func (s *ProtocolServiceImpl) GetProtocol(ctx context.Context, protocolID string) (*primary.Protocol, error) {
	record, err := s.protocolRepo.GetByID(ctx, protocolID)
	if err != nil {
		return nil, fmt.Errorf("protocol not found: %w", err)
	}
	return s.recordToProtocol(record), nil
}

// ListProtocols lists all protocols, newest first.
func (s *ProtocolServiceImpl) ListProtocols(ctx context.Context) ([]*primary.Protocol, error) {
	records, err := s.protocolRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list protocols: %w", err)
	}

	protocols := make([]*primary.Protocol, len(records))
	for i, r := range records {
		protocols[i] = s.recordToProtocol(r)
	}
	return protocols, nil
}

// Helper methods

func (s *ProtocolServiceImpl) recordToProtocol(r *secondary.ProtocolRecord) *primary.Protocol {
	seq, _ := phase.Resolve([]byte(r.PhaseSequence))
	return &primary.Protocol{
		ID:                    r.ID,
		Name:                  r.Name,
		HardwareEnabled:       r.HardwareEnabled,
		MockMode:              r.MockMode,
		SerialPort:            r.SerialPort,
		BaudRate:              r.BaudRate,
		CommandTimeoutSeconds: r.CommandTimeoutSeconds,
		MoveTimeoutSeconds:    r.MoveTimeoutSeconds,
		MixingEnabled:         r.MixingEnabled,
		MixOscillations:       r.MixOscillations,
		MaxCycles:             r.MaxCycles,
		PhaseCount:            len(seq),
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

// Ensure ProtocolServiceImpl implements the interface
var _ primary.ProtocolService = (*ProtocolServiceImpl)(nil)
