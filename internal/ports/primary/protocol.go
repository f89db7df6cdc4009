package primary

import "context"

// ProtocolService defines the primary port for experiment protocols.
type ProtocolService interface {
	// ImportProtocol parses a YAML protocol definition and persists it.
	ImportProtocol(ctx context.Context, req ImportProtocolRequest) (*ImportProtocolResponse, error)

	// GetProtocol retrieves a protocol by ID.
	GetProtocol(ctx context.Context, protocolID string) (*Protocol, error)

	// ListProtocols lists all protocols, newest first.
	ListProtocols(ctx context.Context) ([]*Protocol, error)
}

// ImportProtocolRequest carries a raw YAML protocol definition.
type ImportProtocolRequest struct {
	YAML []byte
}

// ImportProtocolResponse contains the result of importing a protocol.
type ImportProtocolResponse struct {
	ProtocolID string
	Protocol   *Protocol
}

// Protocol represents a protocol entity at the port boundary.
type Protocol struct {
	ID                    string
	Name                  string
	HardwareEnabled       bool
	MockMode              bool
	SerialPort            string
	BaudRate              int
	CommandTimeoutSeconds float64
	MoveTimeoutSeconds    float64
	MixingEnabled         bool
	MixOscillations       int
	MaxCycles             int
	PhaseCount            int // Number of phases in the resolved sequence
	CreatedAt             string
	UpdatedAt             string
}
