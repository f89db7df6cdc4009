// Package secondary defines the secondary ports (driven adapters) for the
// application. These are the interfaces through which the application drives
// external systems.
package secondary

import "context"

// ProtocolRepository defines the secondary port for protocol persistence.
type ProtocolRepository interface {
	// Create persists a new protocol.
	Create(ctx context.Context, protocol *ProtocolRecord) error

	// GetByID retrieves a protocol by its ID.
	GetByID(ctx context.Context, id string) (*ProtocolRecord, error)

	// GetByName retrieves a protocol by its unique name.
	GetByName(ctx context.Context, name string) (*ProtocolRecord, error)

	// List retrieves all protocols, newest first.
	List(ctx context.Context) ([]*ProtocolRecord, error)

	// GetNextID returns the next available protocol ID.
	GetNextID(ctx context.Context) (string, error)
}

// ProtocolRecord represents a protocol as stored in persistence.
type ProtocolRecord struct {
	ID                    string
	Name                  string
	HardwareEnabled       bool
	MockMode              bool
	SerialPort            string // Empty string means null
	BaudRate              int
	CommandTimeoutSeconds float64
	MoveTimeoutSeconds    float64
	MixingEnabled         bool
	MixOscillations       int
	MaxCycles             int
	PhaseSequence         string // JSON, empty string means null (default sequence)
	CreatedAt             string
	UpdatedAt             string
}

// SessionRepository defines the secondary port for session persistence.
type SessionRepository interface {
	// Create persists a new session.
	Create(ctx context.Context, session *SessionRecord) error

	// GetByID retrieves a session by its ID.
	GetByID(ctx context.Context, id string) (*SessionRecord, error)

	// List retrieves sessions matching the given filters.
	List(ctx context.Context, filters SessionFilters) ([]*SessionRecord, error)

	// UpdatePhase updates the current phase and persisted transition count.
	UpdatePhase(ctx context.Context, id, phase string, transitionCount int) error

	// UpdateCycle updates the cycle counter.
	UpdateCycle(ctx context.Context, id string, cycle int) error

	// UpdateState updates the session state, setting completed_at when the
	// state is terminal.
	UpdateState(ctx context.Context, id, state string, setCompleted bool) error

	// GetNextID returns the next available session ID.
	GetNextID(ctx context.Context) (string, error)

	// ProtocolExists checks if a protocol exists (for validation).
	ProtocolExists(ctx context.Context, protocolID string) (bool, error)
}

// SessionRecord represents a session as stored in persistence.
type SessionRecord struct {
	ID               string
	ProtocolID       string
	SubjectCode      string // Empty string means null
	CurrentPhase     string
	CurrentCycle     int
	TransitionCount  int
	State            string // active, completed, aborted
	ExperimentConfig string // JSON, empty string means null
	CreatedAt        string
	UpdatedAt        string
	CompletedAt      string // Empty string means null
}

// SessionFilters contains filter options for querying sessions.
type SessionFilters struct {
	ProtocolID string
	State      string
	Limit      int
}
