package secondary

import "context"

// SampleRepository defines the secondary port for per-cycle sample records:
// the selected target concentrations, what was actually dispensed, and the
// subject's feedback.
type SampleRepository interface {
	// Create records the selected target for a cycle.
	Create(ctx context.Context, sample *SampleRecord) error

	// RecordDispensed stores the concentrations the pump subsystem
	// reported after dispensing.
	RecordDispensed(ctx context.Context, sessionID string, cycleNumber int, dispensed string) error

	// RecordResponse stores the subject's feedback and stamps responded_at.
	RecordResponse(ctx context.Context, sessionID string, cycleNumber int, response string) error

	// GetForCycle retrieves the sample row for one cycle.
	GetForCycle(ctx context.Context, sessionID string, cycleNumber int) (*SampleRecord, error)

	// ListForSession retrieves a session's samples in cycle order.
	ListForSession(ctx context.Context, sessionID string) ([]*SampleRecord, error)
}

// SampleRecord represents a per-cycle sample as stored in persistence.
// Target, Dispensed and Response are opaque JSON payloads.
type SampleRecord struct {
	ID          int64
	SessionID   string
	CycleNumber int
	Target      string // Empty string means null
	Dispensed   string // Empty string means null
	Response    string // Empty string means null
	CreatedAt   string
	RespondedAt string // Empty string means null
}
