// Package primary defines the primary ports (driving interfaces) for the
// application, plus the request/response types crossing them.
package primary

import "context"

// SessionService defines the primary port for experiment sessions.
type SessionService interface {
	// CreateSession creates a new session for a protocol, resolving its
	// phase sequence once at creation.
	CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResponse, error)

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, sessionID string) (*Session, error)

	// ListSessions lists sessions with optional filters.
	ListSessions(ctx context.Context, filters SessionFilters) ([]*Session, error)

	// AdvancePhase computes and persists the session's next phase.
	AdvancePhase(ctx context.Context, req AdvancePhaseRequest) (*AdvancePhaseResponse, error)

	// CompleteQuestionnaire records the subject's feedback for the current
	// cycle, advances the cycle counter, and decides whether the loop
	// repeats or exits.
	CompleteQuestionnaire(ctx context.Context, req CompleteQuestionnaireRequest) (*AdvancePhaseResponse, error)

	// CompleteSession marks a session completed and releases its hardware
	// connection.
	CompleteSession(ctx context.Context, sessionID string) error

	// AbortSession marks a session aborted and releases its hardware
	// connection.
	AbortSession(ctx context.Context, sessionID string) error
}

// CreateSessionRequest contains parameters for creating a session.
type CreateSessionRequest struct {
	ProtocolID  string
	SubjectCode string
}

// CreateSessionResponse contains the result of creating a session.
type CreateSessionResponse struct {
	SessionID string
	Session   *Session

	// SequenceFallback is true when the protocol's declared phase sequence
	// was absent or malformed and the default sequence was substituted.
	SequenceFallback bool
}

// Session represents a session entity at the port boundary.
type Session struct {
	ID           string
	ProtocolID   string
	SubjectCode  string
	CurrentPhase string
	CurrentCycle int
	State        string
	CreatedAt    string
	UpdatedAt    string
	CompletedAt  string
}

// SessionFilters contains filter options for listing sessions.
type SessionFilters struct {
	ProtocolID string
	State      string
}

// AdvancePhaseRequest contains parameters for a phase transition.
type AdvancePhaseRequest struct {
	SessionID    string
	SkipOptional bool
}

// AdvancePhaseResponse describes the phase the session landed in.
type AdvancePhaseResponse struct {
	SessionID    string
	Phase        string
	CurrentCycle int
	AutoAdvance  bool
	DurationMs   int
	Content      string // JSON payload for custom phases, empty otherwise

	// LoopExited is true when the stopping criterion ended the repeating
	// cycle core on this transition.
	LoopExited bool
}

// CompleteQuestionnaireRequest carries the subject's feedback for the
// current cycle. Response is opaque JSON.
type CompleteQuestionnaireRequest struct {
	SessionID    string
	Response     string
	SkipOptional bool
}
