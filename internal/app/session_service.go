package app

import (
	"context"
	"fmt"

	"github.com/alon-nissan/robotaste-sub000/internal/core/phase"
	"github.com/alon-nissan/robotaste-sub000/internal/device"
	"github.com/alon-nissan/robotaste-sub000/internal/models"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/primary"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

// DeviceRegistry is the session-scoped connection registry as seen by the
// application services. Satisfied by device.Manager; tests substitute fakes.
type DeviceRegistry interface {
	GetOrCreate(sessionID string, cfg device.Config) (device.Client, error)
	Cleanup(sessionID string) error
}

var _ DeviceRegistry = (*device.Manager)(nil)

// SessionServiceImpl implements the SessionService interface.
type SessionServiceImpl struct {
	sessionRepo  secondary.SessionRepository
	protocolRepo secondary.ProtocolRepository
	sampleRepo   secondary.SampleRepository
	devices      DeviceRegistry
}

// NewSessionService creates a new SessionService with injected dependencies.
func NewSessionService(
	sessionRepo secondary.SessionRepository,
	protocolRepo secondary.ProtocolRepository,
	sampleRepo secondary.SampleRepository,
	devices DeviceRegistry,
) *SessionServiceImpl {
	return &SessionServiceImpl{
		sessionRepo:  sessionRepo,
		protocolRepo: protocolRepo,
		sampleRepo:   sampleRepo,
		devices:      devices,
	}
}

// CreateSession creates a new session for a protocol. The protocol's phase
// sequence is resolved once here so a malformed sequence is reported at
// creation rather than surprising the moderator mid-experiment.
func (s *SessionServiceImpl) CreateSession(ctx context.Context, req primary.CreateSessionRequest) (*primary.CreateSessionResponse, error) {
	protocol, err := s.protocolRepo.GetByID(ctx, req.ProtocolID)
	if err != nil {
		return nil, fmt.Errorf("protocol not found: %w", err)
	}

	seq, fallback := phase.Resolve([]byte(protocol.PhaseSequence))

	nextID, err := s.sessionRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	record := &secondary.SessionRecord{
		ID:           nextID,
		ProtocolID:   protocol.ID,
		SubjectCode:  req.SubjectCode,
		CurrentPhase: seq[0].PhaseID,
	}

	if err := s.sessionRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	created, err := s.sessionRepo.GetByID(ctx, nextID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created session: %w", err)
	}

	return &primary.CreateSessionResponse{
		SessionID:        created.ID,
		Session:          s.recordToSession(created),
		SequenceFallback: fallback,
	}, nil
}

// GetSession retrieves a session by ID.
func (s *SessionServiceImpl) GetSession(ctx context.Context, sessionID string) (*primary.Session, error) {
	record, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	return s.recordToSession(record), nil
}

// ListSessions lists sessions with optional filters.
func (s *SessionServiceImpl) ListSessions(ctx context.Context, filters primary.SessionFilters) ([]*primary.Session, error) {
	records, err := s.sessionRepo.List(ctx, secondary.SessionFilters{
		ProtocolID: filters.ProtocolID,
		State:      filters.State,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]*primary.Session, len(records))
	for i, r := range records {
		sessions[i] = s.recordToSession(r)
	}
	return sessions, nil
}

// AdvancePhase computes and persists the session's next phase. Advancing out
// of the questionnaire goes through the same stopping-criterion evaluation as
// CompleteQuestionnaire, so the loop cannot outrun the protocol's cycle
// budget through either path.
func (s *SessionServiceImpl) AdvancePhase(ctx context.Context, req primary.AdvancePhaseRequest) (*primary.AdvancePhaseResponse, error) {
	session, engine, err := s.loadEngine(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if session.CurrentPhase == phase.Questionnaire {
		return s.leaveQuestionnaire(ctx, session, engine, req.SkipOptional)
	}

	next := engine.Next(session.CurrentPhase, req.SkipOptional, session.CurrentCycle)
	return s.commitTransition(ctx, session, engine, next, false)
}

// CompleteQuestionnaire records the subject's feedback for the current cycle
// and decides whether the repeating core continues or exits.
func (s *SessionServiceImpl) CompleteQuestionnaire(ctx context.Context, req primary.CompleteQuestionnaireRequest) (*primary.AdvancePhaseResponse, error) {
	session, engine, err := s.loadEngine(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.CurrentPhase != phase.Questionnaire {
		return nil, fmt.Errorf("session %s is in phase %s, not questionnaire", session.ID, session.CurrentPhase)
	}

	if req.Response != "" {
		if err := s.sampleRepo.RecordResponse(ctx, session.ID, session.CurrentCycle, req.Response); err != nil {
			return nil, fmt.Errorf("failed to record response: %w", err)
		}
	}

	return s.leaveQuestionnaire(ctx, session, engine, req.SkipOptional)
}

// leaveQuestionnaire evaluates the stopping criterion and either re-enters the
// loop or exits it. This is the one place the criterion is evaluated; the
// engine itself only knows the loop's internal shape.
func (s *SessionServiceImpl) leaveQuestionnaire(ctx context.Context, session *secondary.SessionRecord, engine *phase.Engine, skipOptional bool) (*primary.AdvancePhaseResponse, error) {
	protocol, err := s.protocolRepo.GetByID(ctx, session.ProtocolID)
	if err != nil {
		return nil, fmt.Errorf("protocol not found: %w", err)
	}

	if session.CurrentCycle >= protocol.MaxCycles {
		next := engine.ExitLoop(skipOptional)
		return s.commitTransition(ctx, session, engine, next, true)
	}

	next := engine.Next(session.CurrentPhase, skipOptional, session.CurrentCycle)
	return s.commitTransition(ctx, session, engine, next, false)
}

// CompleteSession marks a session completed and releases its hardware
// connection.
func (s *SessionServiceImpl) CompleteSession(ctx context.Context, sessionID string) error {
	return s.finishSession(ctx, sessionID, models.SessionStateCompleted)
}

// AbortSession marks a session aborted and releases its hardware connection.
func (s *SessionServiceImpl) AbortSession(ctx context.Context, sessionID string) error {
	return s.finishSession(ctx, sessionID, models.SessionStateAborted)
}

// Helper methods

// loadEngine loads the session and builds a phase engine over the owning
// protocol's resolved sequence, resuming the persisted transition count.
func (s *SessionServiceImpl) loadEngine(ctx context.Context, sessionID string) (*secondary.SessionRecord, *phase.Engine, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("session not found: %w", err)
	}
	if session.State != models.SessionStateActive {
		return nil, nil, fmt.Errorf("session %s is %s, not active", session.ID, session.State)
	}

	protocol, err := s.protocolRepo.GetByID(ctx, session.ProtocolID)
	if err != nil {
		return nil, nil, fmt.Errorf("protocol not found: %w", err)
	}

	seq, _ := phase.Resolve([]byte(protocol.PhaseSequence))
	return session, phase.NewEngineWithTransitions(seq, session.TransitionCount), nil
}

// commitTransition persists the computed phase and transition count, bumping
// the cycle counter whenever the session lands in selection: landing there
// always begins a new cycle, whether entering the loop or repeating it.
func (s *SessionServiceImpl) commitTransition(ctx context.Context, session *secondary.SessionRecord, engine *phase.Engine, next string, loopExited bool) (*primary.AdvancePhaseResponse, error) {
	cycle := session.CurrentCycle
	if next == phase.Selection {
		cycle++
		if err := s.sessionRepo.UpdateCycle(ctx, session.ID, cycle); err != nil {
			return nil, fmt.Errorf("failed to update cycle: %w", err)
		}
	}

	if err := s.sessionRepo.UpdatePhase(ctx, session.ID, next, engine.Transitions()); err != nil {
		return nil, fmt.Errorf("failed to update phase: %w", err)
	}

	autoAdvance, durationMs := engine.ShouldAutoAdvance(next)
	resp := &primary.AdvancePhaseResponse{
		SessionID:    session.ID,
		Phase:        next,
		CurrentCycle: cycle,
		AutoAdvance:  autoAdvance,
		DurationMs:   durationMs,
		LoopExited:   loopExited,
	}
	if content := engine.ContentFor(next); content != nil {
		resp.Content = string(content)
	}
	return resp, nil
}

func (s *SessionServiceImpl) finishSession(ctx context.Context, sessionID, state string) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	if session.State != models.SessionStateActive {
		return fmt.Errorf("session %s is already %s", session.ID, session.State)
	}

	if err := s.sessionRepo.UpdateState(ctx, sessionID, state, true); err != nil {
		return fmt.Errorf("failed to update session state: %w", err)
	}

	if err := s.devices.Cleanup(sessionID); err != nil {
		return fmt.Errorf("failed to release device connection: %w", err)
	}
	return nil
}

func (s *SessionServiceImpl) recordToSession(r *secondary.SessionRecord) *primary.Session {
	return &primary.Session{
		ID:           r.ID,
		ProtocolID:   r.ProtocolID,
		SubjectCode:  r.SubjectCode,
		CurrentPhase: r.CurrentPhase,
		CurrentCycle: r.CurrentCycle,
		State:        r.State,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		CompletedAt:  r.CompletedAt,
	}
}

// Ensure SessionServiceImpl implements the interface
var _ primary.SessionService = (*SessionServiceImpl)(nil)
