package app

import (
	"context"
	"testing"

	"github.com/alon-nissan/robotaste-sub000/internal/core/phase"
	"github.com/alon-nissan/robotaste-sub000/internal/models"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/primary"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

type sessionFixture struct {
	sessions  *mockSessionRepository
	protocols *mockProtocolRepository
	samples   *mockSampleRepository
	devices   *mockDeviceRegistry
	service   *SessionServiceImpl
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		sessions:  newMockSessionRepository(),
		protocols: newMockProtocolRepository(),
		samples:   newMockSampleRepository(),
		devices:   newMockDeviceRegistry(),
	}
	f.service = NewSessionService(f.sessions, f.protocols, f.samples, f.devices)
	return f
}

func TestCreateSessionDefaultSequence(t *testing.T) {
	f := newSessionFixture()
	f.protocols.mockProtocol("PROT-001", 3)
	ctx := context.Background()

	resp, err := f.service.CreateSession(ctx, primary.CreateSessionRequest{
		ProtocolID:  "PROT-001",
		SubjectCode: "SUB-007",
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if resp.SessionID != "SESS-001" {
		t.Errorf("SessionID = %q, want SESS-001", resp.SessionID)
	}
	if !resp.SequenceFallback {
		t.Error("expected fallback for protocol without a declared sequence")
	}
	if resp.Session.CurrentPhase != phase.Waiting {
		t.Errorf("CurrentPhase = %q, want waiting", resp.Session.CurrentPhase)
	}
	if resp.Session.State != models.SessionStateActive {
		t.Errorf("State = %q, want active", resp.Session.State)
	}
}

func TestCreateSessionDeclaredSequence(t *testing.T) {
	f := newSessionFixture()
	protocol := f.protocols.mockProtocol("PROT-001", 3)
	protocol.PhaseSequence = `[
		{"phase_id":"instructions","phase_type":"builtin","required":true},
		{"phase_id":"experiment_loop","phase_type":"loop","required":true},
		{"phase_id":"completion","phase_type":"builtin","required":true}
	]`

	resp, err := f.service.CreateSession(context.Background(), primary.CreateSessionRequest{ProtocolID: "PROT-001"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if resp.SequenceFallback {
		t.Error("unexpected fallback for a valid declared sequence")
	}
	if resp.Session.CurrentPhase != phase.Instructions {
		t.Errorf("CurrentPhase = %q, want instructions", resp.Session.CurrentPhase)
	}
}

func TestCreateSessionUnknownProtocol(t *testing.T) {
	f := newSessionFixture()

	_, err := f.service.CreateSession(context.Background(), primary.CreateSessionRequest{ProtocolID: "PROT-404"})
	if err == nil {
		t.Fatal("expected error for unknown protocol")
	}
}

func TestAdvancePhaseWalksSequence(t *testing.T) {
	tests := []struct {
		name         string
		from         string
		skipOptional bool
		want         string
	}{
		{"waiting to registration", phase.Waiting, false, phase.Registration},
		{"waiting skips optional registration", phase.Waiting, true, phase.Instructions},
		{"registration to instructions", phase.Registration, false, phase.Instructions},
		{"instructions enters loop at selection", phase.Instructions, false, phase.Selection},
		{"selection to loading", phase.Selection, false, phase.Loading},
		{"loading to questionnaire", phase.Loading, false, phase.Questionnaire},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture()
			f.protocols.mockProtocol("PROT-001", 3)
			f.sessions.activeSession("SESS-001", "PROT-001", tt.from, 0)

			resp, err := f.service.AdvancePhase(context.Background(), primary.AdvancePhaseRequest{
				SessionID:    "SESS-001",
				SkipOptional: tt.skipOptional,
			})
			if err != nil {
				t.Fatalf("AdvancePhase failed: %v", err)
			}
			if resp.Phase != tt.want {
				t.Errorf("Phase = %q, want %q", resp.Phase, tt.want)
			}
		})
	}
}

func TestAdvancePhaseEnteringLoopBeginsCycleOne(t *testing.T) {
	f := newSessionFixture()
	f.protocols.mockProtocol("PROT-001", 3)
	f.sessions.activeSession("SESS-001", "PROT-001", phase.Instructions, 0)

	resp, err := f.service.AdvancePhase(context.Background(), primary.AdvancePhaseRequest{SessionID: "SESS-001"})
	if err != nil {
		t.Fatalf("AdvancePhase failed: %v", err)
	}
	if resp.Phase != phase.Selection {
		t.Fatalf("Phase = %q, want selection", resp.Phase)
	}
	if resp.CurrentCycle != 1 {
		t.Errorf("CurrentCycle = %d, want 1", resp.CurrentCycle)
	}
	if f.sessions.sessions["SESS-001"].CurrentCycle != 1 {
		t.Error("cycle increment not persisted")
	}
}

func TestAdvancePhasePersistsTransitionCount(t *testing.T) {
	f := newSessionFixture()
	f.protocols.mockProtocol("PROT-001", 3)
	session := f.sessions.activeSession("SESS-001", "PROT-001", phase.Selection, 1)
	session.TransitionCount = 7

	_, err := f.service.AdvancePhase(context.Background(), primary.AdvancePhaseRequest{SessionID: "SESS-001"})
	if err != nil {
		t.Fatalf("AdvancePhase failed: %v", err)
	}
	if got := f.sessions.sessions["SESS-001"].TransitionCount; got != 8 {
		t.Errorf("TransitionCount = %d, want 8", got)
	}
}

func TestAdvancePhaseInactiveSession(t *testing.T) {
	f := newSessionFixture()
	f.protocols.mockProtocol("PROT-001", 3)
	session := f.sessions.activeSession("SESS-001", "PROT-001", phase.Waiting, 0)
	session.State = models.SessionStateCompleted

	_, err := f.service.AdvancePhase(context.Background(), primary.AdvancePhaseRequest{SessionID: "SESS-001"})
	if err == nil {
		t.Fatal("expected error for completed session")
	}
}

func TestCompleteQuestionnaireRepeatsLoop(t *testing.T) {
	f := newSessionFixture()
	f.protocols.mockProtocol("PROT-001", 3)
	f.sessions.activeSession("SESS-001", "PROT-001", phase.Questionnaire, 1)
	seedSample(t, f.samples, "SESS-001", 1)

	resp, err := f.service.CompleteQuestionnaire(context.Background(), primary.CompleteQuestionnaireRequest{
		SessionID: "SESS-001",
		Response:  `{"liking":6}`,
	})
	if err != nil {
		t.Fatalf("CompleteQuestionnaire failed: %v", err)
	}

	if resp.Phase != phase.Selection {
		t.Errorf("Phase = %q, want selection", resp.Phase)
	}
	if resp.LoopExited {
		t.Error("LoopExited = true below max cycles")
	}
	if resp.CurrentCycle != 2 {
		t.Errorf("CurrentCycle = %d, want 2", resp.CurrentCycle)
	}

	sample, _ := f.samples.GetForCycle(context.Background(), "SESS-001", 1)
	if sample.Response != `{"liking":6}` {
		t.Errorf("recorded response = %q", sample.Response)
	}
	if sample.RespondedAt == "" {
		t.Error("responded_at not set")
	}
}

func TestCompleteQuestionnaireExitsAtMaxCycles(t *testing.T) {
	f := newSessionFixture()
	f.protocols.mockProtocol("PROT-001", 3)
	f.sessions.activeSession("SESS-001", "PROT-001", phase.Questionnaire, 3)
	seedSample(t, f.samples, "SESS-001", 3)

	resp, err := f.service.CompleteQuestionnaire(context.Background(), primary.CompleteQuestionnaireRequest{
		SessionID: "SESS-001",
		Response:  `{"liking":4}`,
	})
	if err != nil {
		t.Fatalf("CompleteQuestionnaire failed: %v", err)
	}

	if !resp.LoopExited {
		t.Error("LoopExited = false at max cycles")
	}
	if resp.Phase != phase.Completion {
		t.Errorf("Phase = %q, want completion", resp.Phase)
	}
	if resp.CurrentCycle != 3 {
		t.Errorf("CurrentCycle = %d, want 3", resp.CurrentCycle)
	}
}

func TestAdvancePhaseFromQuestionnaireExitsAtMaxCycles(t *testing.T) {
	f := newSessionFixture()
	f.protocols.mockProtocol("PROT-001", 2)
	f.sessions.activeSession("SESS-001", "PROT-001", phase.Questionnaire, 2)

	resp, err := f.service.AdvancePhase(context.Background(), primary.AdvancePhaseRequest{SessionID: "SESS-001"})
	if err != nil {
		t.Fatalf("AdvancePhase failed: %v", err)
	}

	if !resp.LoopExited {
		t.Error("LoopExited = false at max cycles")
	}
	if resp.Phase != phase.Completion {
		t.Errorf("Phase = %q, want completion", resp.Phase)
	}
	if resp.CurrentCycle != 2 {
		t.Errorf("CurrentCycle = %d, want 2", resp.CurrentCycle)
	}
}

func TestAdvancePhaseFromQuestionnaireRepeatsBelowMax(t *testing.T) {
	f := newSessionFixture()
	f.protocols.mockProtocol("PROT-001", 3)
	f.sessions.activeSession("SESS-001", "PROT-001", phase.Questionnaire, 1)

	resp, err := f.service.AdvancePhase(context.Background(), primary.AdvancePhaseRequest{SessionID: "SESS-001"})
	if err != nil {
		t.Fatalf("AdvancePhase failed: %v", err)
	}

	if resp.Phase != phase.Selection {
		t.Errorf("Phase = %q, want selection", resp.Phase)
	}
	if resp.LoopExited {
		t.Error("LoopExited = true below max cycles")
	}
	if resp.CurrentCycle != 2 {
		t.Errorf("CurrentCycle = %d, want 2", resp.CurrentCycle)
	}
}

func TestCompleteQuestionnaireWrongPhase(t *testing.T) {
	f := newSessionFixture()
	f.protocols.mockProtocol("PROT-001", 3)
	f.sessions.activeSession("SESS-001", "PROT-001", phase.Selection, 1)

	_, err := f.service.CompleteQuestionnaire(context.Background(), primary.CompleteQuestionnaireRequest{SessionID: "SESS-001"})
	if err == nil {
		t.Fatal("expected error outside the questionnaire phase")
	}
}

func TestCompleteSessionReleasesConnection(t *testing.T) {
	f := newSessionFixture()
	f.protocols.mockProtocol("PROT-001", 3)
	f.sessions.activeSession("SESS-001", "PROT-001", phase.Completion, 3)

	if err := f.service.CompleteSession(context.Background(), "SESS-001"); err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}

	session := f.sessions.sessions["SESS-001"]
	if session.State != models.SessionStateCompleted {
		t.Errorf("State = %q, want completed", session.State)
	}
	if session.CompletedAt == "" {
		t.Error("completed_at not set")
	}
	if len(f.devices.cleanups) != 1 || f.devices.cleanups[0] != "SESS-001" {
		t.Errorf("device cleanups = %v, want [SESS-001]", f.devices.cleanups)
	}
}

func TestAbortSession(t *testing.T) {
	f := newSessionFixture()
	f.protocols.mockProtocol("PROT-001", 3)
	f.sessions.activeSession("SESS-001", "PROT-001", phase.Selection, 2)

	if err := f.service.AbortSession(context.Background(), "SESS-001"); err != nil {
		t.Fatalf("AbortSession failed: %v", err)
	}
	if f.sessions.sessions["SESS-001"].State != models.SessionStateAborted {
		t.Error("session not aborted")
	}

	if err := f.service.AbortSession(context.Background(), "SESS-001"); err == nil {
		t.Error("aborting a terminal session succeeded")
	}
}

func seedSample(t *testing.T, samples *mockSampleRepository, sessionID string, cycle int) {
	t.Helper()
	err := samples.Create(context.Background(), &secondary.SampleRecord{
		SessionID:   sessionID,
		CycleNumber: cycle,
		Target:      `{"sucrose_mM":25}`,
	})
	if err != nil {
		t.Fatalf("failed to seed sample: %v", err)
	}
}
