package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alon-nissan/robotaste-sub000/internal/device"
	"github.com/alon-nissan/robotaste-sub000/internal/models"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// Ensure the mocks implement the interfaces
var (
	_ secondary.ProtocolRepository     = (*mockProtocolRepository)(nil)
	_ secondary.SessionRepository      = (*mockSessionRepository)(nil)
	_ secondary.OperationRepository    = (*mockOperationRepository)(nil)
	_ secondary.OperationLogRepository = (*mockOperationLogRepository)(nil)
	_ secondary.SampleRepository       = (*mockSampleRepository)(nil)
	_ secondary.Dispenser              = (*mockDispenser)(nil)
	_ secondary.SelectionProvider      = (*mockSelectionProvider)(nil)
	_ DeviceRegistry                   = (*mockDeviceRegistry)(nil)
)

// mockProtocolRepository implements secondary.ProtocolRepository for testing.
type mockProtocolRepository struct {
	protocols map[string]*secondary.ProtocolRecord
	createErr error
	getErr    error
}

func newMockProtocolRepository() *mockProtocolRepository {
	return &mockProtocolRepository{protocols: make(map[string]*secondary.ProtocolRecord)}
}

// mockProtocol seeds a mock-mode protocol with mixing enabled.
func (m *mockProtocolRepository) mockProtocol(id string, maxCycles int) *secondary.ProtocolRecord {
	record := &secondary.ProtocolRecord{
		ID:              id,
		Name:            "protocol-" + id,
		HardwareEnabled: true,
		MockMode:        true,
		MixingEnabled:   true,
		MixOscillations: 3,
		MaxCycles:       maxCycles,
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	m.protocols[id] = record
	return record
}

func (m *mockProtocolRepository) Create(ctx context.Context, protocol *secondary.ProtocolRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	protocol.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	m.protocols[protocol.ID] = protocol
	return nil
}

func (m *mockProtocolRepository) GetByID(ctx context.Context, id string) (*secondary.ProtocolRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if p, ok := m.protocols[id]; ok {
		return p, nil
	}
	return nil, errors.New("protocol not found")
}

func (m *mockProtocolRepository) GetByName(ctx context.Context, name string) (*secondary.ProtocolRecord, error) {
	for _, p := range m.protocols {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, errors.New("protocol not found")
}

func (m *mockProtocolRepository) List(ctx context.Context) ([]*secondary.ProtocolRecord, error) {
	var result []*secondary.ProtocolRecord
	for _, p := range m.protocols {
		result = append(result, p)
	}
	return result, nil
}

func (m *mockProtocolRepository) GetNextID(ctx context.Context) (string, error) {
	return fmt.Sprintf("PROT-%03d", len(m.protocols)+1), nil
}

// mockSessionRepository implements secondary.SessionRepository for testing.
type mockSessionRepository struct {
	sessions  map[string]*secondary.SessionRecord
	createErr error
	updateErr error
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{sessions: make(map[string]*secondary.SessionRecord)}
}

// activeSession seeds an active session in the given phase.
func (m *mockSessionRepository) activeSession(id, protocolID, currentPhase string, cycle int) *secondary.SessionRecord {
	record := &secondary.SessionRecord{
		ID:           id,
		ProtocolID:   protocolID,
		CurrentPhase: currentPhase,
		CurrentCycle: cycle,
		State:        models.SessionStateActive,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	m.sessions[id] = record
	return record
}

func (m *mockSessionRepository) Create(ctx context.Context, session *secondary.SessionRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	session.State = models.SessionStateActive
	session.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepository) GetByID(ctx context.Context, id string) (*secondary.SessionRecord, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, errors.New("session not found")
}

func (m *mockSessionRepository) List(ctx context.Context, filters secondary.SessionFilters) ([]*secondary.SessionRecord, error) {
	var result []*secondary.SessionRecord
	for _, s := range m.sessions {
		if filters.ProtocolID != "" && s.ProtocolID != filters.ProtocolID {
			continue
		}
		if filters.State != "" && s.State != filters.State {
			continue
		}
		result = append(result, s)
	}
	return result, nil
}

func (m *mockSessionRepository) UpdatePhase(ctx context.Context, id, phase string, transitionCount int) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return errors.New("session not found")
	}
	s.CurrentPhase = phase
	s.TransitionCount = transitionCount
	return nil
}

func (m *mockSessionRepository) UpdateCycle(ctx context.Context, id string, cycle int) error {
	s, ok := m.sessions[id]
	if !ok {
		return errors.New("session not found")
	}
	s.CurrentCycle = cycle
	return nil
}

func (m *mockSessionRepository) UpdateState(ctx context.Context, id, state string, setCompleted bool) error {
	s, ok := m.sessions[id]
	if !ok {
		return errors.New("session not found")
	}
	s.State = state
	if setCompleted {
		s.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return nil
}

func (m *mockSessionRepository) GetNextID(ctx context.Context) (string, error) {
	return fmt.Sprintf("SESS-%03d", len(m.sessions)+1), nil
}

func (m *mockSessionRepository) ProtocolExists(ctx context.Context, protocolID string) (bool, error) {
	return true, nil
}

// mockOperationRepository implements secondary.OperationRepository for
// testing, preserving creation order like the sqlite adapter.
type mockOperationRepository struct {
	operations []*secondary.OperationRecord
	nextID     int64
	enqueueErr error
}

func newMockOperationRepository() *mockOperationRepository {
	return &mockOperationRepository{}
}

func (m *mockOperationRepository) Enqueue(ctx context.Context, op *secondary.OperationRecord) (int64, error) {
	if m.enqueueErr != nil {
		return 0, m.enqueueErr
	}
	m.nextID++
	stored := *op
	stored.ID = m.nextID
	stored.Status = models.OperationStatusPending
	stored.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	m.operations = append(m.operations, &stored)
	return stored.ID, nil
}

func (m *mockOperationRepository) GetByID(ctx context.Context, id int64) (*secondary.OperationRecord, error) {
	for _, op := range m.operations {
		if op.ID == id {
			return op, nil
		}
	}
	return nil, errors.New("operation not found")
}

func (m *mockOperationRepository) NextPending(ctx context.Context, limit int) ([]*secondary.OperationRecord, error) {
	var result []*secondary.OperationRecord
	for _, op := range m.operations {
		if op.Status != models.OperationStatusPending {
			continue
		}
		result = append(result, op)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *mockOperationRepository) MarkInProgress(ctx context.Context, id int64) error {
	op, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if op.Status != models.OperationStatusPending {
		return fmt.Errorf("operation %d is %s, not pending", id, op.Status)
	}
	op.Status = models.OperationStatusInProgress
	op.StartedAt = time.Now().UTC().Format(time.RFC3339)
	return nil
}

func (m *mockOperationRepository) MarkCompleted(ctx context.Context, id int64) error {
	return m.finish(id, models.OperationStatusCompleted, "")
}

func (m *mockOperationRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	return m.finish(id, models.OperationStatusFailed, reason)
}

func (m *mockOperationRepository) MarkSkipped(ctx context.Context, id int64, reason string) error {
	return m.finish(id, models.OperationStatusSkipped, reason)
}

func (m *mockOperationRepository) finish(id int64, status, reason string) error {
	op, err := m.GetByID(context.Background(), id)
	if err != nil {
		return err
	}
	op.Status = status
	op.ErrorMessage = reason
	op.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	return nil
}

func (m *mockOperationRepository) SkipPendingForCycle(ctx context.Context, sessionID string, cycleNumber int, reason string) (int64, error) {
	var skipped int64
	for _, op := range m.operations {
		if op.SessionID == sessionID && op.CycleNumber == cycleNumber && op.Status == models.OperationStatusPending {
			op.Status = models.OperationStatusSkipped
			op.ErrorMessage = reason
			op.CompletedAt = time.Now().UTC().Format(time.RFC3339)
			skipped++
		}
	}
	return skipped, nil
}

func (m *mockOperationRepository) PendingForCycle(ctx context.Context, sessionID string, cycleNumber int) ([]*secondary.OperationRecord, error) {
	var result []*secondary.OperationRecord
	for _, op := range m.operations {
		if op.SessionID == sessionID && op.CycleNumber == cycleNumber && op.Status == models.OperationStatusPending {
			result = append(result, op)
		}
	}
	return result, nil
}

func (m *mockOperationRepository) AllCompleteForCycle(ctx context.Context, sessionID string, cycleNumber int) (bool, error) {
	for _, op := range m.operations {
		if op.SessionID != sessionID || op.CycleNumber != cycleNumber {
			continue
		}
		if op.Status == models.OperationStatusPending || op.Status == models.OperationStatusInProgress {
			return false, nil
		}
	}
	return true, nil
}

func (m *mockOperationRepository) FailedForCycle(ctx context.Context, sessionID string, cycleNumber int) ([]*secondary.OperationRecord, error) {
	var result []*secondary.OperationRecord
	for _, op := range m.operations {
		if op.SessionID == sessionID && op.CycleNumber == cycleNumber && op.Status == models.OperationStatusFailed {
			result = append(result, op)
		}
	}
	return result, nil
}

func (m *mockOperationRepository) List(ctx context.Context, filters secondary.OperationFilters) ([]*secondary.OperationRecord, error) {
	var result []*secondary.OperationRecord
	for _, op := range m.operations {
		if filters.SessionID != "" && op.SessionID != filters.SessionID {
			continue
		}
		if filters.CycleNumber != 0 && op.CycleNumber != filters.CycleNumber {
			continue
		}
		if filters.Status != "" && op.Status != filters.Status {
			continue
		}
		result = append(result, op)
		if filters.Limit > 0 && len(result) == filters.Limit {
			break
		}
	}
	return result, nil
}

// statuses returns the status of every stored operation in creation order.
func (m *mockOperationRepository) statuses() []string {
	result := make([]string, len(m.operations))
	for i, op := range m.operations {
		result[i] = op.Status
	}
	return result
}

// opRecord builds a minimal operation record for enqueueing in tests.
func opRecord(sessionID string, cycle int, opType string) *secondary.OperationRecord {
	op := &secondary.OperationRecord{
		SessionID:     sessionID,
		CycleNumber:   cycle,
		OperationType: opType,
	}
	switch opType {
	case models.OperationTypePositionSpout:
		op.TargetPosition = string(device.PositionSpout)
	case models.OperationTypePositionDisplay:
		op.TargetPosition = string(device.PositionDisplay)
	case models.OperationTypeMix:
		op.MixCount = 3
	}
	return op
}

// mockOperationLogRepository implements secondary.OperationLogRepository for
// testing.
type mockOperationLogRepository struct {
	entries []*secondary.OperationLogRecord
}

func newMockOperationLogRepository() *mockOperationLogRepository {
	return &mockOperationLogRepository{}
}

func (m *mockOperationLogRepository) Append(ctx context.Context, entry *secondary.OperationLogRecord) error {
	stored := *entry
	stored.ID = int64(len(m.entries) + 1)
	stored.Timestamp = time.Now().UTC().Format(time.RFC3339)
	m.entries = append(m.entries, &stored)
	return nil
}

func (m *mockOperationLogRepository) ListForOperation(ctx context.Context, operationID int64) ([]*secondary.OperationLogRecord, error) {
	var result []*secondary.OperationLogRecord
	for _, e := range m.entries {
		if e.OperationID == operationID {
			result = append(result, e)
		}
	}
	return result, nil
}

// mockSampleRepository implements secondary.SampleRepository for testing.
type mockSampleRepository struct {
	samples     map[string]*secondary.SampleRecord
	createErr   error
	responseErr error
}

func newMockSampleRepository() *mockSampleRepository {
	return &mockSampleRepository{samples: make(map[string]*secondary.SampleRecord)}
}

func sampleKey(sessionID string, cycleNumber int) string {
	return fmt.Sprintf("%s/%d", sessionID, cycleNumber)
}

func (m *mockSampleRepository) Create(ctx context.Context, sample *secondary.SampleRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	key := sampleKey(sample.SessionID, sample.CycleNumber)
	if _, ok := m.samples[key]; ok {
		return errors.New("sample already exists")
	}
	stored := *sample
	stored.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	m.samples[key] = &stored
	return nil
}

func (m *mockSampleRepository) RecordDispensed(ctx context.Context, sessionID string, cycleNumber int, dispensed string) error {
	s, ok := m.samples[sampleKey(sessionID, cycleNumber)]
	if !ok {
		return errors.New("sample not found")
	}
	s.Dispensed = dispensed
	return nil
}

func (m *mockSampleRepository) RecordResponse(ctx context.Context, sessionID string, cycleNumber int, response string) error {
	if m.responseErr != nil {
		return m.responseErr
	}
	s, ok := m.samples[sampleKey(sessionID, cycleNumber)]
	if !ok {
		return errors.New("sample not found")
	}
	s.Response = response
	s.RespondedAt = time.Now().UTC().Format(time.RFC3339)
	return nil
}

func (m *mockSampleRepository) GetForCycle(ctx context.Context, sessionID string, cycleNumber int) (*secondary.SampleRecord, error) {
	if s, ok := m.samples[sampleKey(sessionID, cycleNumber)]; ok {
		return s, nil
	}
	return nil, errors.New("sample not found")
}

func (m *mockSampleRepository) ListForSession(ctx context.Context, sessionID string) ([]*secondary.SampleRecord, error) {
	var result []*secondary.SampleRecord
	for _, s := range m.samples {
		if s.SessionID == sessionID {
			result = append(result, s)
		}
	}
	return result, nil
}

// mockDispenser implements secondary.Dispenser for testing.
type mockDispenser struct {
	dispensed   string
	dispenseErr error
	calls       int
}

func newMockDispenser(dispensed string) *mockDispenser {
	return &mockDispenser{dispensed: dispensed}
}

func (m *mockDispenser) Dispense(ctx context.Context, sessionID string, cycleNumber int, target string) (*secondary.DispenseResult, error) {
	m.calls++
	if m.dispenseErr != nil {
		return nil, m.dispenseErr
	}
	if m.dispensed == "" {
		return &secondary.DispenseResult{Dispensed: target}, nil
	}
	return &secondary.DispenseResult{Dispensed: m.dispensed}, nil
}

// mockSelectionProvider implements secondary.SelectionProvider for testing.
type mockSelectionProvider struct {
	target string
	err    error
}

func (m *mockSelectionProvider) NextTarget(ctx context.Context, sessionID string, cycleNumber int) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.target, nil
}

// mockDeviceRegistry implements DeviceRegistry for testing, handing out one
// shared device.MockClient per session.
type mockDeviceRegistry struct {
	clients    map[string]*device.MockClient
	connectErr error
	cleanups   []string
}

func newMockDeviceRegistry() *mockDeviceRegistry {
	return &mockDeviceRegistry{clients: make(map[string]*device.MockClient)}
}

// clientFor pre-seeds the session's client so tests can inject faults before
// the service dials it.
func (m *mockDeviceRegistry) clientFor(sessionID string) *device.MockClient {
	if client, ok := m.clients[sessionID]; ok {
		return client
	}
	client := device.NewMockClient()
	m.clients[sessionID] = client
	return client
}

func (m *mockDeviceRegistry) GetOrCreate(sessionID string, cfg device.Config) (device.Client, error) {
	if m.connectErr != nil {
		return nil, m.connectErr
	}
	client := m.clientFor(sessionID)
	if !client.Connected() {
		if err := client.Connect(); err != nil {
			return nil, err
		}
	}
	return client, nil
}

func (m *mockDeviceRegistry) Cleanup(sessionID string) error {
	m.cleanups = append(m.cleanups, sessionID)
	if client, ok := m.clients[sessionID]; ok {
		return client.Close()
	}
	return nil
}
