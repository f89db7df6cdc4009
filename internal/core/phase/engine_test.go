package phase

import "testing"

func testSequence() Sequence {
	return Sequence{
		{PhaseID: Waiting, PhaseType: TypeBuiltin, Required: true},
		{PhaseID: Registration, PhaseType: TypeBuiltin, Required: false},
		{PhaseID: Instructions, PhaseType: TypeBuiltin, Required: true},
		{PhaseID: "experiment_loop", PhaseType: TypeLoop, Required: true},
		{PhaseID: Completion, PhaseType: TypeBuiltin, Required: true},
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		name         string
		current      string
		skipOptional bool
		want         string
	}{
		{
			name:    "waiting advances to registration",
			current: Waiting,
			want:    Registration,
		},
		{
			name:         "waiting skips optional registration",
			current:      Waiting,
			skipOptional: true,
			want:         Instructions,
		},
		{
			name:    "instructions enters loop at selection",
			current: Instructions,
			want:    Selection,
		},
		{
			name:    "selection advances to loading",
			current: Selection,
			want:    Loading,
		},
		{
			name:    "loading advances to questionnaire",
			current: Loading,
			want:    Questionnaire,
		},
		{
			name:    "robot_preparing advances to questionnaire",
			current: RobotPreparing,
			want:    Questionnaire,
		},
		{
			name:    "questionnaire re-enters selection",
			current: Questionnaire,
			want:    Selection,
		},
		{
			name:    "unknown phase falls through to completion",
			current: "no_such_phase",
			want:    Completion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(testSequence())
			got := e.Next(tt.current, tt.skipOptional, 1)
			if got != tt.want {
				t.Errorf("Next(%q, %v) = %q, want %q", tt.current, tt.skipOptional, got, tt.want)
			}
		})
	}
}

func TestNextSkipOptionalMiddlePhase(t *testing.T) {
	// [A(required), B(optional), C(required)]
	seq := Sequence{
		{PhaseID: "a", PhaseType: TypeCustom, Required: true},
		{PhaseID: "b", PhaseType: TypeCustom, Required: false},
		{PhaseID: "c", PhaseType: TypeCustom, Required: true},
	}

	if got := NewEngine(seq).Next("a", true, 0); got != "c" {
		t.Errorf("Next(a, skipOptional=true) = %q, want c", got)
	}
	if got := NewEngine(seq).Next("a", false, 0); got != "b" {
		t.Errorf("Next(a, skipOptional=false) = %q, want b", got)
	}
}

func TestNextEndOfSequence(t *testing.T) {
	e := NewEngine(testSequence())
	if got := e.Next(Completion, false, 3); got != Completion {
		t.Errorf("Next(completion) = %q, want completion", got)
	}
}

func TestLoopEntryAlwaysYieldsSelection(t *testing.T) {
	// Entering the loop from any predecessor must yield selection, never
	// loading or questionnaire.
	tests := []struct {
		name string
		seq  Sequence
		from string
	}{
		{
			name: "loop after builtin",
			seq:  testSequence(),
			from: Instructions,
		},
		{
			name: "loop after custom",
			seq: Sequence{
				{PhaseID: "briefing", PhaseType: TypeCustom, Required: true},
				{PhaseID: "experiment_loop", PhaseType: TypeLoop, Required: true},
			},
			from: "briefing",
		},
		{
			name: "loop behind an optional phase",
			seq: Sequence{
				{PhaseID: Waiting, PhaseType: TypeBuiltin, Required: true},
				{PhaseID: "extra", PhaseType: TypeCustom, Required: false},
				{PhaseID: "experiment_loop", PhaseType: TypeLoop, Required: true},
			},
			from: Waiting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewEngine(tt.seq).Next(tt.from, true, 0)
			if got != Selection {
				t.Errorf("entering loop from %q = %q, want %q", tt.from, got, Selection)
			}
		})
	}
}

func TestCircuitBreaker(t *testing.T) {
	// Pathological self-referential sequence: the loop internals cycle
	// forever without caller intervention.
	e := NewEngine(testSequence())

	current := Selection
	for i := 0; i < MaxTransitions; i++ {
		current = e.Next(current, false, 0)
		if current == Completion {
			t.Fatalf("completion reached early at transition %d", i+1)
		}
	}

	if got := e.Next(current, false, 0); got != Completion {
		t.Errorf("transition %d = %q, want %q", MaxTransitions+1, got, Completion)
	}
}

func TestLivenessWithoutLoop(t *testing.T) {
	// Any valid loop-free sequence must reach completion well inside the
	// circuit breaker ceiling.
	seq := Sequence{
		{PhaseID: Waiting, PhaseType: TypeBuiltin, Required: true},
		{PhaseID: Registration, PhaseType: TypeBuiltin, Required: false},
		{PhaseID: "consent", PhaseType: TypeCustom, Required: true},
		{PhaseID: Instructions, PhaseType: TypeBuiltin, Required: true},
		{PhaseID: Completion, PhaseType: TypeBuiltin, Required: true},
	}

	e := NewEngine(seq)
	current := Waiting
	for i := 0; i < MaxTransitions; i++ {
		current = e.Next(current, false, 0)
		if current == Completion {
			return
		}
	}
	t.Errorf("sequence never reached completion, stuck at %q", current)
}

func TestExitLoop(t *testing.T) {
	e := NewEngine(testSequence())
	if got := e.ExitLoop(false); got != Completion {
		t.Errorf("ExitLoop() = %q, want %q", got, Completion)
	}

	// Sequence with a debrief phase after the loop
	seq := testSequence()
	seq = append(seq[:4], Definition{PhaseID: "debrief", PhaseType: TypeCustom, Required: true}, seq[4])
	if got := NewEngine(seq).ExitLoop(false); got != "debrief" {
		t.Errorf("ExitLoop() = %q, want debrief", got)
	}

	// No loop in sequence
	if got := NewEngine(Sequence{{PhaseID: Waiting, PhaseType: TypeBuiltin, Required: true}}).ExitLoop(false); got != Completion {
		t.Errorf("ExitLoop() without loop = %q, want %q", got, Completion)
	}
}

func TestShouldAutoAdvance(t *testing.T) {
	seq := Sequence{
		{PhaseID: "splash", PhaseType: TypeCustom, Required: true, AutoAdvance: true, DurationMs: 3000},
		{PhaseID: Waiting, PhaseType: TypeBuiltin, Required: true},
	}
	e := NewEngine(seq)

	auto, ms := e.ShouldAutoAdvance("splash")
	if !auto || ms != 3000 {
		t.Errorf("ShouldAutoAdvance(splash) = (%v, %d), want (true, 3000)", auto, ms)
	}

	auto, _ = e.ShouldAutoAdvance(Waiting)
	if auto {
		t.Error("ShouldAutoAdvance(waiting) = true, want false")
	}

	auto, _ = e.ShouldAutoAdvance("missing")
	if auto {
		t.Error("ShouldAutoAdvance(missing) = true, want false")
	}
}

func TestCanSkip(t *testing.T) {
	e := NewEngine(testSequence())
	if !e.CanSkip(Registration) {
		t.Error("CanSkip(registration) = false, want true")
	}
	if e.CanSkip(Instructions) {
		t.Error("CanSkip(instructions) = true, want false")
	}
	if e.CanSkip("missing") {
		t.Error("CanSkip(missing) = true, want false")
	}
}

func TestContentFor(t *testing.T) {
	seq := Sequence{
		{PhaseID: "survey", PhaseType: TypeCustom, Required: true, Content: []byte(`{"questions":["q1"]}`)},
		{PhaseID: Waiting, PhaseType: TypeBuiltin, Required: true},
	}
	e := NewEngine(seq)

	if got := e.ContentFor("survey"); string(got) != `{"questions":["q1"]}` {
		t.Errorf("ContentFor(survey) = %s, want payload", got)
	}
	if got := e.ContentFor(Waiting); got != nil {
		t.Errorf("ContentFor(waiting) = %s, want nil", got)
	}
}

func TestTransitionsPersistence(t *testing.T) {
	e := NewEngineWithTransitions(testSequence(), MaxTransitions)
	if got := e.Next(Selection, false, 0); got != Completion {
		t.Errorf("resumed engine past ceiling returned %q, want %q", got, Completion)
	}
	if e.Transitions() != MaxTransitions+1 {
		t.Errorf("Transitions() = %d, want %d", e.Transitions(), MaxTransitions+1)
	}
}
