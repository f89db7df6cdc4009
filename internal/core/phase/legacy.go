package phase

import "fmt"

// InvalidTransitionError reports a phase transition not present in the
// legacy adjacency table.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid phase transition %s -> %s", e.From, e.To)
}

// legacyTransitions is the hard-coded phase graph used by sessions created
// before declarative sequences existed. Frozen: new behavior belongs in the
// Engine, never here.
var legacyTransitions = map[string][]string{
	Waiting:       {Registration, Loading, Completion},
	Registration:  {Selection, Completion},
	Selection:     {Loading, Completion},
	Loading:       {Questionnaire, Completion},
	Questionnaire: {Selection, Completion},
	Completion:    {},
}

// LegacyMachine validates transitions for pre-declarative sessions. It only
// checks pairs against the fixed table; next-phase computation still goes
// through the Engine over the default sequence, so there is one sequencing
// code path.
type LegacyMachine struct {
	current string
}

// NewLegacyMachine creates a machine positioned at the given phase.
func NewLegacyMachine(current string) *LegacyMachine {
	return &LegacyMachine{current: current}
}

// Current returns the machine's current phase.
func (m *LegacyMachine) Current() string {
	return m.current
}

// Transition moves to newPhase if the pair is in the fixed adjacency table.
func (m *LegacyMachine) Transition(newPhase string) error {
	allowed, ok := legacyTransitions[m.current]
	if !ok {
		return &InvalidTransitionError{From: m.current, To: newPhase}
	}
	for _, p := range allowed {
		if p == newPhase {
			m.current = newPhase
			return nil
		}
	}
	return &InvalidTransitionError{From: m.current, To: newPhase}
}
