// Package phase contains the pure business logic for experiment phase
// sequencing. This is part of the Functional Core - no I/O, only pure
// functions over the parsed phase sequence.
package phase

import (
	"encoding/json"
	"fmt"
)

// PhaseType classifies an entry in a declared phase sequence.
type PhaseType string

const (
	TypeBuiltin PhaseType = "builtin"
	TypeCustom  PhaseType = "custom"
	TypeLoop    PhaseType = "loop"
)

// Builtin phase identifiers. The four loop-internal phases (selection,
// loading, robot_preparing, questionnaire) never appear in a declared
// sequence themselves; they are reached through the loop entry.
const (
	Waiting        = "waiting"
	Registration   = "registration"
	Instructions   = "instructions"
	Selection      = "selection"
	Loading        = "loading"
	RobotPreparing = "robot_preparing"
	Questionnaire  = "questionnaire"
	Completion     = "completion"
)

// Definition is one entry in a declarative phase sequence. Owned by the
// protocol configuration and read-only during a session.
type Definition struct {
	PhaseID     string          `json:"phase_id" yaml:"phase_id"`
	PhaseType   PhaseType       `json:"phase_type" yaml:"phase_type"`
	Required    bool            `json:"required" yaml:"required"`
	AutoAdvance bool            `json:"auto_advance" yaml:"auto_advance"`
	DurationMs  int             `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
	Content     json.RawMessage `json:"content,omitempty" yaml:"-"`
}

// Sequence is an ordered list of phase definitions. At most one entry has
// type loop; that entry delimits the repeating experiment core.
type Sequence []Definition

// DefaultSequence returns the fixed fallback sequence used when a protocol
// declares no phase sequence or declares a malformed one.
func DefaultSequence() Sequence {
	return Sequence{
		{PhaseID: Waiting, PhaseType: TypeBuiltin, Required: true},
		{PhaseID: Registration, PhaseType: TypeBuiltin, Required: false},
		{PhaseID: Instructions, PhaseType: TypeBuiltin, Required: true},
		{PhaseID: "experiment_loop", PhaseType: TypeLoop, Required: true},
		{PhaseID: Completion, PhaseType: TypeBuiltin, Required: true},
	}
}

// ParseSequence parses and validates a JSON-encoded phase sequence.
func ParseSequence(raw []byte) (Sequence, error) {
	var seq Sequence
	if err := json.Unmarshal(raw, &seq); err != nil {
		return nil, fmt.Errorf("invalid phase sequence JSON: %w", err)
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return seq, nil
}

// Validate checks the structural invariants of a declared sequence.
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("phase sequence is empty")
	}

	seen := make(map[string]bool, len(s))
	loops := 0
	for i, def := range s {
		if def.PhaseID == "" {
			return fmt.Errorf("phase %d: missing phase_id", i)
		}
		if seen[def.PhaseID] {
			return fmt.Errorf("phase %d: duplicate phase_id %q", i, def.PhaseID)
		}
		seen[def.PhaseID] = true

		switch def.PhaseType {
		case TypeBuiltin, TypeCustom:
		case TypeLoop:
			loops++
		default:
			return fmt.Errorf("phase %q: unknown phase_type %q", def.PhaseID, def.PhaseType)
		}

		// auto_advance without a positive duration would advance instantly
		// or never; both are authoring mistakes.
		if def.AutoAdvance && def.DurationMs <= 0 {
			return fmt.Errorf("phase %q: auto_advance requires duration_ms > 0", def.PhaseID)
		}
	}

	if loops > 1 {
		return fmt.Errorf("phase sequence declares %d loop phases, at most one allowed", loops)
	}

	return nil
}

// Resolve parses raw into a sequence, falling back to the default when raw
// is empty or malformed. The boolean reports whether the fallback was used;
// a configuration typo must not halt the experiment.
func Resolve(raw []byte) (Sequence, bool) {
	if len(raw) == 0 {
		return DefaultSequence(), true
	}
	seq, err := ParseSequence(raw)
	if err != nil {
		return DefaultSequence(), true
	}
	return seq, false
}

// find returns the index of the phase with the given ID, or -1.
func (s Sequence) find(phaseID string) int {
	for i, def := range s {
		if def.PhaseID == phaseID {
			return i
		}
	}
	return -1
}

// loopIndex returns the index of the loop entry, or -1 when the sequence
// has none.
func (s Sequence) loopIndex() int {
	for i, def := range s {
		if def.PhaseType == TypeLoop {
			return i
		}
	}
	return -1
}
