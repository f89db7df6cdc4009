package phase

import "encoding/json"

// MaxTransitions is the circuit breaker ceiling: once an engine has computed
// this many transitions the only phase it will ever return is completion. A
// misconfigured cyclic sequence must not trap a subject forever.
const MaxTransitions = 100

// Engine computes the next experiment phase from a declared sequence. The
// engine knows the internal shape of the repeating loop
// (selection -> loading -> questionnaire -> selection) but not when to leave
// it; the stopping criterion is evaluated by the caller once per
// questionnaire completion, which then calls ExitLoop.
type Engine struct {
	seq         Sequence
	transitions int
}

// NewEngine creates an engine over the given sequence.
func NewEngine(seq Sequence) *Engine {
	return &Engine{seq: seq}
}

// NewEngineWithTransitions creates an engine that resumes a persisted
// transition count. Phase transitions are driven one CLI invocation at a
// time, so the circuit breaker state lives on the session row between calls.
func NewEngineWithTransitions(seq Sequence, transitions int) *Engine {
	return &Engine{seq: seq, transitions: transitions}
}

// Transitions returns the number of transitions computed so far, for
// persisting back to the session.
func (e *Engine) Transitions() int {
	return e.transitions
}

// Next computes the single valid phase after current. skipOptional skips
// non-required declared phases; currentCycle is carried for symmetry with
// the loop-exit decision but does not influence loop-internal routing.
func (e *Engine) Next(current string, skipOptional bool, currentCycle int) string {
	e.transitions++
	if e.transitions > MaxTransitions {
		return Completion
	}

	// Loop-internal phases follow fixed rules regardless of the declared
	// sequence. robot_preparing is the loading phase as seen while the rig
	// is physically working; both route to the questionnaire.
	switch current {
	case Selection:
		return Loading
	case Loading, RobotPreparing:
		return Questionnaire
	case Questionnaire:
		return Selection
	}

	idx := e.seq.find(current)
	if idx < 0 {
		// Phase not in the declared sequence: nothing sensible to walk
		// from, so terminate rather than guess.
		return Completion
	}
	return e.walkFrom(idx+1, skipOptional)
}

// ExitLoop computes the phase that follows the loop entry in the declared
// sequence. Called when the stopping criterion (e.g. max cycles reached) says
// the repeating core is done.
func (e *Engine) ExitLoop(skipOptional bool) string {
	e.transitions++
	if e.transitions > MaxTransitions {
		return Completion
	}

	li := e.seq.loopIndex()
	if li < 0 {
		return Completion
	}
	return e.walkFrom(li+1, skipOptional)
}

// walkFrom walks the declared sequence forward from index i, applying the
// skip-optional rule. Entering the loop always yields selection: a sample
// must be chosen before it can be prepared.
func (e *Engine) walkFrom(i int, skipOptional bool) string {
	for ; i < len(e.seq); i++ {
		def := e.seq[i]
		if skipOptional && !def.Required {
			continue
		}
		if def.PhaseType == TypeLoop {
			return Selection
		}
		return def.PhaseID
	}
	return Completion
}

// ShouldAutoAdvance reports whether the phase advances on a timer, and the
// duration if so.
func (e *Engine) ShouldAutoAdvance(phaseID string) (bool, int) {
	idx := e.seq.find(phaseID)
	if idx < 0 {
		return false, 0
	}
	def := e.seq[idx]
	if !def.AutoAdvance {
		return false, 0
	}
	return true, def.DurationMs
}

// CanSkip reports whether the phase may be skipped.
func (e *Engine) CanSkip(phaseID string) bool {
	idx := e.seq.find(phaseID)
	if idx < 0 {
		return false
	}
	return !e.seq[idx].Required
}

// ContentFor returns the opaque content payload for a custom phase, or nil
// for builtin and loop phases.
func (e *Engine) ContentFor(phaseID string) json.RawMessage {
	idx := e.seq.find(phaseID)
	if idx < 0 {
		return nil
	}
	def := e.seq[idx]
	if def.PhaseType != TypeCustom {
		return nil
	}
	return def.Content
}
