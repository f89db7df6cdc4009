package secondary

import "context"

// Dispenser is the secondary port for the external liquid-dispensing
// subsystem. The orchestration core treats it as a black box that either
// dispenses the requested concentrations or reports why it could not.
type Dispenser interface {
	// Dispense asks the pump subsystem to prepare the target
	// concentrations for a cycle. target and the returned dispensed
	// payload are opaque JSON.
	Dispense(ctx context.Context, sessionID string, cycleNumber int, target string) (*DispenseResult, error)
}

// DispenseResult reports what the pump subsystem actually delivered.
// Dispensed may differ from the request when dispensing was partial.
type DispenseResult struct {
	Dispensed string // JSON concentrations actually dispensed
}

// SelectionProvider is the secondary port for choosing the next sample's
// target concentrations (manual, predetermined, or an optimization backend).
// This core neither computes nor validates the payload.
type SelectionProvider interface {
	// NextTarget returns the target concentrations for the given cycle as
	// opaque JSON.
	NextTarget(ctx context.Context, sessionID string, cycleNumber int) (string, error)
}
