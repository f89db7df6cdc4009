// Package dispense adapts the external liquid-dispensing subsystem to the
// Dispenser port. The pump rig is driven by its own controller; this side
// only requests concentrations and reports what came back.
package dispense

import (
	"context"

	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

// Passthrough reports every target as dispensed in full. Used in mock mode
// and wherever the pump subsystem runs open-loop without feedback.
type Passthrough struct{}

// NewPassthrough creates a dispenser that echoes the request.
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// Dispense reports the requested target as delivered.
func (d *Passthrough) Dispense(ctx context.Context, sessionID string, cycleNumber int, target string) (*secondary.DispenseResult, error) {
	return &secondary.DispenseResult{Dispensed: target}, nil
}

// Ensure Passthrough implements the interface
var _ secondary.Dispenser = (*Passthrough)(nil)
