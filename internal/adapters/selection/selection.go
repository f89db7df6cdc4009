// Package selection provides SelectionProvider implementations: how the next
// sample's target concentrations are chosen when they are not supplied
// explicitly.
package selection

import (
	"context"
	"fmt"

	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

// ManualProvider never chooses: the moderator supplies every target
// explicitly and an implicit request is an error.
type ManualProvider struct{}

// NewManualProvider creates a provider for moderator-driven selection.
func NewManualProvider() *ManualProvider {
	return &ManualProvider{}
}

// NextTarget always fails; manual sessions pass the target with the request.
func (p *ManualProvider) NextTarget(ctx context.Context, sessionID string, cycleNumber int) (string, error) {
	return "", fmt.Errorf("session %s uses manual selection: pass a target for cycle %d", sessionID, cycleNumber)
}

// PredeterminedProvider walks a fixed list of targets, one per cycle.
type PredeterminedProvider struct {
	targets []string
}

// NewPredeterminedProvider creates a provider over a fixed target list.
// Cycle N receives the Nth target (1-based).
func NewPredeterminedProvider(targets []string) *PredeterminedProvider {
	return &PredeterminedProvider{targets: targets}
}

// NextTarget returns the target scheduled for the cycle.
func (p *PredeterminedProvider) NextTarget(ctx context.Context, sessionID string, cycleNumber int) (string, error) {
	if cycleNumber < 1 || cycleNumber > len(p.targets) {
		return "", fmt.Errorf("no predetermined target for cycle %d (%d scheduled)", cycleNumber, len(p.targets))
	}
	return p.targets[cycleNumber-1], nil
}

// Ensure the providers implement the interface
var (
	_ secondary.SelectionProvider = (*ManualProvider)(nil)
	_ secondary.SelectionProvider = (*PredeterminedProvider)(nil)
)
