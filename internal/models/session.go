// Package models holds the closed string enums shared across the
// orchestration core: session states and hardware operation types and
// statuses. The record structs the repositories persist live in
// ports/secondary.
package models

// Session state constants
const (
	SessionStateActive    = "active"
	SessionStateCompleted = "completed"
	SessionStateAborted   = "aborted"
)
