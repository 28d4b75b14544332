package domain

// Confirmer is the interactive confirmation capability. The automation mode
// supplies an implementation that always answers yes, preserving a single
// code path for interactive and unattended runs.
type Confirmer interface {
	Confirm(prompt string) bool
}
