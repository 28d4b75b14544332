package domain

import "context"

// Completer abstracts the text-completion service. Any provider can be
// swapped behind this contract without touching the classifier, the patch
// generator, or the orchestrator.
type Completer interface {
	// Complete sends a system + user prompt pair and returns the raw text
	// response.
	Complete(ctx context.Context, system, user string) (string, error)

	// CompleteJSON is like Complete but instructs the service to respond
	// with a single JSON object.
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}
