package domain

import "context"

// ManifestStore is the orchestrator's view of the dependency manifest. All
// mutations go through one store instance so concurrent workers never
// interleave partial writes.
type ManifestStore interface {
	// Path returns the manifest's file path.
	Path() string

	// Dependencies returns all declared dependencies, direct class first,
	// sorted by name within each class.
	Dependencies() []Dependency

	// EvaluatePeers checks peer requirements against the declared ranges.
	EvaluatePeers(peers map[string]string) []PeerRequirement

	// Update rewrites the stored range for the named package, preserving its
	// range prefix, adds any missing peers, and persists atomically.
	Update(name, newVersion string, addPeers map[string]string) error

	// Reinstall runs the project's package manager install step.
	Reinstall(ctx context.Context) error
}
