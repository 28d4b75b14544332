package domain

// DependencyClass distinguishes runtime dependencies from dev-only dependencies
// in the manifest.
type DependencyClass string

const (
	ClassDirect DependencyClass = "direct"
	ClassDev    DependencyClass = "dev"
)

// Dependency represents a versioned dependency declared in the manifest.
type Dependency struct {
	Name          string          // Package name, unique per class
	DeclaredRange string          // Range string as written in the manifest (e.g. "^1.0.0")
	Class         DependencyClass // Which manifest section it came from
	CurrentVer    string          // Version normalized from the declared range
	LatestVer     string          // Latest published version, filled by the registry client
}

// PackageInfo is the registry metadata for a package's latest release.
type PackageInfo struct {
	Version          string
	PeerDependencies map[string]string // name -> required range
	RepositoryURL    string
	RepositoryDir    string // Monorepo subdirectory, when the registry reports one
	Deprecated       string // Deprecation notice, empty when the package is not deprecated
}

// PeerRequirement is a version constraint on a sibling package implied by a
// dependency's latest release.
type PeerRequirement struct {
	Name      string
	Range     string
	Satisfied bool
}

// UsageSite is one import/require of a package found in the source tree.
// Ephemeral: produced per run, never persisted.
type UsageSite struct {
	Path    string
	Package string
	Line    int
	Snippet string
}

// ApprovalState tracks a patch proposal through its review lifecycle.
type ApprovalState string

const (
	ProposalPending  ApprovalState = "pending"
	ProposalApproved ApprovalState = "approved"
	ProposalRejected ApprovalState = "rejected"
	ProposalApplied  ApprovalState = "applied"
)

// PatchProposal is a generated rewrite of a source file, subject to review
// before being written. Applied is terminal and implies a backup of the
// original was durably written first.
type PatchProposal struct {
	Path     string
	Original string
	Proposed string
	State    ApprovalState
}

// Outcome is the per-dependency result recorded by the orchestrator.
type Outcome string

const (
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeErrored Outcome = "errored"
)

// DependencyResult aggregates everything the run learned about one dependency.
type DependencyResult struct {
	Dependency Dependency
	Outcome    Outcome
	Reason     string // One-line cause for skipped/errored outcomes
	Verdict    *RiskVerdict
	Peers      []PeerRequirement
	Deprecated string
	Usages     []UsageSite
	Proposals  []PatchProposal
	PeersAdded []string // Missing peers added to the manifest alongside the update
}

// MissingPeers returns the peer requirements not satisfied by the manifest,
// as a name -> range map.
func (r *DependencyResult) MissingPeers() map[string]string {
	missing := make(map[string]string)
	for _, peer := range r.Peers {
		if !peer.Satisfied {
			missing[peer.Name] = peer.Range
		}
	}
	return missing
}
