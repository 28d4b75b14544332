// Package application wires the update workflow together: classify the risk
// of each outdated dependency, propose and review patches, and rewrite the
// manifest for approved upgrades.
package application

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/depdoctor/depdoctor/domain"
)

// UpdateService orchestrates the full update flow per dependency: resolve
// latest version -> fetch changelog -> classify risk -> evaluate peers ->
// patch usages -> update manifest. Component failures for one dependency are
// caught at this boundary and recorded as that dependency's outcome; the
// run always proceeds to the next dependency.
type UpdateService struct {
	store      domain.ManifestStore
	registry   domain.RegistryClient
	changelogs domain.ChangelogFetcher
	classifier *RiskClassifier
	scanner    domain.UsageScanner
	generator  *PatchGenerator
	applier    *PatchApplier
	confirmer  domain.Confirmer
}

// NewUpdateService creates the orchestrator from its collaborators.
func NewUpdateService(
	store domain.ManifestStore,
	registry domain.RegistryClient,
	changelogs domain.ChangelogFetcher,
	classifier *RiskClassifier,
	scanner domain.UsageScanner,
	generator *PatchGenerator,
	applier *PatchApplier,
	confirmer domain.Confirmer,
) *UpdateService {
	return &UpdateService{
		store:      store,
		registry:   registry,
		changelogs: changelogs,
		classifier: classifier,
		scanner:    scanner,
		generator:  generator,
		applier:    applier,
		confirmer:  confirmer,
	}
}

// RunOptions holds runtime options for a single run.
type RunOptions struct {
	SrcDir             string         // Source tree to scan; empty disables scanning
	ApplyPatches       bool           // Generate and apply patches for usage files
	Allowed            domain.RiskSet // Risk levels allowed to update
	Concurrency        int            // Number of dependency workers; <=1 means sequential
	AllowPartialUpdate bool           // Update the manifest even when some patches were rejected
}

// RunReport aggregates the per-dependency outcomes of one run.
type RunReport struct {
	Results      []domain.DependencyResult
	ReinstallErr error
}

// Counts returns the number of updated, skipped, and errored dependencies.
func (r *RunReport) Counts() (updated, skipped, errored int) {
	for _, result := range r.Results {
		switch result.Outcome {
		case domain.OutcomeUpdated:
			updated++
		case domain.OutcomeSkipped:
			skipped++
		case domain.OutcomeErrored:
			errored++
		}
	}
	return updated, skipped, errored
}

// Run processes every dependency in the manifest and triggers one reinstall
// when at least one manifest edit was persisted. Per-dependency failures
// never abort the run.
func (s *UpdateService) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	deps := s.store.Dependencies()
	logger.Infof("Found %d dependencies in %s. Analyzing for updates...", len(deps), s.store.Path())

	results := make([]domain.DependencyResult, len(deps))
	if opts.Concurrency > 1 {
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(opts.Concurrency)
		for i, dep := range deps {
			i, dep := i, dep
			group.Go(func() error {
				results[i] = s.processDependency(groupCtx, dep, opts)
				return nil
			})
		}
		_ = group.Wait()
	} else {
		for i, dep := range deps {
			// Cancellation is checked at the top of each iteration; any
			// in-flight proposal was already applied or rejected before
			// processDependency returned.
			if ctx.Err() != nil {
				results[i] = cancelledResult(dep)
				continue
			}
			results[i] = s.processDependency(ctx, dep, opts)
		}
	}

	report := &RunReport{Results: results}

	updated, _, _ := report.Counts()
	if updated > 0 && ctx.Err() == nil {
		if err := s.store.Reinstall(ctx); err != nil {
			// Reported, not rolled back: the manifest edits stand.
			logger.Errorf("Reinstall failed: %v", err)
			report.ReinstallErr = err
		}
	}

	return report, nil
}

func cancelledResult(dep domain.Dependency) domain.DependencyResult {
	return domain.DependencyResult{
		Dependency: dep,
		Outcome:    domain.OutcomeSkipped,
		Reason:     "run cancelled",
	}
}

// processDependency runs the full workflow for a single dependency and maps
// every failure mode to an outcome.
func (s *UpdateService) processDependency(
	ctx context.Context,
	dep domain.Dependency,
	opts RunOptions,
) domain.DependencyResult {
	if ctx.Err() != nil {
		return cancelledResult(dep)
	}

	result := domain.DependencyResult{Dependency: dep}
	logger.Infof("Checking %q (%s)...", dep.Name, dep.DeclaredRange)

	if dep.CurrentVer == "" {
		result.Outcome = domain.OutcomeSkipped
		result.Reason = fmt.Sprintf("declared range %q does not pin a version", dep.DeclaredRange)
		return result
	}

	info, err := s.registry.Latest(ctx, dep.Name)
	if err != nil {
		result.Outcome = domain.OutcomeErrored
		result.Reason = err.Error()
		return result
	}
	result.Dependency.LatestVer = info.Version
	result.Deprecated = info.Deprecated

	// No update available is a valid non-error outcome; the classifier is
	// never consulted for it.
	if info.Version == dep.CurrentVer {
		result.Outcome = domain.OutcomeSkipped
		result.Reason = "already up to date"
		return result
	}
	logger.Infof("Update found for %q: %s -> %s", dep.Name, dep.CurrentVer, info.Version)

	result.Peers = s.evaluatePeers(ctx, dep.Name, info)
	missing := result.MissingPeers()
	if len(missing) > 0 {
		logger.Warnf("Missing peer dependencies for %q: %s", dep.Name, strings.Join(peerNames(missing), ", "))
	}

	changelogText := s.changelogs.Fetch(ctx, dep.Name, info, dep.CurrentVer, info.Version)

	verdict, classifyErr := s.classifier.Classify(
		ctx, dep.Name, dep.CurrentVer, info.Version, changelogText, peerNames(missing), info.Deprecated,
	)
	if classifyErr != nil {
		// Classification failure marks the dependency skipped, never aborts.
		result.Outcome = domain.OutcomeSkipped
		result.Reason = classifyErr.Error()
		return result
	}
	result.Verdict = verdict

	if !opts.Allowed.Allows(verdict.Level) {
		result.Outcome = domain.OutcomeSkipped
		result.Reason = fmt.Sprintf("risk %s not in allow-set (%s)", verdict.Level, opts.Allowed)
		return result
	}

	prompt := fmt.Sprintf(
		"Update %q from %s to %s (risk: %s)?",
		dep.Name, dep.CurrentVer, info.Version, verdict.Level,
	)
	if !s.confirmer.Confirm(prompt) {
		result.Outcome = domain.OutcomeSkipped
		result.Reason = "declined by user"
		return result
	}

	if done := s.runPatchStage(ctx, &result, info, changelogText, opts); done {
		return result
	}

	peersToAdd := s.confirmPeerAdditions(dep.Name, missing)

	if updateErr := s.store.Update(dep.Name, info.Version, peersToAdd); updateErr != nil {
		result.Outcome = domain.OutcomeErrored
		result.Reason = updateErr.Error()
		return result
	}
	result.PeersAdded = peerNames(peersToAdd)

	result.Outcome = domain.OutcomeUpdated
	return result
}

// evaluatePeers checks the latest release's peer requirements against the
// manifest. When the latest-version document carried no peer metadata, the
// per-version endpoint is consulted best-effort.
func (s *UpdateService) evaluatePeers(
	ctx context.Context,
	name string,
	info *domain.PackageInfo,
) []domain.PeerRequirement {
	peers := info.PeerDependencies
	if len(peers) == 0 {
		fetched, err := s.registry.PeerDependencies(ctx, name, info.Version)
		if err != nil {
			logger.Debugf("Peer dependency lookup for %q failed: %v", name, err)
			return nil
		}
		peers = fetched
	}
	if len(peers) == 0 {
		return nil
	}
	return s.store.EvaluatePeers(peers)
}

// runPatchStage scans usages and drives patch generation, review and apply.
// It returns true when the dependency's outcome is already decided (errored
// patch stage or a blocking rejection).
func (s *UpdateService) runPatchStage(
	ctx context.Context,
	result *domain.DependencyResult,
	info *domain.PackageInfo,
	changelogText string,
	opts RunOptions,
) bool {
	dep := result.Dependency
	if opts.SrcDir == "" || result.Verdict.Level == domain.RiskSafe {
		return false
	}

	sites, err := s.scanner.FindUsages(opts.SrcDir, dep.Name)
	if err != nil {
		result.Outcome = domain.OutcomeErrored
		result.Reason = fmt.Sprintf("usage scan failed: %v", err)
		return true
	}
	result.Usages = sites
	if len(sites) == 0 || !opts.ApplyPatches {
		return false
	}

	rejected := 0
	for _, path := range uniquePaths(sites) {
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			result.Outcome = domain.OutcomeErrored
			result.Reason = fmt.Sprintf("failed to read %s: %v", path, readErr)
			return true
		}

		proposal, proposeErr := s.generator.Propose(
			ctx, path, string(content), dep.Name, dep.CurrentVer, info.Version, changelogText,
		)
		if proposeErr != nil {
			// No patch available for this file; the manifest range must not
			// be updated on a failed patch stage.
			result.Outcome = domain.OutcomeErrored
			result.Reason = proposeErr.Error()
			return true
		}
		if proposal == nil {
			continue
		}

		s.applier.Review(proposal)
		switch proposal.State {
		case domain.ProposalApproved:
			if applyErr := s.applier.Apply(proposal); applyErr != nil {
				result.Proposals = append(result.Proposals, *proposal)
				result.Outcome = domain.OutcomeErrored
				result.Reason = applyErr.Error()
				return true
			}
		case domain.ProposalRejected:
			rejected++
		}
		result.Proposals = append(result.Proposals, *proposal)
	}

	if rejected > 0 && !opts.AllowPartialUpdate {
		result.Outcome = domain.OutcomeSkipped
		result.Reason = fmt.Sprintf("%d patch(es) rejected; manifest left unchanged", rejected)
		return true
	}
	return false
}

// confirmPeerAdditions asks before adding missing peers to the manifest.
func (s *UpdateService) confirmPeerAdditions(name string, missing map[string]string) map[string]string {
	if len(missing) == 0 {
		return nil
	}
	prompt := fmt.Sprintf(
		"Add %d missing peer dependenc(ies) required by %q (%s)?",
		len(missing), name, strings.Join(peerNames(missing), ", "),
	)
	if !s.confirmer.Confirm(prompt) {
		return nil
	}
	return missing
}

func uniquePaths(sites []domain.UsageSite) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, site := range sites {
		if !seen[site.Path] {
			seen[site.Path] = true
			paths = append(paths, site.Path)
		}
	}
	return paths
}

func peerNames(peers map[string]string) []string {
	names := make([]string, 0, len(peers))
	for name := range peers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
