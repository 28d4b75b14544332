// Package testdoubles provides hand-crafted test doubles (spies, stubs,
// dummies) for the domain interfaces. All doubles are safe for concurrent
// use so orchestrator tests can run with worker pools.
package testdoubles

import (
	"context"
	"sync"

	"github.com/depdoctor/depdoctor/domain"
)

// ---------------------------------------------------------------------------
// SpyStore
// ---------------------------------------------------------------------------

// SpyStore implements domain.ManifestStore in memory. Updates are recorded,
// not persisted anywhere.
type SpyStore struct {
	ManifestPath string
	Deps         []domain.Dependency
	PeerResults  []domain.PeerRequirement // returned by EvaluatePeers when set
	UpdateErr    map[string]error         // name -> error to return
	ReinstallErr error

	mu sync.Mutex
	// spy: recorded mutations
	Updates        []StoreUpdate
	EvaluatedPeers []map[string]string
	Reinstalls     int
}

// StoreUpdate records one Update call.
type StoreUpdate struct {
	Name       string
	NewVersion string
	AddedPeers map[string]string
}

var _ domain.ManifestStore = (*SpyStore)(nil)

func (s *SpyStore) Path() string { return s.ManifestPath }

func (s *SpyStore) Dependencies() []domain.Dependency { return s.Deps }

func (s *SpyStore) EvaluatePeers(peers map[string]string) []domain.PeerRequirement {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EvaluatedPeers = append(s.EvaluatedPeers, peers)
	return s.PeerResults
}

func (s *SpyStore) Update(name, newVersion string, addPeers map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.UpdateErr[name]; ok {
		return err
	}
	s.Updates = append(s.Updates, StoreUpdate{Name: name, NewVersion: newVersion, AddedPeers: addPeers})
	return nil
}

func (s *SpyStore) Reinstall(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reinstalls++
	return s.ReinstallErr
}

// ---------------------------------------------------------------------------
// SpyRegistry
// ---------------------------------------------------------------------------

// SpyRegistry implements domain.RegistryClient as a configurable spy.
// Configure Packages with the metadata per package name, then inspect the
// call-tracking fields.
type SpyRegistry struct {
	// --- Latest ---
	Packages  map[string]*domain.PackageInfo // name -> info
	LatestErr map[string]error               // name -> error to return

	// --- PeerDependencies ---
	Peers    map[string]map[string]string // name -> peers
	PeersErr error

	mu sync.Mutex
	// spy: package names requested
	LatestCalls []string
	PeerCalls   []string
}

var _ domain.RegistryClient = (*SpyRegistry)(nil)

func (r *SpyRegistry) Latest(_ context.Context, name string) (*domain.PackageInfo, error) {
	r.mu.Lock()
	r.LatestCalls = append(r.LatestCalls, name)
	r.mu.Unlock()

	if err, ok := r.LatestErr[name]; ok {
		return nil, err
	}
	if info, ok := r.Packages[name]; ok {
		return info, nil
	}
	return nil, &domain.RegistryError{Package: name, NotFound: true}
}

func (r *SpyRegistry) PeerDependencies(_ context.Context, name, _ string) (map[string]string, error) {
	r.mu.Lock()
	r.PeerCalls = append(r.PeerCalls, name)
	r.mu.Unlock()

	if r.PeersErr != nil {
		return nil, r.PeersErr
	}
	return r.Peers[name], nil
}

// ---------------------------------------------------------------------------
// SpyChangelogFetcher
// ---------------------------------------------------------------------------

// SpyChangelogFetcher returns canned changelog text per package.
type SpyChangelogFetcher struct {
	Changelogs map[string]string // name -> text

	mu sync.Mutex
	// spy: names requested
	FetchCalls []string
}

var _ domain.ChangelogFetcher = (*SpyChangelogFetcher)(nil)

func (f *SpyChangelogFetcher) Fetch(
	_ context.Context,
	name string,
	_ *domain.PackageInfo,
	_, _ string,
) string {
	f.mu.Lock()
	f.FetchCalls = append(f.FetchCalls, name)
	f.mu.Unlock()
	return f.Changelogs[name]
}

// ---------------------------------------------------------------------------
// SpyCompleter
// ---------------------------------------------------------------------------

// SpyCompleter implements domain.Completer with canned responses. Responses
// are consumed in order; when exhausted, the last one repeats.
type SpyCompleter struct {
	Responses []string
	Err       error
	JSONErr   error

	mu sync.Mutex
	// spy: user prompts received
	Prompts     []string
	JSONPrompts []string

	next int
}

var _ domain.Completer = (*SpyCompleter)(nil)

func (c *SpyCompleter) Complete(_ context.Context, _, user string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Prompts = append(c.Prompts, user)
	if c.Err != nil {
		return "", c.Err
	}
	return c.nextResponseLocked(), nil
}

func (c *SpyCompleter) CompleteJSON(_ context.Context, _, user string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.JSONPrompts = append(c.JSONPrompts, user)
	if c.JSONErr != nil {
		return "", c.JSONErr
	}
	return c.nextResponseLocked(), nil
}

func (c *SpyCompleter) nextResponseLocked() string {
	if len(c.Responses) == 0 {
		return ""
	}
	resp := c.Responses[c.next]
	if c.next < len(c.Responses)-1 {
		c.next++
	}
	return resp
}

// ---------------------------------------------------------------------------
// SpyConfirmer
// ---------------------------------------------------------------------------

// SpyConfirmer answers prompts from a scripted list of booleans; when the
// script is exhausted, Default applies.
type SpyConfirmer struct {
	Answers []bool
	Default bool

	mu sync.Mutex
	// spy: prompts received
	Prompts []string
}

var _ domain.Confirmer = (*SpyConfirmer)(nil)

func (c *SpyConfirmer) Confirm(prompt string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Prompts = append(c.Prompts, prompt)
	if len(c.Answers) > 0 {
		answer := c.Answers[0]
		c.Answers = c.Answers[1:]
		return answer
	}
	return c.Default
}

// ---------------------------------------------------------------------------
// SpyScanner
// ---------------------------------------------------------------------------

// SpyScanner returns canned usage sites per package name.
type SpyScanner struct {
	Sites map[string][]domain.UsageSite
	Err   error

	mu sync.Mutex
	// spy: (root, pkg) pairs requested
	Roots    []string
	Packages []string
}

var _ domain.UsageScanner = (*SpyScanner)(nil)

func (s *SpyScanner) FindUsages(root, pkg string) ([]domain.UsageSite, error) {
	s.mu.Lock()
	s.Roots = append(s.Roots, root)
	s.Packages = append(s.Packages, pkg)
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	return s.Sites[pkg], nil
}
