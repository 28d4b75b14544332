// Package manifest reads and rewrites the project's package.json, and owns
// the reinstall side effect. All writes go through a single Store so that
// concurrent dependency workers never interleave partial writes.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	logger "github.com/sirupsen/logrus"

	"github.com/depdoctor/depdoctor/domain"
)

const (
	sectionDeps    = "dependencies"
	sectionDevDeps = "devDependencies"

	// Package manager identifiers, detected by lockfile.
	pkgMgrPnpm = "pnpm"
	pkgMgrYarn = "yarn"
	pkgMgrNpm  = "npm"

	manifestIndent  = "  "
	manifestPerm    = 0o644
	tempFilePattern = ".package.json-*"
)

// versionChars strips everything that is not part of a bare version number.
var versionChars = regexp.MustCompile(`[^\d.]`)

// rangePrefix captures the leading ^ or ~ of a declared range.
var rangePrefix = regexp.MustCompile(`^[~^]?`)

// Store holds the parsed manifest document and serializes all mutations.
// It implements domain.ManifestStore.
type Store struct {
	mu   sync.Mutex
	path string
	doc  map[string]any
}

var _ domain.ManifestStore = (*Store)(nil)

// Load reads and parses the manifest at the given path.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ManifestError{Path: path, Err: err}
	}

	var doc map[string]any
	if unmarshalErr := json.Unmarshal(data, &doc); unmarshalErr != nil {
		return nil, &domain.ManifestError{Path: path, Err: unmarshalErr}
	}

	return &Store{path: path, doc: doc}, nil
}

// Path returns the manifest's file path.
func (s *Store) Path() string { return s.path }

// Dir returns the project directory containing the manifest.
func (s *Store) Dir() string { return filepath.Dir(s.path) }

// Dependencies returns all dependency records, direct class first, sorted by
// name within each class for reproducible processing order.
func (s *Store) Dependencies() []domain.Dependency {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deps []domain.Dependency
	deps = append(deps, s.sectionRecords(sectionDeps, domain.ClassDirect)...)
	deps = append(deps, s.sectionRecords(sectionDevDeps, domain.ClassDev)...)
	return deps
}

func (s *Store) sectionRecords(section string, class domain.DependencyClass) []domain.Dependency {
	raw, ok := s.doc[section].(map[string]any)
	if !ok {
		return nil
	}

	var deps []domain.Dependency
	for name, value := range raw {
		rangeStr, isString := value.(string)
		if !isString || rangeStr == "" {
			continue
		}
		deps = append(deps, domain.Dependency{
			Name:          name,
			DeclaredRange: rangeStr,
			Class:         class,
			CurrentVer:    NormalizeVersion(rangeStr),
		})
	}

	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	return deps
}

// DeclaredRange looks a package up across both dependency classes.
func (s *Store) DeclaredRange(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.declaredRangeLocked(name)
}

func (s *Store) declaredRangeLocked(name string) (string, bool) {
	for _, section := range []string{sectionDeps, sectionDevDeps} {
		if raw, ok := s.doc[section].(map[string]any); ok {
			if value, found := raw[name].(string); found {
				return value, true
			}
		}
	}
	return "", false
}

// EvaluatePeers checks each peer requirement against the manifest's declared
// ranges. A peer is satisfied when it is declared and its normalized version
// matches the required range. Results are sorted by peer name.
func (s *Store) EvaluatePeers(peers map[string]string) []domain.PeerRequirement {
	var reqs []domain.PeerRequirement
	for name, requiredRange := range peers {
		declared, found := s.DeclaredRange(name)
		reqs = append(reqs, domain.PeerRequirement{
			Name:      name,
			Range:     requiredRange,
			Satisfied: found && rangeSatisfies(declared, requiredRange),
		})
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].Name < reqs[j].Name })
	return reqs
}

// rangeSatisfies reports whether the version pinned by a declared range
// meets the peer's required range.
func rangeSatisfies(declaredRange, requiredRange string) bool {
	version, err := semver.NewVersion(NormalizeVersion(declaredRange))
	if err != nil {
		return false
	}
	constraint, err := semver.NewConstraint(requiredRange)
	if err != nil {
		return false
	}
	return constraint.Check(version)
}

// Update rewrites the stored range for the named package to the new version,
// keeping the declared prefix (^1.0.0 -> ^2.0.0, exact pins stay exact), adds
// any missing peers to the runtime dependencies, and persists the whole
// manifest atomically.
func (s *Store) Update(name, newVersion string, addPeers map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := false
	for _, section := range []string{sectionDeps, sectionDevDeps} {
		raw, ok := s.doc[section].(map[string]any)
		if !ok {
			continue
		}
		if oldRange, found := raw[name].(string); found {
			prefix := rangePrefix.FindString(oldRange)
			raw[name] = prefix + newVersion
			updated = true
			logger.Infof("[manifest] Updating %q to %s%s", name, prefix, newVersion)
		}
	}
	if !updated {
		return &domain.ManifestError{
			Path: s.path,
			Err:  fmt.Errorf("package %q is not declared", name),
		}
	}

	for peer, peerRange := range addPeers {
		if _, declared := s.declaredRangeLocked(peer); declared {
			continue
		}
		deps, ok := s.doc[sectionDeps].(map[string]any)
		if !ok {
			deps = make(map[string]any)
			s.doc[sectionDeps] = deps
		}
		deps[peer] = peerRange
		logger.Infof("[manifest] Adding missing peer %q@%s", peer, peerRange)
	}

	return s.persistLocked()
}

// persistLocked writes the manifest with write-to-temp-then-rename semantics
// so a crash never leaves a partial file behind.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.doc, "", manifestIndent)
	if err != nil {
		return &domain.ManifestError{Path: s.path, Err: err}
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return &domain.ManifestError{Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	if _, writeErr := tmp.Write(data); writeErr != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &domain.ManifestError{Path: s.path, Err: writeErr}
	}
	if closeErr := tmp.Close(); closeErr != nil {
		_ = os.Remove(tmpName)
		return &domain.ManifestError{Path: s.path, Err: closeErr}
	}
	if chmodErr := os.Chmod(tmpName, manifestPerm); chmodErr != nil {
		_ = os.Remove(tmpName)
		return &domain.ManifestError{Path: s.path, Err: chmodErr}
	}

	if renameErr := os.Rename(tmpName, s.path); renameErr != nil {
		_ = os.Remove(tmpName)
		return &domain.ManifestError{Path: s.path, Err: renameErr}
	}
	return nil
}

// DetectPackageManager determines which package manager the project uses by
// checking for lockfiles.
func (s *Store) DetectPackageManager() string {
	dir := s.Dir()
	if _, err := os.Stat(filepath.Join(dir, "pnpm-lock.yaml")); err == nil {
		return pkgMgrPnpm
	}
	if _, err := os.Stat(filepath.Join(dir, "yarn.lock")); err == nil {
		return pkgMgrYarn
	}
	return pkgMgrNpm
}

// Reinstall runs the detected package manager's install step to refresh the
// lockfile. A failure here is reported, not rolled back.
func (s *Store) Reinstall(ctx context.Context) error {
	pkgMgr := s.DetectPackageManager()
	logger.Infof("[manifest] Running %s install to refresh the lockfile...", pkgMgr)

	cmd := exec.CommandContext(ctx, pkgMgr, "install")
	cmd.Dir = s.Dir()
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to run %s install: %w\nOutput:\n%s", pkgMgr, err, string(output))
	}
	return nil
}

// NormalizeVersion strips range operators from a declared range, leaving the
// bare pinned version ("^1.0.0" -> "1.0.0"). Non-semver ranges (git URLs,
// tags) normalize to something unparseable and are skipped upstream.
func NormalizeVersion(rangeStr string) string {
	return strings.Trim(versionChars.ReplaceAllString(rangeStr, ""), ".")
}
