package domain

import "context"

// RegistryClient abstracts the package registry.
// Implementations query latest-version and peer-dependency metadata;
// "current == latest" is a valid non-error outcome decided by the caller.
type RegistryClient interface {
	// Latest returns the registry metadata for the package's latest release.
	// Fails with a RegistryError on network failure or unknown package.
	Latest(ctx context.Context, name string) (*PackageInfo, error)

	// PeerDependencies returns the peer requirements declared by a specific
	// version. Best-effort: an absent or empty result is not an error.
	PeerDependencies(ctx context.Context, name, version string) (map[string]string, error)
}
