package domain

import "context"

// ChangelogFetcher retrieves human-readable release notes for an upgrade.
// Best-effort by contract: implementations never fail the run. When no
// changelog can be found the result degrades to an empty string and the
// classifier must cope with scant evidence.
type ChangelogFetcher interface {
	Fetch(ctx context.Context, name string, info *PackageInfo, fromVer, toVer string) string
}
