package domain

// UsageScanner searches a source tree for files that import or require a
// given package. Matching is textual, not a parse: false positives are
// acceptable, dynamic import patterns may be missed. Output order is
// deterministic by file path.
type UsageScanner interface {
	FindUsages(root, pkg string) ([]UsageSite, error)
}
