package domain

import "fmt"

// ConfigError is a fatal setup failure (missing credential, bad config file).
// The run aborts before any dependency is processed.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ManifestError is a fatal failure reading or parsing the dependency manifest.
type ManifestError struct {
	Path string
	Err  error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest %q: %v", e.Path, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// RegistryError is a per-dependency-recoverable failure talking to the
// package registry. NotFound distinguishes an unknown package from a
// transport failure.
type RegistryError struct {
	Package  string
	NotFound bool
	Err      error
}

func (e *RegistryError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("registry: package %q not found", e.Package)
	}
	return fmt.Sprintf("registry: %s: %v", e.Package, e.Err)
}

func (e *RegistryError) Unwrap() error { return e.Err }

// ClassificationError is a completion-service failure during risk
// classification. The orchestrator marks the dependency skipped.
type ClassificationError struct {
	Package string
	Err     error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification: %s: %v", e.Package, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// PatchGenerationError is a completion-service failure while proposing a
// patch. Treated as "no patch available for this file", never fatal to the run.
type PatchGenerationError struct {
	File string
	Err  error
}

func (e *PatchGenerationError) Error() string {
	return fmt.Sprintf("patch generation: %s: %v", e.File, e.Err)
}

func (e *PatchGenerationError) Unwrap() error { return e.Err }

// ApplyError is a failure writing a backup or patched file. The original
// file is guaranteed untouched when the backup write failed.
type ApplyError struct {
	File string
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply: %s: %v", e.File, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// UsageError is an invalid CLI invocation (bad flag combination or token).
// Mapped to exit code 2.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string { return e.Reason }

// NewUsageError builds a UsageError with a formatted reason.
func NewUsageError(format string, args ...any) *UsageError {
	return &UsageError{Reason: fmt.Sprintf(format, args...)}
}
