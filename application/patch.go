package application

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"
	logger "github.com/sirupsen/logrus"

	"github.com/depdoctor/depdoctor/domain"
)

const (
	// BackupSuffix is appended to the original path before a patch is
	// written. A second apply to the same file overwrites the previous
	// backup; backups are not rotated.
	BackupSuffix = ".bak"

	backupPerm = 0o644
	diffLines  = 3

	patchSystemPrompt = "You are an automated code refactoring tool. " +
		"I will provide a changelog for a library update and a user's code file. " +
		"Your task is to rewrite the entire code file to be compatible with the new " +
		"version, applying any necessary breaking changes from the changelog. " +
		"Respond with a JSON object containing a single key: 'new_content' " +
		"(a string containing the complete, corrected file content). " +
		"Make sure the response is only the JSON object and nothing else."
)

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	contextStyle = lipgloss.NewStyle().Faint(true)
)

// PatchGenerator asks the completion service for a rewritten version of a
// source file that accommodates a dependency upgrade.
type PatchGenerator struct {
	completer domain.Completer
}

// NewPatchGenerator creates a generator backed by the given completer.
func NewPatchGenerator(completer domain.Completer) *PatchGenerator {
	return &PatchGenerator{completer: completer}
}

// patchResponse is the JSON object the prompt demands from the service.
type patchResponse struct {
	NewContent string `json:"new_content"`
}

// Propose returns a pending patch proposal for the file, or nil when the
// service decided no change is needed. Output is opaque text: no syntactic
// validation is performed.
func (g *PatchGenerator) Propose(
	ctx context.Context,
	path, content, pkg, fromVer, toVer, changelogText string,
) (*domain.PatchProposal, error) {
	logger.Debugf("[patch] Generating patch for %s", path)

	userPrompt := fmt.Sprintf(
		"Changelog for %s (upgrading %s -> %s):\n%s\n\n"+
			"Rewrite the following code file to be compatible with the breaking changes "+
			"described. Do not add any new functionality.\n"+
			"Code File Path: %s\nOriginal Code Content:\n```javascript\n%s\n```",
		pkg, fromVer, toVer, changelogText, path, content,
	)

	raw, err := g.completer.CompleteJSON(ctx, patchSystemPrompt, userPrompt)
	if err != nil {
		return nil, &domain.PatchGenerationError{File: path, Err: err}
	}

	var resp patchResponse
	if unmarshalErr := json.Unmarshal([]byte(raw), &resp); unmarshalErr != nil {
		return nil, &domain.PatchGenerationError{File: path, Err: unmarshalErr}
	}

	if resp.NewContent == "" || resp.NewContent == content {
		return nil, nil
	}

	return &domain.PatchProposal{
		Path:     path,
		Original: content,
		Proposed: resp.NewContent,
		State:    domain.ProposalPending,
	}, nil
}

// PatchApplier drives a proposal through review and applies approved patches
// with backup-then-overwrite semantics. Writes to any single path are
// serialized through a per-path lock.
type PatchApplier struct {
	confirmer domain.Confirmer
	out       io.Writer

	mu        sync.Mutex
	pathLocks map[string]*sync.Mutex
}

// NewPatchApplier creates an applier that renders diffs to out and asks the
// confirmer before applying.
func NewPatchApplier(confirmer domain.Confirmer, out io.Writer) *PatchApplier {
	return &PatchApplier{
		confirmer: confirmer,
		out:       out,
		pathLocks: make(map[string]*sync.Mutex),
	}
}

// RenderDiff returns a colored unified diff between the original and
// proposed content. Pure: no side effects.
func RenderDiff(original, proposed string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(proposed),
		FromFile: "original",
		ToFile:   "proposed",
		Context:  diffLines,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}

	var sb strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+"):
			sb.WriteString(addedStyle.Render(strings.TrimSuffix(line, "\n")) + "\n")
		case strings.HasPrefix(line, "-"):
			sb.WriteString(removedStyle.Render(strings.TrimSuffix(line, "\n")) + "\n")
		default:
			sb.WriteString(contextStyle.Render(strings.TrimSuffix(line, "\n")) + "\n")
		}
	}
	return sb.String()
}

// Review shows the diff and moves the pending proposal to approved or
// rejected based on the confirmer's answer.
func (a *PatchApplier) Review(proposal *domain.PatchProposal) {
	if proposal.State != domain.ProposalPending {
		return
	}

	fmt.Fprintf(a.out, "\n--- Patch for: %s ---\n", proposal.Path)
	fmt.Fprint(a.out, RenderDiff(proposal.Original, proposal.Proposed))

	if a.confirmer.Confirm(fmt.Sprintf("Apply this patch to %s?", proposal.Path)) {
		proposal.State = domain.ProposalApproved
	} else {
		proposal.State = domain.ProposalRejected
		logger.Infof("[patch] Patch for %s rejected", proposal.Path)
	}
}

// Apply writes the backup and then overwrites the original file with the
// proposed content. The overwrite never executes unless the backup write
// succeeded; on backup failure the proposal reverts to pending and the
// original file is untouched.
func (a *PatchApplier) Apply(proposal *domain.PatchProposal) error {
	if proposal.State != domain.ProposalApproved {
		return &domain.ApplyError{
			File: proposal.Path,
			Err:  fmt.Errorf("proposal is %s, not approved", proposal.State),
		}
	}

	lock := a.lockFor(proposal.Path)
	lock.Lock()
	defer lock.Unlock()

	backupPath := proposal.Path + BackupSuffix
	if err := os.WriteFile(backupPath, []byte(proposal.Original), backupPerm); err != nil {
		proposal.State = domain.ProposalPending
		return &domain.ApplyError{File: proposal.Path, Err: fmt.Errorf("backup write failed: %w", err)}
	}

	if err := os.WriteFile(proposal.Path, []byte(proposal.Proposed), backupPerm); err != nil {
		return &domain.ApplyError{File: proposal.Path, Err: err}
	}

	proposal.State = domain.ProposalApplied
	logger.Infof("[patch] Applied patch to %s (backup at %s)", proposal.Path, backupPath)
	return nil
}

func (a *PatchApplier) lockFor(path string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.pathLocks[path]
	if !ok {
		lock = &sync.Mutex{}
		a.pathLocks[path] = lock
	}
	return lock
}
