package application_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depdoctor/depdoctor/application"
	"github.com/depdoctor/depdoctor/domain"
	testdoubles "github.com/depdoctor/depdoctor/test"
)

func TestPropose(t *testing.T) {
	t.Parallel()

	t.Run("should build a pending proposal from the JSON response", func(t *testing.T) {
		t.Parallel()

		// given
		completer := &testdoubles.SpyCompleter{Responses: []string{
			`{"new_content": "const pad = require('left-pad/v2');\n"}`,
		}}
		generator := application.NewPatchGenerator(completer)

		// when
		proposal, err := generator.Propose(
			context.Background(), "src/app.js", "const pad = require('left-pad');\n",
			"left-pad", "1.0.0", "2.0.0", "changelog",
		)

		// then
		require.NoError(t, err)
		require.NotNil(t, proposal)
		assert.Equal(t, "src/app.js", proposal.Path)
		assert.Equal(t, "const pad = require('left-pad');\n", proposal.Original)
		assert.Equal(t, "const pad = require('left-pad/v2');\n", proposal.Proposed)
		assert.Equal(t, domain.ProposalPending, proposal.State)
		require.Len(t, completer.JSONPrompts, 1)
		assert.Contains(t, completer.JSONPrompts[0], "src/app.js")
	})

	t.Run("should return nil when the content is unchanged", func(t *testing.T) {
		t.Parallel()

		// given
		content := "const pad = require('left-pad');\n"
		completer := &testdoubles.SpyCompleter{Responses: []string{
			`{"new_content": "const pad = require('left-pad');\n"}`,
		}}
		generator := application.NewPatchGenerator(completer)

		// when
		proposal, err := generator.Propose(
			context.Background(), "src/app.js", content, "left-pad", "1.0.0", "2.0.0", "changelog",
		)

		// then
		require.NoError(t, err)
		assert.Nil(t, proposal)
	})

	t.Run("should return nil when the response content is empty", func(t *testing.T) {
		t.Parallel()

		// given
		completer := &testdoubles.SpyCompleter{Responses: []string{`{"new_content": ""}`}}
		generator := application.NewPatchGenerator(completer)

		// when
		proposal, err := generator.Propose(
			context.Background(), "src/app.js", "code", "left-pad", "1.0.0", "2.0.0", "changelog",
		)

		// then
		require.NoError(t, err)
		assert.Nil(t, proposal)
	})

	t.Run("should fail with PatchGenerationError on malformed JSON", func(t *testing.T) {
		t.Parallel()

		// given
		completer := &testdoubles.SpyCompleter{Responses: []string{"not json at all"}}
		generator := application.NewPatchGenerator(completer)

		// when
		_, err := generator.Propose(
			context.Background(), "src/app.js", "code", "left-pad", "1.0.0", "2.0.0", "changelog",
		)

		// then
		var genErr *domain.PatchGenerationError
		require.ErrorAs(t, err, &genErr)
		assert.Equal(t, "src/app.js", genErr.File)
	})

	t.Run("should fail with PatchGenerationError when the completer fails", func(t *testing.T) {
		t.Parallel()

		// given
		completer := &testdoubles.SpyCompleter{JSONErr: errors.New("timeout")}
		generator := application.NewPatchGenerator(completer)

		// when
		_, err := generator.Propose(
			context.Background(), "src/app.js", "code", "left-pad", "1.0.0", "2.0.0", "changelog",
		)

		// then
		var genErr *domain.PatchGenerationError
		require.ErrorAs(t, err, &genErr)
	})
}

func TestRenderDiff(t *testing.T) {
	t.Parallel()

	t.Run("should include removed and added lines", func(t *testing.T) {
		t.Parallel()

		// when
		diff := application.RenderDiff("const a = 1;\nconst b = 2;\n", "const a = 1;\nconst b = 3;\n")

		// then
		assert.Contains(t, diff, "const b = 2;")
		assert.Contains(t, diff, "const b = 3;")
		assert.Contains(t, diff, "original")
		assert.Contains(t, diff, "proposed")
	})

	t.Run("should render nothing for identical content", func(t *testing.T) {
		t.Parallel()

		// when
		diff := application.RenderDiff("same\n", "same\n")

		// then
		assert.Empty(t, diff)
	})
}

func TestReview(t *testing.T) {
	t.Parallel()

	t.Run("should approve a pending proposal on a yes answer", func(t *testing.T) {
		t.Parallel()

		// given
		var out bytes.Buffer
		applier := application.NewPatchApplier(&testdoubles.SpyConfirmer{Default: true}, &out)
		proposal := &domain.PatchProposal{
			Path: "src/app.js", Original: "old\n", Proposed: "new\n",
			State: domain.ProposalPending,
		}

		// when
		applier.Review(proposal)

		// then
		assert.Equal(t, domain.ProposalApproved, proposal.State)
		assert.Contains(t, out.String(), "src/app.js")
	})

	t.Run("should reject a pending proposal on a no answer", func(t *testing.T) {
		t.Parallel()

		// given
		var out bytes.Buffer
		applier := application.NewPatchApplier(&testdoubles.SpyConfirmer{Default: false}, &out)
		proposal := &domain.PatchProposal{
			Path: "src/app.js", Original: "old\n", Proposed: "new\n",
			State: domain.ProposalPending,
		}

		// when
		applier.Review(proposal)

		// then
		assert.Equal(t, domain.ProposalRejected, proposal.State)
	})

	t.Run("should leave a non-pending proposal untouched", func(t *testing.T) {
		t.Parallel()

		// given
		var out bytes.Buffer
		confirmer := &testdoubles.SpyConfirmer{Default: true}
		applier := application.NewPatchApplier(confirmer, &out)
		proposal := &domain.PatchProposal{Path: "src/app.js", State: domain.ProposalRejected}

		// when
		applier.Review(proposal)

		// then
		assert.Equal(t, domain.ProposalRejected, proposal.State)
		assert.Empty(t, confirmer.Prompts)
	})
}

func TestApply(t *testing.T) {
	t.Parallel()

	newApplier := func() *application.PatchApplier {
		return application.NewPatchApplier(&testdoubles.SpyConfirmer{Default: true}, &bytes.Buffer{})
	}

	t.Run("should write the backup before overwriting the original", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "app.js")
		require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))
		proposal := &domain.PatchProposal{
			Path: path, Original: "old\n", Proposed: "new\n",
			State: domain.ProposalApproved,
		}

		// when
		err := newApplier().Apply(proposal)

		// then
		require.NoError(t, err)
		assert.Equal(t, domain.ProposalApplied, proposal.State)
		patched, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, "new\n", string(patched))
		backup, readErr := os.ReadFile(path + application.BackupSuffix)
		require.NoError(t, readErr)
		assert.Equal(t, "old\n", string(backup))
	})

	t.Run("should leave the original untouched when the backup write fails", func(t *testing.T) {
		t.Parallel()

		// given: a directory squatting on the backup path makes the backup
		// write fail
		path := filepath.Join(t.TempDir(), "app.js")
		require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))
		require.NoError(t, os.Mkdir(path+application.BackupSuffix, 0o755))
		proposal := &domain.PatchProposal{
			Path: path, Original: "old\n", Proposed: "new\n",
			State: domain.ProposalApproved,
		}

		// when
		err := newApplier().Apply(proposal)

		// then
		var applyErr *domain.ApplyError
		require.ErrorAs(t, err, &applyErr)
		assert.Equal(t, domain.ProposalPending, proposal.State)
		content, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, "old\n", string(content))
	})

	t.Run("should refuse to apply a proposal that is not approved", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "app.js")
		require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))
		proposal := &domain.PatchProposal{
			Path: path, Original: "old\n", Proposed: "new\n",
			State: domain.ProposalRejected,
		}

		// when
		err := newApplier().Apply(proposal)

		// then
		var applyErr *domain.ApplyError
		require.ErrorAs(t, err, &applyErr)
		content, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, "old\n", string(content))
	})

	t.Run("should overwrite the previous backup on a second apply", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "app.js")
		require.NoError(t, os.WriteFile(path, []byte("v1\n"), 0o644))
		applier := newApplier()

		first := &domain.PatchProposal{
			Path: path, Original: "v1\n", Proposed: "v2\n",
			State: domain.ProposalApproved,
		}
		require.NoError(t, applier.Apply(first))

		second := &domain.PatchProposal{
			Path: path, Original: "v2\n", Proposed: "v3\n",
			State: domain.ProposalApproved,
		}

		// when
		require.NoError(t, applier.Apply(second))

		// then
		backup, err := os.ReadFile(path + application.BackupSuffix)
		require.NoError(t, err)
		assert.Equal(t, "v2\n", string(backup))
	})
}
