package application_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/depdoctor/depdoctor/application"
	"github.com/depdoctor/depdoctor/domain"
)

func TestRender(t *testing.T) {
	t.Parallel()

	t.Run("should list updated packages with their version jump", func(t *testing.T) {
		t.Parallel()

		// given
		report := &application.RunReport{Results: []domain.DependencyResult{
			{
				Dependency: domain.Dependency{Name: "left-pad", CurrentVer: "1.0.0", LatestVer: "2.0.0"},
				Outcome:    domain.OutcomeUpdated,
				PeersAdded: []string{"react"},
			},
		}}
		var out bytes.Buffer

		// when
		report.Render(&out)

		// then
		text := out.String()
		assert.Contains(t, text, "Final Report")
		assert.Contains(t, text, "Packages Updated Successfully")
		assert.Contains(t, text, "left-pad")
		assert.Contains(t, text, "1.0.0 -> 2.0.0")
		assert.Contains(t, text, "also added peer(s): react")
	})

	t.Run("should sort the review section most dangerous first", func(t *testing.T) {
		t.Parallel()

		// given
		report := &application.RunReport{Results: []domain.DependencyResult{
			{
				Dependency: domain.Dependency{Name: "mild", CurrentVer: "1.0.0", LatestVer: "1.1.0"},
				Outcome:    domain.OutcomeSkipped,
				Reason:     "risk CAUTION not in allow-set (SAFE)",
				Verdict:    &domain.RiskVerdict{Level: domain.RiskCaution},
			},
			{
				Dependency: domain.Dependency{Name: "wild", CurrentVer: "1.0.0", LatestVer: "2.0.0"},
				Outcome:    domain.OutcomeSkipped,
				Reason:     "risk DANGEROUS not in allow-set (SAFE)",
				Verdict:    &domain.RiskVerdict{Level: domain.RiskDangerous},
			},
		}}
		var out bytes.Buffer

		// when
		report.Render(&out)

		// then
		text := out.String()
		assert.Contains(t, text, "Manual Review Required")
		assert.Less(t, strings.Index(text, "wild"), strings.Index(text, "mild"))
	})

	t.Run("should surface deprecation notices and reinstall failures", func(t *testing.T) {
		t.Parallel()

		// given
		report := &application.RunReport{
			Results: []domain.DependencyResult{
				{
					Dependency: domain.Dependency{Name: "request", CurrentVer: "2.88.0", LatestVer: "2.88.2"},
					Outcome:    domain.OutcomeSkipped,
					Reason:     "declined by user",
					Verdict:    &domain.RiskVerdict{Level: domain.RiskCaution, Rationale: "Package is deprecated."},
					Deprecated: "request has been deprecated",
				},
			},
			ReinstallErr: errors.New("npm install exited 1"),
		}
		var out bytes.Buffer

		// when
		report.Render(&out)

		// then
		text := out.String()
		assert.Contains(t, text, "Deprecated:")
		assert.Contains(t, text, "request has been deprecated")
		assert.Contains(t, text, "Reinstall failed:")
		assert.Contains(t, text, "npm install exited 1")
	})

	t.Run("should celebrate when everything is already up to date", func(t *testing.T) {
		t.Parallel()

		// given
		report := &application.RunReport{Results: []domain.DependencyResult{
			{
				Dependency: domain.Dependency{Name: "left-pad", CurrentVer: "2.0.0", LatestVer: "2.0.0"},
				Outcome:    domain.OutcomeSkipped,
				Reason:     "already up to date",
			},
		}}
		var out bytes.Buffer

		// when
		report.Render(&out)

		// then
		assert.Contains(t, out.String(), "All dependencies are already up to date!")
	})

	t.Run("should summarize usage sites and applied patches", func(t *testing.T) {
		t.Parallel()

		// given
		report := &application.RunReport{Results: []domain.DependencyResult{
			{
				Dependency: domain.Dependency{Name: "left-pad", CurrentVer: "1.0.0", LatestVer: "2.0.0"},
				Outcome:    domain.OutcomeUpdated,
				Proposals: []domain.PatchProposal{
					{Path: "src/app.js", State: domain.ProposalApplied},
				},
			},
			{
				Dependency: domain.Dependency{Name: "lodash", CurrentVer: "4.0.0", LatestVer: "5.0.0"},
				Outcome:    domain.OutcomeSkipped,
				Reason:     "risk DANGEROUS not in allow-set (SAFE)",
				Verdict:    &domain.RiskVerdict{Level: domain.RiskDangerous},
				Usages:     []domain.UsageSite{{Path: "src/a.js"}, {Path: "src/b.js"}},
			},
		}}
		var out bytes.Buffer

		// when
		report.Render(&out)

		// then
		text := out.String()
		assert.Contains(t, text, "src/app.js [applied]")
		assert.Contains(t, text, "2 usage site(s) found")
	})
}
