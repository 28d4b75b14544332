package application

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/depdoctor/depdoctor/domain"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	updatedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	cautionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dangerousStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle       = lipgloss.NewStyle().Faint(true)

	reportRule = strings.Repeat("-", 70)
)

// Render writes the final per-dependency report: updated packages first,
// then everything needing manual review sorted most-dangerous first.
func (r *RunReport) Render(w io.Writer) {
	fmt.Fprintf(w, "\n%s Final Report %s\n", strings.Repeat("=", 28), strings.Repeat("=", 28))

	var updated, review []domain.DependencyResult
	upToDate := 0
	for _, result := range r.Results {
		switch {
		case result.Outcome == domain.OutcomeUpdated:
			updated = append(updated, result)
		case result.Reason == "already up to date":
			upToDate++
		default:
			review = append(review, result)
		}
	}

	if len(updated) > 0 {
		fmt.Fprintf(w, "\n%s\n", updatedStyle.Render("Packages Updated Successfully"))
		fmt.Fprintln(w, dimStyle.Render(reportRule))
		for _, result := range updated {
			fmt.Fprintf(w, "%s: %s -> %s\n",
				headerStyle.Render(result.Dependency.Name),
				result.Dependency.CurrentVer, result.Dependency.LatestVer,
			)
			if len(result.PeersAdded) > 0 {
				fmt.Fprintf(w, "  - also added peer(s): %s\n", strings.Join(result.PeersAdded, ", "))
			}
			renderPatchSummary(w, result)
		}
	}

	if len(review) > 0 {
		fmt.Fprintf(w, "\n%s\n", cautionStyle.Render("Manual Review Required"))
		fmt.Fprintln(w, dimStyle.Render(reportRule))
		sortByRisk(review)
		for _, result := range review {
			renderReviewEntry(w, result)
		}
	}

	if len(updated) == 0 && len(review) == 0 {
		fmt.Fprintln(w, updatedStyle.Render("\nAll dependencies are already up to date!"))
	} else if upToDate > 0 {
		fmt.Fprintf(w, "\n%s\n", dimStyle.Render(fmt.Sprintf("%d package(s) already up to date.", upToDate)))
	}

	if r.ReinstallErr != nil {
		fmt.Fprintf(w, "\n%s %v\n", dangerousStyle.Render("Reinstall failed:"), r.ReinstallErr)
	}
}

func renderReviewEntry(w io.Writer, result domain.DependencyResult) {
	style := riskStyle(result)

	fmt.Fprintf(w, "\n%s\n", style.Render(result.Dependency.Name))
	if result.Dependency.LatestVer != "" && result.Dependency.LatestVer != result.Dependency.CurrentVer {
		fmt.Fprintf(w, "Update from %s -> %s\n", result.Dependency.CurrentVer, result.Dependency.LatestVer)
	}
	if result.Verdict != nil {
		fmt.Fprintf(w, "Risk Level: %s\n", style.Render(string(result.Verdict.Level)))
	}
	fmt.Fprintf(w, "Outcome: %s (%s)\n", result.Outcome, result.Reason)
	if result.Deprecated != "" {
		fmt.Fprintf(w, "%s %s\n", cautionStyle.Render("Deprecated:"), result.Deprecated)
	}
	if result.Verdict != nil && result.Verdict.Rationale != "" {
		fmt.Fprintln(w, result.Verdict.Rationale)
	}
	renderPatchSummary(w, result)
}

func renderPatchSummary(w io.Writer, result domain.DependencyResult) {
	if len(result.Proposals) == 0 {
		if len(result.Usages) > 0 {
			fmt.Fprintf(w, "  %d usage site(s) found (run with --apply-patches to patch them)\n", len(result.Usages))
		}
		return
	}
	fmt.Fprintln(w, headerStyle.Render("  Patches:"))
	for _, proposal := range result.Proposals {
		fmt.Fprintf(w, "  - %s [%s]\n", proposal.Path, proposal.State)
	}
}

func riskStyle(result domain.DependencyResult) lipgloss.Style {
	if result.Outcome == domain.OutcomeErrored {
		return dangerousStyle
	}
	if result.Verdict == nil {
		return dimStyle
	}
	switch result.Verdict.Level {
	case domain.RiskDangerous:
		return dangerousStyle
	case domain.RiskCaution:
		return cautionStyle
	default:
		return headerStyle
	}
}

// sortByRisk orders review entries most severe first, errors above skips at
// equal severity, then by name for a stable report.
func sortByRisk(results []domain.DependencyResult) {
	rank := func(result domain.DependencyResult) int {
		if result.Verdict == nil {
			return 3
		}
		switch result.Verdict.Level {
		case domain.RiskDangerous:
			return 0
		case domain.RiskCaution:
			return 1
		case domain.RiskSafe:
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := rank(results[i]), rank(results[j])
		if ri != rj {
			return ri < rj
		}
		if results[i].Outcome != results[j].Outcome {
			return results[i].Outcome == domain.OutcomeErrored
		}
		return results[i].Dependency.Name < results[j].Dependency.Name
	})
}
