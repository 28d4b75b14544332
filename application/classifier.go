package application

import (
	"context"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/depdoctor/depdoctor/domain"
)

const classifierSystemPrompt = "You are an expert software engineer's assistant. " +
	"Your task is to analyze a changelog and classify the update risk. " +
	"First, on a new line, write 'RISK:', followed by ONE of the keywords: " +
	"DANGEROUS, CAUTION, or SAFE. " +
	"DANGEROUS means there are definite code-breaking changes. " +
	"CAUTION means there are new features, deprecations, or potential issues " +
	"like missing peer dependencies. " +
	"SAFE means it's mostly bug fixes. " +
	"If I provide a list of missing peer dependencies, the risk MUST be CAUTION " +
	"or DANGEROUS, and you MUST mention them in the summary. " +
	"Then, on a new line, provide a concise summary for a developer."

// RiskClassifier sends changelog text to the completion service and maps the
// response to a risk verdict.
type RiskClassifier struct {
	completer domain.Completer
}

// NewRiskClassifier creates a classifier backed by the given completer.
func NewRiskClassifier(completer domain.Completer) *RiskClassifier {
	return &RiskClassifier{completer: completer}
}

// Classify assesses the risk of upgrading name from fromVer to toVer given
// the changelog text. Missing peers and a deprecation notice floor the
// verdict at CAUTION. An unparseable response degrades fail-safe: DANGEROUS
// when there was evidence to read, CAUTION when the changelog was empty.
func (rc *RiskClassifier) Classify(
	ctx context.Context,
	name, fromVer, toVer, changelogText string,
	missingPeers []string,
	deprecated string,
) (*domain.RiskVerdict, error) {
	logger.Debugf("[classifier] Analyzing %q (%s -> %s)", name, fromVer, toVer)

	userPrompt := buildClassifyPrompt(name, fromVer, toVer, changelogText, missingPeers, deprecated)

	raw, err := rc.completer.Complete(ctx, classifierSystemPrompt, userPrompt)
	if err != nil {
		return nil, &domain.ClassificationError{Package: name, Err: err}
	}

	verdict := parseVerdict(raw, changelogText == "")
	if len(missingPeers) > 0 || deprecated != "" {
		verdict.Level = verdict.Level.Max(domain.RiskCaution)
	}
	return verdict, nil
}

func buildClassifyPrompt(
	name, fromVer, toVer, changelogText string,
	missingPeers []string,
	deprecated string,
) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze the changelog for '%s' (upgrading %s -> %s).\n", name, fromVer, toVer)

	if len(missingPeers) > 0 {
		fmt.Fprintf(&sb,
			"CRITICAL CONTEXT: This update requires peer dependencies that are missing "+
				"from the user's project: %s. You must mention this and flag the risk as CAUTION.\n",
			strings.Join(missingPeers, ", "),
		)
	}
	if deprecated != "" {
		fmt.Fprintf(&sb, "NOTE: the registry reports this package as deprecated: %s\n", deprecated)
	}

	sb.WriteString("\nPlease classify the update risk and then provide your summary.\n\nChangelog:\n")
	if changelogText == "" {
		sb.WriteString("(no changelog could be retrieved)")
	} else {
		sb.WriteString(changelogText)
	}
	return sb.String()
}

// parseVerdict extracts the risk token and rationale from the raw response.
// Token matching is case-insensitive with severity precedence, so a response
// mentioning both CAUTION and DANGEROUS reads as DANGEROUS.
func parseVerdict(raw string, scantEvidence bool) *domain.RiskVerdict {
	riskLine, rationale := splitRiskLine(raw)

	upper := strings.ToUpper(riskLine)
	var level domain.RiskLevel
	switch {
	case strings.Contains(upper, string(domain.RiskDangerous)):
		level = domain.RiskDangerous
	case strings.Contains(upper, string(domain.RiskCaution)):
		level = domain.RiskCaution
	case strings.Contains(upper, string(domain.RiskSafe)):
		level = domain.RiskSafe
	default:
		// Unknown risk is never auto-applied.
		level = domain.RiskDangerous
		if scantEvidence {
			level = domain.RiskCaution
		}
		if rationale == "" {
			rationale = strings.TrimSpace(raw)
		}
	}

	return &domain.RiskVerdict{
		Level:         level,
		Rationale:     rationale,
		BreakingNotes: extractBreakingNotes(rationale),
	}
}

// splitRiskLine finds the line carrying the RISK: marker and returns it plus
// everything else as the rationale. Without a marker, the first line is
// treated as the risk line, matching the response format the prompt demands.
func splitRiskLine(raw string) (riskLine, rationale string) {
	lines := strings.Split(strings.TrimSpace(raw), "\n")

	riskIdx := 0
	for i, line := range lines {
		if strings.Contains(strings.ToUpper(line), "RISK:") {
			riskIdx = i
			break
		}
	}

	rest := make([]string, 0, len(lines)-1)
	rest = append(rest, lines[:riskIdx]...)
	rest = append(rest, lines[riskIdx+1:]...)
	return lines[riskIdx], strings.TrimSpace(strings.Join(rest, "\n"))
}

// extractBreakingNotes pulls out rationale lines that flag breaking changes.
func extractBreakingNotes(rationale string) []string {
	var notes []string
	for _, line := range strings.Split(rationale, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "breaking") || strings.Contains(lower, "removed api") {
			notes = append(notes, strings.TrimSpace(line))
		}
	}
	return notes
}
