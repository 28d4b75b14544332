package domain

import (
	"fmt"
	"strings"
)

// RiskLevel classifies the expected impact of upgrading a dependency.
type RiskLevel string

const (
	RiskSafe      RiskLevel = "SAFE"
	RiskCaution   RiskLevel = "CAUTION"
	RiskDangerous RiskLevel = "DANGEROUS"
)

// rank orders risk levels from least to most severe.
func (l RiskLevel) rank() int {
	switch l {
	case RiskSafe:
		return 0
	case RiskCaution:
		return 1
	case RiskDangerous:
		return 2
	default:
		return 2
	}
}

// AtLeast returns true if l is at least as severe as other.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.rank() >= other.rank()
}

// Max returns the more severe of the two levels.
func (l RiskLevel) Max(other RiskLevel) RiskLevel {
	if other.rank() > l.rank() {
		return other
	}
	return l
}

// ParseRiskLevel converts a user-supplied token to a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(RiskSafe):
		return RiskSafe, nil
	case string(RiskCaution):
		return RiskCaution, nil
	case string(RiskDangerous):
		return RiskDangerous, nil
	default:
		return "", fmt.Errorf("unknown risk level %q (expected SAFE, CAUTION or DANGEROUS)", s)
	}
}

// RiskSet is the set of risk levels allowed to auto-update.
type RiskSet map[RiskLevel]bool

// ParseRiskSet parses a comma-separated list of risk tokens.
func ParseRiskSet(csv string) (RiskSet, error) {
	set := make(RiskSet)
	for _, token := range strings.Split(csv, ",") {
		if strings.TrimSpace(token) == "" {
			continue
		}
		level, err := ParseRiskLevel(token)
		if err != nil {
			return nil, err
		}
		set[level] = true
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("risk set %q contains no valid levels", csv)
	}
	return set, nil
}

// Allows reports whether the given level is in the allow-set.
func (s RiskSet) Allows(level RiskLevel) bool {
	return s[level]
}

// String renders the set in severity order for display.
func (s RiskSet) String() string {
	var levels []string
	for _, l := range []RiskLevel{RiskSafe, RiskCaution, RiskDangerous} {
		if s[l] {
			levels = append(levels, string(l))
		}
	}
	return strings.Join(levels, ",")
}

// RiskVerdict is the classifier's assessment of one dependency upgrade.
// Immutable once created within a run.
type RiskVerdict struct {
	Level         RiskLevel
	Rationale     string
	BreakingNotes []string
}
