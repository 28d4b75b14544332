package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depdoctor/depdoctor/domain"
)

func TestParseRiskLevel(t *testing.T) {
	t.Parallel()

	t.Run("should parse all levels case-insensitively", func(t *testing.T) {
		t.Parallel()

		// given
		cases := map[string]domain.RiskLevel{
			"SAFE":      domain.RiskSafe,
			"safe":      domain.RiskSafe,
			" Caution ": domain.RiskCaution,
			"dangerous": domain.RiskDangerous,
		}

		for input, expected := range cases {
			// when
			level, err := domain.ParseRiskLevel(input)

			// then
			require.NoError(t, err)
			assert.Equal(t, expected, level)
		}
	})

	t.Run("should reject unknown tokens", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := domain.ParseRiskLevel("MEDIUM")

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MEDIUM")
	})
}

func TestParseRiskSet(t *testing.T) {
	t.Parallel()

	t.Run("should parse a comma-separated list", func(t *testing.T) {
		t.Parallel()

		// when
		set, err := domain.ParseRiskSet("SAFE,caution")

		// then
		require.NoError(t, err)
		assert.True(t, set.Allows(domain.RiskSafe))
		assert.True(t, set.Allows(domain.RiskCaution))
		assert.False(t, set.Allows(domain.RiskDangerous))
	})

	t.Run("should fail on any invalid token", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := domain.ParseRiskSet("SAFE,BOGUS")

		// then
		require.Error(t, err)
	})

	t.Run("should fail on an empty list", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := domain.ParseRiskSet(" , ")

		// then
		require.Error(t, err)
	})

	t.Run("should render levels in severity order", func(t *testing.T) {
		t.Parallel()

		// given
		set, err := domain.ParseRiskSet("DANGEROUS,SAFE")
		require.NoError(t, err)

		// then
		assert.Equal(t, "SAFE,DANGEROUS", set.String())
	})
}

func TestRiskLevelOrdering(t *testing.T) {
	t.Parallel()

	t.Run("should order severity SAFE < CAUTION < DANGEROUS", func(t *testing.T) {
		t.Parallel()

		assert.True(t, domain.RiskDangerous.AtLeast(domain.RiskCaution))
		assert.True(t, domain.RiskCaution.AtLeast(domain.RiskSafe))
		assert.False(t, domain.RiskSafe.AtLeast(domain.RiskCaution))
	})

	t.Run("should pick the more severe level with Max", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, domain.RiskCaution, domain.RiskSafe.Max(domain.RiskCaution))
		assert.Equal(t, domain.RiskDangerous, domain.RiskDangerous.Max(domain.RiskSafe))
	})
}
