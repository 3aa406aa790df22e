package match

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateVariations_Individuals(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		[]string{"John Q. Smith", "John Q Smith", "John Smith", "Smith"},
		GenerateVariations([]string{"John Q. Smith"}, ""))

	require.Equal(t,
		[]string{"Smith, John", "Smith John", "John Smith", "Smith"},
		GenerateVariations([]string{"Smith, John"}, ""))

	// two-letter surnames are too short to search alone
	require.Equal(t, []string{"Al Wu"}, GenerateVariations([]string{"Al Wu", "  "}, ""))
}

func TestGenerateVariations_Organizations(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		[]string{"The Smith Family Foundation", "Family Foundation", "Foundation"},
		GenerateVariations(nil, "The Smith Family Foundation"))

	require.Equal(t,
		[]string{"BrightFunds", "Bright Funds"},
		GenerateVariations(nil, "BrightFunds"))
}

func TestGenerateVariations_AliasesBeforeOrgAndNoDuplicates(t *testing.T) {
	t.Parallel()

	got := GenerateVariations([]string{"Jane Doe", "Jane Doe"}, "Jane Doe")
	require.Equal(t, []string{"Jane Doe", "Doe"}, got)

	require.Empty(t, GenerateVariations(nil, ""))
}
