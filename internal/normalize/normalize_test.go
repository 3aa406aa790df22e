package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProperCase(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                    "",
		"JOHN SMITH":          "John Smith",
		"John SMITH":          "John SMITH",
		"ACME HOLDINGS LLC":   "Acme Holdings LLC",
		"WIDGETS INC.":        "Widgets Inc.",
		"ROBERT JONES JR":     "Robert Jones Jr",
		"HENRY FORD III":      "Henry Ford III",
		"PO BOX 12":           "PO Box 12",
		"MARY-JANE O'BRIEN":   "Mary-Jane O'Brien",
		"ST. JOHN'S CHURCH":   "St. John's Church",
		"123 MAIN ST":         "123 Main St",
		"already Proper Case": "already Proper Case",
	}
	for in, want := range cases {
		require.Equal(t, want, ProperCase(in), "input %q", in)
	}
}

func TestProperCaseIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"JOHN SMITH", "PO II", "A", "X Y Z", "SMITH & SONS INC", "mixed CASE", "1234", "O'NEIL-SMITH SR"}
	for _, in := range inputs {
		once := ProperCase(in)
		require.Equal(t, once, ProperCase(once), "input %q", in)
	}
}

func TestCleanCheckNumber(t *testing.T) {
	t.Parallel()

	require.Equal(t, "1234", CleanCheckNumber("001234", DefaultCheckNumberKeep))
	require.Equal(t, "0026", CleanCheckNumber("0026", DefaultCheckNumberKeep))
	require.Equal(t, "0", CleanCheckNumber("0000000", DefaultCheckNumberKeep))
	require.Equal(t, "012", CleanCheckNumber("012", 0))
	require.Equal(t, "1234", CleanCheckNumber("  001234 ", 0))
	require.Equal(t, "01234", CleanCheckNumber("01234", 5))
	require.Equal(t, "123456", CleanCheckNumber("0123456", 5))
	require.Equal(t, "", CleanCheckNumber("", 4))
}

func TestNormalizeZIP(t *testing.T) {
	t.Parallel()

	require.Equal(t, "01234", NormalizeZIP("1234"))
	require.Equal(t, "12345", NormalizeZIP("12345-6789"))
	require.Equal(t, "01234", NormalizeZIP("01234"))
	require.Equal(t, "12345", NormalizeZIP("123456789"))
	require.Equal(t, "02139", NormalizeZIP(" 02139 "))
	require.Equal(t, "", NormalizeZIP("n/a"))
}

func TestExtractLastName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "smith", ExtractLastName("Smith, John"))
	require.Equal(t, "Smith", ExtractLastName("John Q Smith"))
	require.Equal(t, "Cher", ExtractLastName("Cher"))
	require.Equal(t, "", ExtractLastName("   "))
}

func TestNameKeys(t *testing.T) {
	t.Parallel()

	require.Equal(t, "jose garcia", NameKey("José  García"))
	require.Equal(t, "smith and sons", NameKey("Smith & Sons"))
	require.Equal(t, "j q obrien", NameKey("J. Q. O'Brien"))
	require.Equal(t, "smith foundation", OrgKey("The Smith Foundation, Inc."))
	require.Equal(t, "acme", OrgKey("ACME LLC"))
	require.Equal(t, "inc", OrgKey("Inc."))
}

func TestNormalizeAlias(t *testing.T) {
	t.Parallel()

	require.Equal(t, "J Q Smith Jr", NormalizeAlias("J. Q. Smith, Jr."))
	require.Equal(t, "Mary-Jane O'Brien", NormalizeAlias("  Mary-Jane   O'Brien "))
	require.Equal(t, "John & Jane Doe", NormalizeAlias("John & Jane Doe"))
}

func TestSignificantWordsAndCamel(t *testing.T) {
	t.Parallel()

	words := SignificantWords("The Community Foundation and Trust, Inc.", 3, OrgStopWords)
	require.Equal(t, []string{"Community", "Foundation", "Trust"}, words)
	require.Equal(t, "DA Fgiving360", SplitCamel("DAFgiving360"))
	require.Equal(t, "Bright Funds", SplitCamel("BrightFunds"))
	require.Equal(t, "plain", SplitCamel("plain"))
}

func TestPhoneAndEmailKeys(t *testing.T) {
	t.Parallel()

	require.Equal(t, "5551234", PhoneKey("(617) 555-1234"))
	require.Equal(t, "5551234", PhoneKey("+1 617.555.1234"))
	require.Equal(t, "", PhoneKey("555-12"))
	require.Equal(t, "a@b.org", EmailKey("  A@B.org "))
}
