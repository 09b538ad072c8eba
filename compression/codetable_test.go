package compression

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// requirePrefixFree fails if any code is a prefix of another code.
func requirePrefixFree(t *testing.T, ct CodeTable) {
	t.Helper()
	for a, codeA := range ct {
		if codeA == "" {
			continue
		}
		for b, codeB := range ct {
			if a == b || codeB == "" {
				continue
			}
			require.Falsef(t, strings.HasPrefix(codeB, codeA), "code %q of %d is a prefix of code %q of %d", codeA, a, codeB, b)
		}
	}
}

func TestBuildCodeTable_Abracadabra(t *testing.T) {
	ct := BuildCodeTable(BuildTree(mustCount(t, "abracadabra")))

	require.Equal(t, "0", ct['a'])
	require.Equal(t, "100", ct['c'])
	require.Equal(t, "101", ct['d'])
	require.Equal(t, "110", ct['b'])
	require.Equal(t, "111", ct['r'])
	require.Equal(t, "", ct['z'])
	requirePrefixFree(t, ct)

	expectDump := strings.Join([]string{
		"CodeTable{\n",
		"\tEncode(97) = \"0\"\n",
		"\tEncode(98) = \"110\"\n",
		"\tEncode(99) = \"100\"\n",
		"\tEncode(100) = \"101\"\n",
		"\tEncode(114) = \"111\"\n",
		"}\n",
	}, "")
	var buf strings.Builder
	_, err := ct.Dump(&buf)
	require.NoError(t, err)
	require.Equal(t, expectDump, buf.String())
}

func TestBuildCodeTable_SingleSymbol(t *testing.T) {
	ct := BuildCodeTable(BuildTree(mustCount(t, "aaaa")))

	require.Equal(t, "0", ct['a'])
	for symbol, code := range ct {
		if symbol != 'a' {
			require.Empty(t, code)
		}
	}
}

func TestBuildCodeTable_Empty(t *testing.T) {
	ct := BuildCodeTable(BuildTree(FrequencyTable{}))
	require.Equal(t, CodeTable{}, ct)
}

func TestBuildCodeTable_PrefixFree(t *testing.T) {
	inputs := []string{
		"hello world",
		"Lorem ipsum dolor sit amet, consectetur adipiscing elit.",
		"\x00\x01\x02\x03\x04\x05\xfe\xff\xff\xff",
		strings.Repeat("ab", 100) + "c",
	}
	for _, in := range inputs {
		ft := mustCount(t, in)
		ct := BuildCodeTable(BuildTree(ft))
		requirePrefixFree(t, ct)
		for symbol, count := range ft.Counts {
			if count != 0 {
				require.NotEmpty(t, ct[symbol])
			}
		}
	}
}

func TestBuildCodeTable_SkewedWeights(t *testing.T) {
	// Fibonacci weights produce the deepest possible tree.
	var ft FrequencyTable
	a, b := uint32(1), uint32(1)
	for symbol := 0; symbol < 30; symbol++ {
		ft.Counts[symbol] = a
		ft.Total += a
		ft.Distinct++
		a, b = b, a+b
	}

	ct := BuildCodeTable(BuildTree(ft))
	requirePrefixFree(t, ct)

	longest := 0
	for _, code := range ct {
		longest = max(longest, len(code))
	}
	require.Equal(t, 29, longest)
}
