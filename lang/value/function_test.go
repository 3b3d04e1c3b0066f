package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectorParseStringRoundTrip(t *testing.T) {
	cases := []string{"a", "ab", "abc", "edcba", "aab", "aaaaa"}
	for _, text := range cases {
		sel, ok := ParseSelector(text)
		require.True(t, ok, text)
		require.Equal(t, text, sel.String())
	}
}

func TestSelectorParseRejectsInvalid(t *testing.T) {
	for _, text := range []string{"", "abcdef", "A", "a1", "f"} {
		_, ok := ParseSelector(text)
		require.False(t, ok, text)
	}
}

func TestSelectorMinInputsAndOutputs(t *testing.T) {
	sel, ok := ParseSelector("cab")
	require.True(t, ok)
	require.Equal(t, 3, sel.MinInputs())
	require.Equal(t, 3, sel.Outputs())
	require.Equal(t, []int{2, 0, 1}, sel.OutputIndices())
}

func TestSelectorHashStableAndDistinguishing(t *testing.T) {
	a, _ := ParseSelector("ab")
	b, _ := ParseSelector("ab")
	c, _ := ParseSelector("ba")

	require.Equal(t, a.Hash(), b.Hash(), "equal selectors must hash equal")
	require.NotEqual(t, a.Hash(), c.Hash(), "distinct selectors should not collide in this small sample")
}

func TestFunctionIDString(t *testing.T) {
	require.Equal(t, "`foo`", NamedID("foo").String())
	require.Equal(t, "primitive(7)", PrimitiveFuncID(7).String())
}
