package browser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectorXPath(t *testing.T) {
	testCases := []struct {
		sel      Selector
		expected string
	}{
		{
			sel:      Text("button", "הזדהות משרד החינוך"),
			expected: `//button[contains(normalize-space(.), "הזדהות משרד החינוך")]`,
		},
		{
			sel:      Text("", "Accept"),
			expected: `//*[text()[contains(normalize-space(.), "Accept")]]`,
		},
		{
			sel:      Text("a", `say "hi"`),
			expected: `//a[contains(normalize-space(.), 'say "hi"')]`,
		},
		{
			sel:      Text("a", `it's "x"`),
			expected: `//a[contains(normalize-space(.), concat("it's ", '"', "x", '"', ""))]`,
		},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, test.sel.XPath())
	}
}

func TestSelectorString(t *testing.T) {
	require.Equal(t, "css:#userName", CSS("#userName").String())
	require.Equal(t, "text:button:Accept", Text("button", "Accept").String())
}
