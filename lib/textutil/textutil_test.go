package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "Mrs. Cohen", expected: "mrscohen"},
		{input: " דנה  לוי ", expected: "דנהלוי"},
		{input: "O'Brien-2", expected: "obrien2"},
		{input: "  ", expected: ""},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, NormalizeKey(test.input))
	}
}

func TestMatchSubject(t *testing.T) {
	testCases := []struct {
		subject  string
		filter   string
		expected bool
	}{
		{subject: "מתמטיקה", filter: "", expected: true},
		{subject: "מתמטיקה", filter: "מתמטיקה", expected: true},
		{subject: "Mathematics", filter: "math", expected: true},
		{subject: "Mathematics", filter: "mathematcis", expected: true},
		{subject: "History", filter: "math", expected: false},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, MatchSubject(test.subject, test.filter), "%s ~ %s", test.subject, test.filter)
	}
}

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "englishliterature", NormalizeName(" English \tLiterature\n"))
}
