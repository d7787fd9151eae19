package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMnemonicInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already clean", "abandon ability able", "abandon ability able"},
		{"uppercase", "ABANDON Ability", "abandon ability"},
		{"extra whitespace", "  abandon \t ability\n\nable  ", "abandon ability able"},
		{"commas", "abandon,ability, able", "abandon ability able"},
		{"numbered list", "1. abandon\n2) ability\n3: able", "abandon ability able"},
		{"bullets", "- abandon\n* ability\n• able", "abandon ability able"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NormalizeMnemonicInput(tt.input))
		})
	}
}

func TestIsValidWord(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidWord("abandon"))
	assert.True(t, IsValidWord("ZOO"))
	assert.False(t, IsValidWord("stellar"))
	assert.False(t, IsValidWord(""))
}

func TestSuggestWord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"abandon", "abandon"},
		{"abandn", "abandon"},
		{"zooo", "zoo"},
		{"qqqqqqqqqq", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, SuggestWord(tt.input))
		})
	}
}

func TestDetectTypos(t *testing.T) {
	t.Parallel()

	assert.Empty(t, DetectTypos(""))
	assert.Empty(t, DetectTypos(legacyPhrase))

	typos := DetectTypos("abandon abandn qqqqqqqqqq")
	require.Len(t, typos, 2)
	assert.Equal(t, TypoInfo{Index: 1, Word: "abandn", Suggestion: "abandon", Distance: 1}, typos[0])
	assert.Equal(t, 2, typos[1].Index)
	assert.Empty(t, typos[1].Suggestion)

	assert.Equal(t,
		"Word 2: 'abandn' - did you mean 'abandon'?\nWord 3: 'qqqqqqqqqq' is not a valid BIP39 word",
		FormatTypoSuggestions(typos))
	assert.Empty(t, FormatTypoSuggestions(nil))
}
