package wallet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectInputFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected InputFormat
	}{
		{"empty", "", FormatUnknown},
		{"whitespace", "   ", FormatUnknown},
		{"24 words", legacyPhrase, FormatMnemonic},
		{"12 words with a typo", "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandn about", FormatMnemonic},
		{"wrong word count", "abandon abandon abandon", FormatUnknown},
		{"secret seed", "S" + strings.Repeat("A", 55), FormatSecretSeed},
		{"public address", "  G" + strings.Repeat("B", 55) + "\n", FormatPublicAddress},
		{"lowercase address", "g" + strings.Repeat("b", 55), FormatUnknown},
		{"short address", "G" + strings.Repeat("B", 54), FormatUnknown},
		{"bad base32 char", "G" + strings.Repeat("1", 55), FormatUnknown},
		{"muxed address", "M" + strings.Repeat("A", 55), FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, DetectInputFormat(tt.input))
		})
	}
}

func TestInputFormat_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "mnemonic", FormatMnemonic.String())
	assert.Equal(t, "secret", FormatSecretSeed.String())
	assert.Equal(t, "address", FormatPublicAddress.String())
	assert.Equal(t, "unknown", FormatUnknown.String())
	assert.Equal(t, "unknown", InputFormat(99).String())
}
