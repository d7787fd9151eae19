package wallet

import (
	"strings"
)

// InputFormat is the detected kind of import input.
type InputFormat int

const (
	// FormatUnknown indicates the input format could not be determined.
	FormatUnknown InputFormat = iota
	// FormatMnemonic indicates a 12 or 24 word recovery phrase.
	FormatMnemonic
	// FormatSecretSeed indicates an "S..." encoded secret seed.
	FormatSecretSeed
	// FormatPublicAddress indicates a "G..." address imported watch-only.
	FormatPublicAddress
)

// encodedKeyLength is the length of a base32 encoded ed25519 key with its
// version byte and checksum.
const encodedKeyLength = 56

// String returns the string representation of the input format.
func (f InputFormat) String() string {
	switch f {
	case FormatMnemonic:
		return "mnemonic"
	case FormatSecretSeed:
		return "secret"
	case FormatPublicAddress:
		return "address"
	case FormatUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// DetectInputFormat guesses what kind of key material the user pasted. It
// checks shape only; the ledger client performs the checksum validation.
func DetectInputFormat(input string) InputFormat {
	input = strings.TrimSpace(input)
	if input == "" {
		return FormatUnknown
	}

	if isMnemonicFormat(input) {
		return FormatMnemonic
	}

	if len(input) == encodedKeyLength && isBase32String(input) {
		switch input[0] {
		case 'S':
			return FormatSecretSeed
		case 'G':
			return FormatPublicAddress
		}
	}

	return FormatUnknown
}

// isMnemonicFormat reports whether input has 12 or 24 words, most of them
// BIP39 words. Typos are left for DetectTypos to explain.
func isMnemonicFormat(input string) bool {
	words := strings.Fields(NormalizeMnemonicInput(input))
	if len(words) != 12 && len(words) != 24 {
		return false
	}

	valid := 0
	for _, word := range words {
		if IsValidWord(word) {
			valid++
		}
	}
	return valid >= len(words)/2
}

func isBase32String(s string) bool {
	for _, c := range s {
		isUpper := c >= 'A' && c <= 'Z'
		isDigit := c >= '2' && c <= '7'
		if !isUpper && !isDigit {
			return false
		}
	}
	return true
}
