package stellar

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/strkey"
	"github.com/tyler-smith/go-bip39"

	"github.com/mrz1836/caelus/internal/chain"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// MnemonicEntropyBits yields a 24 word recovery phrase.
const MnemonicEntropyBits = 256

// IsValidPublicAddress checks an encoded "G..." address including its checksum.
func IsValidPublicAddress(address string) bool {
	return strkey.IsValidEd25519PublicKey(address)
}

// GenerateMnemonic returns a fresh 24 word recovery phrase.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generating entropy: %w", err)
	}
	defer clear(entropy)

	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generating mnemonic: %w", err)
	}
	return phrase, nil
}

// KeypairFromMnemonic uses the first 32 bytes of the BIP39 seed (empty
// passphrase) as the ed25519 seed of the account.
func KeypairFromMnemonic(phrase string) (chain.Keypair, error) {
	phrase = strings.Join(strings.Fields(phrase), " ")
	if !bip39.IsMnemonicValid(phrase) {
		return chain.Keypair{}, fmt.Errorf("%w: invalid recovery phrase", caelerr.ErrInvalidKeyMaterial)
	}

	seed := bip39.NewSeed(phrase, "")
	defer clear(seed)

	var raw [ed25519.SeedSize]byte
	copy(raw[:], seed)
	defer clear(raw[:])

	kp, err := keypair.FromRawSeed(raw)
	if err != nil {
		return chain.Keypair{}, fmt.Errorf("%w: %w", caelerr.ErrInvalidKeyMaterial, err)
	}
	return chain.Keypair{PublicKey: kp.Address(), SecretKey: kp.Seed()}, nil
}

// KeypairFromSecret derives the address of an encoded "S..." secret seed.
func KeypairFromSecret(secret string) (chain.Keypair, error) {
	kp, err := signer(strings.TrimSpace(secret))
	if err != nil {
		return chain.Keypair{}, err
	}
	return chain.Keypair{PublicKey: kp.Address(), SecretKey: kp.Seed()}, nil
}

// signer parses a secret seed into a signing keypair.
func signer(secret string) (*keypair.Full, error) {
	kp, err := keypair.ParseFull(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", caelerr.ErrInvalidKeyMaterial, err)
	}
	return kp, nil
}
