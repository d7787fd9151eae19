package wallet

import (
	"fmt"
	"strings"

	"github.com/mrz1836/caelus/internal/wallet"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// NewMnemonicAccount generates a recovery phrase and derives its account.
// The result is passed to CreateFirstAccount or AddAccount.
func (s *Service) NewMnemonicAccount(name string) (wallet.AccountFields, string, error) {
	phrase, err := s.ledger.GenerateMnemonic()
	if err != nil {
		return wallet.AccountFields{}, "", err
	}

	kp, err := s.ledger.KeypairFromMnemonic(phrase)
	if err != nil {
		return wallet.AccountFields{}, "", err
	}

	return wallet.AccountFields{
		Name:      strings.TrimSpace(name),
		PublicKey: kp.PublicKey,
		SecretKey: kp.SecretKey,
		Mnemonic:  phrase,
	}, phrase, nil
}

// ResolveImport turns a recovery phrase, secret seed or address into account
// fields. An address yields a watch-only account.
func (s *Service) ResolveImport(input, name string) (wallet.AccountFields, wallet.InputFormat, error) {
	fields := wallet.AccountFields{Name: strings.TrimSpace(name)}
	format := wallet.DetectInputFormat(input)

	switch format {
	case wallet.FormatMnemonic:
		phrase := wallet.NormalizeMnemonicInput(input)
		kp, err := s.ledger.KeypairFromMnemonic(phrase)
		if err != nil {
			if typos := wallet.DetectTypos(phrase); len(typos) > 0 {
				return fields, format, caelerr.WithSuggestion(err, wallet.FormatTypoSuggestions(typos))
			}
			return fields, format, err
		}
		fields.PublicKey, fields.SecretKey, fields.Mnemonic = kp.PublicKey, kp.SecretKey, phrase

	case wallet.FormatSecretSeed:
		kp, err := s.ledger.KeypairFromSecret(strings.TrimSpace(input))
		if err != nil {
			return fields, format, err
		}
		fields.PublicKey, fields.SecretKey = kp.PublicKey, kp.SecretKey

	case wallet.FormatPublicAddress:
		address := strings.TrimSpace(input)
		if !s.ledger.IsValidPublicAddress(address) {
			return fields, format, fmt.Errorf("%w: address checksum mismatch", caelerr.ErrInvalidKeyMaterial)
		}
		fields.PublicKey = address

	case wallet.FormatUnknown:
		return fields, format, caelerr.WithSuggestion(caelerr.ErrInvalidKeyMaterial,
			"expected a 12 or 24 word recovery phrase, an S... secret key, or a G... address")
	}

	return fields, format, nil
}
