package wallet

import (
	"encoding/json"
	"errors"
	"fmt"

	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// LegacyRecord is the single-account wallet stored before vaults existed.
type LegacyRecord struct {
	PublicKey  string
	SecretKey  string
	Mnemonic   string
	IsReadOnly bool
}

// legacyJSON is the decrypted single-account layout. Its fields are either
// at the top level or nested under walletData.
type legacyJSON struct {
	PublicKey  string      `json:"publicKey"`
	SecretKey  *string     `json:"secretKey"`
	Mnemonic   *string     `json:"mnemonic"`
	IsReadOnly bool        `json:"isReadOnly"`
	WalletData *legacyJSON `json:"walletData"`
}

func (l *legacyJSON) record() LegacyRecord {
	r := LegacyRecord{PublicKey: l.PublicKey, IsReadOnly: l.IsReadOnly}
	if l.SecretKey != nil {
		r.SecretKey = *l.SecretKey
	}
	if l.Mnemonic != nil {
		r.Mnemonic = *l.Mnemonic
	}
	return r
}

// FromLegacy builds a one-account vault from a legacy record. The account is
// named "Account 1" and is read-only only when the record carries no secret.
func FromLegacy(r LegacyRecord) Vault {
	return AddAccount(NewVault(), AccountFields{
		Name:      DefaultAccountName(NewVault()),
		PublicKey: r.PublicKey,
		SecretKey: r.SecretKey,
		Mnemonic:  r.Mnemonic,
	})
}

// Migrate interprets decrypted vault plaintext. A current vault is returned
// as parsed with migrated=false. A legacy single-account blob is upgraded to
// a one-account vault with migrated=true; the caller must re-encrypt and
// store it. Running Migrate on its own output is a no-op. A current vault
// that breaks the vault invariants is reported as corrupted.
func Migrate(plaintext []byte) (v Vault, migrated bool, err error) {
	v, err = Unmarshal(plaintext)
	if err == nil {
		if err = v.Validate(); err != nil {
			return Vault{}, false, fmt.Errorf("%w: %w", caelerr.ErrVaultCorrupted, err)
		}
		return v, false, nil
	}
	if !errors.Is(err, ErrNotVault) {
		return Vault{}, false, fmt.Errorf("%w: %w", caelerr.ErrVaultCorrupted, err)
	}

	var legacy legacyJSON
	if err := json.Unmarshal(plaintext, &legacy); err != nil {
		return Vault{}, false, fmt.Errorf("%w: %w", caelerr.ErrVaultCorrupted, err)
	}

	src := &legacy
	if src.PublicKey == "" && src.WalletData != nil {
		src = src.WalletData
	}
	if src.PublicKey == "" {
		return Vault{}, false, fmt.Errorf("%w: legacy wallet has no public key", caelerr.ErrVaultCorrupted)
	}

	return FromLegacy(src.record()), true, nil
}
