package storage

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/mrz1836/caelus/internal/wallet"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// Storage keys. The legacy keys hold the plaintext single-account wallet
// written before vaults existed.
const (
	vaultKey = "caelus_encrypted_vault"

	legacyPublicKey  = "stellar_publicKey"
	legacySecretKey  = "stellar_secretKey"
	legacyMnemonic   = "stellar_mnemonic"
	legacyIsReadOnly = "stellar_isReadOnly"
)

// ErrEmptyEnvelope is returned when storing an empty envelope.
var ErrEmptyEnvelope = errors.New("envelope is empty")

//nolint:gochecknoglobals // fixed key set
var legacyKeys = []string{legacyPublicKey, legacySecretKey, legacyMnemonic, legacyIsReadOnly}

// Gateway reads and writes the encrypted vault envelope.
type Gateway struct {
	backend Backend
}

// NewGateway wraps a backend.
func NewGateway(backend Backend) *Gateway {
	return &Gateway{backend: backend}
}

// HasStoredVault reports whether an envelope is stored.
func (g *Gateway) HasStoredVault() (bool, error) {
	_, ok, err := g.Load()
	return ok, err
}

// Store replaces the stored envelope.
func (g *Gateway) Store(envelope string) error {
	if envelope == "" {
		return ErrEmptyEnvelope
	}
	if err := g.backend.Put(vaultKey, envelope); err != nil {
		return fmt.Errorf("%w: storing vault: %w", caelerr.ErrStorage, err)
	}
	return nil
}

// Load returns the stored envelope and whether one exists.
func (g *Gateway) Load() (string, bool, error) {
	envelope, ok, err := g.backend.Get(vaultKey)
	if err != nil {
		return "", false, fmt.Errorf("%w: loading vault: %w", caelerr.ErrStorage, err)
	}
	if !ok || envelope == "" {
		return "", false, nil
	}
	return envelope, true, nil
}

// Clear removes the envelope and every legacy key in one write.
func (g *Gateway) Clear() error {
	keys := append([]string{vaultKey}, legacyKeys...)
	if err := g.backend.Delete(keys...); err != nil {
		return fmt.Errorf("%w: clearing storage: %w", caelerr.ErrStorage, err)
	}
	return g.purge()
}

// HasLegacy reports whether a pre-vault plaintext wallet is stored.
func (g *Gateway) HasLegacy() (bool, error) {
	_, ok, err := g.LoadLegacy()
	return ok, err
}

// LoadLegacy reads the pre-vault plaintext wallet. It reports false when no
// legacy public key is stored.
func (g *Gateway) LoadLegacy() (wallet.LegacyRecord, bool, error) {
	values := make(map[string]string, len(legacyKeys))
	for _, key := range legacyKeys {
		v, _, err := g.backend.Get(key)
		if err != nil {
			return wallet.LegacyRecord{}, false, fmt.Errorf("%w: reading %s: %w", caelerr.ErrStorage, key, err)
		}
		values[key] = v
	}

	if values[legacyPublicKey] == "" {
		return wallet.LegacyRecord{}, false, nil
	}

	readOnly, _ := strconv.ParseBool(values[legacyIsReadOnly])
	return wallet.LegacyRecord{
		PublicKey:  values[legacyPublicKey],
		SecretKey:  values[legacySecretKey],
		Mnemonic:   values[legacyMnemonic],
		IsReadOnly: readOnly,
	}, true, nil
}

// ClearLegacy removes the pre-vault plaintext keys.
func (g *Gateway) ClearLegacy() error {
	if err := g.backend.Delete(legacyKeys...); err != nil {
		return fmt.Errorf("%w: clearing legacy wallet: %w", caelerr.ErrStorage, err)
	}
	return g.purge()
}

func (g *Gateway) purge() error {
	p, ok := g.backend.(Purger)
	if !ok {
		return nil
	}
	if err := p.Purge(); err != nil {
		return fmt.Errorf("%w: purging deleted values: %w", caelerr.ErrStorage, err)
	}
	return nil
}

// Close releases the backend.
func (g *Gateway) Close() error {
	return g.backend.Close()
}
