package vaultcrypto_test

import (
	"encoding/base64"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/caelus/internal/vaultcrypto"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

func TestMain(m *testing.M) {
	vaultcrypto.SetScryptWorkFactor(10) // Fast for tests
	os.Exit(m.Run())
}

func fastCiphers() map[string]vaultcrypto.Cipher {
	return map[string]vaultcrypto.Cipher{
		vaultcrypto.MethodPBKDF2: &vaultcrypto.PBKDF2Cipher{Iterations: 1000},
		vaultcrypto.MethodAge:    &vaultcrypto.AgeCipher{},
	}
}

func TestCipher_RoundTrip(t *testing.T) {
	t.Parallel()

	plaintexts := [][]byte{
		[]byte(`{"accounts":[],"activeAccountIndex":0}`),
		[]byte("x"),
		{},
		make([]byte, 64*1024),
	}
	password := "correcthorse" // gitleaks:allow

	for method, c := range fastCiphers() {
		t.Run(method, func(t *testing.T) {
			t.Parallel()
			for _, pt := range plaintexts {
				envelope, err := c.Encrypt(pt, password)
				require.NoError(t, err)
				assert.NotContains(t, envelope, "activeAccountIndex")

				got, err := c.Decrypt(envelope, password)
				require.NoError(t, err)
				assert.Len(t, got, len(pt))
				if len(pt) > 0 {
					assert.Equal(t, pt, got)
				}
			}
		})
	}
}

func TestCipher_WrongPassword(t *testing.T) {
	t.Parallel()

	for method, c := range fastCiphers() {
		t.Run(method, func(t *testing.T) {
			t.Parallel()
			envelope, err := c.Encrypt([]byte("vault"), "password-one") // gitleaks:allow
			require.NoError(t, err)

			_, err = c.Decrypt(envelope, "password-two")
			require.ErrorIs(t, err, caelerr.ErrDecryptionFailed)
		})
	}
}

func TestCipher_FreshSaltAndNonce(t *testing.T) {
	t.Parallel()

	for method, c := range fastCiphers() {
		t.Run(method, func(t *testing.T) {
			t.Parallel()
			pt := []byte("same plaintext")
			first, err := c.Encrypt(pt, "password") // gitleaks:allow
			require.NoError(t, err)
			second, err := c.Encrypt(pt, "password") // gitleaks:allow
			require.NoError(t, err)
			assert.NotEqual(t, first, second)

			for _, env := range []string{first, second} {
				got, err := c.Decrypt(env, "password") // gitleaks:allow
				require.NoError(t, err)
				assert.Equal(t, pt, got)
			}
		})
	}
}

func TestCipher_EmptyPassword(t *testing.T) {
	t.Parallel()

	for method, c := range fastCiphers() {
		t.Run(method, func(t *testing.T) {
			t.Parallel()
			_, err := c.Encrypt([]byte("data"), "")
			require.ErrorIs(t, err, vaultcrypto.ErrEmptyPassword)
		})
	}
}

func TestPBKDF2Cipher_EnvelopeLayout(t *testing.T) {
	t.Parallel()

	c := &vaultcrypto.PBKDF2Cipher{}
	assert.Equal(t, vaultcrypto.MethodPBKDF2, c.Method())

	pt := []byte("layout check")
	envelope, err := c.Encrypt(pt, "password") // gitleaks:allow
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(envelope)
	require.NoError(t, err)
	assert.Len(t, raw, vaultcrypto.SaltSize+vaultcrypto.NonceSize+len(pt)+16)

	got, err := c.Decrypt(envelope, "password") // gitleaks:allow
	require.NoError(t, err)
	assert.Equal(t, pt, got)
}

func TestPBKDF2Cipher_IterationsMustMatch(t *testing.T) {
	t.Parallel()

	envelope, err := (&vaultcrypto.PBKDF2Cipher{Iterations: 1000}).Encrypt([]byte("data"), "password") // gitleaks:allow
	require.NoError(t, err)

	_, err = (&vaultcrypto.PBKDF2Cipher{Iterations: 1001}).Decrypt(envelope, "password") // gitleaks:allow
	require.ErrorIs(t, err, caelerr.ErrDecryptionFailed)
}

func TestPBKDF2Cipher_TamperDetection(t *testing.T) {
	t.Parallel()

	c := &vaultcrypto.PBKDF2Cipher{Iterations: 1000}
	envelope, err := c.Encrypt([]byte(`{"accounts":[{"index":0}]}`), "password") // gitleaks:allow
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(envelope)
	require.NoError(t, err)

	for i := range raw {
		tampered := append([]byte(nil), raw...)
		tampered[i] ^= 0x01

		got, err := c.Decrypt(base64.StdEncoding.EncodeToString(tampered), "password") // gitleaks:allow
		require.ErrorIs(t, err, caelerr.ErrDecryptionFailed, "byte %d", i)
		assert.Nil(t, got)
	}
}

func TestAgeCipher_TamperDetection(t *testing.T) {
	t.Parallel()

	c := &vaultcrypto.AgeCipher{}
	envelope, err := c.Encrypt([]byte("vault contents"), "password") // gitleaks:allow
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(envelope)
	require.NoError(t, err)

	for _, i := range []int{len(raw) - 1, len(raw) / 2, len(raw) - 20} {
		tampered := append([]byte(nil), raw...)
		tampered[i] ^= 0x01

		_, err := c.Decrypt(base64.StdEncoding.EncodeToString(tampered), "password") // gitleaks:allow
		require.ErrorIs(t, err, caelerr.ErrDecryptionFailed, "byte %d", i)
	}
}

func TestCipher_MalformedEnvelopes(t *testing.T) {
	t.Parallel()

	short := base64.StdEncoding.EncodeToString(make([]byte, 20))
	inputs := []string{"", "not base64 !!", short, "YWJj"}

	for method, c := range fastCiphers() {
		t.Run(method, func(t *testing.T) {
			t.Parallel()
			for _, in := range inputs {
				_, err := c.Decrypt(in, "password") // gitleaks:allow
				require.ErrorIs(t, err, caelerr.ErrDecryptionFailed, "input %q", in)
			}
		})
	}
}

func TestNewCipher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method   string
		expected string
		wantErr  bool
	}{
		{"", vaultcrypto.MethodPBKDF2, false},
		{vaultcrypto.MethodPBKDF2, vaultcrypto.MethodPBKDF2, false},
		{vaultcrypto.MethodAge, vaultcrypto.MethodAge, false},
		{"rot13", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			t.Parallel()
			c, err := vaultcrypto.NewCipher(tt.method)
			if tt.wantErr {
				require.ErrorIs(t, err, vaultcrypto.ErrUnknownMethod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c.Method())
		})
	}
}

func TestSelector_DecryptsEitherFormat(t *testing.T) {
	t.Parallel()

	ageSel, err := vaultcrypto.NewCipher(vaultcrypto.MethodAge)
	require.NoError(t, err)
	pbkdfSel, err := vaultcrypto.NewCipher(vaultcrypto.MethodPBKDF2)
	require.NoError(t, err)

	pt := []byte(`{"accounts":[],"activeAccountIndex":0}`)

	ageEnv, err := ageSel.Encrypt(pt, "password") // gitleaks:allow
	require.NoError(t, err)
	got, err := pbkdfSel.Decrypt(ageEnv, "password") // gitleaks:allow
	require.NoError(t, err)
	assert.Equal(t, pt, got)

	pbkdfEnv, err := pbkdfSel.Encrypt(pt, "password") // gitleaks:allow
	require.NoError(t, err)
	got, err = ageSel.Decrypt(pbkdfEnv, "password") // gitleaks:allow
	require.NoError(t, err)
	assert.Equal(t, pt, got)

	_, err = ageSel.Decrypt(ageEnv, "nope")
	require.ErrorIs(t, err, caelerr.ErrDecryptionFailed)
}
