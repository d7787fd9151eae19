package wallet

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signing(name string) AccountFields {
	return AccountFields{Name: name, PublicKey: "G" + name, SecretKey: "S" + name}
}

func threeAccounts() Vault {
	v := NewVault()
	v = AddAccount(v, signing("a"))
	v = AddAccount(v, signing("b"))
	v = AddAccount(v, signing("c"))
	return v
}

func TestNewVault(t *testing.T) {
	t.Parallel()

	v := NewVault()
	assert.Empty(t, v.Accounts)
	assert.Equal(t, 0, v.ActiveAccountIndex)

	_, ok := Active(v)
	assert.False(t, ok)
	require.NoError(t, v.Validate())
}

func TestAddAccount(t *testing.T) {
	t.Parallel()

	t.Run("first account gets index zero and becomes active", func(t *testing.T) {
		t.Parallel()
		v := AddAccount(NewVault(), AccountFields{
			Name:      "Account 1",
			PublicKey: "GABC",
			SecretKey: "SABC",
		})

		require.Len(t, v.Accounts, 1)
		assert.Equal(t, Account{
			Index:     0,
			Name:      "Account 1",
			PublicKey: "GABC",
			SecretKey: "SABC",
		}, v.Accounts[0])
		assert.Equal(t, 0, v.ActiveAccountIndex)
	})

	t.Run("new account is max index plus one and active", func(t *testing.T) {
		t.Parallel()
		v := threeAccounts()
		v = SwitchActive(v, 0)
		v = RemoveAccount(v, 1)

		v = AddAccount(v, signing("d"))
		assert.Equal(t, 3, v.Accounts[len(v.Accounts)-1].Index)
		assert.Equal(t, 3, v.ActiveAccountIndex)
	})

	t.Run("indices are never reused after removing the highest", func(t *testing.T) {
		t.Parallel()
		v := threeAccounts()
		v = RemoveAccount(v, 2)
		v = AddAccount(v, signing("d"))
		assert.Equal(t, 2, v.ActiveAccountIndex)
	})

	t.Run("watch-only account is read-only", func(t *testing.T) {
		t.Parallel()
		v := AddAccount(NewVault(), AccountFields{Name: "watch", PublicKey: "GWATCH"})
		assert.True(t, v.Accounts[0].IsReadOnly)
		assert.Empty(t, v.Accounts[0].SecretKey)
	})

	t.Run("input vault is not mutated", func(t *testing.T) {
		t.Parallel()
		v := threeAccounts()
		before := v.Clone()
		_ = AddAccount(v, signing("d"))
		assert.Equal(t, before, v)
	})
}

func TestSwitchActive(t *testing.T) {
	t.Parallel()

	v := threeAccounts()
	switched := SwitchActive(v, 1)
	assert.Equal(t, 1, switched.ActiveAccountIndex)
	assert.Equal(t, 2, v.ActiveAccountIndex)

	unchanged := SwitchActive(v, 42)
	assert.Equal(t, v, unchanged)
}

func TestRemoveAccount(t *testing.T) {
	t.Parallel()

	t.Run("removing the active account activates the first remaining", func(t *testing.T) {
		t.Parallel()
		v := SwitchActive(threeAccounts(), 1)

		v = RemoveAccount(v, 1)
		assert.Equal(t, 0, v.ActiveAccountIndex)

		v = RemoveAccount(v, 0)
		require.Len(t, v.Accounts, 1)
		assert.Equal(t, 2, v.Accounts[0].Index)
		assert.Equal(t, 2, v.ActiveAccountIndex)
	})

	t.Run("removing another account keeps the active index", func(t *testing.T) {
		t.Parallel()
		v := RemoveAccount(threeAccounts(), 0)
		assert.Equal(t, 2, v.ActiveAccountIndex)
		assert.Len(t, v.Accounts, 2)
	})

	t.Run("removing the last account resets to zero", func(t *testing.T) {
		t.Parallel()
		v := AddAccount(NewVault(), signing("a"))
		v = RemoveAccount(v, 0)
		assert.Empty(t, v.Accounts)
		assert.Equal(t, 0, v.ActiveAccountIndex)
	})

	t.Run("unknown index is a no-op", func(t *testing.T) {
		t.Parallel()
		v := threeAccounts()
		assert.Equal(t, v, RemoveAccount(v, 7))
	})
}

func TestUpdateAccount(t *testing.T) {
	t.Parallel()

	v := threeAccounts()
	name := "Savings"
	empty := ""

	renamed := UpdateAccount(v, 1, AccountUpdate{Name: &name})
	a, ok := renamed.Find(1)
	require.True(t, ok)
	assert.Equal(t, "Savings", a.Name)
	assert.Equal(t, "Gb", a.PublicKey)
	assert.False(t, a.IsReadOnly)

	original, _ := v.Find(1)
	assert.Equal(t, "b", original.Name)

	watch := UpdateAccount(v, 1, AccountUpdate{SecretKey: &empty})
	a, _ = watch.Find(1)
	assert.True(t, a.IsReadOnly)
	require.NoError(t, watch.Validate())

	assert.Equal(t, v, UpdateAccount(v, 9, AccountUpdate{Name: &name}))
}

func TestActive(t *testing.T) {
	t.Parallel()

	v := threeAccounts()
	a, ok := Active(v)
	require.True(t, ok)
	assert.Equal(t, 2, a.Index)

	v.ActiveAccountIndex = 99
	a, ok = Active(v)
	require.True(t, ok)
	assert.Equal(t, 0, a.Index)
}

func TestDefaultAccountName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Account 1", DefaultAccountName(NewVault()))
	assert.Equal(t, "Account 4", DefaultAccountName(threeAccounts()))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		vault   Vault
		wantErr error
	}{
		{
			name:  "valid",
			vault: threeAccounts(),
		},
		{
			name: "duplicate index",
			vault: Vault{Accounts: []Account{
				{Index: 0, PublicKey: "G1", SecretKey: "S1"},
				{Index: 0, PublicKey: "G2", SecretKey: "S2"},
			}},
			wantErr: ErrDuplicateIndex,
		},
		{
			name: "active index missing",
			vault: Vault{
				Accounts:           []Account{{Index: 1, PublicKey: "G1", SecretKey: "S1"}},
				ActiveAccountIndex: 0,
			},
			wantErr: ErrActiveIndexInvalid,
		},
		{
			name: "read-only with secret",
			vault: Vault{Accounts: []Account{
				{Index: 0, PublicKey: "G1", SecretKey: "S1", IsReadOnly: true},
			}},
			wantErr: ErrReadOnlyWithSecret,
		},
		{
			name:    "missing public key",
			vault:   Vault{Accounts: []Account{{Index: 0, SecretKey: "S1"}}},
			wantErr: ErrMissingPublicKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.vault.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// TestVaultOperations_PreserveInvariants drives random operation sequences
// and checks index uniqueness and active index validity after every step.
func TestVaultOperations_PreserveInvariants(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2)) //nolint:gosec // deterministic test sequence
	for run := 0; run < 50; run++ {
		v := NewVault()
		for step := 0; step < 40; step++ {
			target := rng.IntN(12)
			switch rng.IntN(4) {
			case 0, 1:
				v = AddAccount(v, signing("x"))
			case 2:
				v = RemoveAccount(v, target)
			case 3:
				v = SwitchActive(v, target)
			}
			require.NoError(t, v.Validate(), "run %d step %d", run, step)
		}
	}
}

func TestMarshal_Layout(t *testing.T) {
	t.Parallel()

	v := AddAccount(NewVault(), AccountFields{Name: "Account 1", PublicKey: "GABC", SecretKey: "SABC"})
	v = AddAccount(v, AccountFields{Name: "Watch", PublicKey: "GWATCH"})

	data, err := Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"accounts": [
			{"index":0,"name":"Account 1","publicKey":"GABC","secretKey":"SABC","isReadOnly":false},
			{"index":1,"name":"Watch","publicKey":"GWATCH","secretKey":null,"isReadOnly":true}
		],
		"activeAccountIndex": 1
	}`, string(data))

	empty, err := Marshal(Vault{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"accounts":[],"activeAccountIndex":0}`, string(empty))
}

func TestUnmarshal(t *testing.T) {
	t.Parallel()

	t.Run("browser vault", func(t *testing.T) {
		t.Parallel()
		doc := `{"accounts":[{"index":3,"name":"Main","publicKey":"G3","secretKey":null,"mnemonic":"m","isReadOnly":true}],"activeAccountIndex":3}`
		v, err := Unmarshal([]byte(doc))
		require.NoError(t, err)
		require.Len(t, v.Accounts, 1)
		assert.Equal(t, Account{Index: 3, Name: "Main", PublicKey: "G3", Mnemonic: "m", IsReadOnly: true}, v.Accounts[0])
		assert.Equal(t, 3, v.ActiveAccountIndex)
	})

	t.Run("no accounts list", func(t *testing.T) {
		t.Parallel()
		_, err := Unmarshal([]byte(`{"publicKey":"G1"}`))
		require.ErrorIs(t, err, ErrNotVault)
	})

	t.Run("not json", func(t *testing.T) {
		t.Parallel()
		_, err := Unmarshal([]byte("garbage"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotVault)
	})
}

func TestVault_RoundTripDeepEqual(t *testing.T) {
	t.Parallel()

	v := AddAccount(threeAccounts(), AccountFields{Name: "m", PublicKey: "Gm", SecretKey: "Sm", Mnemonic: "abandon art"})
	v = AddAccount(v, AccountFields{Name: "w", PublicKey: "Gw"})
	data, err := json.Marshal(v)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}
