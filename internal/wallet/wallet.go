package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrDuplicateIndex indicates two accounts share an index.
	ErrDuplicateIndex = errors.New("duplicate account index")

	// ErrActiveIndexInvalid indicates the active index references no account.
	ErrActiveIndexInvalid = errors.New("active account index references no account")

	// ErrReadOnlyWithSecret indicates a watch-only account carries a secret key.
	ErrReadOnlyWithSecret = errors.New("read-only account has a secret key")

	// ErrMissingPublicKey indicates an account without a public key.
	ErrMissingPublicKey = errors.New("account has no public key")

	// ErrNotVault indicates the JSON document has no accounts list.
	ErrNotVault = errors.New("document is not a vault")
)

// Account is one keypair held in the vault.
type Account struct {
	// Index is assigned on insertion and never reused within a vault.
	Index int `json:"index"`

	// Name is a display label and need not be unique.
	Name string `json:"name"`

	// PublicKey is the account's ledger address.
	PublicKey string `json:"publicKey"`

	// SecretKey is empty for watch-only accounts.
	SecretKey string `json:"secretKey"`

	// Mnemonic is set only for accounts created from a recovery phrase.
	Mnemonic string `json:"mnemonic,omitempty"`

	// IsReadOnly is true iff SecretKey is empty.
	IsReadOnly bool `json:"isReadOnly"`
}

// accountJSON is the persisted account layout. A missing secret key is
// written as null.
type accountJSON struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	PublicKey  string  `json:"publicKey"`
	SecretKey  *string `json:"secretKey"`
	Mnemonic   string  `json:"mnemonic,omitempty"`
	IsReadOnly bool    `json:"isReadOnly"`
}

// MarshalJSON writes the account in the vault layout.
func (a Account) MarshalJSON() ([]byte, error) {
	out := accountJSON{
		Index:      a.Index,
		Name:       a.Name,
		PublicKey:  a.PublicKey,
		Mnemonic:   a.Mnemonic,
		IsReadOnly: a.IsReadOnly,
	}
	if a.SecretKey != "" {
		secret := a.SecretKey
		out.SecretKey = &secret
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the vault layout, accepting a null or missing secret key.
func (a *Account) UnmarshalJSON(data []byte) error {
	var in accountJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*a = Account{
		Index:      in.Index,
		Name:       in.Name,
		PublicKey:  in.PublicKey,
		Mnemonic:   in.Mnemonic,
		IsReadOnly: in.IsReadOnly,
	}
	if in.SecretKey != nil {
		a.SecretKey = *in.SecretKey
	}
	return nil
}

// HasMnemonic reports whether the account was created from a recovery phrase.
func (a Account) HasMnemonic() bool {
	return a.Mnemonic != ""
}

// AccountFields describes an account before the vault assigns its index.
// IsReadOnly is derived from the presence of SecretKey.
type AccountFields struct {
	Name      string
	PublicKey string
	SecretKey string
	Mnemonic  string
}

// AccountUpdate holds optional replacements for an account's fields.
// Nil fields are left unchanged.
type AccountUpdate struct {
	Name      *string
	PublicKey *string
	SecretKey *string
	Mnemonic  *string
}

// Vault holds every account and which one is active.
type Vault struct {
	// Accounts are kept in insertion order, which is display order.
	Accounts []Account `json:"accounts"`

	// ActiveAccountIndex references an account's Index whenever Accounts is
	// non-empty. It is 0 for an empty vault.
	ActiveAccountIndex int `json:"activeAccountIndex"`
}

// NewVault returns a vault with no accounts.
func NewVault() Vault {
	return Vault{Accounts: []Account{}}
}

// AddAccount appends an account with index max+1 (0 for an empty vault) and
// makes it active.
func AddAccount(v Vault, f AccountFields) Vault {
	next := 0
	for _, a := range v.Accounts {
		if a.Index >= next {
			next = a.Index + 1
		}
	}

	out := v.Clone()
	out.Accounts = append(out.Accounts, Account{
		Index:      next,
		Name:       f.Name,
		PublicKey:  f.PublicKey,
		SecretKey:  f.SecretKey,
		Mnemonic:   f.Mnemonic,
		IsReadOnly: f.SecretKey == "",
	})
	out.ActiveAccountIndex = next
	return out
}

// SwitchActive makes index the active account. Unknown indices return v unchanged.
func SwitchActive(v Vault, index int) Vault {
	if !v.Contains(index) {
		return v
	}
	out := v.Clone()
	out.ActiveAccountIndex = index
	return out
}

// RemoveAccount drops the account with index. Removing the active account
// activates the first remaining one, or 0 when none remain.
// Unknown indices return v unchanged.
func RemoveAccount(v Vault, index int) Vault {
	if !v.Contains(index) {
		return v
	}

	out := Vault{
		Accounts:           make([]Account, 0, len(v.Accounts)-1),
		ActiveAccountIndex: v.ActiveAccountIndex,
	}
	for _, a := range v.Accounts {
		if a.Index != index {
			out.Accounts = append(out.Accounts, a)
		}
	}

	if v.ActiveAccountIndex == index {
		out.ActiveAccountIndex = 0
		if len(out.Accounts) > 0 {
			out.ActiveAccountIndex = out.Accounts[0].Index
		}
	}
	return out
}

// UpdateAccount merges u into the account with index. The index itself never
// changes and IsReadOnly is recomputed. Unknown indices return v unchanged.
func UpdateAccount(v Vault, index int, u AccountUpdate) Vault {
	if !v.Contains(index) {
		return v
	}

	out := v.Clone()
	for i := range out.Accounts {
		a := &out.Accounts[i]
		if a.Index != index {
			continue
		}
		if u.Name != nil {
			a.Name = *u.Name
		}
		if u.PublicKey != nil {
			a.PublicKey = *u.PublicKey
		}
		if u.SecretKey != nil {
			a.SecretKey = *u.SecretKey
		}
		if u.Mnemonic != nil {
			a.Mnemonic = *u.Mnemonic
		}
		a.IsReadOnly = a.SecretKey == ""
	}
	return out
}

// Active returns the active account, falling back to the first account when
// the active index is stale. It returns false for an empty vault.
func Active(v Vault) (Account, bool) {
	if len(v.Accounts) == 0 {
		return Account{}, false
	}
	if a, ok := v.Find(v.ActiveAccountIndex); ok {
		return a, true
	}
	return v.Accounts[0], true
}

// DefaultAccountName returns the label for the next account added to v.
func DefaultAccountName(v Vault) string {
	return "Account " + strconv.Itoa(len(v.Accounts)+1)
}

// Find returns the account with index.
func (v Vault) Find(index int) (Account, bool) {
	for _, a := range v.Accounts {
		if a.Index == index {
			return a, true
		}
	}
	return Account{}, false
}

// Contains reports whether an account with index exists.
func (v Vault) Contains(index int) bool {
	_, ok := v.Find(index)
	return ok
}

// Len returns the number of accounts.
func (v Vault) Len() int {
	return len(v.Accounts)
}

// Clone returns a deep copy of v.
func (v Vault) Clone() Vault {
	out := Vault{
		Accounts:           make([]Account, len(v.Accounts)),
		ActiveAccountIndex: v.ActiveAccountIndex,
	}
	copy(out.Accounts, v.Accounts)
	return out
}

// Validate checks the vault invariants.
func (v Vault) Validate() error {
	seen := make(map[int]struct{}, len(v.Accounts))
	for _, a := range v.Accounts {
		if _, dup := seen[a.Index]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateIndex, a.Index)
		}
		seen[a.Index] = struct{}{}

		if a.PublicKey == "" {
			return fmt.Errorf("%w: index %d", ErrMissingPublicKey, a.Index)
		}
		if a.IsReadOnly && a.SecretKey != "" {
			return fmt.Errorf("%w: index %d", ErrReadOnlyWithSecret, a.Index)
		}
	}

	if len(v.Accounts) > 0 {
		if _, ok := seen[v.ActiveAccountIndex]; !ok {
			return fmt.Errorf("%w: %d", ErrActiveIndexInvalid, v.ActiveAccountIndex)
		}
	}
	return nil
}

// Marshal serializes v in the persisted vault layout.
func Marshal(v Vault) ([]byte, error) {
	if v.Accounts == nil {
		v.Accounts = []Account{}
	}
	return json.Marshal(v)
}

// Unmarshal parses a vault document. A document without an accounts list
// returns ErrNotVault.
func Unmarshal(data []byte) (Vault, error) {
	var doc struct {
		Accounts *[]Account `json:"accounts"`
		Active   int        `json:"activeAccountIndex"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Vault{}, fmt.Errorf("parsing vault: %w", err)
	}
	if doc.Accounts == nil {
		return Vault{}, ErrNotVault
	}
	return Vault{Accounts: *doc.Accounts, ActiveAccountIndex: doc.Active}, nil
}
