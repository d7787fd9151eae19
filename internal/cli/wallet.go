package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/caelus/internal/chain"
	walletservice "github.com/mrz1836/caelus/internal/service/wallet"
	"github.com/mrz1836/caelus/internal/wallet"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// out is a helper for CLI output that ignores write errors.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// createName is the name of the first account.
	createName string
	// importName is the name of the imported account.
	importName string
	// importInput is the recovery phrase, secret or address to import.
	importInput string
)

// createCmd creates a new vault with a fresh account.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new wallet",
	Long: `Create a new encrypted vault holding one freshly generated account.

A 24 word recovery phrase is shown once. Write it down and keep it offline:
it is the only way to recover the account without this vault.`,
	Example: `  caelus create
  caelus create --name Savings`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

// importCmd imports an existing account.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an account from a recovery phrase, secret key or address",
	Long: `Import an existing account.

Accepted input:
  - a 12 or 24 word recovery phrase
  - an S... secret key
  - a G... address, imported watch-only (it can receive but not send)

Without a vault a new one is created. With a vault the account is added to it.`,
	Example: `  caelus import
  caelus import --name Cold --input GABC...`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

// unlockCmd starts a session.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var unlockCmd = &cobra.Command{
	Use:     "unlock",
	Short:   "Unlock the wallet and start a session",
	Example: `  caelus unlock`,
	Args:    cobra.NoArgs,
	RunE:    runUnlock,
}

// lockCmd ends the session.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the wallet and end the session",
	Long: `End the session immediately. The encrypted vault is kept; the next
command that needs keys asks for the password again.`,
	Example: `  caelus lock`,
	Args:    cobra.NoArgs,
	RunE:    runLock,
}

// statusCmd shows the wallet state.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show whether a wallet exists and is unlocked",
	Example: `  caelus status`,
	Args:    cobra.NoArgs,
	RunE:    runStatus,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "account name (default: Account 1)")
	importCmd.Flags().StringVar(&importName, "name", "", "account name (default: Account N)")
	importCmd.Flags().StringVar(&importInput, "input", "", "recovery phrase, secret key or address (prompted when empty)")

	for _, c := range []*cobra.Command{createCmd, importCmd, statusCmd} {
		c.GroupID = "wallet"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{unlockCmd, lockCmd} {
		c.GroupID = "security"
		rootCmd.AddCommand(c)
	}
}

type accountCreated struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	PublicKey string `json:"public_key"`
	ReadOnly  bool   `json:"read_only"`
	Mnemonic  string `json:"mnemonic,omitempty"`
}

func runCreate(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	svc := cc.Wallet()

	exists, err := svc.HasStoredVault()
	if err != nil {
		return err
	}
	if exists {
		return caelerr.WithSuggestion(caelerr.ErrVaultExists,
			"use 'caelus account add' to add another account")
	}

	fields, phrase, err := svc.NewMnemonicAccount(createName)
	if err != nil {
		return err
	}

	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}

	account, err := svc.CreateFirstAccount(fields, password)
	if err != nil {
		return err
	}

	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(accountCreated{
			Index:     account.Index,
			Name:      account.Name,
			PublicKey: account.PublicKey,
			Mnemonic:  phrase,
		})
	}

	w := cmd.OutOrStdout()
	out(w, "Created %q\n", account.Name)
	out(w, "Address: %s\n\n", account.PublicKey)
	outln(w, "Recovery phrase (write it down, it is not shown again):")
	outln(w)
	printMnemonic(w, phrase)
	outln(w)
	if cc.Ledger.Network() == chain.Testnet {
		outln(w, "Run 'caelus fund' to activate the account on the test network.")
	}
	return nil
}

func runImport(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	svc := cc.Wallet()

	input := importInput
	if input == "" {
		var err error
		input, err = promptLineFn("Enter recovery phrase, secret key or address: ")
		if err != nil {
			return err
		}
	}

	fields, format, err := svc.ResolveImport(input, importName)
	if err != nil {
		return err
	}
	cc.Log.Debug("importing account from %s input", format)

	exists, err := svc.HasStoredVault()
	if err != nil {
		return err
	}

	var account wallet.Account
	if exists {
		if err = ensureUnlocked(cc); err != nil {
			return err
		}
		account, err = svc.AddAccount(fields)
	} else {
		var password string
		if password, err = promptNewPasswordFn(); err != nil {
			return err
		}
		account, err = svc.CreateFirstAccount(fields, password)
	}
	if err != nil {
		return err
	}

	result := accountCreated{
		Index:     account.Index,
		Name:      account.Name,
		PublicKey: account.PublicKey,
		ReadOnly:  account.IsReadOnly,
	}
	text := fmt.Sprintf("Imported %q (%s)\n", account.Name, account.PublicKey)
	if account.IsReadOnly {
		text += "This account is watch-only: it can receive payments but not send them.\n"
	}
	return cc.Fmt.Result(result, text)
}

func runUnlock(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	svc := cc.Wallet()

	if err := requireVault(svc); err != nil {
		return err
	}

	password, err := promptPasswordFn("Vault password: ")
	if err != nil {
		return err
	}
	if err := svc.Unlock(password); err != nil {
		return err
	}

	ttl := cc.Sessions.TTL()
	return cc.Fmt.Result(map[string]any{
		"status":          walletservice.StatusUnlocked.String(),
		"public_key":      svc.PublicKey(),
		"session_seconds": int(ttl.Seconds()),
	}, fmt.Sprintf("Unlocked %s for %s\n", svc.PublicKey(), formatDuration(ttl)))
}

func runLock(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	if err := cc.Wallet().Lock(); err != nil {
		return err
	}
	return cc.Fmt.Success("Wallet locked")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	svc := cc.Wallet()

	if _, err := svc.Restore(); err != nil && !errors.Is(err, caelerr.ErrInvalidPassword) {
		return err
	}

	info, err := svc.StatusInfo()
	if err != nil {
		return err
	}
	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(info)
	}

	w := cmd.OutOrStdout()
	out(w, "Network:  %s\n", info.Network)
	switch {
	case info.HasVault:
		out(w, "Wallet:   %s, %d account(s)\n", info.Status, info.Accounts)
	case info.HasLegacy:
		outln(w, "Wallet:   unencrypted legacy keys found; run 'caelus migrate-legacy'")
	default:
		outln(w, "Wallet:   none; run 'caelus create' or 'caelus import'")
	}
	if info.PublicKey != "" {
		mode := ""
		if info.ReadOnly {
			mode = " (watch-only)"
		}
		out(w, "Active:   %d %s %s%s\n", info.ActiveIndex, info.ActiveName, info.PublicKey, mode)
	}
	if info.SessionRemaining > 0 {
		out(w, "Session:  %s remaining\n", formatDuration(info.SessionRemaining))
	}
	return nil
}

// requireVault fails with a suggestion when nothing is stored.
func requireVault(svc *walletservice.Service) error {
	exists, err := svc.HasStoredVault()
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	suggestion := "create a wallet with 'caelus create' or import one with 'caelus import'"
	if legacy, _ := svc.HasLegacyWallet(); legacy {
		suggestion = "encrypt your existing keys with 'caelus migrate-legacy'"
	}
	return caelerr.WithSuggestion(caelerr.ErrNoVaultFound, suggestion)
}

// ensureUnlocked restores a live session or prompts for the password.
func ensureUnlocked(cc *CommandContext) error {
	svc := cc.Wallet()

	restored, err := svc.Restore()
	if err != nil && !errors.Is(err, caelerr.ErrInvalidPassword) {
		return err
	}
	if restored {
		return nil
	}

	if err := requireVault(svc); err != nil {
		return err
	}
	password, err := promptPasswordFn("Vault password: ")
	if err != nil {
		return err
	}
	return svc.Unlock(password)
}

func printMnemonic(w io.Writer, phrase string) {
	words := strings.Fields(phrase)
	for i, word := range words {
		out(w, "%2d. %-10s", i+1, word)
		if (i+1)%4 == 0 || i == len(words)-1 {
			outln(w)
		}
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "less than a minute"
	}
	h, m := int(d.Hours()), int(d.Minutes())%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%dm", h, m)
	}
}
