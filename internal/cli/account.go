package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/caelus/internal/output"
	"github.com/mrz1836/caelus/internal/wallet"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// accountAddName is the name of the added account.
	accountAddName string
	// accountAddImport is key material to import instead of generating.
	accountAddImport string
	// accountYes skips confirmation prompts.
	accountYes bool
)

// accountCmd is the parent command for account operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage the accounts in the vault",
	Long: `List, add, switch, rename, remove and reveal accounts.

Every change re-encrypts the vault and needs an unlocked session.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List accounts",
	Example: `  caelus account list`,
	Args:    cobra.NoArgs,
	RunE:    runAccountList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a generated or imported account",
	Example: `  caelus account add --name Trading
  caelus account add --import SB...`,
	Args: cobra.NoArgs,
	RunE: runAccountAdd,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountSwitchCmd = &cobra.Command{
	Use:     "switch <index>",
	Short:   "Make an account active",
	Example: `  caelus account switch 2`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAccountSwitch,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountRemoveCmd = &cobra.Command{
	Use:   "remove <index>",
	Short: "Remove an account from the vault",
	Long: `Remove an account from the vault. Its keys are gone unless you kept the
recovery phrase or secret key.`,
	Example: `  caelus account remove 1`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAccountRemove,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountRenameCmd = &cobra.Command{
	Use:     "rename <index> <name>",
	Short:   "Rename an account",
	Example: `  caelus account rename 0 Savings`,
	Args:    cobra.ExactArgs(2),
	RunE:    runAccountRename,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountRevealCmd = &cobra.Command{
	Use:     "reveal <index>",
	Short:   "Show an account's secret key and recovery phrase",
	Example: `  caelus account reveal 0`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAccountReveal,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	accountAddCmd.Flags().StringVar(&accountAddName, "name", "", "account name (default: Account N)")
	accountAddCmd.Flags().StringVar(&accountAddImport, "import", "", "recovery phrase, secret key or address to import")
	accountRemoveCmd.Flags().BoolVarP(&accountYes, "yes", "y", false, "skip confirmation")
	accountRevealCmd.Flags().BoolVarP(&accountYes, "yes", "y", false, "skip confirmation")

	accountCmd.GroupID = "wallet"
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountListCmd, accountAddCmd, accountSwitchCmd,
		accountRemoveCmd, accountRenameCmd, accountRevealCmd)
}

type accountEntry struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	PublicKey string `json:"public_key"`
	ReadOnly  bool   `json:"read_only"`
	Mnemonic  bool   `json:"has_mnemonic"`
	Active    bool   `json:"active"`
}

func runAccountList(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	if err := ensureUnlocked(cc); err != nil {
		return err
	}

	svc := cc.Wallet()
	v := svc.Vault()
	active, _ := svc.ActiveAccount()

	entries := make([]accountEntry, 0, v.Len())
	for _, a := range v.Accounts {
		entries = append(entries, accountEntry{
			Index:     a.Index,
			Name:      a.Name,
			PublicKey: a.PublicKey,
			ReadOnly:  a.IsReadOnly,
			Mnemonic:  a.HasMnemonic(),
			Active:    a.Index == active.Index,
		})
	}
	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(entries)
	}

	table := output.NewTable("", "INDEX", "NAME", "ADDRESS", "TYPE")
	for _, e := range entries {
		marker := ""
		if e.Active {
			marker = "*"
		}
		table.AddRow(marker, strconv.Itoa(e.Index), e.Name, e.PublicKey, accountType(e))
	}
	return table.Render(cmd.OutOrStdout())
}

func accountType(e accountEntry) string {
	switch {
	case e.ReadOnly:
		return "watch-only"
	case e.Mnemonic:
		return "phrase"
	default:
		return "secret"
	}
}

func runAccountAdd(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	if err := ensureUnlocked(cc); err != nil {
		return err
	}
	svc := cc.Wallet()

	var (
		fields wallet.AccountFields
		phrase string
		err    error
	)
	if accountAddImport != "" {
		fields, _, err = svc.ResolveImport(accountAddImport, accountAddName)
	} else {
		fields, phrase, err = svc.NewMnemonicAccount(accountAddName)
	}
	if err != nil {
		return err
	}

	account, err := svc.AddAccount(fields)
	if err != nil {
		return err
	}

	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(accountCreated{
			Index:     account.Index,
			Name:      account.Name,
			PublicKey: account.PublicKey,
			ReadOnly:  account.IsReadOnly,
			Mnemonic:  phrase,
		})
	}

	w := cmd.OutOrStdout()
	out(w, "Added %q as account %d (%s)\n", account.Name, account.Index, account.PublicKey)
	if phrase != "" {
		outln(w, "\nRecovery phrase (write it down, it is not shown again):")
		outln(w)
		printMnemonic(w, phrase)
	}
	return nil
}

func runAccountSwitch(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	if err := ensureUnlocked(cc); err != nil {
		return err
	}

	svc := cc.Wallet()
	if err := svc.SwitchAccount(index); err != nil {
		return err
	}
	a, _ := svc.ActiveAccount()
	return cc.Fmt.Success("Active account: %d %s (%s)", a.Index, a.Name, a.PublicKey)
}

func runAccountRemove(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	if err := ensureUnlocked(cc); err != nil {
		return err
	}

	svc := cc.Wallet()
	a, ok := svc.Vault().Find(index)
	if !ok {
		return svc.RemoveAccount(index)
	}
	if !accountYes && !promptConfirmFn(fmt.Sprintf("Remove %q (%s)?", a.Name, a.PublicKey)) {
		return caelerr.WithSuggestion(caelerr.ErrInvalidInput, "removal cancelled")
	}

	if err := svc.RemoveAccount(index); err != nil {
		return err
	}
	return cc.Fmt.Success("Removed account %d", index)
}

func runAccountRename(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	if err := ensureUnlocked(cc); err != nil {
		return err
	}

	if err := cc.Wallet().RenameAccount(index, args[1]); err != nil {
		return err
	}
	return cc.Fmt.Success("Renamed account %d", index)
}

func runAccountReveal(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	if err := ensureUnlocked(cc); err != nil {
		return err
	}

	if !accountYes && !promptConfirmFn("Anyone who sees the secret key controls the account. Show it?") {
		return caelerr.WithSuggestion(caelerr.ErrInvalidInput, "reveal cancelled")
	}

	secret, err := cc.Wallet().RevealSecret(index)
	if err != nil {
		return err
	}
	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(secret)
	}

	w := cmd.OutOrStdout()
	out(w, "Address:    %s\n", secret.PublicKey)
	out(w, "Secret key: %s\n", secret.SecretKey)
	if secret.Mnemonic != "" {
		outln(w, "Recovery phrase:")
		printMnemonic(w, secret.Mnemonic)
	}
	return nil
}

func parseIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil || index < 0 {
		return 0, caelerr.WithDetails(caelerr.ErrInvalidInput, map[string]string{"index": s})
	}
	return index, nil
}
