package cli

import (
	"strings"

	"github.com/spf13/cobra"

	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// resetPhrase must be typed to confirm a reset.
const resetPhrase = "RESET"

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var resetConfirm string

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the vault and end the session",
	Long: `Permanently delete the encrypted vault, any unencrypted legacy keys and
the session. Accounts can only be recovered from their recovery phrases or
secret keys afterwards.

You are asked to type RESET to confirm.`,
	Example: `  caelus reset
  caelus reset --confirm RESET`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var migrateLegacyCmd = &cobra.Command{
	Use:   "migrate-legacy",
	Short: "Encrypt unencrypted keys from an older wallet into a vault",
	Long: `Older wallets stored a single account's keys unencrypted. This moves
them into a new password-encrypted vault and deletes the plaintext copy.`,
	Example: `  caelus migrate-legacy`,
	Args:    cobra.NoArgs,
	RunE:    runMigrateLegacy,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	resetCmd.Flags().StringVar(&resetConfirm, "confirm", "", "type RESET to skip the prompt")

	resetCmd.GroupID = "security"
	migrateLegacyCmd.GroupID = "wallet"
	rootCmd.AddCommand(resetCmd, migrateLegacyCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	svc := cc.Wallet()

	req := svc.RequestReset()

	typed := resetConfirm
	if typed == "" {
		cc.Fmt.Notice("This deletes every account in the vault. Type %s to confirm.", resetPhrase)
		var err error
		if typed, err = promptLineFn("> "); err != nil {
			return err
		}
	}
	if strings.TrimSpace(typed) != resetPhrase {
		return caelerr.WithSuggestion(caelerr.ErrResetNotRequested, "reset cancelled; nothing was deleted")
	}

	if err := svc.ConfirmReset(req.Token); err != nil {
		return err
	}
	return cc.Fmt.Success("Wallet reset: vault and session deleted")
}

func runMigrateLegacy(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	svc := cc.Wallet()

	has, err := svc.HasLegacyWallet()
	if err != nil {
		return err
	}
	if !has {
		return caelerr.WithSuggestion(caelerr.ErrNoVaultFound, "no unencrypted legacy keys were found")
	}

	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}

	account, err := svc.AdoptLegacyWallet(password)
	if err != nil {
		return err
	}
	return cc.Fmt.Result(accountCreated{
		Index:     account.Index,
		Name:      account.Name,
		PublicKey: account.PublicKey,
		ReadOnly:  account.IsReadOnly,
	}, "Encrypted legacy account "+account.PublicKey+" into a new vault; the plaintext keys were deleted\n")
}
