package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/caelus/internal/chain"
	"github.com/mrz1836/caelus/internal/output"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	historyLimit int
	sendTo       string
	sendAmount   string
	sendMemo     string
	sendYes      bool
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the active account's balances",
	Long: `Show the balances of the active account and how much XLM can be spent.

The ledger requires every account to keep a minimum XLM balance of
(2 + subentries) x 0.5 XLM; that part is not spendable.`,
	Example: `  caelus balance
  caelus balance -o json`,
	Args: cobra.NoArgs,
	RunE: runBalance,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "List recent payments of the active account",
	Example: `  caelus history --limit 5`,
	Args:    cobra.NoArgs,
	RunE:    runHistory,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send XLM from the active account",
	Example: `  caelus send --to GABC... --amount 25
  caelus send --to GABC... --amount 0.5 --memo "invoice 42" --yes`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var fundCmd = &cobra.Command{
	Use:     "fund",
	Short:   "Fund the active account from the test network faucet",
	Example: `  caelus fund`,
	Args:    cobra.NoArgs,
	RunE:    runFund,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of payments to show")

	sendCmd.Flags().StringVar(&sendTo, "to", "", "destination address (required)")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "amount of XLM to send (required)")
	sendCmd.Flags().StringVar(&sendMemo, "memo", "", "text memo, at most 28 bytes")
	sendCmd.Flags().BoolVarP(&sendYes, "yes", "y", false, "skip confirmation")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("amount")

	for _, c := range []*cobra.Command{balanceCmd, historyCmd, sendCmd, fundCmd} {
		c.GroupID = "ledger"
		rootCmd.AddCommand(c)
	}
}

func runBalance(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	if err := ensureUnlocked(cc); err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, ledgerTimeout)
	defer cancel()

	snap, err := cc.Wallet().RefreshAccount(ctx)
	if err != nil {
		return err
	}
	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(snap)
	}

	w := cmd.OutOrStdout()
	out(w, "Account: %s\n\n", snap.PublicKey)

	table := output.NewTable("ASSET", "BALANCE", "ISSUER")
	for _, b := range snap.Balances {
		table.AddRow(assetLabel(b.AssetType, b.AssetCode), chain.FormatAmount(b.Amount), b.AssetIssuer)
	}
	if err := table.Render(w); err != nil {
		return err
	}

	out(w, "\nSpendable: %s XLM (minimum balance %s XLM)\n",
		chain.FormatAmount(snap.Spendable), chain.FormatAmount(snap.MinimumBalance))
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	if err := ensureUnlocked(cc); err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, ledgerTimeout)
	defer cancel()

	svc := cc.Wallet()
	txs, err := svc.RecentTransactions(ctx, historyLimit)
	if err != nil {
		return err
	}
	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(txs)
	}
	if len(txs) == 0 {
		outln(cmd.OutOrStdout(), "No payments yet")
		return nil
	}

	self := svc.PublicKey()
	table := output.NewTable("DATE", "DIRECTION", "AMOUNT", "ASSET", "COUNTERPARTY", "MEMO")
	for _, tx := range txs {
		direction := tx.Direction(self)
		counterparty := tx.From
		if direction == "sent" {
			counterparty = tx.To
		}
		if !tx.Successful {
			direction += " (failed)"
		}
		table.AddRow(tx.CreatedAt.Format("2006-01-02 15:04"), direction,
			chain.FormatAmount(tx.Amount), tx.Asset, counterparty, tx.Memo)
	}
	return table.Render(cmd.OutOrStdout())
}

func runSend(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	if err := ensureUnlocked(cc); err != nil {
		return err
	}

	amount, err := chain.ParseAmount(sendAmount)
	if err != nil {
		return err
	}

	if !sendYes {
		question := fmt.Sprintf("Send %s XLM to %s on %s?", chain.FormatAmount(amount), sendTo, cc.Ledger.Network())
		if !promptConfirmFn(question) {
			return caelerr.WithSuggestion(caelerr.ErrInvalidInput, "payment cancelled")
		}
	}

	ctx, cancel := contextWithTimeout(cmd, ledgerTimeout)
	defer cancel()

	result, err := cc.Wallet().SendPayment(ctx, sendTo, sendAmount, sendMemo)
	if err != nil {
		return err
	}

	return cc.Fmt.Result(result, fmt.Sprintf("Sent %s XLM to %s\nTransaction: %s (ledger %d)\n",
		chain.FormatAmount(amount), sendTo, result.Hash, result.Ledger))
}

func runFund(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	if err := ensureUnlocked(cc); err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, ledgerTimeout)
	defer cancel()

	svc := cc.Wallet()
	if err := svc.FundTestnet(ctx); err != nil {
		return err
	}
	return cc.Fmt.Success("Funded %s on %s", svc.PublicKey(), cc.Ledger.Network())
}

func assetLabel(assetType, code string) string {
	if assetType == "native" {
		return "XLM"
	}
	return code
}
