package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/caelus/internal/chain"
	"github.com/mrz1836/caelus/internal/config"
	"github.com/mrz1836/caelus/internal/output"
	walletservice "github.com/mrz1836/caelus/internal/service/wallet"
	"github.com/mrz1836/caelus/internal/session"
	"github.com/mrz1836/caelus/internal/storage"
)

// ledgerTimeout bounds one ledger command including retries.
const ledgerTimeout = 90 * time.Second

type cmdContextKey struct{}

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Log      *config.Logger
	Fmt      *output.Formatter
	Storage  *storage.Gateway
	Sessions *session.Manager
	Cipher   walletservice.EnvelopeCipher
	Ledger   chain.Client

	wallet *walletservice.Service
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(cfg *config.Config, log *config.Logger, fmtr *output.Formatter) *CommandContext {
	return &CommandContext{Cfg: cfg, Log: log, Fmt: fmtr}
}

// WithStorage sets the vault storage.
func (c *CommandContext) WithStorage(g *storage.Gateway) *CommandContext {
	c.Storage = g
	return c
}

// WithSessions sets the session manager.
func (c *CommandContext) WithSessions(m *session.Manager) *CommandContext {
	c.Sessions = m
	return c
}

// WithCipher sets the envelope cipher.
func (c *CommandContext) WithCipher(ec walletservice.EnvelopeCipher) *CommandContext {
	c.Cipher = ec
	return c
}

// WithLedger sets the ledger client.
func (c *CommandContext) WithLedger(l chain.Client) *CommandContext {
	c.Ledger = l
	return c
}

// Wallet returns the wallet service, creating it on first use.
func (c *CommandContext) Wallet() *walletservice.Service {
	if c.wallet == nil {
		svcCfg := &walletservice.Config{
			Storage:  c.Storage,
			Sessions: c.Sessions,
			Cipher:   c.Cipher,
			Ledger:   c.Ledger,
		}
		if c.Log != nil {
			svcCfg.Logger = c.Log
		}
		c.wallet = walletservice.NewService(svcCfg)
	}
	return c.wallet
}

// SetCmdContext stores cc in the command's context.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(context.WithValue(base, cmdContextKey{}, cc))
}

// GetCmdContext returns the command context, or nil when none is set.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	cc, _ := ctx.Value(cmdContextKey{}).(*CommandContext)
	return cc
}

// contextWithTimeout returns a timeout context rooted in the command context.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, d)
}
