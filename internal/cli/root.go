// Package cli implements the Caelus command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrz1836/caelus/internal/chain/stellar"
	"github.com/mrz1836/caelus/internal/config"
	"github.com/mrz1836/caelus/internal/metrics"
	"github.com/mrz1836/caelus/internal/output"
	"github.com/mrz1836/caelus/internal/session"
	"github.com/mrz1836/caelus/internal/storage"
	"github.com/mrz1836/caelus/internal/vaultcrypto"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// BuildInfo describes the binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
	cmdCtx    *CommandContext

	buildInfo BuildInfo

	// keyringUsable reports whether the OS keychain can hold sessions.
	keyringUsable = func() bool { return session.KeyringUsable(nil) }
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "caelus",
	Short: "A Stellar wallet for the terminal",
	Long: `Caelus keeps one or more Stellar accounts in a password-encrypted vault.

Unlocking starts a session held in the OS keychain, so later commands do not
prompt again until the session expires or you run 'caelus lock'.

Example:
  caelus create
  caelus balance
  caelus send --to G... --amount 10 --memo rent`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		format := output.FormatText
		if formatter != nil {
			format = formatter.Format()
		}
		_ = output.FormatError(rootCmd.ErrOrStderr(), err, format)
		cleanup()
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return caelerr.ExitCode(err)
}

// SetBuildInfo records the version reported by 'caelus version'.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
}

// FormatVersion renders build information, filling in unknown fields.
func FormatVersion(info BuildInfo) string {
	version, commit, date := info.Version, info.Commit, info.Date
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// initGlobals loads configuration and builds the command context.
func initGlobals(cmd *cobra.Command) error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}
	home = config.ExpandPath(home)

	var err error
	cfg, err = config.LoadOrDefault(config.Path(home))
	if err != nil {
		return err
	}
	cfg.Home = home

	config.ApplyEnvironment(cfg)

	if homeDir != "" {
		cfg.Home = config.ExpandPath(homeDir)
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != config.FormatAuto {
		cfg.Output.DefaultFormat = outputFormat
	}
	if err = cfg.Validate(); err != nil {
		return err
	}

	logger, err = config.NewLogger(config.ParseLogLevel(cfg.GetLoggingLevel()), cfg.GetLoggingFile())
	if err != nil {
		logger = config.NullLogger()
	}

	explicitFormat := output.ParseFormat(cfg.GetOutputFormat())
	formatter = output.NewFormatter(output.DetectFormat(cmd.OutOrStdout(), explicitFormat), cmd.OutOrStdout(), cmd.ErrOrStderr())

	cmdCtx, err = buildCommandContext(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	SetCmdContext(cmd, cmdCtx)
	return nil
}

// buildCommandContext opens storage and wires the wallet service.
func buildCommandContext(errOut io.Writer) (*CommandContext, error) {
	store, err := storage.Open(cfg.Storage.Backend, cfg.StoragePath())
	if err != nil {
		return nil, caelerr.WithCause(caelerr.ErrStorage, err)
	}

	cipher, err := vaultcrypto.NewCipher(cfg.Encryption.Method)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%w: %w", caelerr.ErrConfigInvalid, err)
	}

	sessions := session.NewManager(sessionStore(errOut), nil, cfg.SessionTTL())

	ledger := stellar.NewClient(&stellar.ClientOptions{
		Network:           cfg.NetworkName(),
		BaseURL:           cfg.HorizonURL(),
		FriendbotURL:      cfg.Network.FriendbotURL,
		RequestsPerSecond: cfg.Network.RequestsPerSecond,
		Burst:             cfg.Network.Burst,
		Logger:            logger,
	})

	cc := NewCommandContext(cfg, logger, formatter).
		WithStorage(store).
		WithSessions(sessions).
		WithCipher(cipher).
		WithLedger(ledger)
	return cc, nil
}

// sessionStore picks the keychain when configured and reachable.
func sessionStore(errOut io.Writer) session.Store {
	if cfg.Session.Backend == config.SessionBackendMemory {
		return session.NewMemoryStore()
	}
	if !keyringUsable() {
		logger.Warn("OS keyring unavailable, sessions last for one command")
		if cfg.IsVerbose() {
			out(errOut, "Warning: OS keyring unavailable; you will be asked for your password on every command\n")
		}
		return session.NewMemoryStore()
	}
	return session.NewKeyringStore(nil, session.ServiceName+":"+cfg.Home)
}

// cleanup releases resources.
func cleanup() {
	if cmdCtx != nil && cmdCtx.Storage != nil {
		if err := cmdCtx.Storage.Close(); err != nil && !errors.Is(err, storage.ErrClosed) && logger != nil {
			logger.Error("closing storage: %v", err)
		}
	}
	cmdCtx = nil
	if logger != nil {
		logger.Debug("%s", metrics.Global.Summary())
		metrics.Global.Reset()
		_ = logger.Close()
	}
}

// versionCmd prints build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ver := FormatVersion(buildInfo)
		return GetCmdContext(cmd).Fmt.Result(map[string]string{
			"version": defaultString(buildInfo.Version, "dev"),
			"commit":  defaultString(buildInfo.Commit, "unknown"),
			"date":    defaultString(buildInfo.Date, "unknown"),
		}, "caelus "+ver+"\n")
	},
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "caelus data directory (default: ~/.caelus)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "wallet", Title: "Wallet Commands:"},
		&cobra.Group{ID: "ledger", Title: "Ledger Commands:"},
		&cobra.Group{ID: "security", Title: "Security Commands:"},
	)
	rootCmd.AddCommand(versionCmd)
}
