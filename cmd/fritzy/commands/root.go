package commands

import (
	"context"
	"errors"
	"fmt"
	"fritzy-backend/internal/components/telemetry"
	"fritzy-backend/lib/configutil"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	address    string
	username   string
	password   string
)

// populated by the root command before any subcommand runs
var (
	config    Config
	providers telemetry.Otel
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "config.json5", "The configuration file to read.")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging/instrumentation.")
	flags.StringVarP(&address, "address", "a", DefaultAddress, "The address of the router.")
	flags.StringVarP(&username, "user", "u", "", "The username to login with.")
	flags.StringVarP(&password, "password", "p", "", "The password to login with.")
}

func changed(cmd *cobra.Command, name string, value *string) *string {
	if cmd.Flags().Changed(name) {
		return value
	}
	return nil
}

func setupTelemetry(ctx context.Context) error {
	cfg, err := configutil.ReadRecursively[telemetry.Config]("telemetry.json5")
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no telemetry.json5 found, tracing and metrics are disabled")
		return nil
	}
	if err != nil {
		return err
	}
	providers, err = telemetry.SetupOtel(ctx, "fritzy", cfg)
	return err
}

var rootCmd = &cobra.Command{
	Use:   "fritzy",
	Short: "fritzy collects the daily online counter of a FRITZ!Box router.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)
		if verbose {
			slog.DebugContext(cmd.Context(), "verbose logging enabled")
		}

		var err error
		config, err = loadConfig(configPath, flagOverrides{
			address:  changed(cmd, "address", &address),
			username: changed(cmd, "user", &username),
			password: changed(cmd, "password", &password),
		})
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}

		err = setupTelemetry(cmd.Context())
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := providers.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	},
	SilenceUsage: true,
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
