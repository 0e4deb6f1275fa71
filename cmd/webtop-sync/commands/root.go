package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"webtop-sync/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
	providers  telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:          "webtop-sync",
	Short:        "webtop-sync scrapes homework and the class schedule from the webtop portal into a local database.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(*verbose)
		var err error
		providers, err = telemetry.SetupFromEnv(cmd.Context(), "webtop-sync")
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := providers.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "", "Path to the config file, defaults to the nearest "+defaultConfigName+".")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
