package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ignite/leadharvest/internal/config"
	"github.com/ignite/leadharvest/internal/pkg/logger"
)

var cfgPath string

type runKey struct{}

// run is the per-invocation state built before any subcommand executes.
type run struct {
	cfg       *config.Config
	logCloser io.Closer
}

func runFrom(cmd *cobra.Command) *run {
	return cmd.Context().Value(runKey{}).(*run)
}

func configFrom(cmd *cobra.Command) *config.Config {
	return runFrom(cmd).cfg
}

var rootCmd = &cobra.Command{
	Use:           "leadharvest",
	Short:         "leadharvest collects members of VK groups and runs paced direct-message outreach.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadFromEnv(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		closer := logger.Configure(loaded.Log.Level, logger.FileOptions{
			Path:       loaded.Log.File,
			MaxSizeMB:  loaded.Log.MaxSizeMB,
			MaxBackups: loaded.Log.MaxBackups,
			MaxAgeDays: loaded.Log.MaxAgeDays,
		})
		cmd.SetContext(context.WithValue(cmd.Context(), runKey{}, &run{cfg: loaded, logCloser: closer}))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if r, ok := cmd.Context().Value(runKey{}).(*run); ok && r.logCloser != nil {
			_ = r.logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigPath(), "Path to the YAML config file. Empty uses defaults and environment only.")
}

func defaultConfigPath() string {
	if v := os.Getenv("LEADHARVEST_CONFIG"); v != "" {
		return v
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

// ExecuteContext runs the CLI and exits non-zero on failure.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
