package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Norgate-AV/irscan/internal/config"
	"github.com/Norgate-AV/irscan/internal/logging"
	"github.com/Norgate-AV/irscan/internal/version"
)

// settings is the configuration loaded for the running command.
var settings *config.Config

// NewRootCmd builds the irscan command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "irscan",
		Short:             "Native library introspection toolchain",
		Long:              `Build probe programs against native libraries and find the shared libraries they load at runtime.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadSettings,
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)

	flags := rootCmd.PersistentFlags()
	flags.String("compiler", "", "Windows compiler family to use (msvc or mingw32)")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.Bool("no-cache", false, "Disable the introspection cache")
	flags.String("cache-dir", "", "Cache directory (default ~/.cache/irscan)")
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.String("log-format", "", "Log format (console or json)")

	rootCmd.AddCommand(
		newLinkFlagsCmd(),
		newResolveLibsCmd(),
		newProbeCmd(),
		newCacheCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// loadSettings layers the configuration sources and sets up logging.
func loadSettings(cmd *cobra.Command, _ []string) error {
	viper.Reset()

	cfg, err := config.NewLoader().Load(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if cfg.Verbose && !cmd.Flags().Changed("log-level") {
		level = "debug"
	}

	logging.Init(logging.Config{
		Level:  level,
		Format: cfg.LogFormat,
		Output: cmd.ErrOrStderr(),
	})

	settings = cfg
	return nil
}
