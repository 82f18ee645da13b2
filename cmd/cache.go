package cmd

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the introspection cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show the number and size of cache entries",
			Args:  cobra.NoArgs,
			RunE:  runCacheStats,
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cache entry",
			Args:  cobra.NoArgs,
			RunE:  runCacheClear,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the cache directory",
			Args:  cobra.NoArgs,
			RunE:  runCachePath,
		},
	)

	return cmd
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	store, err := openCache(settings)
	if err != nil {
		return err
	}

	if !store.Enabled() {
		fmt.Fprintln(cmd.OutOrStdout(), "Cache disabled")
		return nil
	}

	stats, err := store.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Directory: %s\nEntries: %d\nSize: %s\n",
		store.Dir(), stats.Entries, units.HumanSize(float64(stats.Bytes)))
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	store, err := openCache(settings)
	if err != nil {
		return err
	}

	removed, err := store.Clear()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries\n", removed)
	return nil
}

func runCachePath(cmd *cobra.Command, _ []string) error {
	store, err := openCache(settings)
	if err != nil {
		return err
	}

	if !store.Enabled() {
		return fmt.Errorf("cache is disabled")
	}

	fmt.Fprintln(cmd.OutOrStdout(), store.Dir())
	return nil
}
