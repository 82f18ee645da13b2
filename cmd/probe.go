package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/irscan/internal/compiler"
	"github.com/Norgate-AV/irscan/internal/logging"
	"github.com/Norgate-AV/irscan/internal/resolver"
	"github.com/Norgate-AV/irscan/internal/toolchain"
)

type libraryResolver interface {
	Resolve(ctx context.Context, libraries []string) ([]resolver.SharedLibrary, error)
}

// runProbeCommand is replaced in tests.
var runProbeCommand = func(ctx context.Context, command *compiler.ShellCommand) error {
	return compiler.NewCommandBuilder().ExecuteCommand(ctx, command)
}

// probeResult is what the cache keeps for a probe source.
type probeResult struct {
	Family       string
	Libraries    []string
	LibraryPaths []string
	External     bool
	Output       string
	Command      []string
	DLLs         []resolver.SharedLibrary
}

// matches reports whether a cached result was produced for the same
// request. opts.Output must already be absolute.
func (r *probeResult) matches(family string, opts compiler.ProbeOptions) bool {
	return r.Family == family &&
		r.Output == opts.Output &&
		r.External == opts.External &&
		slices.Equal(r.Libraries, opts.Libraries) &&
		slices.Equal(r.LibraryPaths, opts.LibraryPaths)
}

// built reports whether the probe executable is still on disk.
func (r *probeResult) built() bool {
	info, err := os.Stat(r.Output)
	return err == nil && info.Mode().IsRegular()
}

func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <source.c>",
		Short: "Build a probe program and report the shared libraries it loads",
		Long: `Compile and link a probe program against the given libraries.

With a Windows toolchain the DLL behind every library is resolved as well.
Results are cached per source file until the source changes.`,
		Args: cobra.ExactArgs(1),
		RunE: runProbe,
	}

	cmd.Flags().StringArrayP("library", "l", nil, "Library to link (repeatable)")
	cmd.Flags().StringArrayP("library-path", "L", nil, "Library search directory (repeatable)")
	cmd.Flags().StringP("output", "o", "", "Probe executable to write")
	cmd.Flags().Bool("external", false, "Libraries are installed on the system")
	cmd.Flags().String("libtool-cmd", "", "Link through this libtool command")
	cmd.Flags().Bool("no-libtool", false, "Never link through libtool")
	cmd.Flags().String("dlltool", "", "dlltool executable (default dlltool.exe)")
	cmd.Flags().String("dumpbin", "", "dumpbin executable (default dumpbin.exe)")
	cmd.Flags().StringSlice("dll-libraries", nil, "Runtime libraries for MinGW probes (only msvcrt is honored)")

	return cmd
}

func runProbe(cmd *cobra.Command, args []string) error {
	source, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("failed to read probe source: %w", err)
	}

	opts := compiler.ProbeOptions{Source: source, Libtool: settings.LibtoolCommand()}
	opts.Libraries, _ = cmd.Flags().GetStringArray("library")
	opts.LibraryPaths, _ = cmd.Flags().GetStringArray("library-path")
	opts.Output, _ = cmd.Flags().GetString("output")
	opts.External, _ = cmd.Flags().GetBool("external")

	profile, env, err := detectToolchain(settings)
	if err != nil {
		return err
	}

	if opts.Output == "" {
		opts.Output = compiler.DefaultOutput(profile, source)
	} else if opts.Output, err = filepath.Abs(opts.Output); err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	store, err := openCache(settings)
	if err != nil {
		return err
	}

	var result probeResult
	hit, err := store.Load(source, &result)
	if err != nil {
		return err
	}

	if hit && result.matches(profile.Family().String(), opts) && result.built() {
		logging.Info().
			Add(logging.Component("probe")).
			Add(logging.Path(source)).
			Add(logging.Cached(true)).
			Msg("using cached probe result")
		printProbeResult(cmd, &result)
		return nil
	}

	if hit {
		logging.Debug().
			Add(logging.Component("probe")).
			Add(logging.Path(source)).
			Msg("cached probe does not match this request or its executable is gone")
	}

	command, err := compiler.GetProbeCommand(profile, opts)
	if err != nil {
		return err
	}

	if settings.Verbose {
		compiler.NewCommandBuilder().PrintBuildInfo(cmd.ErrOrStderr(), profile.Family().String(), opts, command)
	}

	if err := runProbeCommand(cmd.Context(), command); err != nil {
		return err
	}

	result = probeResult{
		Family:       profile.Family().String(),
		Libraries:    opts.Libraries,
		LibraryPaths: opts.LibraryPaths,
		External:     opts.External,
		Output:       opts.Output,
		Command:      append([]string{command.Path}, command.Args...),
	}

	if profile.IsWindows() {
		if names := resolvable(opts.Libraries); len(names) > 0 {
			result.DLLs, err = newResolver(profile, env, settings).Resolve(cmd.Context(), names)
			if err != nil {
				return err
			}
		}
	}

	if err := store.Store(source, result); err != nil {
		return err
	}

	printProbeResult(cmd, &result)
	return nil
}

// resolvable drops libtool archives, which have no import library of
// their own.
func resolvable(libraries []string) []string {
	var names []string
	for _, name := range libraries {
		if !toolchain.ParseLibrary(name).Libtool {
			names = append(names, name)
		}
	}
	return names
}

func printProbeResult(cmd *cobra.Command, result *probeResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, result.Output)
	for _, shlib := range result.DLLs {
		fmt.Fprintf(out, "%s\t%s\n", shlib.Library, shlib.DLL)
	}
}
