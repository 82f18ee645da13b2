package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/irscan/internal/config"
	"github.com/Norgate-AV/irscan/internal/resolver"
	"github.com/Norgate-AV/irscan/internal/toolchain"
)

func newResolveLibsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve-libs",
		Short: "Map import libraries to the DLLs they load",
		Long: `Find each library's import library on the linker search path and print
the DLL it refers to. Requires a Windows toolchain (msvc or mingw32).`,
		Args: cobra.NoArgs,
		RunE: runResolveLibs,
	}

	cmd.Flags().StringArrayP("library", "l", nil, "Library to resolve (repeatable)")
	cmd.Flags().String("dlltool", "", "dlltool executable (default dlltool.exe)")
	cmd.Flags().String("dumpbin", "", "dumpbin executable (default dumpbin.exe)")
	cmd.Flags().String("libtool-cmd", "", "Run dlltool through this libtool command")
	cmd.Flags().Bool("no-libtool", false, "Never run tools through libtool")

	return cmd
}

// errNotWindows is returned when DLL resolution is asked of a toolchain
// that does not link against import libraries.
var errNotWindows = errors.New("resolving libraries requires a Windows toolchain (msvc or mingw32)")

func runResolveLibs(cmd *cobra.Command, _ []string) error {
	libraries, _ := cmd.Flags().GetStringArray("library")
	if len(libraries) == 0 {
		return fmt.Errorf("no libraries given, use -l")
	}

	profile, env, err := detectToolchain(settings)
	if err != nil {
		return err
	}

	if !profile.IsWindows() {
		return errNotWindows
	}

	shlibs, err := newResolver(profile, env, settings).Resolve(cmd.Context(), libraries)
	if err != nil {
		return err
	}

	for _, shlib := range shlibs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", shlib.Library, shlib.DLL)
	}

	return nil
}

// newResolver is replaced in tests.
var newResolver = func(profile *toolchain.Profile, env toolchain.Env, cfg *config.Config) libraryResolver {
	return resolver.New(profile, env, resolver.Options{
		Libtool: cfg.LibtoolCommand(),
		Dlltool: cfg.Dlltool,
		Dumpbin: cfg.Dumpbin,
	})
}
