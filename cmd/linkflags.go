package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLinkFlagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link-flags",
		Short: "Print the link arguments for a set of libraries",
		Long: `Print the arguments that link a probe against the given libraries.

Libraries built in the current tree get search path and rpath flags for
uninstalled use; with --external only the decorated names are printed.`,
		Args: cobra.NoArgs,
		RunE: runLinkFlags,
	}

	cmd.Flags().StringArrayP("library", "l", nil, "Library to link (repeatable); .la archives are passed verbatim")
	cmd.Flags().StringArrayP("library-path", "L", nil, "Library search directory (repeatable)")
	cmd.Flags().Bool("libtool", false, "Format flags for a link through libtool")
	cmd.Flags().Bool("external", false, "Libraries are installed on the system")

	return cmd
}

func runLinkFlags(cmd *cobra.Command, _ []string) error {
	libraries, _ := cmd.Flags().GetStringArray("library")
	paths, _ := cmd.Flags().GetStringArray("library-path")
	useLibtool, _ := cmd.Flags().GetBool("libtool")
	external, _ := cmd.Flags().GetBool("external")

	profile, _, err := detectToolchain(settings)
	if err != nil {
		return err
	}

	if !cmd.Flags().Changed("libtool") {
		useLibtool = len(settings.LibtoolCommand()) > 0
	}

	var flags []string
	if external {
		flags = profile.ExternalLinkFlags(libraries)
	} else {
		flags = profile.InternalLinkFlags(libraries, paths, useLibtool)
	}

	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(flags, " "))
	return nil
}
