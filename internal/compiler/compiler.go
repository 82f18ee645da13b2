// Package compiler builds and runs the probe program that links a set of
// libraries, so their runtime dependencies can be inspected afterwards.
package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Norgate-AV/irscan/internal/toolchain"
)

// ProbeOptions describes one probe build.
type ProbeOptions struct {
	// Source is the C file to compile.
	Source string
	// Output is the executable to produce. Defaults to Source without its
	// extension, plus .exe for Windows toolchains.
	Output string
	// Libraries are bare library names or libtool .la archives.
	Libraries []string
	// LibraryPaths are extra -L directories for uninstalled libraries.
	LibraryPaths []string
	// Libtool, when set, wraps the link in `libtool --mode=link`.
	Libtool []string
	// External links against installed libraries only.
	External bool
}

// ShellCommand is a ready-to-run probe invocation.
type ShellCommand struct {
	Path string
	Args []string
	// Env is added to the parent environment of the child.
	Env []string
}

// String renders the command line for logs and verbose output.
func (c *ShellCommand) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// GetProbeCommand returns the probe build command for profile.
func GetProbeCommand(profile *toolchain.Profile, opts ProbeOptions) (*ShellCommand, error) {
	argv, err := BuildCommandArgs(profile, opts)
	if err != nil {
		return nil, err
	}

	return &ShellCommand{
		Path: argv[0],
		Args: argv[1:],
		Env:  profile.Environ(),
	}, nil
}

// DefaultOutput derives the probe executable name from its source.
func DefaultOutput(profile *toolchain.Profile, source string) string {
	out := strings.TrimSuffix(source, filepath.Ext(source))
	if profile.IsWindows() {
		out += ".exe"
	}
	return out
}

// BuildCommandArgs returns the full argv that compiles and links the probe.
func BuildCommandArgs(profile *toolchain.Profile, opts ProbeOptions) ([]string, error) {
	if opts.Source == "" {
		return nil, fmt.Errorf("no probe source given")
	}

	source, err := filepath.Abs(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", opts.Source, err)
	}

	output := opts.Output
	if output == "" {
		output = DefaultOutput(profile, source)
	}

	libtool := len(opts.Libtool) > 0

	var linkFlags []string
	if opts.External {
		linkFlags = profile.ExternalLinkFlags(opts.Libraries)
	} else {
		linkFlags = profile.InternalLinkFlags(opts.Libraries, opts.LibraryPaths, libtool)
	}

	var args []string
	if libtool {
		args = append(args, opts.Libtool...)
		args = append(args, "--mode=link")
	}

	args = append(args, profile.Compiler()...)

	if flag := profile.NoDeprecationFlag(); flag != "" {
		args = append(args, flag)
	}

	if profile.IsMSVC() {
		args = append(args, "-Fe"+output, source)
		return append(args, linkFlags...), nil
	}

	args = append(args, "-o", output, source)
	args = append(args, linkFlags...)
	args = append(args, profile.LDFlags()...)

	for _, lib := range profile.DLLLibraries() {
		args = append(args, "-l"+lib)
	}

	return args, nil
}
