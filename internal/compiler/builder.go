package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/Norgate-AV/irscan/internal/logging"
)

// Commander interface for testing
type Commander interface {
	Run() error
}

// CommandBuilder runs probe commands
type CommandBuilder struct {
	execCommand func(ctx context.Context, command *ShellCommand) Commander
	output      io.Writer
}

// NewCommandBuilder creates a new command builder. Child output goes to
// stderr so stdout stays free for results.
func NewCommandBuilder() *CommandBuilder {
	cb := &CommandBuilder{output: os.Stderr}

	cb.execCommand = func(ctx context.Context, command *ShellCommand) Commander {
		cmd := exec.CommandContext(ctx, command.Path, command.Args...)
		if len(command.Env) > 0 {
			cmd.Env = append(os.Environ(), command.Env...)
		}
		cmd.Stdout = cb.output
		cmd.Stderr = cb.output
		return cmd
	}

	return cb
}

// ExecuteCommand runs the probe command to completion.
func (cb *CommandBuilder) ExecuteCommand(ctx context.Context, command *ShellCommand) error {
	logging.Debug().
		Add(logging.Component("compiler")).
		Add(logging.Command(command.Path, command.Args)).
		Msg("building probe")

	start := time.Now()
	err := cb.execCommand(ctx, command).Run()

	logging.Debug().
		Add(logging.Component("compiler")).
		Add(logging.Duration(time.Since(start))).
		Msg("probe build finished")

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("probe build failed (exit code %d): %w", exitErr.ExitCode(), err)
		}

		return fmt.Errorf("failed to run %s: %w", command.Path, err)
	}

	return nil
}

// PrintBuildInfo prints verbose build information
func (cb *CommandBuilder) PrintBuildInfo(w io.Writer, family string, opts ProbeOptions, command *ShellCommand) {
	fmt.Fprintf(w, "Toolchain: %s\nSource: %s\nLibraries: %v\nLibraryPaths: %v\nExternal: %t\nCommand: %s\n",
		family, opts.Source, opts.Libraries, opts.LibraryPaths, opts.External, command)
}
