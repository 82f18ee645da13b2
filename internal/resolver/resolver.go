// Package resolver maps Windows import libraries to the DLLs they load.
//
// Neither toolchain offers a direct query for this, so the resolver locates
// each import library on the linker search path and asks the toolchain's
// own introspection utility: dumpbin for MSVC, dlltool for MinGW.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Norgate-AV/irscan/internal/logging"
	"github.com/Norgate-AV/irscan/internal/toolchain"
)

const (
	// DefaultDumpbin is the MSVC symbol dumper.
	DefaultDumpbin = "dumpbin.exe"

	// DefaultDlltool is the MinGW import library tool.
	DefaultDlltool = "dlltool.exe"

	defaultShell = "sh.exe"
)

// Commander runs a command and returns its standard output.
type Commander interface {
	Output() ([]byte, error)
}

// SharedLibrary is the DLL an import library resolved to.
type SharedLibrary struct {
	// Library is the requested library name.
	Library string
	// ImportLibrary is the file that was inspected.
	ImportLibrary string
	// DLL is the runtime shared library file name.
	DLL string
}

// ResolutionError lists every library without a discoverable DLL.
type ResolutionError struct {
	Unresolved []string
}

func (e *ResolutionError) Error() string {
	return "can't resolve libraries to shared libraries: " + strings.Join(e.Unresolved, ", ")
}

// Options configures the external tools.
type Options struct {
	// Libtool is the libtool wrapper command. When set, dlltool runs under
	// `libtool --mode=execute` through the shell named by $SHELL.
	Libtool []string

	// Dlltool overrides the dlltool executable, e.g. for a cross prefix.
	Dlltool string

	// Dumpbin overrides the dumpbin executable.
	Dumpbin string
}

// Resolver resolves import libraries for one toolchain profile.
type Resolver struct {
	profile     *toolchain.Profile
	env         toolchain.Env
	opts        Options
	fs          afero.Fs
	execCommand func(ctx context.Context, name string, args ...string) Commander
	lookPath    func(file string) (string, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFs sets the filesystem searched for import libraries.
func WithFs(fs afero.Fs) Option {
	return func(r *Resolver) {
		r.fs = fs
	}
}

// WithCommander replaces how external tools are started.
func WithCommander(fn func(ctx context.Context, name string, args ...string) Commander) Option {
	return func(r *Resolver) {
		r.execCommand = fn
	}
}

// WithLookPath replaces how the libtool shell is located.
func WithLookPath(fn func(file string) (string, error)) Option {
	return func(r *Resolver) {
		r.lookPath = fn
	}
}

// New creates a Resolver. env supplies LIB and SHELL.
func New(profile *toolchain.Profile, env toolchain.Env, opts Options, options ...Option) *Resolver {
	if opts.Dlltool == "" {
		opts.Dlltool = DefaultDlltool
	}

	if opts.Dumpbin == "" {
		opts.Dumpbin = DefaultDumpbin
	}

	r := &Resolver{
		profile:  profile,
		env:      env,
		opts:     opts,
		fs:       afero.NewOsFs(),
		lookPath: exec.LookPath,
	}

	r.execCommand = func(ctx context.Context, name string, args ...string) Commander {
		cmd := exec.CommandContext(ctx, name, args...)
		if environ := r.profile.Environ(); len(environ) > 0 {
			cmd.Env = append(os.Environ(), environ...)
		}
		return cmd
	}

	for _, option := range options {
		option(r)
	}

	return r
}

// Resolve returns the DLL behind each library, in request order.
// If any library cannot be resolved it returns *ResolutionError naming all
// of them, along with the libraries that did resolve.
func (r *Resolver) Resolve(ctx context.Context, libraries []string) ([]SharedLibrary, error) {
	tool := r.toolCommand()

	dirs, err := r.searchDirs(ctx)
	if err != nil {
		return nil, err
	}

	logging.Debug().
		Add(logging.Component("resolver")).
		Add(logging.Count(len(dirs))).
		Add(logging.Str("dirs", strings.Join(dirs, r.listSeparator()))).
		Msg("library search path")

	var resolved []SharedLibrary
	var unresolved []string

	for _, library := range libraries {
		shlib, ok, err := r.resolve(ctx, tool, dirs, library)
		if err != nil {
			return nil, err
		}

		if !ok {
			logging.Debug().
				Add(logging.Component("resolver")).
				Add(logging.Library(library)).
				Msg("no import library found")
			unresolved = append(unresolved, library)
			continue
		}

		logging.Debug().
			Add(logging.Component("resolver")).
			Add(logging.Library(library)).
			Add(logging.Path(shlib.ImportLibrary)).
			Add(logging.Str("dll", shlib.DLL)).
			Msg("resolved library")
		resolved = append(resolved, shlib)
	}

	if len(unresolved) > 0 {
		return resolved, &ResolutionError{Unresolved: unresolved}
	}

	return resolved, nil
}

// toolCommand builds the command line that inspects an import library,
// without the library path itself.
func (r *Resolver) toolCommand() []string {
	if r.profile.IsMSVC() {
		return []string{r.opts.Dumpbin, "-symbols"}
	}

	var args []string
	if len(r.opts.Libtool) > 0 {
		shell := r.env["SHELL"]
		if shell == "" {
			shell = defaultShell
		}
		if path, err := r.lookPath(shell); err == nil {
			shell = path
		}

		args = append(args, shell)
		args = append(args, r.opts.Libtool...)
		args = append(args, "--mode=execute")
	}

	return append(args, r.opts.Dlltool, "--identify")
}

// searchDirs returns the directories the linker searches for libraries.
func (r *Resolver) searchDirs(ctx context.Context) ([]string, error) {
	if r.profile.IsMSVC() {
		lib := r.env["LIB"]
		if lib == "" {
			return nil, nil
		}
		return strings.Split(lib, ";"), nil
	}

	output, err := r.run(ctx, r.profile.CompilerCommand(), "-print-search-dirs")
	if err != nil {
		return nil, err
	}

	return ParseSearchDirs(output, r.listSeparator()), nil
}

// listSeparator is the path list separator of the platform the profile
// targets, which need not be the host's.
func (r *Resolver) listSeparator() string {
	if r.profile.GOOS() == "windows" {
		return ";"
	}
	return ":"
}

// resolve finds the first candidate import library for library across
// dirs whose inspection names a DLL.
func (r *Resolver) resolve(ctx context.Context, tool, dirs []string, library string) (SharedLibrary, bool, error) {
	candidates := CandidateNames(library)

	for _, dir := range dirs {
		dir = StripSysroot(dir)

		for _, candidate := range candidates {
			implib := filepath.Join(dir, candidate)

			exists, err := afero.Exists(r.fs, implib)
			if err != nil {
				return SharedLibrary{}, false, fmt.Errorf("failed to check %s: %w", implib, err)
			}
			if !exists {
				continue
			}

			output, err := r.run(ctx, tool[0], append(tool[1:len(tool):len(tool)], implib)...)
			if err != nil {
				return SharedLibrary{}, false, err
			}

			if dll, ok := r.parse(output); ok {
				return SharedLibrary{Library: library, ImportLibrary: implib, DLL: dll}, true, nil
			}
		}
	}

	return SharedLibrary{}, false, nil
}

func (r *Resolver) parse(output string) (string, bool) {
	if r.profile.IsMSVC() {
		return ParseDumpbinSymbols(output)
	}
	return ParseDlltoolIdentify(output)
}

// run executes a tool and returns its standard output. A non-zero exit is
// logged and its output still parsed; failing to start is an error.
func (r *Resolver) run(ctx context.Context, name string, args ...string) (string, error) {
	logging.Trace().
		Add(logging.Component("resolver")).
		Add(logging.Command(name, args)).
		Msg("running")

	output, err := r.execCommand(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("failed to run %s: %w", name, err)
		}

		logging.Warn().
			Add(logging.Component("resolver")).
			Add(logging.Command(name, args)).
			Add(logging.ErrorField(err)).
			Msg("tool exited with an error")
	}

	return string(output), nil
}
