package compiler

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/irscan/internal/toolchain"
)

// mockCommander implements Commander interface for testing
type mockCommander struct {
	runFunc func() error
}

func (m *mockCommander) Run() error {
	return m.runFunc()
}

func detect(t *testing.T, env toolchain.Env, goos, compiler string) *toolchain.Profile {
	t.Helper()
	p, err := toolchain.Detect(env, goos, toolchain.Options{Compiler: compiler})
	require.NoError(t, err)
	return p
}

func TestBuildCommandArgs(t *testing.T) {
	source, err := filepath.Abs("probe.c")
	require.NoError(t, err)

	abs := t.TempDir()

	tests := []struct {
		name    string
		profile *toolchain.Profile
		opts    ProbeOptions
		want    []string
	}{
		{
			name:    "unix internal",
			profile: detect(t, toolchain.Env{}, "linux", ""),
			opts:    ProbeOptions{Source: "probe.c", Output: "probe", Libraries: []string{"foo"}, LibraryPaths: []string{"sub", abs}},
			want: []string{
				"cc", "-Wno-deprecated-declarations", "-o", "probe", source,
				"-L.", "-Wl,-rpath=.", "-Wl,--no-as-needed", "-lfoo",
				"-Lsub", "-L" + abs, "-Wl,-rpath=" + abs,
			},
		},
		{
			name:    "unix external",
			profile: detect(t, toolchain.Env{}, "linux", ""),
			opts:    ProbeOptions{Source: "probe.c", Output: "probe", Libraries: []string{"foo", "libbar.la"}, External: true},
			want:    []string{"cc", "-Wno-deprecated-declarations", "-o", "probe", source, "-lfoo", "libbar.la"},
		},
		{
			name:    "unix environment flags",
			profile: detect(t, toolchain.Env{"CC": "gcc-13", "CFLAGS": "-O2", "LDFLAGS": "-Wl,-z,now"}, "linux", ""),
			opts:    ProbeOptions{Source: "probe.c", Output: "probe", Libraries: []string{"foo"}, External: true},
			want:    []string{"gcc-13", "-O2", "-Wno-deprecated-declarations", "-o", "probe", source, "-lfoo", "-Wl,-z,now"},
		},
		{
			name:    "libtool link",
			profile: detect(t, toolchain.Env{}, "linux", ""),
			opts:    ProbeOptions{Source: "probe.c", Output: "probe", Libraries: []string{"libfoo.la"}, LibraryPaths: []string{abs}, Libtool: []string{"/bin/sh", "./libtool"}},
			want: []string{
				"/bin/sh", "./libtool", "--mode=link",
				"cc", "-Wno-deprecated-declarations", "-o", "probe", source,
				"-L.", "libfoo.la", "-L" + abs, "-rpath", abs,
			},
		},
		{
			name:    "msvc",
			profile: detect(t, toolchain.Env{}, "windows", "msvc"),
			opts:    ProbeOptions{Source: "probe.c", Output: "probe.exe", Libraries: []string{"foo"}, LibraryPaths: []string{abs}},
			want:    []string{"cl.exe", "-wd4996", "-Feprobe.exe", source, "foo.lib"},
		},
		{
			name: "mingw with msvcrt",
			profile: func() *toolchain.Profile {
				p, err := toolchain.Detect(toolchain.Env{}, "windows", toolchain.Options{Compiler: "mingw32", DLLLibraries: []string{"msvcrt"}})
				require.NoError(t, err)
				return p
			}(),
			opts: ProbeOptions{Source: "probe.c", Output: "probe.exe", Libraries: []string{"foo"}, External: true},
			want: []string{"gcc", "-Wno-deprecated-declarations", "-o", "probe.exe", source, "-lfoo", "-lmsvcrt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildCommandArgs(tt.profile, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildCommandArgs_NoSource(t *testing.T) {
	_, err := BuildCommandArgs(detect(t, toolchain.Env{}, "linux", ""), ProbeOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no probe source")
}

func TestDefaultOutput(t *testing.T) {
	assert.Equal(t, "dir/probe", DefaultOutput(detect(t, toolchain.Env{}, "linux", ""), "dir/probe.c"))
	assert.Equal(t, "dir/probe.exe", DefaultOutput(detect(t, toolchain.Env{}, "windows", ""), "dir/probe.c"))
}

func TestGetProbeCommand(t *testing.T) {
	profile := detect(t, toolchain.Env{"WindowsSDKDir": `C:\SDK`}, "windows", "msvc")

	cmd, err := GetProbeCommand(profile, ProbeOptions{Source: "probe.c", Libraries: []string{"foo"}})
	require.NoError(t, err)

	assert.Equal(t, "cl.exe", cmd.Path)
	assert.Equal(t, []string{"DISTUTILS_USE_SDK=1", `MSSdk=C:\SDK`}, cmd.Env)
	require.NotEmpty(t, cmd.Args)
	assert.Equal(t, "foo.lib", cmd.Args[len(cmd.Args)-1])
	assert.Contains(t, cmd.String(), "cl.exe -wd4996 -Fe")
}

func TestCommandBuilder_ExecuteCommand_Success(t *testing.T) {
	cb := NewCommandBuilder()

	var got *ShellCommand
	cb.execCommand = func(_ context.Context, command *ShellCommand) Commander {
		got = command
		return &mockCommander{runFunc: func() error { return nil }}
	}

	command := &ShellCommand{Path: "cc", Args: []string{"-o", "probe", "probe.c"}}
	require.NoError(t, cb.ExecuteCommand(context.Background(), command))
	assert.Same(t, command, got)
}

func TestCommandBuilder_ExecuteCommand_NonExitError(t *testing.T) {
	cb := NewCommandBuilder()

	cb.execCommand = func(context.Context, *ShellCommand) Commander {
		return &mockCommander{runFunc: func() error { return exec.ErrNotFound }}
	}

	err := cb.ExecuteCommand(context.Background(), &ShellCommand{Path: "nonexistent"})
	require.Error(t, err)
	assert.ErrorIs(t, err, exec.ErrNotFound)
	assert.Contains(t, err.Error(), "failed to run nonexistent")
}

func TestCommandBuilder_ExecuteCommand_ExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	var out bytes.Buffer
	cb := NewCommandBuilder()
	cb.output = &out

	err := cb.ExecuteCommand(context.Background(), &ShellCommand{
		Path: "sh",
		Args: []string{"-c", "echo $PROBE_MARKER; exit 3"},
		Env:  []string{"PROBE_MARKER=linked"},
	})
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode())
	assert.Contains(t, err.Error(), "exit code 3")
	assert.Equal(t, "linked\n", out.String())
}

func TestCommandBuilder_PrintBuildInfo(t *testing.T) {
	cb := NewCommandBuilder()
	opts := ProbeOptions{Source: "probe.c", Libraries: []string{"foo"}, LibraryPaths: []string{"/opt/lib"}}
	command := &ShellCommand{Path: "cc", Args: []string{"-o", "probe", "probe.c", "-lfoo"}}

	var out bytes.Buffer
	cb.PrintBuildInfo(&out, "unix", opts, command)

	output := out.String()
	assert.Contains(t, output, "Toolchain: unix")
	assert.Contains(t, output, "probe.c")
	assert.Contains(t, output, "[foo]")
	assert.Contains(t, output, "/opt/lib")
	assert.Contains(t, output, "Command: cc -o probe probe.c -lfoo")
}

func TestNewCommandBuilder(t *testing.T) {
	cb := NewCommandBuilder()
	assert.NotNil(t, cb)
	assert.NotNil(t, cb.execCommand)
}
