package toolchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_Family(t *testing.T) {
	tests := []struct {
		name     string
		env      Env
		goos     string
		compiler string
		want     Family
	}{
		{"linux is unix", Env{}, "linux", "", FamilyUnix},
		{"darwin is unix", Env{}, "darwin", "", FamilyUnix},
		{"override ignored outside windows", Env{}, "linux", "msvc", FamilyUnix},
		{"msys marker ignored outside windows", Env{"MSYSTEM": "MINGW64"}, "freebsd", "", FamilyUnix},
		{"windows defaults to msvc", Env{}, "windows", "", FamilyMSVC},
		{"msys mingw32", Env{"MSYSTEM": "MINGW32"}, "windows", "", FamilyMinGW},
		{"msys mingw64", Env{"MSYSTEM": "MINGW64"}, "windows", "", FamilyMinGW},
		{"msys shell is not mingw", Env{"MSYSTEM": "MSYS"}, "windows", "", FamilyMSVC},
		{"explicit msvc wins over msys", Env{"MSYSTEM": "MINGW64"}, "windows", "msvc", FamilyMSVC},
		{"explicit mingw32", Env{}, "windows", "mingw32", FamilyMinGW},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Detect(tt.env, tt.goos, Options{Compiler: tt.compiler})
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Family())
			assert.Equal(t, tt.want == FamilyMSVC, p.IsMSVC())
			assert.Equal(t, tt.goos, p.GOOS())
		})
	}
}

func TestDetect_UnsupportedCompiler(t *testing.T) {
	for _, name := range []string{"unix", "clang", "bcpp", "mingw", "MinGW32", "MSVC"} {
		t.Run(name, func(t *testing.T) {
			p, err := Detect(Env{}, "windows", Options{Compiler: name})
			require.Error(t, err)
			assert.Nil(t, p)

			var unsupported *UnsupportedCompilerError
			require.ErrorAs(t, err, &unsupported)
			assert.Equal(t, name, unsupported.Name)
			assert.Contains(t, err.Error(), "'"+name+"' is unsupported")
		})
	}
}

func TestDetect_MSVC(t *testing.T) {
	p, err := Detect(Env{"CC": "clang", "WindowsSDKDir": `C:\SDK`}, "windows", Options{})
	require.NoError(t, err)

	assert.Equal(t, "cl.exe", p.CompilerCommand())
	assert.Equal(t, []string{"cl.exe"}, p.Compiler(), "CC is not applied to MSVC")
	assert.Equal(t, "-wd4996", p.NoDeprecationFlag())
	assert.Empty(t, p.Preprocessor())
	assert.True(t, p.IsWindows())
	assert.Equal(t, []string{"DISTUTILS_USE_SDK=1", `MSSdk=C:\SDK`}, p.Environ())
}

func TestMSVCEnviron(t *testing.T) {
	tests := []struct {
		name string
		env  Env
		want []string
	}{
		{"existing MSSdk is kept", Env{"MSSdk": `C:\Existing`, "WindowsSDKDir": `C:\SDK`}, []string{"DISTUTILS_USE_SDK=1"}},
		{"sdk dir preferred", Env{"WindowsSDKDir": `C:\SDK`, "VCInstallDir": `C:\VC`}, []string{"DISTUTILS_USE_SDK=1", `MSSdk=C:\SDK`}},
		{"vc install dir fallback", Env{"VCInstallDir": `C:\VC`}, []string{"DISTUTILS_USE_SDK=1", `MSSdk=C:\VC`}},
		{"empty vc install dir ignored", Env{"VCInstallDir": ""}, []string{"DISTUTILS_USE_SDK=1"}},
		{"nothing known", Env{}, []string{"DISTUTILS_USE_SDK=1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, msvcEnviron(tt.env))
		})
	}
}

func TestDetect_Unix(t *testing.T) {
	p, err := Detect(Env{}, "linux", Options{})
	require.NoError(t, err)

	assert.Equal(t, "cc", p.CompilerCommand())
	assert.Equal(t, []string{"cc", "-E"}, p.Preprocessor())
	assert.Equal(t, "-Wno-deprecated-declarations", p.NoDeprecationFlag())
	assert.Empty(t, p.Environ())
	assert.False(t, p.IsWindows())
}

func TestDetect_EnvironmentCustomization(t *testing.T) {
	env := Env{
		"CC":       "ccache gcc-13",
		"CFLAGS":   `-O2 -DNAME="a b"`,
		"CPPFLAGS": "-I/opt/include",
		"LDFLAGS":  "-Wl,-z,relro",
	}

	p, err := Detect(env, "linux", Options{})
	require.NoError(t, err)

	assert.Equal(t, "ccache", p.CompilerCommand())
	assert.Equal(t, []string{"ccache", "gcc-13", "-O2", "-DNAME=a b", "-I/opt/include"}, p.Compiler())
	assert.Equal(t, []string{"ccache", "gcc-13", "-E", "-I/opt/include"}, p.Preprocessor())
	assert.Equal(t, []string{"-Wl,-z,relro"}, p.LDFlags())
}

func TestDetect_ExplicitPreprocessor(t *testing.T) {
	p, err := Detect(Env{"CPP": "cpp -P"}, "linux", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"cpp", "-P"}, p.Preprocessor())
}

func TestDetect_BadQuoting(t *testing.T) {
	_, err := Detect(Env{"CFLAGS": `-DX="unterminated`}, "linux", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CFLAGS")
}

func TestDetect_MinGW(t *testing.T) {
	p, err := Detect(Env{"MSYSTEM": "MINGW64"}, "windows", Options{})
	require.NoError(t, err)

	assert.Equal(t, "gcc", p.CompilerCommand())
	assert.Equal(t, []string{"gcc", "-E"}, p.Preprocessor())
	assert.Equal(t, "-Wno-deprecated-declarations", p.NoDeprecationFlag())
	assert.Empty(t, p.DLLLibraries())
	assert.True(t, p.IsWindows())
}

func TestDetect_MinGWDLLLibraries(t *testing.T) {
	tests := []struct {
		name string
		libs []string
		want []string
	}{
		{"default is empty", nil, nil},
		{"msvcrt alone is kept", []string{"msvcrt"}, []string{"msvcrt"}},
		{"versioned runtime dropped", []string{"msvcr100"}, nil},
		{"msvcrt with others dropped", []string{"msvcrt", "ucrt"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Detect(Env{}, "windows", Options{Compiler: "mingw32", DLLLibraries: tt.libs})
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.DLLLibraries())
		})
	}
}

func TestProfile_AccessorsReturnCopies(t *testing.T) {
	p, err := Detect(Env{"CFLAGS": "-g"}, "linux", Options{})
	require.NoError(t, err)

	args := p.Compiler()
	args[0] = "mutated"
	assert.Equal(t, "cc", p.CompilerCommand())
}

func TestParseEnv(t *testing.T) {
	env := ParseEnv([]string{"HOME=/home/user", "EMPTY=", "EQ=a=b", "=C:=C:\\", "junk"})

	assert.Equal(t, "/home/user", env["HOME"])
	assert.Equal(t, "", env["EMPTY"])
	assert.Equal(t, "a=b", env["EQ"])
	assert.Len(t, env, 3)
}

func TestFamilyString(t *testing.T) {
	assert.Equal(t, "unix", FamilyUnix.String())
	assert.Equal(t, "msvc", FamilyMSVC.String())
	assert.Equal(t, "mingw32", FamilyMinGW.String())
	assert.Equal(t, "Family(42)", Family(42).String())
}
