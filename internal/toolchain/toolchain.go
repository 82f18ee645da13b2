package toolchain

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/go-shellwords"

	"github.com/Norgate-AV/irscan/internal/logging"
)

// Family identifies a compiler family.
type Family int

const (
	// FamilyUnix is the generic Unix cc/gcc/clang toolchain.
	FamilyUnix Family = iota
	// FamilyMSVC is Microsoft Visual C++ (cl.exe, dumpbin.exe).
	FamilyMSVC
	// FamilyMinGW is GCC targeting Windows (gcc, dlltool.exe).
	FamilyMinGW
)

type familySpec struct {
	name          string
	compiler      string
	noDeprecation string
}

var families = map[Family]familySpec{
	FamilyUnix:  {name: "unix", compiler: "cc", noDeprecation: "-Wno-deprecated-declarations"},
	FamilyMSVC:  {name: "msvc", compiler: "cl.exe", noDeprecation: "-wd4996"},
	FamilyMinGW: {name: "mingw32", compiler: "gcc", noDeprecation: "-Wno-deprecated-declarations"},
}

// String returns the family name as accepted by ParseFamily.
func (f Family) String() string {
	if spec, ok := families[f]; ok {
		return spec.name
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// ParseFamily maps an explicit compiler name to a Windows family.
// Only the exact names msvc and mingw32 can be requested.
func ParseFamily(name string) (Family, error) {
	switch name {
	case "msvc":
		return FamilyMSVC, nil
	case "mingw32":
		return FamilyMinGW, nil
	}

	return 0, &UnsupportedCompilerError{Name: name}
}

// UnsupportedCompilerError is returned when an explicit compiler family
// cannot be used. It is a fatal configuration error.
type UnsupportedCompilerError struct {
	Name string
}

func (e *UnsupportedCompilerError) Error() string {
	return fmt.Sprintf("toolchain: specified compiler '%s' is unsupported", e.Name)
}

// Env is a snapshot of environment variables.
type Env map[string]string

// ParseEnv builds an Env from KEY=VALUE pairs as returned by os.Environ.
func ParseEnv(environ []string) Env {
	env := make(Env, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// OSEnv returns a snapshot of the process environment.
func OSEnv() Env {
	return ParseEnv(os.Environ())
}

// Options tune Detect beyond what the environment provides.
type Options struct {
	// Compiler explicitly selects a family on Windows: msvc or mingw32.
	Compiler string

	// DLLLibraries overrides the runtime import libraries MinGW links the
	// probe against. Only an explicit ["msvcrt"] is kept.
	DLLLibraries []string
}

// Profile describes the active compiler family and how to invoke it.
// It is immutable once returned by Detect.
type Profile struct {
	family       Family
	goos         string
	compiler     []string
	preprocessor []string
	ldflags      []string
	dllLibraries []string
	environ      []string
}

// Detect selects the compiler family for goos and builds its profile.
//
// On Windows the family is MinGW inside an MSYS MINGW32/MINGW64 shell and
// MSVC otherwise, unless opts.Compiler names one explicitly. An unknown
// explicit name returns *UnsupportedCompilerError. Every other platform
// uses the Unix family.
func Detect(env Env, goos string, opts Options) (*Profile, error) {
	family := FamilyUnix

	if goos == "windows" {
		if opts.Compiler == "" {
			family = FamilyMSVC
			if msys := env["MSYSTEM"]; msys == "MINGW32" || msys == "MINGW64" {
				family = FamilyMinGW
			}
		} else {
			f, err := ParseFamily(opts.Compiler)
			if err != nil {
				return nil, err
			}
			family = f
		}
	} else if opts.Compiler != "" {
		logging.Debug().
			Add(logging.Component("toolchain")).
			Add(logging.Str("compiler", opts.Compiler)).
			Msg("explicit compiler ignored outside Windows")
	}

	p := &Profile{family: family, goos: goos}

	if family == FamilyMSVC {
		p.compiler = []string{families[FamilyMSVC].compiler}
		p.environ = msvcEnviron(env)
	} else {
		if err := p.customize(env); err != nil {
			return nil, err
		}
	}

	if family == FamilyMinGW && isOnly(opts.DLLLibraries, "msvcrt") {
		p.dllLibraries = []string{"msvcrt"}
	}

	logging.Debug().
		Add(logging.Component("toolchain")).
		Add(logging.Str("family", family.String())).
		Add(logging.Command(p.CompilerCommand(), p.compiler[1:])).
		Msg("detected toolchain")

	return p, nil
}

// customize applies the CC, CFLAGS, CPP, CPPFLAGS and LDFLAGS overrides
// to a GCC-style family.
func (p *Profile) customize(env Env) error {
	cc := []string{families[p.family].compiler}
	if value := env["CC"]; value != "" {
		words, err := splitWords("CC", value)
		if err != nil {
			return err
		}
		if len(words) > 0 {
			cc = words
		}
	}

	cflags, err := splitWords("CFLAGS", env["CFLAGS"])
	if err != nil {
		return err
	}

	cppflags, err := splitWords("CPPFLAGS", env["CPPFLAGS"])
	if err != nil {
		return err
	}

	p.ldflags, err = splitWords("LDFLAGS", env["LDFLAGS"])
	if err != nil {
		return err
	}

	p.compiler = concat(cc, cflags, cppflags)

	cpp := concat(cc, []string{"-E"})
	if value := env["CPP"]; value != "" {
		words, err := splitWords("CPP", value)
		if err != nil {
			return err
		}
		if len(words) > 0 {
			cpp = words
		}
	}
	p.preprocessor = concat(cpp, cppflags)

	return nil
}

// msvcEnviron returns the markers telling MSVC build helpers to use the
// compiler environment of the current shell instead of locating an SDK.
func msvcEnviron(env Env) []string {
	environ := []string{"DISTUTILS_USE_SDK=1"}

	if _, ok := env["MSSdk"]; !ok {
		if dir, ok := env["WindowsSDKDir"]; ok {
			environ = append(environ, "MSSdk="+dir)
		} else if dir := env["VCInstallDir"]; dir != "" {
			environ = append(environ, "MSSdk="+dir)
		}
	}

	return environ
}

func splitWords(name, value string) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	words, err := shellwords.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("toolchain: failed to parse %s %q: %w", name, value, err)
	}

	return words, nil
}

func concat(parts ...[]string) []string {
	var out []string
	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}

func isOnly(values []string, want string) bool {
	return len(values) == 1 && values[0] == want
}

// Family returns the detected compiler family.
func (p *Profile) Family() Family {
	return p.family
}

// GOOS returns the platform the profile was detected for.
func (p *Profile) GOOS() string {
	return p.goos
}

// IsMSVC reports whether the profile uses Visual C++.
func (p *Profile) IsMSVC() bool {
	return p.family == FamilyMSVC
}

// IsWindows reports whether the probe links against Windows import
// libraries and therefore needs DLL resolution.
func (p *Profile) IsWindows() bool {
	return p.family == FamilyMSVC || p.family == FamilyMinGW
}

// CompilerCommand returns the compiler executable, used to query its
// library search directories.
func (p *Profile) CompilerCommand() string {
	return p.compiler[0]
}

// Compiler returns the full compiler invocation including flags.
func (p *Profile) Compiler() []string {
	return append([]string(nil), p.compiler...)
}

// Preprocessor returns the preprocessor invocation. It is empty for MSVC.
func (p *Profile) Preprocessor() []string {
	return append([]string(nil), p.preprocessor...)
}

// LDFlags returns extra linker flags taken from the environment.
func (p *Profile) LDFlags() []string {
	return append([]string(nil), p.ldflags...)
}

// DLLLibraries returns the runtime import libraries the probe links with.
func (p *Profile) DLLLibraries() []string {
	return append([]string(nil), p.dllLibraries...)
}

// NoDeprecationFlag returns the flag silencing deprecation warnings.
func (p *Profile) NoDeprecationFlag() string {
	return families[p.family].noDeprecation
}

// Environ returns KEY=VALUE entries to add to the environment of child
// processes started for this toolchain.
func (p *Profile) Environ() []string {
	return append([]string(nil), p.environ...)
}
