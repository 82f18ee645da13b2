package toolchain

import (
	"path/filepath"
	"strings"
)

// Library is a library to link the probe against.
type Library struct {
	// Name is either a bare library name or a libtool archive path.
	Name string
	// Libtool is set for .la archives, which are passed through verbatim.
	Libtool bool
}

// ParseLibrary classifies a library name.
func ParseLibrary(name string) Library {
	return Library{Name: name, Libtool: strings.HasSuffix(name, ".la")}
}

// Decorate returns the linker argument for the library under family.
func (l Library) Decorate(family Family) string {
	switch {
	case l.Libtool:
		return l.Name
	case family == FamilyMSVC:
		return l.Name + ".lib"
	default:
		return "-l" + l.Name
	}
}

// InternalLinkFlags returns the link arguments for a library built in the
// current tree and not yet installed.
//
// GCC-style families search the current directory first and embed an rpath
// for it and for every absolute library path; unless the link goes through
// libtool, --no-as-needed keeps references the probe does not call
// directly. MSVC gets only the decorated libraries.
func (p *Profile) InternalLinkFlags(libraries, libraryPaths []string, libtool bool) []string {
	var args []string

	if !p.IsMSVC() {
		args = append(args, "-L.")

		if !libtool {
			args = append(args, "-Wl,-rpath=.", "-Wl,--no-as-needed")
		}
	}

	args = append(args, p.decorate(libraries)...)

	if p.IsMSVC() {
		return args
	}

	for _, path := range libraryPaths {
		args = append(args, "-L"+path)

		if p.isAbs(path) {
			if libtool {
				args = append(args, "-rpath", path)
			} else {
				args = append(args, "-Wl,-rpath="+path)
			}
		}
	}

	return args
}

// isAbs reports whether path is absolute for the profile's platform. On
// Windows a rooted path without a drive, such as /mingw64/lib, counts.
func (p *Profile) isAbs(path string) bool {
	if filepath.IsAbs(path) {
		return true
	}
	return p.goos == "windows" && (strings.HasPrefix(path, "/") || strings.HasPrefix(path, `\`))
}

// ExternalLinkFlags returns the link arguments for a library installed on
// the system, which the linker finds on its default search path.
func (p *Profile) ExternalLinkFlags(libraries []string) []string {
	return p.decorate(libraries)
}

func (p *Profile) decorate(libraries []string) []string {
	args := make([]string, 0, len(libraries))
	for _, name := range libraries {
		args = append(args, ParseLibrary(name).Decorate(p.family))
	}
	return args
}
