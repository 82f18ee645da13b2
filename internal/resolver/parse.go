package resolver

import (
	"strings"
)

const (
	searchDirsPrefix       = "libraries: "
	importDescriptorPrefix = "__IMPORT_DESCRIPTOR_"
)

// CandidateNames lists the import library file names tried for a library,
// covering GNU and MSVC naming, in search order.
func CandidateNames(library string) []string {
	return []string{
		"lib" + library + ".dll.a",
		"lib" + library + ".a",
		library + ".dll.a",
		library + ".a",
		library + ".lib",
	}
}

// ParseSearchDirs extracts the library search directories from the output
// of `cc -print-search-dirs`. Entries keep any leading '=' sysroot marker;
// see StripSysroot.
func ParseSearchDirs(output, separator string) []string {
	var dirs []string

	for _, line := range lines(output) {
		if rest, ok := strings.CutPrefix(line, searchDirsPrefix); ok {
			dirs = strings.Split(rest, separator)
		}
	}

	return dirs
}

// StripSysroot removes the leading '=' GCC uses for sysroot-relative
// search directories.
func StripSysroot(dir string) string {
	return strings.TrimPrefix(dir, "=")
}

// ParseDumpbinSymbols finds the DLL an MSVC import library refers to in
// the output of `dumpbin -symbols`. The DLL base name follows the
// __IMPORT_DESCRIPTOR_ symbol.
func ParseDumpbinSymbols(output string) (string, bool) {
	for _, line := range lines(output) {
		if !strings.Contains(line, importDescriptorPrefix) {
			continue
		}

		for _, field := range strings.Fields(line) {
			base, ok := strings.CutPrefix(field, importDescriptorPrefix)
			if ok && base != "" {
				return base + ".dll", true
			}
		}
	}

	return "", false
}

// ParseDlltoolIdentify returns the DLL name printed by
// `dlltool --identify`, which is the whole of its first line.
func ParseDlltoolIdentify(output string) (string, bool) {
	for _, line := range lines(output) {
		if line = strings.TrimSpace(line); line != "" {
			return line, true
		}
	}

	return "", false
}

func lines(output string) []string {
	out := strings.Split(output, "\n")
	for i, line := range out {
		out[i] = strings.TrimSuffix(line, "\r")
	}
	return out
}
