package layout

import (
	"debug/elf"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	gccVersionRegexp   = regexp.MustCompile(`(?:^|\x00)(GCC: \(GNU\) \d+\.\d+\.\d+)(?:\x00|$)`)
	clangVersionRegexp = regexp.MustCompile(`(?:^|\x00)(MongoDB clang version \d+\.\d+\.\d+)`)

	serverVersionRegexp = regexp.MustCompile(`db version v(\d+\.\d+\.\d+)`)
)

// DetectFingerprint computes the fingerprint of the named server
// executable from its ELF metadata: the .comment section identifies the
// compiler, the embedded version banner identifies the server release,
// and the presence of .debug_info marks a debug build.
//
// Missing pieces are left zero rather than failing: a stripped or
// cross-compiled binary still yields a usable partial fingerprint, and
// the Resolver reports UnsupportedVersion later for any fact that
// actually needed the missing piece.
func DetectFingerprint(path string) (Fingerprint, error) {
	f, err := elf.Open(path)
	if err != nil {
		return Fingerprint{}, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	var fp Fingerprint

	if s := f.Section(".comment"); s != nil {
		if data, err := s.Data(); err == nil {
			fp.Toolchain = parseToolchain(data)
		}
	}

	if s := f.Section(".rodata"); s != nil {
		if data, err := s.Data(); err == nil {
			if m := serverVersionRegexp.FindSubmatch(data); m != nil {
				if v, err := ParseVersion(string(m[1])); err == nil {
					fp.Server = v
				}
			}
		}
	}

	fp.DebugBuild = f.Section(".debug_info") != nil
	return fp, nil
}

// parseToolchain extracts the compiler identification from the raw ELF
// .comment section. A clang identification wins over the GCC one since
// libstdc++ leaves a GCC stamp in every binary regardless of the actual
// compiler.
func parseToolchain(comment []byte) string {
	if m := clangVersionRegexp.FindSubmatch(comment); m != nil {
		return string(m[1])
	}
	if m := gccVersionRegexp.FindSubmatch(comment); m != nil {
		return string(m[1])
	}
	return ""
}

// ToolchainSeries maps a compiler identification string to the MongoDB
// toolchain series ("v3", "v4", "v5") that shipped it. Returns false for
// compilers outside the known tables.
//
// The v3 series moved through GCC 8.2.0, 8.3.0, and 8.5.0; the v4 series
// through GCC 11.2.0 and 11.3.0. Binaries from any compiler of a series
// share that series' library layouts.
func ToolchainSeries(compiler string) (string, bool) {
	switch {
	case hasVersionSuffix(compiler, "8.5.0", "8.3.0", "8.2.0"):
		return "v3", true
	case hasVersionSuffix(compiler, "11.3.0", "11.2.0"):
		return "v4", true
	case hasVersionSuffix(compiler, "14.2.0"):
		return "v5", true
	case hasVersionSuffix(compiler, "7.0.1"):
		return "v3", true
	case hasVersionSuffix(compiler, "12.0.1"):
		return "v4", true
	case hasVersionSuffix(compiler, "19.1.7", "19.1.0"):
		return "v5", true
	}
	return "", false
}

func hasVersionSuffix(s string, versions ...string) bool {
	for _, v := range versions {
		if strings.HasSuffix(s, " "+v) {
			return true
		}
	}
	return false
}
