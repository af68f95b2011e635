package layout

import (
	"fmt"
	"regexp"
	"strconv"
)

// Version is a server release triple.
type Version struct {
	Major, Minor, Patch int
}

var versionRegexp = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)$`)

// ParseVersion parses "6.0.5" or "v6.0.5".
func ParseVersion(s string) (Version, error) {
	m := versionRegexp.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("malformed version %q", s)
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])
	return Version{major, minor, patch}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// IsZero reports whether the version is unset.
func (v Version) IsZero() bool { return v == Version{} }

// AtLeast reports whether v >= major.minor.0.
func (v Version) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// Before reports whether v < major.minor.0.
func (v Version) Before(major, minor int) bool {
	return !v.AtLeast(major, minor)
}

// Fingerprint identifies one build of the server binary. It is computed
// once per attach or core load and never changes for the session.
type Fingerprint struct {
	// Server is the release triple, e.g. 6.0.5.
	Server Version

	// Toolchain is the compiler identification string from the binary,
	// e.g. "GCC: (GNU) 11.3.0" or "MongoDB clang version 12.0.1".
	// Empty if detection failed.
	Toolchain string

	// DebugBuild reports whether the binary carries debug info.
	DebugBuild bool
}

func (fp Fingerprint) String() string {
	tc := fp.Toolchain
	if tc == "" {
		tc = "unknown toolchain"
	}
	s := fmt.Sprintf("server %s, %s", fp.Server, tc)
	if fp.DebugBuild {
		s += ", debug"
	}
	return s
}
