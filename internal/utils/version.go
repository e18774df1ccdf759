package utils

import (
	"fmt"
	"regexp"

	"github.com/hashicorp/go-version"
)

var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

/**
 * Parse a runtime version from interpreter output
 * @param {string} output - e.g. "Python 3.11.7" or "3.12.0"
 * @returns {*version.Version} Parsed version
 * @example
 * v, _ := ParseRuntimeVersion("Python 3.11.7")  // 3.11.7
 */
func ParseRuntimeVersion(output string) (*version.Version, error) {
	m := versionPattern.FindString(output)
	if m == "" {
		return nil, fmt.Errorf("no version in %q", output)
	}
	return version.NewVersion(m)
}

/**
 * Strict (major, minor) comparison
 * @param {*version.Version} v - Probed version
 * @param {string} minimum - "major.minor"
 * @returns {bool} True when (major, minor) of v >= minimum; patch and prerelease are ignored
 */
func MeetsMinimum(v *version.Version, minimum string) (bool, error) {
	min, err := version.NewVersion(minimum)
	if err != nil {
		return false, fmt.Errorf("invalid minimum version %q: %w", minimum, err)
	}
	vs := v.Segments()
	ms := min.Segments()
	if vs[0] != ms[0] {
		return vs[0] > ms[0], nil
	}
	return vs[1] >= ms[1], nil
}
