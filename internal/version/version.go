// Package version exposes fsma's own semantic version, parsed once at
// init so callers can check compatibility constraints against it.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// String is the module's semantic version.
const String = "0.1.0"

var parsed = semver.MustParse(String)

// Current returns the parsed module version.
func Current() *semver.Version {
	return parsed
}

// Satisfies reports whether the module version satisfies a semver
// constraint such as ">= 0.1.0, < 1.0.0".
func Satisfies(constraint string) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("version: bad constraint %q: %w", constraint, err)
	}

	return c.Check(parsed), nil
}
