// Package version provides the build version, set at link time with
// -ldflags "-X github.com/effective-security/xpgp/internal/version.Build=..."
package version

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

var (
	// Build is the semver of the build
	Build = "v0.0.0"
	// Commit is the git commit
	Commit = "dev"
)

// Info describes the version
type Info struct {
	Build   string `json:"build"`
	Commit  string `json:"commit"`
	Runtime string `json:"runtime"`
	Major   uint   `json:"-"`
	Minor   uint   `json:"-"`
	Patch   uint   `json:"-"`
}

// String returns the version as "v1.2.3 (commit, go1.26)"
func (v Info) String() string {
	return fmt.Sprintf("%s (%s, %s)", v.Build, v.Commit, v.Runtime)
}

// Current returns the version of the build
func Current() Info {
	v := Info{
		Build:   Build,
		Commit:  Commit,
		Runtime: runtime.Version(),
	}
	parts := strings.SplitN(strings.TrimPrefix(Build, "v"), ".", 3)
	nums := []*uint{&v.Major, &v.Minor, &v.Patch}
	for i, p := range parts {
		p, _, _ = strings.Cut(p, "-")
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			break
		}
		*nums[i] = uint(n)
	}
	return v
}
