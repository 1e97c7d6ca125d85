// Package version reports the program version and checks the Go runtime
// the binary was built with.
package version

import (
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Program is the binary name.
const Program = "dbobject"

// Build information, set at build time via ldflags.
var (
	// Version is the semantic version.
	Version = "0.4.0"

	// CommitHash is the git commit the binary was built from.
	CommitHash = "dev"
)

// Runtime requirements: the oldest Go release that works and the one the
// code has been tested on.
const (
	RequiredGo = "1.25"
	TestedGo   = "1.25"
)

// String joins version parts with dots.
func String(parts ...int) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = strconv.Itoa(p)
	}
	return strings.Join(s, ".")
}

// Display prints "<program> <version>" to w.
func Display(w io.Writer, program string) {
	fmt.Fprintf(w, "%s %s\n", program, Version)
}

// Log writes the program version to log at info level.
func Log(log *zap.SugaredLogger, program string) {
	log.Infow("version", "program", program, "version", Version, "commit", CommitHash)
}

// CheckRuntime fails when the running Go release is older than required.
// A release other than tested is logged but accepted.
func CheckRuntime(log *zap.SugaredLogger, program, required, tested string) error {
	return checkRuntime(log, runtime.Version(), program, required, tested)
}

func checkRuntime(log *zap.SugaredLogger, goVersion, program, required, tested string) error {
	current, err := goSemver(goVersion)
	if err != nil {
		// Development toolchains ("devel go1.26-abcdef") carry no release.
		log.Debugw("skipping runtime check", "go", goVersion)
		return nil
	}

	constraint, err := semver.NewConstraint(">= " + required)
	if err != nil {
		return errors.Wrapf(err, "invalid required Go version %s", required)
	}
	if !constraint.Check(current) {
		return errors.Newf("%s requires Go %s or greater, running %s", program, required, goVersion)
	}

	testedVer, err := semver.NewVersion(tested)
	if err != nil {
		return errors.Wrapf(err, "invalid tested Go version %s", tested)
	}
	if current.Major() != testedVer.Major() || current.Minor() != testedVer.Minor() {
		log.Infow("untested Go release", "program", program, "tested", tested, "running", goVersion)
	}
	return nil
}

// goSemver parses "go1.25.1" style release names. Pre-release tags
// ("go1.26rc1") are dropped so the release compares as its final version.
func goSemver(v string) (*semver.Version, error) {
	if !strings.HasPrefix(v, "go") {
		return nil, errors.Newf("not a release: %s", v)
	}
	v = strings.TrimPrefix(v, "go")
	for _, tag := range []string{"rc", "beta"} {
		if i := strings.Index(v, tag); i > 0 {
			v = v[:i]
			break
		}
	}
	return semver.NewVersion(v)
}
