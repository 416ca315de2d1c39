// Package version compares PHP and WordPress style version strings.
//
// Versions such as "5.2", "6.5-RC1", "8.3.0RC1" or "7.4.33-1+ubuntu20.04" are
// normalized into semantic versions before comparison. Numeric segments are
// compared left to right with missing segments treated as zero, and a stability
// suffix (dev, alpha, beta, RC) sorts below the same numeric version without one.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/blang/semver/v4"
)

// ErrMalformed is returned for strings that do not start with a numeric version.
var ErrMalformed = errors.New("version: malformed")

var (
	numericPattern = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?((?:\.\d+)*)(.*)$`)
	// A bare "a", "b" or "p" only counts when followed by digits or the end.
	// WordPress nightlies append a build number and "-src" ("6.5-beta2-57884-src").
	stabilityPattern = regexp.MustCompile(`^(?i)(dev|alpha|beta|rc|pl|a|b|p)\.?(\d*)(?:-\d+)?(?:-src)?$`)
	// Distribution revisions such as "-1+ubuntu20.04" or "-1ubuntu2.14".
	distroPattern = regexp.MustCompile(`^-\d+(?:[+~A-Za-z][0-9A-Za-z.+~-]*)?$`)
)

// Stability ranks, lowest first. A release has no pre-release identifiers so it
// sorts above all of them.
var stabilityRank = map[string]uint64{
	"dev":   0,
	"alpha": 1,
	"a":     1,
	"beta":  2,
	"b":     2,
	"rc":    3,
}

// Parse normalizes s into a semantic version. Numeric segments past the third
// are validated but not represented; Compare takes them into account.
func Parse(s string) (semver.Version, error) {
	v, _, err := parse(s)
	return v, err
}

func parse(s string) (semver.Version, []uint64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	m := numericPattern.FindStringSubmatch(s)
	if m == nil {
		return semver.Version{}, nil, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	var v semver.Version
	for i, dst := range []*uint64{&v.Major, &v.Minor, &v.Patch} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseUint(m[i+1], 10, 64)
		if err != nil {
			return semver.Version{}, nil, fmt.Errorf("%w: %q: %v", ErrMalformed, s, err)
		}
		*dst = n
	}

	var extra []uint64
	if m[4] != "" {
		for _, seg := range strings.Split(m[4][1:], ".") {
			n, err := strconv.ParseUint(seg, 10, 64)
			if err != nil {
				return semver.Version{}, nil, fmt.Errorf("%w: %q: %v", ErrMalformed, s, err)
			}
			extra = append(extra, n)
		}
	}

	suffix := m[5]
	if suffix == "" || distroPattern.MatchString(suffix) {
		return v, extra, nil
	}

	sm := stabilityPattern.FindStringSubmatch(strings.TrimLeft(suffix, "-_.+"))
	if sm == nil {
		return semver.Version{}, nil, fmt.Errorf("%w: %q: unknown suffix %q", ErrMalformed, s, suffix)
	}
	rank, ok := stabilityRank[strings.ToLower(sm[1])]
	if !ok {
		// "pl" / "p" patch levels count as the release itself.
		return v, extra, nil
	}
	var num uint64
	if sm[2] != "" {
		n, err := strconv.ParseUint(sm[2], 10, 64)
		if err != nil {
			return semver.Version{}, nil, fmt.Errorf("%w: %q: %v", ErrMalformed, s, err)
		}
		num = n
	}
	v.Pre = []semver.PRVersion{
		{VersionNum: rank, IsNum: true},
		{VersionNum: num, IsNum: true},
	}
	return v, extra, nil
}

// Compare returns -1, 0 or 1 as a is older than, equal to or newer than b.
// Numeric segments are compared left to right before any stability suffix.
func Compare(a, b string) (int, error) {
	va, xa, err := parse(a)
	if err != nil {
		return 0, err
	}
	vb, xb, err := parse(b)
	if err != nil {
		return 0, err
	}

	core := func(v semver.Version) semver.Version {
		return semver.Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
	}
	if c := core(va).Compare(core(vb)); c != 0 {
		return c, nil
	}
	for i := 0; i < len(xa) || i < len(xb); i++ {
		var sa, sb uint64
		if i < len(xa) {
			sa = xa[i]
		}
		if i < len(xb) {
			sb = xb[i]
		}
		switch {
		case sa < sb:
			return -1, nil
		case sa > sb:
			return 1, nil
		}
	}
	return va.Compare(vb), nil
}

// AtLeast reports whether current >= minimum. Any parse error is returned
// alongside false so callers fail closed.
func AtLeast(current, minimum string) (bool, error) {
	c, err := Compare(current, minimum)
	if err != nil {
		return false, err
	}
	return c >= 0, nil
}
