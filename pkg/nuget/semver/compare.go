package semver

import (
	"strings"

	"k8s.io/apimachinery/pkg/util/intstr"
)

// Compare returns <0, 0, or >0 as v is less than, equal to, or greater than other.
//
// Ordering:
//  1. Compare release components numerically left to right; missing trailing
//     components are treated as 0 (so 1.0 = 1.0.0 = 1.0.0.0).
//  2. A version with prerelease is less than the same version without prerelease.
//  3. Otherwise compare prerelease identifier lists left to right,
//     identifier-by-identifier: numeric vs numeric by numeric value; numeric <
//     alphanumeric; alphanumeric vs alphanumeric by ASCII order. Shorter list is less
//     when all shared identifiers are equal.
//  4. Build metadata is ignored.
func (v Version) Compare(other Version) int {
	if c := cmpRelease(v.release, other.release); c != 0 {
		return c
	}
	return cmpPrerelease(v.prerelease, other.prerelease)
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// Equal reports whether v and other compare equal (build metadata ignored).
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

func cmpRelease(a, b []string) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai := releaseSegment(a, i)
		bi := releaseSegment(b, i)
		if c := cmpDigitStrings(ai, bi); c != 0 {
			return c
		}
	}
	return 0
}

// releaseSegment returns the i'th release component of release, or "0" if release has
// no such index (missing trailing components are treated as 0).
func releaseSegment(release []string, i int) string {
	if i >= len(release) {
		return "0"
	}
	return release[i]
}

// cmpDigitStrings compares two non-negative integers given as digit strings that may
// carry leading zeros, without converting to a machine integer.
func cmpDigitStrings(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func cmpPrerelease(a, b []intstr.IntOrString) int {
	aHas, bHas := len(a) > 0, len(b) > 0
	switch {
	case !aHas && !bHas:
		return 0
	case aHas && !bHas:
		// A version with prerelease is less than the same version without.
		return -1
	case !aHas && bHas:
		return 1
	}

	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := cmpIdentifier(a[i], b[i]); c != 0 {
			return c
		}
	}
	// Shorter list is less when all shared identifiers are equal.
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func cmpIdentifier(a, b intstr.IntOrString) int {
	aNum, bNum := a.Type == intstr.Int, b.Type == intstr.Int
	switch {
	case aNum && bNum:
		return a.IntVal - b.IntVal
	case aNum && !bNum:
		// numeric < alphanumeric
		return -1
	case !aNum && bNum:
		return 1
	default:
		return strings.Compare(a.StrVal, b.StrVal)
	}
}
