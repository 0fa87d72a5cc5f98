// Package semver implements the SemVer 2.0 grammar as extended by NuGet: up to four
// numeric release components, an optional dot-separated prerelease, and optional build
// metadata.
//
// https://semver.org/
// https://learn.microsoft.com/en-us/nuget/concepts/package-versioning
//
// This is modeled after the house treatment of PEP 440 in pkg/python/pep440: spec prose
// kept inline as comments above the code that implements it, and a Cmp method that
// chains independent sub-comparisons left to right.
package semver

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/datawire/nugetrepo/pkg/nuget/ngerrors"
)

// Version is a parsed SemVer-2.0-with-NuGet-extensions version string.
//
// Release components are kept as the original (leading-zero-tolerant) digit strings
// from the input; Normalized() strips leading zeros and a trailing zero fourth
// component. They are not stored as a machine integer type because the grammar commits
// to "arbitrary-precision non-negative integers" and nothing upstream bounds the number
// of digits a release component may carry.
type Version struct {
	original   string
	release    []string // 2-4 elements, digit strings, leading zeros as typed by the user
	prerelease []intstr.IntOrString
	build      []string
}

// release = num *( "." num ), 2-4 components.
// num = "0" / NONZERO *DIGIT, after normalization; leading zeros are tolerated on input
// and stripped on normalization.
// prerelease = ident *( "." ident ), ident = 1*(ALPHA / DIGIT / "-"); a purely numeric
// ident must not have leading zeros.
// build = ident *( "." ident ), same character class as prerelease, ignored in ordering.

// Parse validates s against the grammar above and returns the parsed Version.
func Parse(s string) (Version, error) {
	v := Version{original: s}

	rest := s
	build := ""
	hasBuild := false
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		build, rest = rest[i+1:], rest[:i]
		hasBuild = true
	}

	prerelease := ""
	hasPrerelease := false
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		prerelease, rest = rest[i+1:], rest[:i]
		hasPrerelease = true
	}

	release, err := parseRelease(rest)
	if err != nil {
		return Version{}, invalid(s, err)
	}
	v.release = release

	if hasPrerelease {
		ids, err := parseIdentifiers(prerelease, true)
		if err != nil {
			return Version{}, invalid(s, err)
		}
		if len(ids) == 0 {
			return Version{}, invalid(s, fmt.Errorf("empty prerelease"))
		}
		v.prerelease = make([]intstr.IntOrString, 0, len(ids))
		for _, id := range ids {
			v.prerelease = append(v.prerelease, identToIntOrString(id))
		}
	}

	if hasBuild {
		ids, err := parseIdentifiers(build, false)
		if err != nil {
			return Version{}, invalid(s, err)
		}
		v.build = ids
	}

	return v, nil
}

func invalid(s string, cause error) error {
	return &ngerrors.InvalidVersion{Value: s, Cause: cause}
}

func parseRelease(s string) ([]string, error) {
	if s == "" {
		return nil, fmt.Errorf("empty release")
	}
	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 4 {
		return nil, fmt.Errorf("release must have 2-4 components, got %d", len(parts))
	}
	for _, p := range parts {
		if p == "" || !isDigits(p) {
			return nil, fmt.Errorf("release component %q is not a non-negative integer", p)
		}
	}
	return parts, nil
}

func parseIdentifiers(s string, rejectLeadingZero bool) ([]string, error) {
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("empty identifier")
		}
		for _, r := range p {
			if !isIdentChar(r) {
				return nil, fmt.Errorf("identifier %q contains invalid character %q", p, r)
			}
		}
		if rejectLeadingZero && isDigits(p) && len(p) > 1 && p[0] == '0' {
			return nil, fmt.Errorf("numeric identifier %q has a leading zero", p)
		}
	}
	return parts, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isIdentChar(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || r == '-'
}

func identToIntOrString(id string) intstr.IntOrString {
	if isDigits(id) {
		// Prerelease identifiers are short by grammar (no leading zeros, and in
		// practice a handful of digits); unlike release components this doesn't need
		// arbitrary precision, so intstr.FromInt's int32 bound is acceptable.
		n := 0
		for _, r := range id {
			n = n*10 + int(r-'0')
		}
		return intstr.FromInt(n)
	}
	return intstr.FromString(id)
}

// Normalized returns the canonical representation: release components without leading
// zeros, a trailing zero fourth component dropped, build metadata removed, prerelease
// preserved verbatim.
func (v Version) Normalized() string {
	var b strings.Builder
	release := normalizedRelease(v.release)
	b.WriteString(strings.Join(release, "."))
	if len(v.prerelease) > 0 {
		b.WriteByte('-')
		parts := make([]string, len(v.prerelease))
		for i, id := range v.prerelease {
			parts[i] = intOrStringString(id)
		}
		b.WriteString(strings.Join(parts, "."))
	}
	return b.String()
}

func normalizedRelease(release []string) []string {
	out := make([]string, len(release))
	for i, p := range release {
		out[i] = strings.TrimLeft(p, "0")
		if out[i] == "" {
			out[i] = "0"
		}
	}
	// A trailing zero fourth component is dropped: 1.0.0.0 -> 1.0.0.
	if len(out) == 4 && out[3] == "0" {
		out = out[:3]
	}
	return out
}

func intOrStringString(v intstr.IntOrString) string {
	if v.Type == intstr.String {
		return v.StrVal
	}
	return fmt.Sprintf("%d", v.IntVal)
}

// String returns the original, unnormalized input form.
func (v Version) String() string {
	return v.original
}

// IsZero reports whether v is the zero Version (never produced by Parse).
func (v Version) IsZero() bool {
	return v.release == nil
}
