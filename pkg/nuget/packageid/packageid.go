// Package packageid defines the PackageId and PackageIdentity value types and the
// storage keys derived from them.
//
// Modeled after the value type style of the house git.Hash type: validation up front
// (here in Parse) and deterministic derived accessors. PackageId holds the original
// and the lower-cased form of the id.
package packageid

import (
	"fmt"
	"strings"

	"github.com/datawire/nugetrepo/pkg/nuget/ngerrors"
	"github.com/datawire/nugetrepo/pkg/nuget/semver"
)

// PackageId is a NuGet package id: a non-empty string of letters, digits, '.', '_',
// and '-'. Original holds the casing as found in a .nuspec (preserved for display);
// Normalized is the lower-cased form used for equality and storage keys.
type PackageId struct {
	original   string
	normalized string
}

// Parse validates s against the id grammar and returns a PackageId.
func Parse(s string) (PackageId, error) {
	if s == "" {
		return PackageId{}, fmt.Errorf("%w: empty package id", ngerrors.ErrInvalidPackage)
	}
	for _, r := range s {
		if !isIdChar(r) {
			return PackageId{}, fmt.Errorf("%w: package id %q contains invalid character %q",
				ngerrors.ErrInvalidPackage, s, r)
		}
	}
	return PackageId{original: s, normalized: strings.ToLower(s)}, nil
}

func isIdChar(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') ||
		r == '.' || r == '_' || r == '-'
}

// Original returns the id exactly as supplied (display casing).
func (id PackageId) Original() string {
	return id.original
}

// Normalized returns the lower-cased form used for equality and keys.
func (id PackageId) Normalized() string {
	return id.normalized
}

// Equal compares by normalized form.
func (id PackageId) Equal(other PackageId) bool {
	return id.normalized == other.normalized
}

// RootKey is the root of the package's namespace: used for exclusive-scope locking and
// listing.
func (id PackageId) RootKey() string {
	return id.normalized + "/"
}

// VersionsKey is the per-package versions index key.
func (id PackageId) VersionsKey() string {
	return id.normalized + "/index.json"
}

// PackageIdentity is (PackageId, Version): uniquely identifies one stored package.
type PackageIdentity struct {
	Id      PackageId
	Version semver.Version
}

// RootKey is this identity's per-version directory.
func (pi PackageIdentity) RootKey() string {
	return fmt.Sprintf("%s/%s/", pi.Id.Normalized(), pi.Version.Normalized())
}

func (pi PackageIdentity) filenamePrefix() string {
	return fmt.Sprintf("%s.%s", pi.Id.Normalized(), pi.Version.Normalized())
}

// NupkgKey is the stored package blob's key.
func (pi PackageIdentity) NupkgKey() string {
	return pi.RootKey() + pi.filenamePrefix() + ".nupkg"
}

// NuspecKey is the extracted manifest's key.
func (pi PackageIdentity) NuspecKey() string {
	return pi.RootKey() + pi.filenamePrefix() + ".nuspec"
}

// HashKey is the base64-SHA512 digest file's key.
func (pi PackageIdentity) HashKey() string {
	return pi.RootKey() + pi.filenamePrefix() + ".nupkg.sha512"
}

// Equal compares by id and version.
func (pi PackageIdentity) Equal(other PackageIdentity) bool {
	return pi.Id.Equal(other.Id) && pi.Version.Equal(other.Version)
}
