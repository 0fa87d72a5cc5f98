// Package nupkg reads a .nupkg (a ZIP archive) and the .nuspec XML manifest embedded
// in it.
//
// The "find the sole matching top-level entry, error on zero or more than one" pattern
// below is the same shape as the house pep427 wheel reader's distInfoDir(), applied to
// nuspec lookup instead of a .dist-info directory.
package nupkg

import (
	"archive/zip"
	"bytes"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/flate"

	"github.com/datawire/nugetrepo/pkg/nuget/ngerrors"
)

// registerFastFlate swaps the zip package's default deflate decompressor for
// klauspost/compress's, the same technique stargz-snapshotter (a transitive dependency
// of this module's teacher) exists to provide for container image layers. nupkgs are
// routinely megabytes of compressed DLLs, and this is a direct throughput win on the
// ingestion hot path. zip.RegisterDecompressor mutates package-global state, so this
// runs once via sync.Once.
var registerFastFlateOnce sync.Once

func registerFastFlate() {
	registerFastFlateOnce.Do(func() {
		zip.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
			return flate.NewReader(r)
		})
	})
}

// Nupkg wraps the raw bytes of a pushed .nupkg, presumed to be a ZIP archive.
type Nupkg struct {
	bytes []byte
	zip   *zip.Reader
}

// Parse opens raw as a ZIP archive without validating its nuspec contents; callers
// should follow up with Nuspec() to do that.
func Parse(raw []byte) (Nupkg, error) {
	registerFastFlate()
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return Nupkg{}, fmt.Errorf("%w: malformed zip archive: %v", ngerrors.ErrInvalidPackage, err)
	}
	return Nupkg{bytes: raw, zip: zr}, nil
}

// Bytes returns the raw archive bytes.
func (n Nupkg) Bytes() []byte {
	return n.bytes
}

// Nuspec locates the single top-level *.nuspec entry in the archive and parses it.
// It fails with ErrInvalidPackage if the entry is missing, there is more than one, or
// the located entry's XML is malformed.
func (n Nupkg) Nuspec() (Nuspec, error) {
	var matches []*zip.File
	for _, f := range n.zip.File {
		if isTopLevelNuspec(f.Name) {
			matches = append(matches, f)
		}
	}
	switch len(matches) {
	case 0:
		return Nuspec{}, fmt.Errorf("%w: no .nuspec entry found in package", ngerrors.ErrInvalidPackage)
	case 1:
		rc, err := matches[0].Open()
		if err != nil {
			return Nuspec{}, fmt.Errorf("%w: could not open %s: %v", ngerrors.ErrInvalidPackage, matches[0].Name, err)
		}
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		if err != nil {
			return Nuspec{}, fmt.Errorf("%w: could not read %s: %v", ngerrors.ErrInvalidPackage, matches[0].Name, err)
		}
		return ParseNuspec(raw)
	default:
		names := make([]string, len(matches))
		for i, f := range matches {
			names[i] = f.Name
		}
		sort.Strings(names)
		return Nuspec{}, fmt.Errorf("%w: multiple .nuspec entries found: %v", ngerrors.ErrInvalidPackage, names)
	}
}

// isTopLevelNuspec reports whether name is a .nuspec entry at the archive root (not
// nested in a subdirectory): a "top-level" entry has no '/' before its final
// component other than possibly a leading "./".
func isTopLevelNuspec(name string) bool {
	clean := path.Clean(name)
	if !strings.HasSuffix(clean, ".nuspec") {
		return false
	}
	return !strings.Contains(clean, "/")
}

// Hash is the raw SHA-512 digest of a Nupkg's bytes.
type Hash [sha512.Size]byte

// Hash computes the SHA-512 digest of the full archive byte buffer.
func (n Nupkg) Hash() Hash {
	return sha512.Sum512(n.bytes)
}

// Base64 returns the digest's standard base64 encoding, the form the hash file on
// disk stores (not hex).
func (h Hash) Base64() string {
	return base64.StdEncoding.EncodeToString(h[:])
}
