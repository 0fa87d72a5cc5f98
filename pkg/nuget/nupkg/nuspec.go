package nupkg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/datawire/nugetrepo/pkg/nuget/ngerrors"
	"github.com/datawire/nugetrepo/pkg/nuget/packageid"
	"github.com/datawire/nugetrepo/pkg/nuget/semver"
)

// Nuspec wraps the raw XML bytes of a .nuspec manifest. Id and Version are read
// namespace-agnostically (by local element name only, not by the document's XML
// namespace URI) because the .nuspec schema has changed namespace across NuGet client
// versions; exactly one match of each of /package/metadata/id and
// /package/metadata/version is required, matching the house nuspec-extraction idiom
// of scanning by local name rather than depending on a particular schema URI.
type Nuspec struct {
	raw []byte
	id  string
	ver string
}

// ParseNuspec parses raw as a .nuspec manifest. It fails with ErrInvalidPackage unless
// the document is well-formed XML and has exactly one /package/metadata/id and exactly
// one /package/metadata/version element.
func ParseNuspec(raw []byte) (Nuspec, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))

	var (
		ids, vers []string
		stack     []string
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Nuspec{}, fmt.Errorf("%w: malformed nuspec xml: %v", ngerrors.ErrInvalidPackage, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			if matchesPath(stack, "package", "metadata", "id") {
				var el elementText
				if err := dec.DecodeElement(&el, &t); err != nil {
					return Nuspec{}, fmt.Errorf("%w: malformed nuspec xml: %v", ngerrors.ErrInvalidPackage, err)
				}
				ids = append(ids, el.Text)
				stack = stack[:len(stack)-1]
				continue
			}
			if matchesPath(stack, "package", "metadata", "version") {
				var el elementText
				if err := dec.DecodeElement(&el, &t); err != nil {
					return Nuspec{}, fmt.Errorf("%w: malformed nuspec xml: %v", ngerrors.ErrInvalidPackage, err)
				}
				vers = append(vers, el.Text)
				stack = stack[:len(stack)-1]
				continue
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if len(ids) != 1 {
		return Nuspec{}, fmt.Errorf("%w: expected exactly one id element, found %d", ngerrors.ErrInvalidPackage, len(ids))
	}
	if len(vers) != 1 {
		return Nuspec{}, fmt.Errorf("%w: expected exactly one version element, found %d", ngerrors.ErrInvalidPackage, len(vers))
	}

	return Nuspec{raw: raw, id: ids[0], ver: vers[0]}, nil
}

// elementText captures an XML element's character data, regardless of its tag name.
type elementText struct {
	Text string `xml:",chardata"`
}

// matchesPath reports whether the last len(path) elements of stack equal path.
func matchesPath(stack []string, path ...string) bool {
	if len(stack) < len(path) {
		return false
	}
	base := len(stack) - len(path)
	for i, name := range path {
		if stack[base+i] != name {
			return false
		}
	}
	return true
}

// Bytes returns the raw .nuspec XML bytes.
func (n Nuspec) Bytes() []byte {
	return n.raw
}

// Identity parses the manifest's id and version elements into a PackageIdentity. A
// version grammar failure surfaces as ErrInvalidVersion (itself an ErrInvalidPackage).
func (n Nuspec) Identity() (packageid.PackageIdentity, error) {
	id, err := packageid.Parse(n.id)
	if err != nil {
		return packageid.PackageIdentity{}, err
	}
	v, err := semver.Parse(n.ver)
	if err != nil {
		return packageid.PackageIdentity{}, err
	}
	return packageid.PackageIdentity{Id: id, Version: v}, nil
}
