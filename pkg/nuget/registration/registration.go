// Package registration produces the NuGet v3 registration index JSON for a package
// from its versions index and stored nuspecs.
//
// JSON field names and nesting are grounded on the registration shapes found in the
// example pack's huhouhua/go-nuget client (registrationIndex/registrationPage/
// registrationLeafItem/catalogEntry/packageContent), adapted to this module's own
// types and to a single-page-only view (pagination is out of scope).
package registration

import (
	"context"
	"fmt"

	"github.com/datawire/nugetrepo/pkg/nuget/ngerrors"
	"github.com/datawire/nugetrepo/pkg/nuget/packageid"
	"github.com/datawire/nugetrepo/pkg/nuget/repository"
)

// ContentLocation supplies the absolute URL clients should fetch a package's content
// from. This is the out-of-scope collaborator the packageContent field is derived
// from.
type ContentLocation interface {
	PackageContentURL(identity packageid.PackageIdentity) string
}

// Index is the registration index document: {"count": N, "items": [...]}.
type Index struct {
	Count int    `json:"count"`
	Items []Page `json:"items"`
}

// Page is one registration page.
type Page struct {
	ID    string `json:"@id,omitempty"`
	Lower string `json:"lower"`
	Upper string `json:"upper"`
	Count int    `json:"count"`
	Items []Leaf `json:"items"`
}

// Leaf is one registration leaf: a single version's catalog entry plus its content
// location.
type Leaf struct {
	ID             string       `json:"@id"`
	PackageContent string       `json:"packageContent"`
	CatalogEntry   CatalogEntry `json:"catalogEntry"`
	Listed         bool         `json:"listed"`
}

// CatalogEntry is the minimal set of catalog fields required by clients.
type CatalogEntry struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	ID2     string `json:"@id"`
}

// Build produces the registration Index for id, reading nuspecs via repo for display
// casing and content locations via loc.
func Build(ctx context.Context, repo *repository.Repository, id packageid.PackageId, loc ContentLocation) (Index, error) {
	vs, err := repo.Versions(ctx, id)
	if err != nil {
		return Index{}, err
	}
	all := vs.All()
	if len(all) == 0 {
		return Index{Count: 0, Items: []Page{}}, nil
	}

	leaves := make([]Leaf, 0, len(all))
	for _, v := range all {
		identity := packageid.PackageIdentity{Id: id, Version: v}
		spec, err := repo.Nuspec(ctx, identity)
		if err != nil {
			return Index{}, fmt.Errorf("%w: building registration for %s %s: %v",
				ngerrors.ErrIO, id.Normalized(), v.Normalized(), err)
		}
		displayID := id.Original()
		if parsedIdentity, err := spec.Identity(); err == nil {
			displayID = parsedIdentity.Id.Original()
		}

		entryID := entryURL(id, v)
		leaves = append(leaves, Leaf{
			ID:             entryID,
			PackageContent: loc.PackageContentURL(identity),
			Listed:         true,
			CatalogEntry: CatalogEntry{
				ID:      displayID,
				Version: v.Normalized(),
				ID2:     entryID,
			},
		})
	}

	page := Page{
		ID:    pageURL(id),
		Lower: all[0].Normalized(),
		Upper: all[len(all)-1].Normalized(),
		Count: len(leaves),
		Items: leaves,
	}
	return Index{Count: 1, Items: []Page{page}}, nil
}

func pageURL(id packageid.PackageId) string {
	return fmt.Sprintf("registrations/%s/index.json", id.Normalized())
}

func entryURL(id packageid.PackageId, v interface{ Normalized() string }) string {
	return fmt.Sprintf("registrations/%s/%s.json", id.Normalized(), v.Normalized())
}
