// Package versions implements the per-package versions.json index: the JSON document
// listing known versions, sorted ascending by the total order in pkg/nuget/semver.
//
// Modeled after the immutable-value style of the house strategy.Strategy type: methods
// return new values rather than mutating the receiver, and JSON marshaling round-trips
// through a plain wire struct.
package versions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/datawire/nugetrepo/pkg/nuget/blobstore"
	"github.com/datawire/nugetrepo/pkg/nuget/ngerrors"
	"github.com/datawire/nugetrepo/pkg/nuget/semver"
)

// Versions is the sorted, deduplicated list of a package's known versions.
type Versions struct {
	versions []semver.Version
}

type wire struct {
	Versions []string `json:"versions"`
}

// Load parses data as a versions.json document. A nil or empty data yields an empty
// index, so that an absent index is equivalent to "no versions."
func Load(data []byte) (Versions, error) {
	if len(data) == 0 {
		return Versions{}, nil
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return Versions{}, fmt.Errorf("%w: malformed versions index: %v", ngerrors.ErrIO, err)
	}
	vs := Versions{versions: make([]semver.Version, 0, len(w.Versions))}
	for _, s := range w.Versions {
		v, err := semver.Parse(s)
		if err != nil {
			return Versions{}, fmt.Errorf("%w: malformed versions index entry %q: %v", ngerrors.ErrIO, s, err)
		}
		vs.versions = append(vs.versions, v)
	}
	sortAndDedup(&vs.versions)
	return vs, nil
}

// Add returns a new Versions containing the existing versions plus v, deduplicated by
// normalized form and sorted ascending.
func (vs Versions) Add(v semver.Version) Versions {
	next := make([]semver.Version, len(vs.versions), len(vs.versions)+1)
	copy(next, vs.versions)
	next = append(next, v)
	sortAndDedup(&next)
	return Versions{versions: next}
}

func sortAndDedup(vs *[]semver.Version) {
	sort.SliceStable(*vs, func(i, j int) bool {
		return (*vs)[i].Less((*vs)[j])
	})
	out := (*vs)[:0]
	for i, v := range *vs {
		if i > 0 && v.Equal((*vs)[i-1]) {
			continue
		}
		out = append(out, v)
	}
	*vs = out
}

// All returns the sorted list of versions.
func (vs Versions) All() []semver.Version {
	return append([]semver.Version{}, vs.versions...)
}

// Len is the number of distinct versions in the index.
func (vs Versions) Len() int {
	return len(vs.versions)
}

// Save serializes vs as {"versions":[...]} and writes it to key.
func (vs Versions) Save(ctx context.Context, store blobstore.Store, key string) error {
	w := wire{Versions: make([]string, len(vs.versions))}
	for i, v := range vs.versions {
		w.Versions[i] = v.Normalized()
	}
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("%w: marshaling versions index: %v", ngerrors.ErrIO, err)
	}
	if err := store.Save(ctx, key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: saving versions index: %v", ngerrors.ErrIO, err)
	}
	return nil
}
