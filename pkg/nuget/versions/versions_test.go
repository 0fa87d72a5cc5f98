package versions_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/nugetrepo/pkg/nuget/blobstore/memstore"
	"github.com/datawire/nugetrepo/pkg/nuget/ngerrors"
	"github.com/datawire/nugetrepo/pkg/nuget/semver"
	"github.com/datawire/nugetrepo/pkg/nuget/versions"
)

func mustParse(t *testing.T, s string) semver.Version {
	t.Helper()
	v, err := semver.Parse(s)
	require.NoError(t, err)
	return v
}

func TestLoadEmpty(t *testing.T) {
	t.Parallel()
	vs, err := versions.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, vs.Len())
}

func TestAddSortsAndDedups(t *testing.T) {
	t.Parallel()
	vs, err := versions.Load(nil)
	require.NoError(t, err)
	vs = vs.Add(mustParse(t, "1.1.0"))
	vs = vs.Add(mustParse(t, "1.0.0"))
	vs = vs.Add(mustParse(t, "1.0.0")) // duplicate

	all := vs.All()
	require.Len(t, all, 2)
	assert.Equal(t, "1.0.0", all[0].Normalized())
	assert.Equal(t, "1.1.0", all[1].Normalized())
}

func TestSaveAndRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memstore.New()

	vs, err := versions.Load(nil)
	require.NoError(t, err)
	vs = vs.Add(mustParse(t, "1.0.0")).Add(mustParse(t, "1.1.0"))

	require.NoError(t, vs.Save(ctx, store, "foo/index.json"))

	r, err := store.Value(ctx, "foo/index.json")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"versions":["1.0.0","1.1.0"]}`, string(data))

	loaded, err := versions.Load(data)
	require.NoError(t, err)
	assert.Equal(t, vs.All()[0].Normalized(), loaded.All()[0].Normalized())
	assert.Equal(t, vs.All()[1].Normalized(), loaded.All()[1].Normalized())
}

func TestLoadCorruptIsIOError(t *testing.T) {
	t.Parallel()
	_, err := versions.Load([]byte("not json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ngerrors.ErrIO))
}
