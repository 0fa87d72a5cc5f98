package packageid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/nugetrepo/pkg/nuget/packageid"
	"github.com/datawire/nugetrepo/pkg/nuget/semver"
)

func TestCasePreservedAndNormalized(t *testing.T) {
	t.Parallel()
	id, err := packageid.Parse("Newtonsoft.Json")
	require.NoError(t, err)
	assert.Equal(t, "Newtonsoft.Json", id.Original())
	assert.Equal(t, "newtonsoft.json", id.Normalized())
}

func TestKeys(t *testing.T) {
	t.Parallel()
	id, err := packageid.Parse("Foo")
	require.NoError(t, err)
	v, err := semver.Parse("1.0.0")
	require.NoError(t, err)
	identity := packageid.PackageIdentity{Id: id, Version: v}

	assert.Equal(t, "foo/", id.RootKey())
	assert.Equal(t, "foo/index.json", id.VersionsKey())
	assert.Equal(t, "foo/1.0.0/", identity.RootKey())
	assert.Equal(t, "foo/1.0.0/foo.1.0.0.nupkg", identity.NupkgKey())
	assert.Equal(t, "foo/1.0.0/foo.1.0.0.nuspec", identity.NuspecKey())
	assert.Equal(t, "foo/1.0.0/foo.1.0.0.nupkg.sha512", identity.HashKey())
}

func TestInvalidId(t *testing.T) {
	t.Parallel()
	_, err := packageid.Parse("")
	require.Error(t, err)
	_, err = packageid.Parse("has a space")
	require.Error(t, err)
}
