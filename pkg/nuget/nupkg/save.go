package nupkg

import (
	"context"
	"fmt"
	"strings"

	"github.com/datawire/nugetrepo/pkg/nuget/blobstore"
	"github.com/datawire/nugetrepo/pkg/nuget/ngerrors"
	"github.com/datawire/nugetrepo/pkg/nuget/packageid"
)

// SaveNuspec writes the manifest's raw bytes to the identity's NuspecKey.
func (n Nuspec) SaveNuspec(ctx context.Context, store blobstore.Store, identity packageid.PackageIdentity) error {
	if err := store.Save(ctx, identity.NuspecKey(), strings.NewReader(string(n.raw))); err != nil {
		return fmt.Errorf("%w: saving nuspec: %v", ngerrors.ErrIO, err)
	}
	return nil
}

// SaveHash writes h's base64 encoding to the identity's HashKey.
func (h Hash) SaveHash(ctx context.Context, store blobstore.Store, identity packageid.PackageIdentity) error {
	if err := store.Save(ctx, identity.HashKey(), strings.NewReader(h.Base64())); err != nil {
		return fmt.Errorf("%w: saving hash: %v", ngerrors.ErrIO, err)
	}
	return nil
}
