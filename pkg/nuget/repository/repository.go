// Package repository orchestrates package ingestion: staging, identity extraction,
// uniqueness enforcement, and the atomic versions-index update, serialized per package
// id by the blob store's exclusive scope.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/datawire/dlib/dlog"

	"github.com/datawire/nugetrepo/pkg/nuget/blobstore"
	"github.com/datawire/nugetrepo/pkg/nuget/ngerrors"
	"github.com/datawire/nugetrepo/pkg/nuget/nupkg"
	"github.com/datawire/nugetrepo/pkg/nuget/packageid"
	"github.com/datawire/nugetrepo/pkg/nuget/versions"
)

// Repository is the ingestion core, backed by a blobstore.Store.
type Repository struct {
	store blobstore.Store
}

// New wraps store as a Repository.
func New(store blobstore.Store) *Repository {
	return &Repository{store: store}
}

// Add stages content, derives its identity, and commits it to the store. It returns
// ngerrors.ErrInvalidPackage, ngerrors.ErrVersionAlreadyExists, or ngerrors.ErrIO (all
// wrapped with context); nil on success.
//
// Ingestion algorithm:
//  1. Stage the incoming stream at a fresh random key outside any package namespace.
//  2. Read the staged bytes back into a Nupkg.
//  3. Extract identity via nupkg.Nuspec().Identity(); any parse failure maps to
//     ErrInvalidPackage and the stage is removed on a best-effort basis.
//  4. Pre-check uniqueness by listing identity.RootKey(); non-empty fails with
//     ErrVersionAlreadyExists (and the stage is removed).
//  5. Commit under the store's exclusive scope keyed by packageId.RootKey():
//     a. Re-verify identity.RootKey() is still empty (TOCTOU guard).
//     b. Load the current versions index (empty if absent).
//     c. Concurrently: move staged blob, write hash file, write nuspec.
//     d. Write the updated versions index. The index write is last, so a reader that
//        observes a version in versions.json is guaranteed to find the other three
//        artifacts.
func (r *Repository) Add(ctx context.Context, content io.Reader) error {
	stagedKey := uuid.NewString()
	if err := r.store.Save(ctx, stagedKey, content); err != nil {
		return fmt.Errorf("%w: staging push: %v", ngerrors.ErrIO, err)
	}

	staged, err := r.readStaged(ctx, stagedKey)
	if err != nil {
		blobstore.BestEffortDelete(ctx, r.store, stagedKey)
		return err
	}

	spec, err := staged.Nuspec()
	if err != nil {
		blobstore.BestEffortDelete(ctx, r.store, stagedKey)
		return err
	}
	identity, err := spec.Identity()
	if err != nil {
		blobstore.BestEffortDelete(ctx, r.store, stagedKey)
		return err
	}

	if exists, err := r.rootNonEmpty(ctx, identity); err != nil {
		blobstore.BestEffortDelete(ctx, r.store, stagedKey)
		return err
	} else if exists {
		blobstore.BestEffortDelete(ctx, r.store, stagedKey)
		return fmt.Errorf("%w: %s %s", ngerrors.ErrVersionAlreadyExists, identity.Id.Normalized(), identity.Version.Normalized())
	}

	err = r.store.Exclusively(ctx, identity.Id.RootKey(), func(ctx context.Context) error {
		return r.commit(ctx, stagedKey, staged, spec, identity)
	})
	if err != nil {
		blobstore.BestEffortDelete(ctx, r.store, stagedKey)
		if !errors.Is(err, ngerrors.ErrVersionAlreadyExists) {
			r.cleanupPartialCommit(ctx, identity)
		}
		return err
	}
	return nil
}

// cleanupPartialCommit removes whatever artifacts a failed commit managed to write
// under identity.RootKey() before failing, so a retried push isn't permanently wedged
// behind rootNonEmpty seeing orphaned keys with no versions.json entry to match.
func (r *Repository) cleanupPartialCommit(ctx context.Context, identity packageid.PackageIdentity) {
	keys, err := r.store.List(ctx, identity.RootKey())
	if err != nil {
		return
	}
	for _, key := range keys {
		blobstore.BestEffortDelete(ctx, r.store, key)
	}
}

func (r *Repository) readStaged(ctx context.Context, key string) (nupkg.Nupkg, error) {
	rc, err := r.store.Value(ctx, key)
	if err != nil {
		return nupkg.Nupkg{}, fmt.Errorf("%w: reading staged push: %v", ngerrors.ErrIO, err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nupkg.Nupkg{}, fmt.Errorf("%w: reading staged push: %v", ngerrors.ErrIO, err)
	}
	return nupkg.Parse(raw)
}

func (r *Repository) rootNonEmpty(ctx context.Context, identity packageid.PackageIdentity) (bool, error) {
	keys, err := r.store.List(ctx, identity.RootKey())
	if err != nil {
		return false, fmt.Errorf("%w: checking uniqueness: %v", ngerrors.ErrIO, err)
	}
	return len(keys) > 0, nil
}

// commit runs inside the exclusive scope for identity.Id.RootKey(). It re-verifies
// uniqueness (TOCTOU guard), then writes the three artifacts concurrently via
// errgroup before writing the updated versions index last.
func (r *Repository) commit(ctx context.Context, stagedKey string, staged nupkg.Nupkg, spec nupkg.Nuspec, identity packageid.PackageIdentity) error {
	dlog.Infof(ctx, "committing %s %s", identity.Id.Normalized(), identity.Version.Normalized())

	if exists, err := r.rootNonEmpty(ctx, identity); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("%w: %s %s", ngerrors.ErrVersionAlreadyExists, identity.Id.Normalized(), identity.Version.Normalized())
	}

	existing, err := r.loadVersions(ctx, identity.Id.VersionsKey())
	if err != nil {
		return err
	}

	hash := staged.Hash()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.store.Move(gctx, stagedKey, identity.NupkgKey()); err != nil {
			return fmt.Errorf("%w: committing nupkg: %v", ngerrors.ErrIO, err)
		}
		return nil
	})
	g.Go(func() error {
		if err := hash.SaveHash(gctx, r.store, identity); err != nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := spec.SaveNuspec(gctx, r.store, identity); err != nil {
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	updated := existing.Add(identity.Version)
	if err := updated.Save(ctx, r.store, identity.Id.VersionsKey()); err != nil {
		return err
	}
	return nil
}

func (r *Repository) loadVersions(ctx context.Context, key string) (versions.Versions, error) {
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return versions.Versions{}, fmt.Errorf("%w: loading versions index: %v", ngerrors.ErrIO, err)
	}
	if !exists {
		return versions.Load(nil)
	}
	rc, err := r.store.Value(ctx, key)
	if err != nil {
		return versions.Versions{}, fmt.Errorf("%w: loading versions index: %v", ngerrors.ErrIO, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return versions.Versions{}, fmt.Errorf("%w: loading versions index: %v", ngerrors.ErrIO, err)
	}
	return versions.Load(data)
}

// Versions returns id's known versions, empty if none are stored. A corrupt index is
// reported as ngerrors.ErrIO, never silently treated as empty.
func (r *Repository) Versions(ctx context.Context, id packageid.PackageId) (versions.Versions, error) {
	return r.loadVersions(ctx, id.VersionsKey())
}

// Nuspec returns the stored manifest for identity. It fails with ngerrors.ErrNotFound
// if none is stored.
func (r *Repository) Nuspec(ctx context.Context, identity packageid.PackageIdentity) (nupkg.Nuspec, error) {
	rc, err := r.store.Value(ctx, identity.NuspecKey())
	if err != nil {
		return nupkg.Nuspec{}, fmt.Errorf("%w: %s %s", ngerrors.ErrNotFound, identity.Id.Normalized(), identity.Version.Normalized())
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nupkg.Nuspec{}, fmt.Errorf("%w: reading nuspec: %v", ngerrors.ErrIO, err)
	}
	return nupkg.ParseNuspec(raw)
}

// Content returns the raw bytes stored at key, for the package-content endpoint. ok is
// false if key is absent.
func (r *Repository) Content(ctx context.Context, key string) (data io.ReadCloser, ok bool, err error) {
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ngerrors.ErrIO, err)
	}
	if !exists {
		return nil, false, nil
	}
	rc, err := r.store.Value(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ngerrors.ErrIO, err)
	}
	return rc, true, nil
}
