// Package server maps the NuGet v3 HTTP surface onto the repository core: PUT /package
// for pushes, GET /registrations/{id}/index.json for metadata reads, and a
// flat-container route for package content downloads.
//
// The route and status-code mapping is grounded on the example pack's lodestone NuGet
// routes file, translated from its gin-based framework to the standard library's
// net/http + ServeMux, since this module's teacher uses no HTTP framework of its own
// (its only HTTP-adjacent code is OCI registry client transport, not a server).
package server

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/datawire/dlib/dlog"

	"github.com/datawire/nugetrepo/pkg/nuget/ngerrors"
	"github.com/datawire/nugetrepo/pkg/nuget/packageid"
	"github.com/datawire/nugetrepo/pkg/nuget/registration"
	"github.com/datawire/nugetrepo/pkg/nuget/repository"
)

// Server serves the package-repository HTTP surface.
type Server struct {
	repo    *repository.Repository
	baseURL string
}

// New returns a Server backed by repo. baseURL is used to build absolute
// packageContent URLs and should not have a trailing slash.
func New(repo *repository.Repository, baseURL string) *Server {
	return &Server{repo: repo, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// PackageContentURL implements registration.ContentLocation.
func (s *Server) PackageContentURL(identity packageid.PackageIdentity) string {
	return fmt.Sprintf("%s/flatcontainer/%s/%s/%s.%s.nupkg",
		s.baseURL,
		identity.Id.Normalized(), identity.Version.Normalized(),
		identity.Id.Normalized(), identity.Version.Normalized())
}

// Handler returns the routed http.Handler for the surface described in SPEC_FULL.md §6.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/package", s.handlePackage)
	mux.HandleFunc("/registrations/", s.handleRegistrations)
	mux.HandleFunc("/flatcontainer/", s.handleFlatContainer)
	return mux
}

func (s *Server) handlePackage(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	switch req.Method {
	case http.MethodPut:
		s.handlePush(ctx, w, req)
	case http.MethodGet:
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePush(ctx context.Context, w http.ResponseWriter, req *http.Request) {
	part, err := firstMultipartPart(req)
	if err != nil {
		dlog.Warnf(ctx, "push rejected: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer part.Close()

	err = s.repo.Add(ctx, part)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusCreated)
	case errors.Is(err, ngerrors.ErrInvalidPackage):
		dlog.Warnf(ctx, "push rejected: %v", err)
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, ngerrors.ErrVersionAlreadyExists):
		w.WriteHeader(http.StatusConflict)
	default:
		dlog.Errorf(ctx, "push failed: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// firstMultipartPart extracts the first part of req's multipart body. Parsing the
// multipart envelope itself is the out-of-scope collaborator named by the spec; this
// is a thin wrapper over the standard library's mime/multipart reader.
func firstMultipartPart(req *http.Request) (*multipart.Part, error) {
	_, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("parsing content-type: %w", err)
	}
	boundary, ok := params["boundary"]
	if !ok {
		return nil, fmt.Errorf("multipart content-type missing boundary")
	}
	reader := multipart.NewReader(req.Body, boundary)
	part, err := reader.NextPart()
	if err != nil {
		return nil, fmt.Errorf("reading first multipart part: %w", err)
	}
	return part, nil
}

func (s *Server) handleRegistrations(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	rest := strings.TrimPrefix(req.URL.Path, "/registrations/")
	if !strings.HasSuffix(rest, "/index.json") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	idStr := strings.TrimSuffix(rest, "/index.json")
	if idStr == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id, err := packageid.Parse(idStr)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	idx, err := registration.Build(ctx, s.repo, id, s)
	if err != nil {
		dlog.Errorf(ctx, "building registration for %s: %v", id.Normalized(), err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

func (s *Server) handleFlatContainer(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	key := flatContainerKey(req.URL.Path)
	if key == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	rc, ok, err := s.repo.Content(ctx, key)
	if err != nil {
		dlog.Errorf(ctx, "reading content %s: %v", key, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = writeAll(w, rc)
}
