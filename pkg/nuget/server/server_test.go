package server_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/nugetrepo/pkg/nuget/blobstore/memstore"
	"github.com/datawire/nugetrepo/pkg/nuget/repository"
	"github.com/datawire/nugetrepo/pkg/nuget/server"
)

func buildNupkgBytes(t *testing.T, id, version string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(id + ".nuspec")
	require.NoError(t, err)
	_, err = fmt.Fprintf(w, `<package><metadata><id>%s</id><version>%s</version></metadata></package>`, id, version)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("package", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newTestServer() *server.Server {
	repo := repository.New(memstore.New())
	return server.New(repo, "https://example.test")
}

func TestPushCreated(t *testing.T) {
	t.Parallel()
	s := newTestServer()
	body, ct := multipartBody(t, "foo.1.0.0.nupkg", buildNupkgBytes(t, "foo", "1.0.0"))

	req := httptest.NewRequest(http.MethodPut, "/package", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestPushConflict(t *testing.T) {
	t.Parallel()
	s := newTestServer()
	raw := buildNupkgBytes(t, "foo", "1.0.0")

	for i, wantCode := range []int{http.StatusCreated, http.StatusConflict} {
		body, ct := multipartBody(t, "foo.1.0.0.nupkg", raw)
		req := httptest.NewRequest(http.MethodPut, "/package", body)
		req.Header.Set("Content-Type", ct)
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)
		assert.Equal(t, wantCode, rr.Code, "push #%d", i)
	}
}

func TestPushInvalidPackage(t *testing.T) {
	t.Parallel()
	s := newTestServer()
	body, ct := multipartBody(t, "bad.nupkg", []byte("not a zip"))

	req := httptest.NewRequest(http.MethodPut, "/package", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetPackageNotAllowed(t *testing.T) {
	t.Parallel()
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/package", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRegistrationIndex(t *testing.T) {
	t.Parallel()
	s := newTestServer()
	body, ct := multipartBody(t, "foo.1.0.0.nupkg", buildNupkgBytes(t, "foo", "1.0.0"))
	pushReq := httptest.NewRequest(http.MethodPut, "/package", body)
	pushReq.Header.Set("Content-Type", ct)
	s.Handler().ServeHTTP(httptest.NewRecorder(), pushReq)

	req := httptest.NewRequest(http.MethodGet, "/registrations/foo/index.json", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body2 map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body2))
	assert.Equal(t, float64(1), body2["count"])
}

func TestRegistrationUnknownPathIs404(t *testing.T) {
	t.Parallel()
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/registrations/foo/page0.json", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFlatContainerDownload(t *testing.T) {
	t.Parallel()
	s := newTestServer()
	raw := buildNupkgBytes(t, "foo", "1.0.0")
	body, ct := multipartBody(t, "foo.1.0.0.nupkg", raw)
	pushReq := httptest.NewRequest(http.MethodPut, "/package", body)
	pushReq.Header.Set("Content-Type", ct)
	s.Handler().ServeHTTP(httptest.NewRecorder(), pushReq)

	req := httptest.NewRequest(http.MethodGet, "/flatcontainer/foo/1.0.0/foo.1.0.0.nupkg", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, raw, rr.Body.Bytes())
}

func TestFlatContainerMissing(t *testing.T) {
	t.Parallel()
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/flatcontainer/foo/9.9.9/foo.9.9.9.nupkg", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
