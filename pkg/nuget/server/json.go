package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAll(w io.Writer, r io.Reader) (int64, error) {
	return io.Copy(w, r)
}

// flatContainerKey maps a /flatcontainer/{id}/{version}/{filename} request path to the
// blob store key foo/1.0.0/foo.1.0.0.nupkg it corresponds to. It returns "" if path
// doesn't have the expected shape.
func flatContainerKey(path string) string {
	rest := strings.TrimPrefix(path, "/flatcontainer/")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return ""
	}
	id, version, filename := parts[0], parts[1], parts[2]
	if id == "" || version == "" || filename == "" {
		return ""
	}
	want := id + "." + version + ".nupkg"
	if filename != want {
		return ""
	}
	return id + "/" + version + "/" + filename
}
