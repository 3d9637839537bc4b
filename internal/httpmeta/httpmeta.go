// Package httpmeta builds the cache-control/ETag response headers and
// the browser-facing directory listing model shared by every HTTP
// route that serves content-addressed data.
package httpmeta

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/archivemodel"
)

// maxAge is 2^32 - 1 seconds, the "cache forever" value used for
// immutable content-addressed responses.
const maxAge = 4294967295

// Version is the gateway's reported version, stamped into the Server
// header the way the original's HTTP layer does.
var Version = "dev"

// ApplyHeaders sets Cache-Control, Expires, ETag, CORS and Server
// headers on an HTTP response for an address, distinguishing
// immutable content (cache forever) from content resolved through a
// mutable record (cached only for cachedMutableTTL).
func ApplyHeaders(h http.Header, a addr.Address, mutable bool, cachedMutableTTL time.Duration) {
	now := time.Now()

	if mutable {
		secs := int(cachedMutableTTL.Seconds())
		h.Set("Cache-Control", fmt.Sprintf("max-age=%d, public", secs))
		h.Set("Expires", now.Add(cachedMutableTTL).UTC().Format(http.TimeFormat))
	} else {
		h.Set("Cache-Control", fmt.Sprintf("max-age=%d, public", maxAge))
		h.Set("Expires", now.Add(maxAge*time.Second).UTC().Format(http.TimeFormat))
	}

	h.Set("ETag", fmt.Sprintf("%q", a.String()))
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Server", "anttp/"+Version)
}

// PathType distinguishes a listing row as a file or a directory.
type PathType int

const (
	File PathType = iota
	Directory
)

// ListingEntry is one row of a directory listing response.
type ListingEntry struct {
	Path     string
	Display  string
	Modified int64
	Size     int64
	Type     PathType
}

// ListDir walks archive's ordered entries and builds the directory
// listing for a given path prefix: a file row for exact one-level
// matches with non-zero size, a deduplicated directory row for any
// longer suffix, and a synthetic "../" row when prefix is non-root.
func ListDir(arc *archivemodel.Archive, prefix string) []ListingEntry {
	prefix = strings.Trim(prefix, "/")
	var prefixParts []string
	if prefix != "" {
		prefixParts = strings.Split(prefix, "/")
	}

	var out []ListingEntry
	seenDirs := make(map[string]bool)

	for _, e := range arc.List() {
		parts := strings.Split(e.Path, "/")
		if len(parts) < len(prefixParts) {
			continue
		}

		match := true
		for i, p := range prefixParts {
			if parts[i] != p {
				match = false
				break
			}
		}
		if !match {
			continue
		}

		remainder := parts[len(prefixParts):]
		switch {
		case len(remainder) == 1 && e.Size != 0:
			out = append(out, ListingEntry{
				Path: e.Path, Display: remainder[0], Modified: e.Modified, Size: e.Size, Type: File,
			})
		case len(remainder) >= 1:
			dirName := remainder[0]
			if !seenDirs[dirName] {
				seenDirs[dirName] = true
				out = append(out, ListingEntry{
					Path: strings.Join(append(append([]string{}, prefixParts...), dirName), "/"),
					Display: dirName + "/", Modified: e.Modified, Type: Directory,
				})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type == Directory
		}
		return out[i].Display < out[j].Display
	})

	if prefix != "" {
		out = append([]ListingEntry{{Path: "..", Display: "../", Type: Directory}}, out...)
	}

	return out
}
