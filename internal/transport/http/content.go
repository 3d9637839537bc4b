package http

import (
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/apperr"
	"github.com/traktion/anttp/internal/archivemodel"
	"github.com/traktion/anttp/internal/codec"
	"github.com/traktion/anttp/internal/httpmeta"
	"github.com/traktion/anttp/internal/stream"
)

// registerContentRoute wires the catch-all content-serving route: the
// request path is handed to the resolver as a (directory, fileName)
// pair, and the result is either a ranged file stream, a directory
// listing, or a redirect - resolve_archive_or_file's one entry point
// for every address-shaped URL the gateway doesn't otherwise own.
func registerContentRoute(r *gin.Engine, deps Deps) {
	r.NoRoute(func(c *gin.Context) {
		serveContent(c, deps)
	})
}

func serveContent(c *gin.Context, deps Deps) {
	rawPath := c.Request.URL.Path
	hadTrailingSlash := strings.HasSuffix(rawPath, "/")

	trimmed := strings.Trim(rawPath, "/")
	var directory, fileName string
	if trimmed != "" {
		segments := strings.SplitN(trimmed, "/", 2)
		directory = segments[0]
		if len(segments) > 1 {
			fileName = segments[1]
		}
	}

	resolved, err := deps.Resolver.Resolve(c.Request.Context(), directory, fileName, c.Request.Header)
	if err != nil {
		writeError(c, apperr.New(apperr.PhaseGet, apperr.ReasonNotFound, "content.resolve", err))
		return
	}
	if !resolved.Allowed {
		writeError(c, apperr.New(apperr.PhaseGet, apperr.ReasonAccessDenied, "content.resolve", nil))
		return
	}

	httpmeta.ApplyHeaders(c.Writer.Header(), resolved.Address, resolved.Mutable, deps.CachedMutableTTL)
	if resolved.NotModified {
		c.Status(http.StatusNotModified)
		return
	}

	if resolved.Archive == nil {
		serveWholeObject(c, deps, resolved.Address)
		return
	}

	serveArchivePath(c, deps, resolved.Archive, fileName, hadTrailingSlash)
}

// serveWholeObject serves the "raw address" resolution mode: the
// resolved address is itself a public-data object, not an archive.
func serveWholeObject(c *gin.Context, deps Deps, a addr.Address) {
	dm, err := deps.PublicData.FetchDataMap(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	streamRange(c, deps, dm, 0, dm.TotalSize)
}

// serveArchivePath serves either a directory listing or a single
// archive member, depending on whether relPath names a file entry.
func serveArchivePath(c *gin.Context, deps Deps, arc *archivemodel.Archive, relPath string, hadTrailingSlash bool) {
	entry, found := arc.Lookup(relPath)
	if found && entry.Size > 0 {
		childAddr := entry.ChildAddress
		if childAddr.IsZero() {
			childAddr = arc.Root
		}

		dm, err := deps.PublicData.FetchDataMap(c.Request.Context(), childAddr)
		if err != nil {
			writeError(c, err)
			return
		}
		streamRange(c, deps, dm, entry.Offset, entry.Size)
		return
	}

	if !hadTrailingSlash {
		clean := strings.Trim(relPath, "/")
		location := "/"
		if clean != "" {
			location = "/" + clean + "/"
		}
		c.Redirect(http.StatusMovedPermanently, location)
		return
	}

	entries := httpmeta.ListDir(arc, relPath)
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.JSON(http.StatusOK, entries)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(renderListingHTML(entries)))
}

// streamRange serves [entryOffset, entryOffset+entrySize) of dm's
// reassembled content, honouring an incoming Range header scoped to
// the entry's own [0, entrySize) coordinate space.
func streamRange(c *gin.Context, deps Deps, dm codec.DataMap, entryOffset, entrySize int64) {
	from, to := int64(0), entrySize-1
	status := http.StatusOK

	if h := c.GetHeader("Range"); h != "" {
		rf, rt, ok := parseRangeHeader(h)
		if ok {
			from, to = resolveRange(rf, rt, entrySize)
			status = http.StatusPartialContent
		}
	}
	if from < 0 || to >= entrySize || from > to {
		writeError(c, apperr.New(apperr.PhaseGet, apperr.ReasonInvalidInput, "content.range", nil))
		return
	}

	reader, err := stream.NewRangeReader(c.Request.Context(), deps.Net, deps.Enc, dm, entryOffset+from, entryOffset+to, deps.DownloadThreads)
	if err != nil {
		writeError(c, apperr.New(apperr.PhaseGet, apperr.ReasonInvalidInput, "content.range", err))
		return
	}
	defer reader.Close()

	if status == http.StatusPartialContent {
		c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", from, to, entrySize))
	}
	c.Header("Content-Length", strconv.FormatInt(to-from+1, 10))
	c.Header("Accept-Ranges", "bytes")
	c.Status(status)
	_, _ = io.Copy(c.Writer, reader)
}

// renderListingHTML renders a minimal directory listing page - no
// styling, just an anchor per entry, matching the teacher corpus's
// general preference for server-rendered fragments over a templating
// engine for something this small.
func renderListingHTML(entries []httpmeta.ListingEntry) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>\n")
	for _, e := range entries {
		href := html.EscapeString(e.Display)
		b.WriteString(fmt.Sprintf("<li><a href=%q>%s</a></li>\n", href, href))
	}
	b.WriteString("</ul></body></html>\n")
	return b.String()
}
