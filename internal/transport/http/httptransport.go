// Package http wires the gateway's HTTP surface: binary chunk/public
// data upload and fetch, pointer/register/scratchpad mutable record
// access, graph entries, archive and tar-archive multipart upload, key
// value buckets, PNR name records, command-status polling, and the
// catch-all content-serving route built on internal/resolver.
//
// Grounded on the teacher's router package (gin.Default()'s
// Logger+Recovery middleware stack as the baseline engine, kept
// instead of the teacher's own pool/httpserver lifecycle machinery -
// see DESIGN.md for why that heavier framework was not a fit here) and
// on httpserver/handler.go's one-handler-per-route-group organisation.
package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/traktion/anttp/internal/client"
	"github.com/traktion/anttp/internal/codec"
	"github.com/traktion/anttp/internal/command"
	"github.com/traktion/anttp/internal/keyderive"
	"github.com/traktion/anttp/internal/logger"
	"github.com/traktion/anttp/internal/metrics"
	"github.com/traktion/anttp/internal/netface"
	"github.com/traktion/anttp/internal/resolver"
	"github.com/traktion/anttp/internal/service/archiveupload"
	"github.com/traktion/anttp/internal/service/pnr"
	"github.com/traktion/anttp/internal/service/tarbuild"
)

// Deps bundles every component the HTTP surface calls into, assembled
// once in cmd/anttp and handed to NewRouter.
type Deps struct {
	Chunks     *client.ChunkClient
	PublicData *client.PublicDataClient
	Pointers   *client.MutableClient
	Registers  *client.MutableClient
	Scratchpad *client.MutableClient
	GraphEntry *client.GraphEntryClient

	Uploader   *archiveupload.Uploader
	TarBuilder *tarbuild.Builder
	Resolver   *resolver.Resolver
	Executor   *command.Executor
	Deriver    keyderive.Deriver

	// Net and Enc back internal/stream.RangeReader for the catch-all
	// content route, the one place that streams a byte range instead
	// of reassembling a whole object through PublicDataClient.
	Net netface.Client
	Enc codec.SelfEncryption

	// PNR is the name-zone service backing the PNR routes - kv buckets
	// are opened per-request straight off Registers, but a PNR zone
	// carries its own root/derivation state so it's built once in
	// cmd/anttp and handed in ready to use.
	PNR *pnr.Zone

	// Metrics is nil-safe throughout the cache and command layers; when
	// set here, /metrics exposes it. When nil, the route isn't
	// registered at all rather than serving an always-empty page.
	Metrics *metrics.Registry

	CachedMutableTTL time.Duration
	DownloadThreads  int
}

// NewRouter builds the gin engine and registers every route group.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	log := logger.Named("transport.http")
	r.Use(func(c *gin.Context) {
		c.Next()
		log.With("status", c.Writer.Status()).With("path", c.Request.URL.Path).Debugf("%s %s", c.Request.Method, c.Request.URL.Path)
	})

	registerBinaryRoutes(r, deps)
	registerMutableRoutes(r, deps)
	registerGraphRoutes(r, deps)
	registerArchiveRoutes(r, deps)
	registerKVRoutes(r, deps)
	registerPNRRoutes(r, deps)
	registerCommandRoutes(r, deps)

	if deps.Metrics != nil {
		h := promhttp.HandlerFor(deps.Metrics.Gatherer(), promhttp.HandlerOpts{})
		r.GET("/metrics", gin.WrapH(h))
	}

	registerContentRoute(r, deps)

	return r
}
