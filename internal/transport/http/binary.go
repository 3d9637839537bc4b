package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/apperr"
)

const maxBinaryUploadBytes = 512 << 20

// registerBinaryRoutes wires the immutable binary upload/fetch routes
// for chunk and public_data records. Both kinds share the same
// put/get shape, differing only in which typed client backs them.
func registerBinaryRoutes(r *gin.Engine, deps Deps) {
	g := r.Group("/api/v1/binary")

	g.POST("/chunk", func(c *gin.Context) {
		body, err := readBody(c)
		if err != nil {
			writeError(c, err)
			return
		}

		a, err := deps.Chunks.Put(c.Request.Context(), parseStoreType(c), body)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"address": a.String()})
	})

	g.GET("/chunk/:addr", func(c *gin.Context) {
		a, err := addr.Parse(c.Param("addr"))
		if err != nil {
			writeError(c, apperr.New(apperr.PhaseGet, apperr.ReasonInvalidInput, "binary.chunk.get", err))
			return
		}

		chunk, ok, err := deps.Chunks.Get(c.Request.Context(), a)
		if err != nil {
			writeError(c, err)
			return
		}
		if !ok {
			writeError(c, apperr.New(apperr.PhaseGet, apperr.ReasonNotFound, "binary.chunk.get", nil))
			return
		}
		c.Data(http.StatusOK, "application/octet-stream", chunk.Raw)
	})

	g.POST("/public_data", func(c *gin.Context) {
		body, err := readBody(c)
		if err != nil {
			writeError(c, err)
			return
		}

		a, err := deps.PublicData.PutContent(c.Request.Context(), parseStoreType(c), body)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"address": a.String()})
	})

	g.GET("/public_data/:addr", func(c *gin.Context) {
		a, err := addr.Parse(c.Param("addr"))
		if err != nil {
			writeError(c, apperr.New(apperr.PhaseGet, apperr.ReasonInvalidInput, "binary.publicdata.get", err))
			return
		}

		blob, ok, err := deps.PublicData.GetByAddress(c.Request.Context(), a)
		if err != nil {
			writeError(c, err)
			return
		}
		if !ok {
			writeError(c, apperr.New(apperr.PhaseGet, apperr.ReasonNotFound, "binary.publicdata.get", nil))
			return
		}
		c.Data(http.StatusOK, "application/octet-stream", blob.Content)
	})
}

// readBody reads a request body bounded to maxBinaryUploadBytes, the
// same guard every upload route needs so a client can't exhaust
// memory streaming an unbounded body into a byte slice.
func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBinaryUploadBytes+1))
	if err != nil {
		return nil, apperr.New(apperr.PhaseCreate, apperr.ReasonInvalidInput, "binary.readbody", err)
	}
	if len(body) > maxBinaryUploadBytes {
		return nil, apperr.New(apperr.PhaseCreate, apperr.ReasonInvalidInput, "binary.readbody", nil)
	}
	return body, nil
}
