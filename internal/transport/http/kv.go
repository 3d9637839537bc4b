package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/apperr"
	"github.com/traktion/anttp/internal/service/kvbucket"
)

// registerKVRoutes wires the key/value bucket routes. A bucket is
// addressed by its root register address and opened fresh on every
// request - kvbucket.Open's network cost is a single cached register
// read, so there's no need to keep buckets resident between requests.
func registerKVRoutes(r *gin.Engine, deps Deps) {
	g := r.Group("/api/v1/kv/:root")

	g.GET("", func(c *gin.Context) {
		b, err := openBucket(c, deps)
		if err != nil {
			writeError(c, err)
			return
		}
		keys, err := b.List()
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"keys": keys})
	})

	g.GET("/:key", func(c *gin.Context) {
		b, err := openBucket(c, deps)
		if err != nil {
			writeError(c, err)
			return
		}
		entry, ok, err := b.Get(c.Param("key"))
		if err != nil {
			writeError(c, err)
			return
		}
		if !ok {
			writeError(c, apperr.New(apperr.PhaseGet, apperr.ReasonNotFound, "kv.get", nil))
			return
		}
		c.JSON(http.StatusOK, gin.H{"value": entry.Value.String()})
	})

	g.PUT("/:key", func(c *gin.Context) {
		b, err := openBucket(c, deps)
		if err != nil {
			writeError(c, err)
			return
		}
		body, err := readBody(c)
		if err != nil {
			writeError(c, err)
			return
		}
		value, err := addr.Parse(string(body))
		if err != nil {
			writeError(c, apperr.New(apperr.PhaseUpdate, apperr.ReasonInvalidInput, "kv.put", err))
			return
		}
		id, err := b.Put(c.Param("key"), value)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"command_id": id})
	})

	g.DELETE("/:key", func(c *gin.Context) {
		b, err := openBucket(c, deps)
		if err != nil {
			writeError(c, err)
			return
		}
		id, err := b.Delete(c.Param("key"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"command_id": id})
	})
}

func openBucket(c *gin.Context, deps Deps) (*kvbucket.Bucket, error) {
	root, err := addr.Parse(c.Param("root"))
	if err != nil {
		return nil, apperr.New(apperr.PhaseGet, apperr.ReasonInvalidInput, "kv.root", err)
	}
	return kvbucket.Open(c.Request.Context(), root, deps.Registers, deps.Executor)
}
