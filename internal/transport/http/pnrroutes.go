package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/apperr"
)

// registerPNRRoutes wires the PNR name-zone routes: resolving a dotted
// name to its target address, and publishing a new target under a
// name the caller owns.
func registerPNRRoutes(r *gin.Engine, deps Deps) {
	g := r.Group("/api/v1/pnr")

	g.GET("/:name", func(c *gin.Context) {
		target, _, ok := deps.PNR.ResolvePNR(c.Request.Context(), c.Param("name"))
		if !ok {
			writeError(c, apperr.New(apperr.PhaseGet, apperr.ReasonNotFound, "pnr.get", nil))
			return
		}
		c.JSON(http.StatusOK, gin.H{"target": target})
	})

	g.PUT("/:name", func(c *gin.Context) {
		body, err := readBody(c)
		if err != nil {
			writeError(c, err)
			return
		}
		target, err := addr.Parse(string(body))
		if err != nil {
			writeError(c, apperr.New(apperr.PhaseUpdate, apperr.ReasonInvalidInput, "pnr.put", err))
			return
		}

		id, err := deps.PNR.Put(c.Param("name"), target)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"command_id": id})
	})
}
