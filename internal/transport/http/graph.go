package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/apperr"
)

// registerGraphRoutes wires the read-only graph entry lookup. Graph
// entries are written by the network side of the system; the gateway
// only ever resolves them.
func registerGraphRoutes(r *gin.Engine, deps Deps) {
	r.GET("/api/v1/graph_entry/:addr", func(c *gin.Context) {
		a, err := addr.Parse(c.Param("addr"))
		if err != nil {
			writeError(c, apperr.New(apperr.PhaseGet, apperr.ReasonInvalidInput, "graph.get", err))
			return
		}

		entry, ok, err := deps.GraphEntry.Get(c.Request.Context(), a)
		if err != nil {
			writeError(c, err)
			return
		}
		if !ok {
			writeError(c, apperr.New(apperr.PhaseGet, apperr.ReasonNotFound, "graph.get", nil))
			return
		}

		descendants := make([]string, len(entry.Descendants))
		for i, d := range entry.Descendants {
			descendants[i] = d.String()
		}
		c.JSON(http.StatusOK, gin.H{
			"data":        entry.Data,
			"descendants": descendants,
		})
	})
}
