package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/traktion/anttp/internal/apperr"
)

// registerCommandRoutes wires command-status polling for the async
// writes the kv PUT/DELETE and pnr PUT routes queue (mutable PUTs
// write synchronously and return no command ID).
func registerCommandRoutes(r *gin.Engine, deps Deps) {
	r.GET("/api/v1/command/:id", func(c *gin.Context) {
		status, ok := deps.Executor.Status(c.Param("id"))
		if !ok {
			writeError(c, apperr.New(apperr.PhaseGet, apperr.ReasonNotFound, "command.status", nil))
			return
		}

		body := gin.H{
			"id":         status.ID,
			"state":      status.State.String(),
			"attempts":   status.Attempts,
			"updated_at": status.UpdatedAt,
		}
		if status.Err != nil {
			body["error"] = status.Err.Error()
		}
		c.JSON(http.StatusOK, body)
	})
}
