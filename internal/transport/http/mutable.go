package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/apperr"
	"github.com/traktion/anttp/internal/client"
)

// registerMutableRoutes wires pointer, register and scratchpad GET/PUT
// routes. All three share the same shape - a *client.MutableClient and
// a derivation guard on write - differing only in which client backs
// the kind and what URL prefix it answers to.
func registerMutableRoutes(r *gin.Engine, deps Deps) {
	registerMutableKind(r, deps, "pointer", deps.Pointers)
	registerMutableKind(r, deps, "register", deps.Registers)
	registerMutableKind(r, deps, "scratchpad", deps.Scratchpad)
}

func registerMutableKind(r *gin.Engine, deps Deps, kind string, mc *client.MutableClient) {
	g := r.Group("/api/v1/" + kind)

	g.GET("/:addr", func(c *gin.Context) {
		a, err := addr.Parse(c.Param("addr"))
		if err != nil {
			writeError(c, apperr.New(apperr.PhaseGet, apperr.ReasonInvalidInput, "mutable."+kind+".get", err))
			return
		}

		m, ok, err := mc.Get(c.Request.Context(), a)
		if err != nil {
			writeError(c, err)
			return
		}
		if !ok {
			writeError(c, apperr.New(apperr.PhaseGet, apperr.ReasonNotFound, "mutable."+kind+".get", nil))
			return
		}
		c.Header("x-version", strconv.FormatUint(m.Version, 10))
		c.Data(http.StatusOK, "application/octet-stream", m.Data)
	})

	g.PUT("/:addr", func(c *gin.Context) {
		a, err := addr.Parse(c.Param("addr"))
		if err != nil {
			writeError(c, apperr.New(apperr.PhaseUpdate, apperr.ReasonInvalidInput, "mutable."+kind+".put", err))
			return
		}

		body, err := readBody(c)
		if err != nil {
			writeError(c, err)
			return
		}

		if deps.Deriver != nil {
			derived, derr := deps.Deriver.DeriveAddress(body)
			if derr != nil {
				writeError(c, apperr.New(apperr.PhaseUpdate, apperr.ReasonInvalidInput, "mutable."+kind+".derive", derr))
				return
			}
			if derived != a {
				writeError(c, apperr.New(apperr.PhaseUpdate, apperr.ReasonNotDerivedAddress, "mutable."+kind+".put", nil))
				return
			}
		}

		expectVersion, err := parseExpectVersion(c)
		if err != nil {
			writeError(c, apperr.New(apperr.PhaseUpdate, apperr.ReasonInvalidInput, "mutable."+kind+".put", err))
			return
		}

		newVersion, err := mc.Update(c.Request.Context(), a, body, expectVersion)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Header("x-version", strconv.FormatUint(newVersion, 10))
		c.Status(http.StatusOK)
	})
}

// parseExpectVersion reads the x-expect-version header used for the
// mutable client's optimistic-concurrency write guard. Its absence
// means "no prior version expected" (a first write).
func parseExpectVersion(c *gin.Context) (uint64, error) {
	h := c.GetHeader("x-expect-version")
	if h == "" {
		return 0, nil
	}
	return strconv.ParseUint(h, 10, 64)
}
