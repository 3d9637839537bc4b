package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/traktion/anttp/internal/apperr"
)

// errorBody is the JSON shape every non-2xx response shares.
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// writeError maps err to its HTTP status (via apperr.Error.HTTPStatus
// when err carries one, 500 otherwise) and writes a small JSON body.
func writeError(c *gin.Context, err error) {
	if aerr, ok := apperr.As(err); ok {
		c.JSON(aerr.HTTPStatus(), errorBody{Error: aerr.Error(), Reason: aerr.Reason.String()})
		return
	}
	c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
}
