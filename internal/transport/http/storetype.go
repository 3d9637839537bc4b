package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/traktion/anttp/internal/client"
)

// parseStoreType reads the x-store-type header (default "network") and
// maps it to client.StoreType, the write-path tier selector shared by
// every binary upload route.
func parseStoreType(c *gin.Context) client.StoreType {
	switch strings.ToLower(c.GetHeader("x-store-type")) {
	case "memory":
		return client.StoreMemory
	case "disk":
		return client.StoreDisk
	default:
		return client.StoreNetwork
	}
}
