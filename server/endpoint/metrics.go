package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Metrics wraps a Prometheus scrape handler for the Gin router.
func Metrics(h http.Handler) gin.HandlerFunc {
	return gin.WrapH(h)
}
