package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NathanNam/caltrain-commuter-app/version"
)

// Version serves the build information of the binary.
func Version(info version.Info) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, info)
	}
}
