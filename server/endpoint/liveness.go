package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Liveness returns a handler for liveness probes. It only confirms the
// process can serve HTTP; feed health is reported by Health.
func Liveness(service string) gin.HandlerFunc {
	started := time.Now()
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "alive",
			"service":        service,
			"uptime_seconds": int64(time.Since(started).Seconds()),
		})
	}
}
