package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/beerpong/internal/game"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status
func HealthCheck(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"service":  "beerpong-api",
			"version":  version,
			"uptime":   time.Since(startTime).String(),
			"instance": mgr.InstanceID(),
			"sessions": mgr.Count(),
		})
	}
}
