package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/beerpong/internal/game"
)

// GetScenario returns the scenario new sessions are built from
func GetScenario(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, mgr.Scenario())
	}
}
