package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/beerpong/internal/models"
	"github.com/playmatatu/beerpong/internal/store"
	"go.uber.org/zap"
)

// GetOperatorAuditLogs returns paginated audit log entries
func GetOperatorAuditLogs(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			persistenceUnavailable(c)
			return
		}
		limit, offset := pagination(c, 25)

		logs, err := store.OperatorAuditLogs(c.Request.Context(), db, limit, offset)
		if err != nil {
			zap.L().Error("failed to fetch audit logs", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit logs"})
			return
		}
		if logs == nil {
			logs = []models.OperatorAudit{}
		}
		// Viewing the audit log is not itself audited
		c.JSON(http.StatusOK, gin.H{"logs": logs, "limit": limit, "offset": offset})
	}
}
