package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/beerpong/internal/config"
	"github.com/playmatatu/beerpong/internal/operators"
	"github.com/playmatatu/beerpong/internal/store"
	"go.uber.org/zap"
)

// OperatorLogin validates operator credentials and issues a bearer token
func OperatorLogin(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			persistenceUnavailable(c)
			return
		}
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password required"})
			return
		}
		username := strings.TrimSpace(req.Username)
		ctx := c.Request.Context()
		route := c.FullPath()

		op, err := operators.Authenticate(ctx, db, username, req.Password)
		if err != nil {
			if !errors.Is(err, operators.ErrInvalidCredentials) {
				zap.L().Error("operator lookup failed", zap.String("username", username), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
				return
			}
			zap.L().Info("operator login failed", zap.String("username", username), zap.String("ip", c.ClientIP()))
			store.LogOperatorAction(ctx, db, username, c.ClientIP(), route, "login", nil, false)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		ttl := time.Duration(cfg.OperatorTokenTTL) * time.Minute
		if ttl <= 0 {
			ttl = 12 * time.Hour
		}
		token, expires, err := operators.IssueToken(cfg.JWTSecret, op.Username, op.Roles, ttl)
		if err != nil {
			zap.L().Error("failed to issue operator token", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			return
		}

		store.LogOperatorAction(ctx, db, op.Username, c.ClientIP(), route, "login", nil, true)
		c.JSON(http.StatusOK, gin.H{
			"token":        token,
			"expires_at":   expires,
			"username":     op.Username,
			"display_name": op.DisplayName,
			"roles":        op.Roles,
		})
	}
}
