package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/beerpong/internal/models"
	"github.com/playmatatu/beerpong/internal/store"
	"go.uber.org/zap"
)

// ListEpisodes returns recorded episodes, newest first, optionally for one session
func ListEpisodes(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			persistenceUnavailable(c)
			return
		}
		sessionID := c.DefaultQuery("session_id", "")
		limit, offset := pagination(c, 25)

		episodes, err := store.RecentEpisodes(c.Request.Context(), db, sessionID, limit, offset)
		if err != nil {
			zap.L().Error("failed to fetch episodes", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch episodes"})
			return
		}
		if episodes == nil {
			episodes = []models.Episode{}
		}
		c.JSON(http.StatusOK, gin.H{"episodes": episodes, "limit": limit, "offset": offset})
	}
}

// GetEpisodeRewards returns the reward log of one recorded episode
func GetEpisodeRewards(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			persistenceUnavailable(c)
			return
		}
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid episode id"})
			return
		}

		rewards, err := store.EpisodeRewards(c.Request.Context(), db, id)
		if err != nil {
			zap.L().Error("failed to fetch episode rewards", zap.Int64("episode", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rewards"})
			return
		}
		if rewards == nil {
			rewards = []models.EpisodeReward{}
		}
		c.JSON(http.StatusOK, gin.H{"episode_id": id, "rewards": rewards})
	}
}

// GetEpisodeStats aggregates recorded episodes, optionally for one session
func GetEpisodeStats(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			persistenceUnavailable(c)
			return
		}
		stats, err := store.EpisodeStats(c.Request.Context(), db, c.DefaultQuery("session_id", ""))
		if err != nil {
			zap.L().Error("failed to compute episode stats", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
