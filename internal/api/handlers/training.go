package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/beerpong/internal/game"
	"github.com/playmatatu/beerpong/internal/middleware"
	"github.com/playmatatu/beerpong/internal/store"
	"go.uber.org/zap"
)

// EnqueueTrainingJob queues a batch of headless training episodes
func EnqueueTrainingJob(db *sqlx.DB, mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Episodes   int    `json:"episodes" binding:"required,min=1"`
			Seed       uint64 `json:"seed"`
			MaxTicks   int    `json:"max_ticks"`
			WrongCup   string `json:"wrong_cup"`
			TargetDraw string `json:"target_draw"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "episodes must be a positive number"})
			return
		}

		username := ""
		if claims, ok := middleware.OperatorFromContext(c); ok {
			username = claims.Username
		}

		ctx := c.Request.Context()
		job, err := mgr.EnqueueTraining(ctx, game.TrainingJob{
			Episodes:    req.Episodes,
			Seed:        req.Seed,
			MaxTicks:    req.MaxTicks,
			WrongCup:    req.WrongCup,
			TargetDraw:  req.TargetDraw,
			RequestedBy: username,
		})
		if err != nil {
			zap.L().Warn("failed to enqueue training job", zap.String("operator", username), zap.Error(err))
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}

		if db != nil {
			details := map[string]interface{}{"job_id": job.ID, "episodes": job.Episodes, "seed": job.Seed}
			if err := store.LogOperatorAction(ctx, db, username, c.ClientIP(), c.FullPath(), "enqueue_training", details, true); err != nil {
				zap.L().Warn("failed to write audit log", zap.Error(err))
			}
		}
		c.JSON(http.StatusAccepted, job)
	}
}

// GetTrainingJob returns the status of a queued or finished training job
func GetTrainingJob(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := mgr.TrainingStatus(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, st)
	}
}
