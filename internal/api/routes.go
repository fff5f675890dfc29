package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/beerpong/internal/api/handlers"
	"github.com/playmatatu/beerpong/internal/config"
	"github.com/playmatatu/beerpong/internal/game"
	"github.com/playmatatu/beerpong/internal/middleware"
	"github.com/playmatatu/beerpong/internal/ws"
	"go.uber.org/zap"
)

// Operator roles checked by the protected routes
const (
	RoleOperator = "operator"
	RoleTrainer  = "trainer"
)

// SetupRoutes configures all API routes. db and hub may be nil.
func SetupRoutes(router *gin.Engine, db *sqlx.DB, cfg *config.Config, mgr *game.Manager, hub *ws.Hub) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		zap.L().Info("no-cache headers enabled for all routes", zap.String("env", cfg.Environment))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(mgr))
		v1.GET("/scenario", handlers.GetScenario(mgr))
		v1.POST("/auth/login", handlers.OperatorLogin(db, cfg))

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.CreateSession(mgr))
			sessions.GET("", handlers.ListSessions(mgr))
			sessions.GET("/:id", handlers.GetSession(mgr))
			sessions.DELETE("/:id", handlers.DeleteSession(mgr))
			sessions.GET("/:id/observation", handlers.GetObservation(mgr))
			sessions.GET("/:id/heuristic", handlers.GetHeuristic(mgr))
			sessions.GET("/:id/trajectory", handlers.GetTrajectory(mgr))
			sessions.PUT("/:id/aim", handlers.SetAim(mgr))
			sessions.POST("/:id/action", handlers.SubmitAction(mgr))
			sessions.POST("/:id/throw", handlers.Throw(mgr))
			sessions.POST("/:id/step", handlers.Step(mgr))
			sessions.POST("/:id/collision", handlers.ReportCollision(mgr))
			sessions.POST("/:id/episodes", handlers.BeginEpisode(mgr))
			sessions.POST("/:id/reset", middleware.OperatorAuth(cfg, RoleOperator), handlers.ResetSession(db, mgr))
			if hub != nil {
				sessions.GET("/:id/ws", middleware.WebSocketCORSCheck(cfg), handlers.SessionWebSocket(hub))
			}
		}

		episodes := v1.Group("/episodes")
		{
			episodes.GET("", handlers.ListEpisodes(db))
			episodes.GET("/stats", handlers.GetEpisodeStats(db))
			episodes.GET("/:id/rewards", handlers.GetEpisodeRewards(db))
		}

		training := v1.Group("/training")
		training.Use(middleware.OperatorAuth(cfg, RoleTrainer))
		{
			training.POST("/jobs", handlers.EnqueueTrainingJob(db, mgr))
			training.GET("/jobs/:id", handlers.GetTrainingJob(mgr))
		}

		v1.GET("/operators/audit", middleware.OperatorAuth(cfg, RoleOperator), handlers.GetOperatorAuditLogs(db))
	}
}
