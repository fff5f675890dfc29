package handlers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/beerpong/internal/game"
	"github.com/playmatatu/beerpong/internal/middleware"
	"github.com/playmatatu/beerpong/internal/store"
	"go.uber.org/zap"
)

const maxStepTicks = 10000

// CreateSession starts a new simulation session and its first episode
func CreateSession(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var opts game.SessionOptions
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&opts); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session options"})
				return
			}
		}

		s, err := mgr.CreateSession(opts)
		if err != nil {
			if errors.Is(err, game.ErrTooManySessions) {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many sessions"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, s.Snapshot())
	}
}

// ListSessions returns the snapshots of sessions live on this instance
func ListSessions(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions := mgr.List()
		out := make([]game.Snapshot, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, s.Snapshot())
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		c.JSON(http.StatusOK, gin.H{"sessions": out, "total": len(out)})
	}
}

// GetSession returns the session state. Sessions owned by another instance
// are served from their last redis snapshot.
func GetSession(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if s, err := mgr.Get(id); err == nil {
			c.JSON(http.StatusOK, gin.H{"live": true, "state": s.Snapshot()})
			return
		}

		snap, err := mgr.LoadSnapshot(c.Request.Context(), id)
		if err != nil {
			if !errors.Is(err, game.ErrSessionNotFound) {
				zap.L().Warn("failed to load session snapshot", zap.String("session", id), zap.Error(err))
			}
			c.JSON(statusForError(err), gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"live": false, "state": snap})
	}
}

// DeleteSession interrupts the running episode and removes the session
func DeleteSession(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mgr.Remove(c.Param("id")); err != nil {
			c.JSON(statusForError(err), gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// GetObservation returns the observation vector fed to the policy
func GetObservation(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := liveSession(c, mgr)
		if !ok {
			return
		}
		var obs game.Observation
		s.Do(func(env *game.Environment) { obs = env.Controller().Observe() })
		c.JSON(http.StatusOK, gin.H{"observation": obs})
	}
}

// GetHeuristic returns the normalised action of the current manual aim
func GetHeuristic(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := liveSession(c, mgr)
		if !ok {
			return
		}
		var a game.Action
		s.Do(func(env *game.Environment) { a = env.Controller().Heuristic() })
		c.JSON(http.StatusOK, gin.H{"action": a, "values": a.Slice()})
	}
}

// GetTrajectory returns the predicted preview points for the current aim
func GetTrajectory(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := liveSession(c, mgr)
		if !ok {
			return
		}
		var params game.TrajectoryParams
		s.Do(func(env *game.Environment) { params = env.Controller().TrajectoryParams() })
		points := game.CollectTrajectory(params)
		if points == nil {
			points = []game.Vec3{}
		}
		c.JSON(http.StatusOK, gin.H{
			"visible":     params.Visible,
			"origin":      params.Origin,
			"direction":   params.Direction,
			"force":       params.Force,
			"point_count": len(points),
			"points":      points,
		})
	}
}

// SetAim adjusts the aim without throwing
func SetAim(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := liveSession(c, mgr)
		if !ok {
			return
		}
		var a game.Action
		if err := c.ShouldBindJSON(&a); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid aim"})
			return
		}
		var applied bool
		s.Do(func(env *game.Environment) {
			if applied = env.Controller().SetAim(a); applied {
				env.Controller().UpdatePreview()
			}
		})
		mgr.Touch(s)
		if !applied {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot aim now", "state": s.Snapshot()})
			return
		}
		c.JSON(http.StatusOK, s.Snapshot())
	}
}

// SubmitAction hands a normalised action to the session
func SubmitAction(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := liveSession(c, mgr)
		if !ok {
			return
		}
		var req struct {
			game.Action
			Values []float64 `json:"values"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action"})
			return
		}
		a := req.Action
		if len(req.Values) > 0 {
			a = game.ActionFromSlice(req.Values)
		}

		var accepted bool
		s.Do(func(env *game.Environment) { accepted = env.SubmitAction(a) })
		mgr.Touch(s)
		c.JSON(http.StatusOK, gin.H{"accepted": accepted, "state": s.Snapshot()})
	}
}

// Throw requests a decision now, bypassing the cooldown
func Throw(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := liveSession(c, mgr)
		if !ok {
			return
		}
		var thrown bool
		s.Do(func(env *game.Environment) { thrown = env.RequestDecision() })
		mgr.Touch(s)
		if !thrown {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot throw now", "state": s.Snapshot()})
			return
		}
		c.JSON(http.StatusOK, s.Snapshot())
	}
}

// Step advances a session by a number of fixed ticks
func Step(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := liveSession(c, mgr)
		if !ok {
			return
		}
		if s.Realtime {
			c.JSON(http.StatusConflict, gin.H{"error": "Realtime sessions advance on their own"})
			return
		}
		req := struct {
			Ticks int `json:"ticks"`
		}{Ticks: 1}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid step request"})
				return
			}
		}
		if req.Ticks <= 0 || req.Ticks > maxStepTicks {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ticks must be between 1 and 10000"})
			return
		}

		collisions := []game.Collision{}
		s.Do(func(env *game.Environment) {
			for i := 0; i < req.Ticks; i++ {
				collisions = append(collisions, env.Tick()...)
			}
		})
		mgr.Touch(s)
		if err := mgr.Save(s); err != nil {
			zap.L().Warn("failed to save session snapshot", zap.String("session", s.ID.String()), zap.Error(err))
		}
		c.JSON(http.StatusOK, gin.H{"collisions": collisions, "state": s.Snapshot()})
	}
}

// ReportCollision feeds a collision from an external physics engine
func ReportCollision(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := liveSession(c, mgr)
		if !ok {
			return
		}
		var ev game.Collision
		if err := c.ShouldBindJSON(&ev); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid collision"})
			return
		}
		switch ev.Tag {
		case game.TagBoundary, game.TagTargetBody, game.TagTargetTrigger, game.TagOutOfBounds:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown collision tag"})
			return
		}
		s.Do(func(env *game.Environment) {
			env.Controller().HandleCollision(ev)
			env.Controller().FixedUpdate()
		})
		mgr.Touch(s)
		c.JSON(http.StatusOK, s.Snapshot())
	}
}

// BeginEpisode starts a new episode, interrupting the running one
func BeginEpisode(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := liveSession(c, mgr)
		if !ok {
			return
		}
		s.Do(func(env *game.Environment) { env.Begin() })
		mgr.Touch(s)
		c.JSON(http.StatusCreated, s.Snapshot())
	}
}

// ResetSession is the operator manual override: the ball goes back in hand
// and, optionally, every cup is restored.
func ResetSession(db *sqlx.DB, mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := liveSession(c, mgr)
		if !ok {
			return
		}
		var req struct {
			ResetCups bool `json:"reset_cups"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reset request"})
				return
			}
		}

		var phase game.Phase
		s.Do(func(env *game.Environment) {
			phase = env.Controller().Phase()
			env.Controller().ManualReset(req.ResetCups)
			env.Controller().UpdatePreview()
		})
		mgr.Touch(s)

		username := ""
		if claims, ok := middleware.OperatorFromContext(c); ok {
			username = claims.Username
		}
		zap.L().Info("manual reset",
			zap.String("session", s.ID.String()),
			zap.String("operator", username),
			zap.Bool("reset_cups", req.ResetCups))
		if db != nil {
			details := map[string]interface{}{
				"session_id": s.ID.String(),
				"reset_cups": req.ResetCups,
				"phase":      string(phase),
			}
			if err := store.LogOperatorAction(c.Request.Context(), db, username, c.ClientIP(), c.FullPath(), "manual_reset", details, true); err != nil {
				zap.L().Warn("failed to write audit log", zap.Error(err))
			}
		}
		c.JSON(http.StatusOK, s.Snapshot())
	}
}
