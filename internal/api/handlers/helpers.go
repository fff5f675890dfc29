package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/beerpong/internal/game"
)

const maxPageSize = 200

// liveSession resolves the :id path parameter, writing a 404 when the
// session is not live on this instance.
func liveSession(c *gin.Context, mgr *game.Manager) (*game.Session, bool) {
	s, err := mgr.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return s, true
}

// pagination reads limit/offset query parameters
func pagination(c *gin.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, game.ErrSessionNotFound), errors.Is(err, game.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, game.ErrTrainingUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func persistenceUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence unavailable"})
}
