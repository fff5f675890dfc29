package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/beerpong/internal/config"
	"github.com/playmatatu/beerpong/internal/operators"
)

// OperatorClaimsKey is the gin context key holding *operators.Claims
const OperatorClaimsKey = "operator_claims"

// OperatorAuth validates a bearer operator JWT and stores its claims in the
// context. A non-empty role must be present in the token.
func OperatorAuth(cfg *config.Config, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := operators.ParseToken(cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if role != "" && !claims.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}

		c.Set(OperatorClaimsKey, claims)
		c.Next()
	}
}

// OperatorFromContext returns the claims set by OperatorAuth
func OperatorFromContext(c *gin.Context) (*operators.Claims, bool) {
	v, ok := c.Get(OperatorClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*operators.Claims)
	return claims, ok
}
