package server

import (
	"strings"

	"github.com/agiletools/billingsync/internal/auth"
	"github.com/gin-gonic/gin"
)

const claimsContextKey = "auth_claims"

// AuthRequired validates the bearer token and stashes the caller identity on
// the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(s.cfg.AuthJWTSecret) == "" {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := auth.ParseToken(token, s.cfg.AuthJWTSecret)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

func callerClaims(c *gin.Context) (*auth.Claims, bool) {
	value, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}
