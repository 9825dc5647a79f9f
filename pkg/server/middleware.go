package server

import (
	"net/http"
	"strings"

	"github.com/example/storefront/pkg/models"
	"github.com/gin-gonic/gin"
)

const (
	identityKey   = "identity"
	sessionHeader = "X-Session-Key"
)

// identity is the authenticated caller attached to the gin context.
type identity struct {
	UserID string
	Email  string
	Role   models.Role
}

// identityMiddleware parses a Bearer token when one is present. It never
// rejects the request itself; requireAuth and requireAdmin do that.
func (s *Server) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := s.tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(identityKey, identity{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		})
		c.Next()
	}
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentIdentity(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := currentIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !id.Role.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

func currentIdentity(c *gin.Context) (identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return identity{}, false
	}
	id, ok := v.(identity)
	return id, ok
}

// sessionKey returns the anonymous cart key for unauthenticated callers.
func sessionKey(c *gin.Context) string {
	return c.GetHeader(sessionHeader)
}
