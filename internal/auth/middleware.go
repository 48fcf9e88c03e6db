package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityKey is the gin context key the middleware stores the verified
// identity name under.
const IdentityKey = "identity"

// SessionAuth enforces bearer session tokens on every wrapped route.
// A missing or malformed token is 401; a well-signed but expired token
// is 403. No handler runs on failure.
func SessionAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		identity, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "token expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// Identity returns the identity name set by SessionAuth, or "" when the
// route is unauthenticated.
func Identity(c *gin.Context) string {
	if v, ok := c.Get(IdentityKey); ok {
		if name, ok := v.(string); ok {
			return name
		}
	}
	return ""
}
