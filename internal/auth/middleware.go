package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CookieName is the cookie the browser flow stores its token in.
const CookieName = "auth_token"

const claimsKey = "claims"

// Resolver re-checks a user against the store. It returns the user's current
// role, or an error when the user no longer exists.
type Resolver func(ctx context.Context, userID string) (string, error)

// RequireUser enforces a signed identity token carried either in the
// auth_token cookie or an Authorization bearer header. When resolve is
// non-nil, every request additionally re-validates the user against the
// store; otherwise token claims are trusted until expiry.
func RequireUser(signingKey, issuer string, resolve Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := credentialFromRequest(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if resolve != nil {
			role, err := resolve(c.Request.Context(), claims.Subject)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
				return
			}
			claims.Role = role
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims attached by RequireUser.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	val, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := val.(Claims)
	return claims, ok
}

// credentialFromRequest prefers the cookie transport, falling back to a
// bearer header for API clients.
func credentialFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie != "" {
		return cookie
	}
	authz := c.GetHeader("Authorization")
	if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("bearer "):])
}
