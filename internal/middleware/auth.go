package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-chat-service/internal/auth"
)

const identityContextKey = "identity"

// AuthMiddleware verifies the access-token cookie (the same credential the
// websocket handshake requires) and attaches the identity to the context.
func AuthMiddleware(verifier *auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := verifier.FromRequest(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing access token"})
			return
		}

		c.Set(identityContextKey, ident)
		c.Next()
	}
}

// IdentityFromContext returns the verified identity set by AuthMiddleware.
func IdentityFromContext(c *gin.Context) (auth.Identity, bool) {
	val, ok := c.Get(identityContextKey)
	if !ok {
		return auth.Identity{}, false
	}
	ident, ok := val.(auth.Identity)
	return ident, ok
}
