package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/auth"
	"github.com/Zaroscript/polaris-travel-blog-sub000/pkg/response"
)

const (
	userIDKey     = "user_id"
	authHeaderKey = "Authorization"
	bearerPrefix  = "Bearer "
)

// RequireAuth validates the bearer credential on every REST request
// with the same verifier that guards websocket admission.
func RequireAuth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(authHeaderKey)
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		identity, err := verifier.Verify(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}

		c.Set(userIDKey, identity)
		c.Next()
	}
}

// currentUser extracts the authenticated identity from the request.
func currentUser(c *gin.Context) string {
	if id, ok := c.Get(userIDKey); ok {
		return id.(string)
	}
	return ""
}
