package middleware

import (
	"net/http"
	"strings"

	"sosline/internal/services"
	"sosline/internal/utils"
	"sosline/pkg/logger"
	"sosline/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// AuthRequired validates the bearer token and sets user_id, user_type and
// phone on the context. Browsers cannot set headers on a WebSocket
// handshake, so the token is also accepted as the "token" query parameter.
func AuthRequired(secret string, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization token required")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, secret)
		if err != nil {
			log.LogSecurityEvent("invalid_token", "medium", map[string]interface{}{
				"path":      c.Request.URL.Path,
				"client_ip": c.ClientIP(),
				"reason":    err.Error(),
			})
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", utils.ErrInvalidToken)
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_type", claims.UserType)
		c.Set("phone", claims.Phone)

		c.Next()
	}
}

// ResponderRequired lets through only identities the policy treats as
// responders. It must run after AuthRequired.
func ResponderRequired(policy services.AccessPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := websocket.ContextIdentity(c)
		if identity.UserID == "" {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		if !policy.IsResponder(identity) {
			utils.ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", "Responder access required")
			c.Abort()
			return
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return ""
		}
		return strings.TrimSpace(tokenString)
	}
	return c.Query("token")
}
