package middleware

import (
	"net/http"
	"strings"

	"account_service/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	AuthUserKey = "authUser"
	AuthRoleKey = "authRole"
)

// authFailureMessage is shared by every rejection so callers cannot tell a
// missing header from a bad or expired token
const authFailureMessage = "Please authenticate"

// JWTAuthMiddleware creates a middleware for JWT authentication
func JWTAuthMiddleware(jwtUtil *utils.JWTUtil, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authFailureMessage})
			return
		}

		claims, err := jwtUtil.ValidateAccessToken(tokenString)
		if err != nil {
			log.Debug("Access token rejected",
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authFailureMessage})
			return
		}

		// Set user information in context
		c.Set(AuthUserKey, claims.UserID)
		c.Set(AuthRoleKey, claims.Role)

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// GetAuthUserID returns the authenticated user ID placed on the context by JWTAuthMiddleware
func GetAuthUserID(c *gin.Context) (int, bool) {
	val, exists := c.Get(AuthUserKey)
	if !exists {
		return 0, false
	}
	userID, ok := val.(int)
	return userID, ok
}
