package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"account_service/internal/model"
	"account_service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserLookup loads the current state of an account
type UserLookup interface {
	GetUser(ctx context.Context, id int) (*model.User, error)
}

// ActiveUserMiddleware reloads the authenticated account and replaces the role
// claim with the stored role. Deleted or deactivated accounts are rejected even
// while their access token is still valid. Must run after JWTAuthMiddleware.
func ActiveUserMiddleware(users UserLookup, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetAuthUserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authFailureMessage})
			return
		}

		user, err := users.GetUser(c.Request.Context(), userID)
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authFailureMessage})
			return
		case err != nil:
			log.Error("Failed to load authenticated user",
				zap.String("request_id", GetRequestID(c)),
				zap.Int("user_id", userID),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		case !user.IsActive:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authFailureMessage})
			return
		}

		c.Set(AuthRoleKey, user.Role)
		c.Next()
	}
}

// RoleMiddleware lets the request through only when the role on the context is one of allowedRoles
func RoleMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(AuthRoleKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Role not found, authentication must run first"})
			return
		}
		if r, isString := role.(string); !isString || !slices.Contains(allowedRoles, r) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
			return
		}
		c.Next()
	}
}

// AdminMiddleware checks if the user is an admin
func AdminMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleAdmin)
}
