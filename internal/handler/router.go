package handler

import (
	"context"
	"net/http"

	"account_service/internal/config"
	"account_service/internal/middleware"
	"account_service/internal/service"
	"account_service/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports database health
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps carries everything NewRouter wires together
type RouterDeps struct {
	Config      *config.Config
	AuthService service.AuthService
	UserService service.UserService
	JWTUtil     *utils.JWTUtil
	DB          Pinger
	Log         *zap.Logger
}

// NewRouter builds the gin engine with middlewares and all routes registered
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.LoggingMiddleware(d.Log),
		middleware.CORSMiddleware(d.Config.CORS),
	)

	jwtAuthMW := middleware.JWTAuthMiddleware(d.JWTUtil, d.Log)

	apiGroup := router.Group("/api")
	NewAuthHandler(d.AuthService, d.Log).RegisterAuthRoutes(apiGroup, jwtAuthMW)

	userHandler := NewUserHandler(d.UserService, d.Log)
	if d.Config.Auth.ProtectUserRoutes {
		userHandler.RegisterUserRoutes(apiGroup,
			jwtAuthMW,
			middleware.ActiveUserMiddleware(d.UserService, d.Log),
			middleware.AdminMiddleware(),
		)
	} else {
		d.Log.Warn("User management routes are not protected, set USERS_API_PROTECTED=true to require an admin token")
		userHandler.RegisterUserRoutes(apiGroup)
	}

	router.GET("/health", func(c *gin.Context) {
		if err := d.DB.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "db": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "healthy"})
	})

	return router
}
