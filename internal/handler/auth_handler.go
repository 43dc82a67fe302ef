package handler

import (
	"net/http"

	"account_service/internal/middleware"
	"account_service/internal/model"
	"account_service/internal/service"
	"account_service/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	service service.AuthService
	log     *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(s service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{service: s, log: log}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		respondWithMappedError(c, h.log, err, []ErrorCase{
			{Err: service.ErrUserAlreadyExists, Status: http.StatusBadRequest},
			{Err: utils.ErrPasswordTooLong, Status: http.StatusBadRequest},
		}, http.StatusInternalServerError, "Failed to register user")
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Malformed credentials get the same answer as wrong ones
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrInvalidCredentials.Error()})
		return
	}

	resp, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondWithMappedError(c, h.log, err, []ErrorCase{
			{Err: service.ErrInvalidCredentials, Status: http.StatusUnauthorized},
		}, http.StatusInternalServerError, "Failed to login")
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req model.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.service.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondWithMappedError(c, h.log, err, []ErrorCase{
			{Err: service.ErrUserNotFound, Status: http.StatusBadRequest},
		}, http.StatusInternalServerError, "Failed to send password reset email")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset email sent"})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondWithMappedError(c, h.log, err, []ErrorCase{
			{Err: service.ErrInvalidResetToken, Status: http.StatusBadRequest},
			{Err: utils.ErrPasswordTooLong, Status: http.StatusBadRequest},
		}, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := middleware.GetAuthUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Please authenticate"})
		return
	}

	var req model.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondWithMappedError(c, h.log, err, []ErrorCase{
			{Err: service.ErrIncorrectPassword, Status: http.StatusBadRequest},
			{Err: service.ErrUserNotFound, Status: http.StatusBadRequest},
			{Err: utils.ErrPasswordTooLong, Status: http.StatusBadRequest},
		}, http.StatusInternalServerError, "Failed to change password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req model.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrInvalidRefreshToken.Error()})
		return
	}

	pair, err := h.service.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		// Every refresh failure answers 401, storage faults included; those are logged at error level
		respondWithMappedError(c, h.log, err, []ErrorCase{
			{Err: service.ErrInvalidRefreshToken, Status: http.StatusUnauthorized},
		}, http.StatusUnauthorized, service.ErrInvalidRefreshToken.Error())
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := middleware.GetAuthUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Please authenticate"})
		return
	}

	if err := h.service.Logout(c.Request.Context(), userID); err != nil {
		respondWithMappedError(c, h.log, err, []ErrorCase{
			{Err: service.ErrUserNotFound, Status: http.StatusUnauthorized, Message: "Please authenticate"},
		}, http.StatusInternalServerError, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// RegisterAuthRoutes registers auth routes. authMW guards the routes that need a signed-in user.
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/forgot-password", h.ForgotPassword)
		authGroup.POST("/reset-password", h.ResetPassword)
		authGroup.POST("/refresh-token", h.RefreshToken)
		authGroup.POST("/change-password", authMW, h.ChangePassword)
		authGroup.POST("/logout", authMW, h.Logout)
	}
}
