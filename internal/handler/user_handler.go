package handler

import (
	"net/http"
	"strconv"

	"account_service/internal/model"
	"account_service/internal/service"
	"account_service/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler exposes user management endpoints
type UserHandler struct {
	service service.UserService
	log     *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(s service.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{service: s, log: log}
}

var userErrorCases = []ErrorCase{
	{Err: service.ErrUserNotFound, Status: http.StatusNotFound},
	{Err: service.ErrUserAlreadyExists, Status: http.StatusBadRequest},
	{Err: utils.ErrPasswordTooLong, Status: http.StatusBadRequest},
}

func parseUserID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return 0, false
	}
	return id, true
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		respondWithMappedError(c, h.log, err, nil, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		respondWithMappedError(c, h.log, err, userErrorCases, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), req)
	if err != nil {
		respondWithMappedError(c, h.log, err, userErrorCases, http.StatusInternalServerError, "Failed to create user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	var req model.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), id, req)
	if err != nil {
		respondWithMappedError(c, h.log, err, userErrorCases, http.StatusInternalServerError, "Failed to update user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), id); err != nil {
		respondWithMappedError(c, h.log, err, userErrorCases, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// RegisterUserRoutes registers user management routes behind the given middlewares
func (h *UserHandler) RegisterUserRoutes(rg *gin.RouterGroup, mws ...gin.HandlerFunc) {
	userGroup := rg.Group("/users", mws...)
	{
		userGroup.GET("", h.ListUsers)
		userGroup.GET("/:id", h.GetUser)
		userGroup.POST("", h.CreateUser)
		userGroup.PUT("/:id", h.UpdateUser)
		userGroup.DELETE("/:id", h.DeleteUser)
	}
}
