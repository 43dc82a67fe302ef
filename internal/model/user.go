package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account in the system
type User struct {
	ID             int       `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"` // Do not expose password hash in JSON responses
	FirstName      *string   `json:"firstName,omitempty"`
	LastName       *string   `json:"lastName,omitempty"`
	ProfilePicture *string   `json:"profilePicture,omitempty"`
	Bio            *string   `json:"bio,omitempty"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	// Credential lifecycle fields, never serialized
	ResetPasswordToken   *string    `json:"-"`
	ResetPasswordExpires *time.Time `json:"-"`
	RefreshToken         *string    `json:"-"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Username       string  `json:"username" binding:"required,min=3,max=100"`
	Email          string  `json:"email" binding:"required,email"`
	Password       string  `json:"password" binding:"required,min=6,max=72"`
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	ProfilePicture *string `json:"profilePicture"`
	Bio            *string `json:"bio"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6,max=72"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// CreateUserRequest is used by the user management endpoints
type CreateUserRequest struct {
	Username       string  `json:"username" binding:"required,min=3,max=100"`
	Email          string  `json:"email" binding:"required,email"`
	Password       string  `json:"password" binding:"required,min=6,max=72"`
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	ProfilePicture *string `json:"profilePicture"`
	Bio            *string `json:"bio"`
	Role           string  `json:"role" binding:"omitempty,oneof=user admin"`
	IsActive       *bool   `json:"isActive"`
}

// UpdateUserRequest holds pointers to allow partial updates
type UpdateUserRequest struct {
	Username       *string `json:"username,omitempty" binding:"omitempty,min=3,max=100"`
	Email          *string `json:"email,omitempty" binding:"omitempty,email"`
	Password       *string `json:"password,omitempty" binding:"omitempty,min=6,max=72"`
	FirstName      *string `json:"firstName,omitempty"`
	LastName       *string `json:"lastName,omitempty"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	Role           *string `json:"role,omitempty" binding:"omitempty,oneof=user admin"`
	IsActive       *bool   `json:"isActive,omitempty"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
