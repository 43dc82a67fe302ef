package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"account_service/internal/config"
	"account_service/internal/logger"
	"account_service/internal/mailer"
	"account_service/internal/model"
	"account_service/internal/repository"
	"account_service/internal/utils"

	"go.uber.org/zap"
)

var (
	ErrUserAlreadyExists   = errors.New("user with this email or username already exists")
	ErrUserNotFound        = errors.New("User not found")
	ErrInvalidCredentials  = errors.New("Invalid login credentials")
	ErrInvalidResetToken   = errors.New("Invalid or expired reset token")
	ErrIncorrectPassword   = errors.New("Current password is incorrect")
	ErrInvalidRefreshToken = errors.New("Invalid refresh token")
	ErrResetEmailFailed    = errors.New("failed to send password reset email")
)

var dummyPasswordHash = sync.OnceValue(func() string {
	hash, _ := utils.HashPassword("account-does-not-exist")
	return hash
})

// AuthService provides the credential and token lifecycle flows
type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*model.AuthResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	ChangePassword(ctx context.Context, userID int, currentPassword, newPassword string) error
	RefreshToken(ctx context.Context, refreshToken string) (*utils.TokenPair, error)
	Logout(ctx context.Context, userID int) error
}

type authService struct {
	userRepo repository.UserRepository
	jwtUtil  *utils.JWTUtil
	mailer   mailer.Mailer
	cfg      config.AuthConfig
	log      *zap.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, jwtUtil *utils.JWTUtil, m mailer.Mailer, cfg config.AuthConfig, log *zap.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		jwtUtil:  jwtUtil,
		mailer:   m,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Register creates a new user account and signs it in
func (s *authService) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	if err := ensureUnique(ctx, s.userRepo, req.Email, req.Username, 0); err != nil {
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	userRole := model.RoleUser
	if s.cfg.InitialAdminEmail != "" && strings.EqualFold(req.Email, s.cfg.InitialAdminEmail) {
		userRole = model.RoleAdmin
		s.log.Info("Registering initial admin account", zap.String("email", logger.MaskEmail(req.Email)))
	}

	user := &model.User{
		Username:       req.Username,
		Email:          req.Email,
		PasswordHash:   hashedPassword,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		ProfilePicture: req.ProfilePicture,
		Bio:            req.Bio,
		Role:           userRole,
		IsActive:       true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user in repository: %w", err)
	}

	resp, err := s.signIn(ctx, user)
	if err != nil {
		s.log.Error("User created, but failed to issue tokens", zap.Int("user_id", user.ID), zap.Error(err))
		return nil, err
	}

	s.log.Info("User registered", zap.Int("user_id", user.ID))
	return resp, nil
}

// Login authenticates a user by email and password. Any stored refresh token is replaced.
func (s *authService) Login(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error finding user by email: %w", err)
	}
	if user == nil {
		// Unknown emails cost one bcrypt compare, same as a wrong password
		utils.CheckPasswordHash(password, dummyPasswordHash())
		return nil, ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.log.Warn("Login attempt on inactive account", zap.Int("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	return s.signIn(ctx, user)
}

// signIn issues a token pair and stores its refresh token, invalidating earlier sessions
func (s *authService) signIn(ctx context.Context, user *model.User) (*model.AuthResponse, error) {
	pair, err := s.jwtUtil.GenerateTokenPair(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	user.RefreshToken = &pair.RefreshToken

	return &model.AuthResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// ForgotPassword issues a reset secret and mails it to the account owner
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("error finding user by email: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		return err
	}
	expires := s.now().Add(s.cfg.ResetTokenTTL)

	if err := s.userRepo.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, token, expires); err != nil {
		s.log.Error("Password reset email not delivered", zap.Int("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrResetEmailFailed, err)
	}

	s.log.Info("Password reset requested", zap.Int("user_id", user.ID), zap.Time("expires", expires))
	return nil
}

// ResetPassword sets a new password for the holder of a valid reset secret.
// The secret is cleared in the same statement, so it works at most once.
func (s *authService) ResetPassword(ctx context.Context, token, password string) error {
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	ok, err := s.userRepo.ConsumeResetToken(ctx, token, hashedPassword, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidResetToken
	}
	return nil
}

// ChangePassword replaces the password of an authenticated user
func (s *authService) ChangePassword(ctx context.Context, userID int, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("error finding user by ID: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if !utils.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return ErrIncorrectPassword
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, hashedPassword); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// RefreshToken exchanges the user's current refresh token for a new pair
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*utils.TokenPair, error) {
	claims, err := s.jwtUtil.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.log.Debug("Refresh token rejected", zap.Error(err))
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("error finding user by ID: %w", err)
	}
	// Only the most recently issued refresh token is accepted
	if user == nil || !user.IsActive || user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return nil, ErrInvalidRefreshToken
	}

	pair, err := s.jwtUtil.GenerateTokenPair(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	rotated, err := s.userRepo.RotateRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return nil, err
	}
	if !rotated {
		return nil, ErrInvalidRefreshToken
	}
	return pair, nil
}

// Logout revokes the user's refresh token. Access tokens expire on their own.
func (s *authService) Logout(ctx context.Context, userID int) error {
	if err := s.userRepo.UpdateRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// ensureUnique fails with ErrUserAlreadyExists when another account, other than
// excludeID, already uses the email or username
func ensureUnique(ctx context.Context, repo repository.UserRepository, email, username string, excludeID int) error {
	if email != "" {
		existing, err := repo.FindByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil && existing.ID != excludeID {
			return ErrUserAlreadyExists
		}
	}
	if username != "" {
		existing, err := repo.FindByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil && existing.ID != excludeID {
			return ErrUserAlreadyExists
		}
	}
	return nil
}
