package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"account_service/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

// JWTClaims custom claims for JWT
type JWTClaims struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenPair is an access token together with its refresh token
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// JWTUtil issues and verifies access and refresh tokens. Each kind has its own
// secret and lifetime, so one can never be accepted in place of the other.
type JWTUtil struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewJWTUtil creates a new JWTUtil
func NewJWTUtil(cfg config.JWTConfig) *JWTUtil {
	return &JWTUtil{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
	}
}

// GenerateTokenPair issues a fresh access and refresh token for the user
func (ju *JWTUtil) GenerateTokenPair(userID int, role string) (*TokenPair, error) {
	access, err := ju.sign(userID, role, ju.accessSecret, ju.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	refresh, err := ju.sign(userID, role, ju.refreshSecret, ju.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateAccessToken validates a token against the access secret
func (ju *JWTUtil) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	return ju.validate(tokenString, ju.accessSecret)
}

// ValidateRefreshToken validates a token against the refresh secret
func (ju *JWTUtil) ValidateRefreshToken(tokenString string) (*JWTClaims, error) {
	return ju.validate(tokenString, ju.refreshSecret)
}

func (ju *JWTUtil) sign(userID int, role string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   strconv.Itoa(userID),
			// Unique per token so two pairs issued within the same second never collide
			ID: uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func (ju *JWTUtil) validate(tokenString string, secret []byte) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrTokenInvalid
}
