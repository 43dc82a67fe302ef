package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process-wide configuration, built once at startup and passed to constructors
type Config struct {
	Server   ServerConfig
	Database DBConfig
	JWT      JWTConfig
	Auth     AuthConfig
	SMTP     SMTPConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

// JWTConfig holds the signing material for access and refresh tokens
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type AuthConfig struct {
	ResetTokenTTL time.Duration
	// ProtectUserRoutes puts the /users endpoints behind the auth gate and the admin role
	ProtectUserRoutes bool
	// InitialAdminEmail registers the matching account with the admin role
	InitialAdminEmail string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled reports whether an SMTP relay is configured
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load builds the configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ENVIRONMENT", EnvDevelopment)
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("JWT_ACCESS_TTL", 15*time.Minute)
	v.SetDefault("JWT_REFRESH_TTL", 7*24*time.Hour)
	v.SetDefault("RESET_TOKEN_TTL", time.Hour)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("USERS_API_PROTECTED", false)

	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetString("SERVER_PORT"),
			Environment: v.GetString("ENVIRONMENT"),
		},
		Database: DBConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWT: JWTConfig{
			AccessSecret:  v.GetString("JWT_ACCESS_SECRET"),
			RefreshSecret: v.GetString("JWT_REFRESH_SECRET"),
			AccessTTL:     v.GetDuration("JWT_ACCESS_TTL"),
			RefreshTTL:    v.GetDuration("JWT_REFRESH_TTL"),
		},
		Auth: AuthConfig{
			ResetTokenTTL:     v.GetDuration("RESET_TOKEN_TTL"),
			ProtectUserRoutes: v.GetBool("USERS_API_PROTECTED"),
			InitialAdminEmail: v.GetString("INITIAL_ADMIN_EMAIL"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive (access %v, refresh %v)", c.JWT.AccessTTL, c.JWT.RefreshTTL)
	}
	if c.Auth.ResetTokenTTL <= 0 {
		return fmt.Errorf("RESET_TOKEN_TTL must be positive, got %v", c.Auth.ResetTokenTTL)
	}
	if c.Server.Environment == EnvProduction && !c.SMTP.Enabled() {
		return errors.New("SMTP_HOST must be set when ENVIRONMENT=production")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
