package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"account_service/internal/config"
	"account_service/internal/model"
	"account_service/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type authFixture struct {
	svc    *authService
	repo   *memUserRepo
	mailer *stubMailer
	clock  time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		repo:   newMemUserRepo(),
		mailer: &stubMailer{},
		clock:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	jwtUtil := utils.NewJWTUtil(config.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	cfg := config.AuthConfig{ResetTokenTTL: time.Hour, InitialAdminEmail: "root@x.com"}
	f.svc = NewAuthService(f.repo, jwtUtil, f.mailer, cfg, zaptest.NewLogger(t)).(*authService)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *authFixture) register(t *testing.T, email, password string) *model.AuthResponse {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), model.RegisterRequest{
		Username: email,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return resp
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)

	resp := f.register(t, "a@x.com", "secret1")

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, model.RoleUser, resp.User.Role)
	assert.True(t, resp.User.IsActive)

	stored, _ := f.repo.FindByID(context.Background(), resp.User.ID)
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.True(t, utils.CheckPasswordHash("secret1", stored.PasswordHash))
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, resp.RefreshToken, *stored.RefreshToken)
}

func TestRegister_Duplicate(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@x.com", "secret1")

	_, err := f.svc.Register(context.Background(), model.RegisterRequest{Username: "other", Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, err = f.svc.Register(context.Background(), model.RegisterRequest{Username: "a@x.com", Email: "b@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegister_InitialAdmin(t *testing.T) {
	f := newAuthFixture(t)

	resp := f.register(t, "root@x.com", "secret1")
	assert.Equal(t, model.RoleAdmin, resp.User.Role)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "a@x.com", "secret1")

	_, err := f.svc.Login(context.Background(), "a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "Invalid login credentials", err.Error())

	_, err = f.svc.Login(context.Background(), "nobody@x.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	resp, err := f.svc.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, reg.RefreshToken, resp.RefreshToken)
	assert.Equal(t, reg.User.ID, resp.User.ID)

	// The registration-time refresh token has been superseded
	_, err = f.svc.RefreshToken(context.Background(), reg.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = f.svc.RefreshToken(context.Background(), resp.RefreshToken)
	assert.NoError(t, err)
}

func TestLogin_InactiveUser(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "a@x.com", "secret1")
	require.NoError(t, f.repo.mutate(reg.User.ID, func(u *model.User) { u.IsActive = false }))

	_, err := f.svc.Login(context.Background(), "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.RefreshToken(context.Background(), reg.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestLogin_RepositoryError(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.err = errors.New("db down")

	_, err := f.svc.Login(context.Background(), "a@x.com", "secret1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshToken_Rotation(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "a@x.com", "secret1")

	pair, err := f.svc.RefreshToken(context.Background(), reg.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, reg.RefreshToken, pair.RefreshToken)

	// Replaying the rotated token fails
	_, err = f.svc.RefreshToken(context.Background(), reg.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	next, err := f.svc.RefreshToken(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)
}

func TestRefreshToken_RejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "a@x.com", "secret1")

	_, err := f.svc.RefreshToken(context.Background(), reg.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = f.svc.RefreshToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "a@x.com", "secret1")

	require.NoError(t, f.svc.Logout(context.Background(), reg.User.ID))

	_, err := f.svc.RefreshToken(context.Background(), reg.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	assert.ErrorIs(t, f.svc.Logout(context.Background(), 999), ErrUserNotFound)
}

func TestForgotPassword(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "a@x.com", "secret1")

	require.NoError(t, f.svc.ForgotPassword(context.Background(), "a@x.com"))

	require.Len(t, f.mailer.sent, 1)
	sent := f.mailer.last()
	assert.Equal(t, "a@x.com", sent.to)
	assert.Len(t, sent.token, 40)
	assert.Equal(t, f.clock.Add(time.Hour), sent.expires)

	stored, _ := f.repo.FindByID(context.Background(), reg.User.ID)
	require.NotNil(t, stored.ResetPasswordToken)
	assert.Equal(t, sent.token, *stored.ResetPasswordToken)
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.ForgotPassword(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, f.mailer.sent)
}

func TestForgotPassword_MailFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@x.com", "secret1")
	f.mailer.err = errors.New("smtp unavailable")

	err := f.svc.ForgotPassword(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, ErrResetEmailFailed)
}

func TestForgotPassword_ReplacesEarlierToken(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@x.com", "secret1")

	require.NoError(t, f.svc.ForgotPassword(context.Background(), "a@x.com"))
	first := f.mailer.last().token
	require.NoError(t, f.svc.ForgotPassword(context.Background(), "a@x.com"))

	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), first, "newpass1"), ErrInvalidResetToken)
	assert.NoError(t, f.svc.ResetPassword(context.Background(), f.mailer.last().token, "newpass1"))
}

func TestResetPassword_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{name: "accepted before expiry", elapsed: 59 * time.Minute},
		{name: "rejected after expiry", elapsed: 61 * time.Minute, wantErr: ErrInvalidResetToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			f.register(t, "a@x.com", "secret1")
			require.NoError(t, f.svc.ForgotPassword(context.Background(), "a@x.com"))
			token := f.mailer.last().token

			f.clock = f.clock.Add(tt.elapsed)
			err := f.svc.ResetPassword(context.Background(), token, "newpass1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestResetPassword_SingleUse(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "a@x.com", "secret1")
	require.NoError(t, f.svc.ForgotPassword(context.Background(), "a@x.com"))
	token := f.mailer.last().token

	require.NoError(t, f.svc.ResetPassword(context.Background(), token, "newpass1"))
	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), token, "another1"), ErrInvalidResetToken)

	stored, _ := f.repo.FindByID(context.Background(), reg.User.ID)
	assert.Nil(t, stored.ResetPasswordToken)
	assert.Nil(t, stored.ResetPasswordExpires)

	_, err := f.svc.Login(context.Background(), "a@x.com", "newpass1")
	assert.NoError(t, err)
	_, err = f.svc.Login(context.Background(), "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResetPassword_UnknownToken(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.ResetPassword(context.Background(), "deadbeef", "newpass1")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
	assert.Equal(t, "Invalid or expired reset token", err.Error())
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "a@x.com", "secret1")

	err := f.svc.ChangePassword(context.Background(), reg.User.ID, "wrong", "newpass1")
	assert.ErrorIs(t, err, ErrIncorrectPassword)

	require.NoError(t, f.svc.ChangePassword(context.Background(), reg.User.ID, "secret1", "newpass1"))

	_, err = f.svc.Login(context.Background(), "a@x.com", "newpass1")
	assert.NoError(t, err)

	assert.ErrorIs(t, f.svc.ChangePassword(context.Background(), 999, "secret1", "newpass1"), ErrUserNotFound)
}

func TestLogin_UnknownEmailRunsBcrypt(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), "nobody@x.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.True(t, strings.HasPrefix(dummyPasswordHash(), "$2a$"))
}

func TestPasswordTooLong(t *testing.T) {
	f := newAuthFixture(t)
	long := strings.Repeat("a", 100)

	_, err := f.svc.Register(context.Background(), model.RegisterRequest{Username: "longpw", Email: "l@x.com", Password: long})
	assert.ErrorIs(t, err, utils.ErrPasswordTooLong)

	reg := f.register(t, "a@x.com", "secret1")
	assert.ErrorIs(t, f.svc.ChangePassword(context.Background(), reg.User.ID, "secret1", long), utils.ErrPasswordTooLong)

	require.NoError(t, f.svc.ForgotPassword(context.Background(), "a@x.com"))
	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), f.mailer.last().token, long), utils.ErrPasswordTooLong)

	// The failed reset did not consume the token
	assert.NoError(t, f.svc.ResetPassword(context.Background(), f.mailer.last().token, "newpass1"))
}
