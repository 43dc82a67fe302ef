package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account_service/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateUser = errors.New("duplicate username or email")
)

const uniqueViolation = "23505"

// DBTX is the subset of pgxpool.Pool used by repositories
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository defines operations for user data
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id int) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int) error

	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	UpdateRefreshToken(ctx context.Context, id int, token *string) error
	RotateRefreshToken(ctx context.Context, id int, current, next string) (bool, error)
	SetResetToken(ctx context.Context, id int, token string, expires time.Time) error
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (bool, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, email, password_hash, first_name, last_name, profile_picture, bio,
            role, is_active, reset_password_token, reset_password_expires, refresh_token, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.ProfilePicture, &u.Bio,
		&u.Role, &u.IsActive, &u.ResetPasswordToken, &u.ResetPasswordExpires, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	sql := `INSERT INTO users (username, email, password_hash, first_name, last_name, profile_picture, bio, role, is_active)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, sql,
		user.Username, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.ProfilePicture, user.Bio,
		user.Role, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) findOne(ctx context.Context, where string, arg any) (*model.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	user, err := scanUser(r.db.QueryRow(ctx, sql, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found is not an error for lookups, the service layer decides
		}
		return nil, err
	}
	return user, nil
}

// FindByID retrieves a user by their ID
func (r *userRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	user, err := r.findOne(ctx, "id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail retrieves a user by their email address
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := r.findOne(ctx, "email = $1", email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindByUsername retrieves a user by their username
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := r.findOne(ctx, "username = $1", username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// List returns all users ordered by ID
func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// Update writes the mutable profile and account fields of a user
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	sql := `UPDATE users SET username = $1, email = $2, password_hash = $3, first_name = $4, last_name = $5,
            profile_picture = $6, bio = $7, role = $8, is_active = $9
            WHERE id = $10 RETURNING updated_at`
	err := r.db.QueryRow(ctx, sql,
		user.Username, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.ProfilePicture, user.Bio, user.Role, user.IsActive, user.ID,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// Delete removes a user
func (r *userRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) execOne(ctx context.Context, op, sql string, args ...any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored password hash
func (r *userRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	return r.execOne(ctx, "update password",
		`UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
}

// UpdateRefreshToken stores the user's current refresh token. A nil token revokes it.
func (r *userRepository) UpdateRefreshToken(ctx context.Context, id int, token *string) error {
	return r.execOne(ctx, "update refresh token",
		`UPDATE users SET refresh_token = $1 WHERE id = $2`, token, id)
}

// RotateRefreshToken swaps the stored refresh token only if it still equals current.
// It reports false when another request already rotated or revoked it.
func (r *userRepository) RotateRefreshToken(ctx context.Context, id int, current, next string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET refresh_token = $1 WHERE id = $2 AND refresh_token = $3`, next, id, current)
	if err != nil {
		return false, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetResetToken stores a password reset secret, replacing any earlier one
func (r *userRepository) SetResetToken(ctx context.Context, id int, token string, expires time.Time) error {
	return r.execOne(ctx, "set reset token",
		`UPDATE users SET reset_password_token = $1, reset_password_expires = $2 WHERE id = $3`, token, expires, id)
}

// ConsumeResetToken sets a new password hash for the holder of an unexpired reset
// secret and clears the secret in the same statement. It reports false when no
// user holds the token or it has expired.
func (r *userRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, reset_password_token = NULL, reset_password_expires = NULL
            WHERE reset_password_token = $2 AND reset_password_expires > $3`, passwordHash, token, now)
	if err != nil {
		return false, fmt.Errorf("failed to reset password: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
