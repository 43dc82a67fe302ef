package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"account_service/internal/model"
	"account_service/internal/repository"
)

// memUserRepo is an in-memory UserRepository
type memUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*model.User
	err    error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{nextID: 1, users: make(map[int]*model.User)}
}

func clone(u *model.User) *model.User {
	c := *u
	return &c
}

func (r *memUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return repository.ErrDuplicateUser
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = clone(user)
	return nil
}

func (r *memUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) FindByID(ctx context.Context, id int) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID == id })
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *memUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Username == username })
}

func (r *memUserRepo) List(ctx context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := []model.User{}
	for id := 1; id < r.nextID; id++ {
		if u, ok := r.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (r *memUserRepo) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, u := range r.users {
		if u.ID != user.ID && (u.Email == user.Email || u.Username == user.Username) {
			return repository.ErrDuplicateUser
		}
	}
	updated := clone(user)
	updated.RefreshToken = stored.RefreshToken
	updated.ResetPasswordToken = stored.ResetPasswordToken
	updated.ResetPasswordExpires = stored.ResetPasswordExpires
	updated.UpdatedAt = time.Now()
	r.users[user.ID] = updated
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) mutate(id int, fn func(*model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	return nil
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	return r.mutate(id, func(u *model.User) { u.PasswordHash = passwordHash })
}

func (r *memUserRepo) UpdateRefreshToken(ctx context.Context, id int, token *string) error {
	return r.mutate(id, func(u *model.User) {
		if token == nil {
			u.RefreshToken = nil
			return
		}
		t := *token
		u.RefreshToken = &t
	})
}

func (r *memUserRepo) RotateRefreshToken(ctx context.Context, id int, current, next string) (bool, error) {
	rotated := false
	err := r.mutate(id, func(u *model.User) {
		if u.RefreshToken != nil && *u.RefreshToken == current {
			u.RefreshToken = &next
			rotated = true
		}
	})
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return rotated, err
}

func (r *memUserRepo) SetResetToken(ctx context.Context, id int, token string, expires time.Time) error {
	return r.mutate(id, func(u *model.User) {
		u.ResetPasswordToken = &token
		u.ResetPasswordExpires = &expires
	})
}

func (r *memUserRepo) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == token &&
			u.ResetPasswordExpires != nil && u.ResetPasswordExpires.After(now) {
			u.PasswordHash = passwordHash
			u.ResetPasswordToken = nil
			u.ResetPasswordExpires = nil
			return true, nil
		}
	}
	return false, nil
}

type sentReset struct {
	to      string
	token   string
	expires time.Time
}

// stubMailer records password reset mails
type stubMailer struct {
	sent []sentReset
	err  error
}

func (m *stubMailer) SendPasswordReset(ctx context.Context, to, token string, expires time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentReset{to: to, token: token, expires: expires})
	return nil
}

func (m *stubMailer) last() sentReset {
	return m.sent[len(m.sent)-1]
}
