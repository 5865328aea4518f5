package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"meal-planner/internal/store"
)

var (
	ErrInvalidEmail = errors.New("invalid email format")
	ErrUserExists   = errors.New("user already exists")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Users persists accounts and their refresh tokens.
type Users struct {
	store *store.Store
}

func NewUsers(s *store.Store) *Users {
	return &Users{store: s}
}

// Create adds an active user whose name is the local part of the email.
func (u *Users) Create(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.SplitN(email, "@", 2)[0],
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = store.Exec(ctx, u.store.Dialect, u.store.DB,
		`INSERT INTO users (id, email, name, password_hash, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.PasswordHash, user.Active, user.CreatedAt, user.UpdatedAt)
	if errors.Is(err, store.ErrUniqueViolation) {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, email)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (u *Users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return u.find(ctx, "email", strings.TrimSpace(email))
}

func (u *Users) FindByID(ctx context.Context, id string) (*User, error) {
	return u.find(ctx, "id", id)
}

// Delete removes the user and, by cascade, their refresh tokens.
func (u *Users) Delete(ctx context.Context, email string) error {
	n, err := store.Exec(ctx, u.store.Dialect, u.store.DB,
		"DELETE FROM users WHERE email = ?", strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetPassword replaces the password and revokes every refresh token of the user.
func (u *Users) SetPassword(ctx context.Context, email, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return u.store.WithTx(ctx, func(tx store.Querier) error {
		d := u.store.Dialect
		var id string
		if err := store.QueryRow(ctx, d, tx,
			"SELECT id FROM users WHERE email = ?", strings.TrimSpace(email)).Scan(&id); err != nil {
			return store.ScanErr(err)
		}
		if _, err := store.Exec(ctx, d, tx,
			"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
			hash, time.Now().UTC(), id); err != nil {
			return err
		}
		_, err := store.Exec(ctx, d, tx, "DELETE FROM refresh_tokens WHERE user_id = ?", id)
		return err
	})
}

// SaveRefreshToken stores a refresh token for the user.
func (u *Users) SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := store.Exec(ctx, u.store.Dialect, u.store.DB,
		"INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), userID, token, expiresAt.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// ConsumeRefreshToken deletes the token and returns its owner and expiry.
// Each refresh token can be used once.
func (u *Users) ConsumeRefreshToken(ctx context.Context, token string) (*User, time.Time, error) {
	var user *User
	var expiresAt time.Time
	err := u.store.WithTx(ctx, func(tx store.Querier) error {
		d := u.store.Dialect
		var tokenID, userID string
		if err := store.QueryRow(ctx, d, tx,
			"SELECT id, user_id, expires_at FROM refresh_tokens WHERE token = ?", token).
			Scan(&tokenID, &userID, &expiresAt); err != nil {
			return store.ScanErr(err)
		}
		if _, err := store.Exec(ctx, d, tx, "DELETE FROM refresh_tokens WHERE id = ?", tokenID); err != nil {
			return err
		}
		var err error
		user, err = u.findWith(ctx, tx, "id", userID)
		return err
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	return user, expiresAt, nil
}

// RevokeRefreshToken deletes a refresh token. Unknown tokens are ignored.
func (u *Users) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := store.Exec(ctx, u.store.Dialect, u.store.DB,
		"DELETE FROM refresh_tokens WHERE token = ?", token)
	return err
}

// PurgeExpiredTokens deletes refresh tokens that expired before now.
func (u *Users) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	n, err := store.Exec(ctx, u.store.Dialect, u.store.DB,
		"DELETE FROM refresh_tokens WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	return n, nil
}

func (u *Users) find(ctx context.Context, column, value string) (*User, error) {
	return u.findWith(ctx, u.store.DB, column, value)
}

func (u *Users) findWith(ctx context.Context, q store.Querier, column, value string) (*User, error) {
	var user User
	err := store.QueryRow(ctx, u.store.Dialect, q,
		`SELECT id, email, name, password_hash, active, created_at, updated_at
		 FROM users WHERE `+column+` = ?`, value).
		Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Active, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, store.ScanErr(err)
	}
	return &user, nil
}
