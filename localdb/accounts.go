package localdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"trajet.transportbi.org/internal/clock"
	"trajet.transportbi.org/internal/gateway"
)

// IsAdmin reports whether userID is present in the admins table.
func (c *Client) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var one int
	err := c.DB.QueryRowContext(ctx, "SELECT 1 FROM admins WHERE user_id = ?", userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("admin lookup: %w", err)
	}
	return true, nil
}

// GrantAdmin adds userID to the admins table. Granting twice is a no-op.
func (c *Client) GrantAdmin(ctx context.Context, userID string) error {
	_, err := c.DB.ExecContext(ctx,
		"INSERT INTO admins (user_id, created_at) VALUES (?, ?) ON CONFLICT (user_id) DO NOTHING",
		userID, clock.Timestamp(c.clock))
	if err != nil {
		return fmt.Errorf("grant admin: %w", err)
	}
	return nil
}

func (c *Client) RevokeAdmin(ctx context.Context, userID string) error {
	if _, err := c.DB.ExecContext(ctx, "DELETE FROM admins WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("revoke admin: %w", err)
	}
	return nil
}

// User is a locally registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser stores a new account. A duplicate email yields gateway.ErrConflict.
func (c *Client) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	u := User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
	}
	created := clock.Timestamp(c.clock)
	_, err := c.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		u.ID, u.Email, u.PasswordHash, created)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", translateError(err))
	}
	u.CreatedAt, _ = clock.ParseTimestamp(created)
	return u, nil
}

func (c *Client) scanUser(row *sql.Row) (User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &created); err != nil {
		return User{}, translateError(err)
	}
	u.CreatedAt, _ = clock.ParseTimestamp(created)
	return u, nil
}

// UserByEmail looks an account up case-insensitively.
func (c *Client) UserByEmail(ctx context.Context, email string) (User, error) {
	row := c.DB.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE email = ?",
		strings.TrimSpace(email))
	u, err := c.scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("user by email: %w", err)
	}
	return u, nil
}

func (c *Client) UserByID(ctx context.Context, id string) (User, error) {
	row := c.DB.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE id = ?", id)
	u, err := c.scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("user by id: %w", err)
	}
	return u, nil
}

var _ gateway.AdminRegistry = (*Client)(nil)
