package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamwavecut/grouppolice/internal/db"
)

func (c *sqliteClient) UpsertUser(ctx context.Context, user *db.User) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if user.LastSeen.IsZero() {
		user.LastSeen = time.Now().UTC()
	}
	query := `
		INSERT INTO users (id, username, first_name, last_name, is_bot, last_seen)
		VALUES (:id, :username, :first_name, :last_name, :is_bot, :last_seen)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			is_bot = excluded.is_bot,
			last_seen = excluded.last_seen
	`
	if _, err := c.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", user.ID, err)
	}
	return nil
}

func (c *sqliteClient) GetUser(ctx context.Context, id int64) (*db.User, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var u db.User
	err := c.db.GetContext(ctx, &u, `SELECT id, username, first_name, last_name, is_bot, last_seen FROM users WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &u, nil
}

func (c *sqliteClient) CountUsers(ctx context.Context) (int64, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var n int64
	if err := c.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (c *sqliteClient) GetBioLinkException(ctx context.Context, userID int64) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var allowed bool
	err := c.db.GetContext(ctx, &allowed, `SELECT has_exception FROM biolink_exceptions WHERE user_id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get bio link exception for %d: %w", userID, err)
	}
	return allowed, nil
}

func (c *sqliteClient) SetBioLinkException(ctx context.Context, userID int64, allowed bool) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO biolink_exceptions (user_id, has_exception, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			has_exception = excluded.has_exception,
			updated_at = excluded.updated_at
	`
	if _, err := c.db.ExecContext(ctx, query, userID, allowed, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set bio link exception for %d: %w", userID, err)
	}
	return nil
}
