package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamwavecut/grouppolice/internal/db"
)

const groupColumns = `id, name, bot_enabled, filter_abusive, filter_pornographic_text, filter_spam,
	filter_links, filter_bio_links, usernamedel_enabled, welcome_message, added_by, created_at, updated_at`

func (c *sqliteClient) UpsertGroup(ctx context.Context, id int64, name string, addedBy int64) (*db.Group, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	g := db.DefaultGroup(id, name, addedBy)
	query := `
		INSERT INTO groups (` + groupColumns + `)
		VALUES (:id, :name, :bot_enabled, :filter_abusive, :filter_pornographic_text, :filter_spam,
			:filter_links, :filter_bio_links, :usernamedel_enabled, :welcome_message, :added_by, :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE groups.name END,
			updated_at = excluded.updated_at
	`
	if _, err := c.db.NamedExecContext(ctx, query, g); err != nil {
		return nil, fmt.Errorf("failed to upsert group %d: %w", id, err)
	}
	return c.getGroup(ctx, id)
}

func (c *sqliteClient) GetGroup(ctx context.Context, id int64) (*db.Group, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.getGroup(ctx, id)
}

func (c *sqliteClient) getGroup(ctx context.Context, id int64) (*db.Group, error) {
	var g db.Group
	err := c.db.GetContext(ctx, &g, `SELECT `+groupColumns+` FROM groups WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group %d: %w", id, err)
	}
	return &g, nil
}

func (c *sqliteClient) ListGroups(ctx context.Context) ([]*db.Group, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var groups []*db.Group
	if err := c.db.SelectContext(ctx, &groups, `SELECT `+groupColumns+` FROM groups ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

func (c *sqliteClient) CountGroups(ctx context.Context) (int64, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var n int64
	if err := c.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM groups`); err != nil {
		return 0, fmt.Errorf("failed to count groups: %w", err)
	}
	return n, nil
}

func (c *sqliteClient) SetGroupToggle(ctx context.Context, id int64, toggle db.Toggle, value bool) error {
	if !toggle.Valid() {
		return db.ErrUnknownToggle
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// toggle is validated against a closed set, so it is safe as a column name
	res, err := c.db.ExecContext(ctx,
		`UPDATE groups SET `+string(toggle)+` = ?, updated_at = ? WHERE id = ?`,
		value, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set %s for group %d: %w", toggle, id, err)
	}
	return mustAffect(res)
}

func (c *sqliteClient) SetWelcomeMessage(ctx context.Context, id int64, text string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx,
		`UPDATE groups SET welcome_message = ?, updated_at = ? WHERE id = ?`,
		text, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set welcome message for group %d: %w", id, err)
	}
	return mustAffect(res)
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}
