package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (c *sqliteClient) IncrementWarn(ctx context.Context, groupID, userID int64) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var count int
	query := `
		INSERT INTO warns (group_id, user_id, count, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(group_id, user_id) DO UPDATE SET
			count = warns.count + 1,
			updated_at = excluded.updated_at
		RETURNING count
	`
	if err := c.db.GetContext(ctx, &count, query, groupID, userID, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("failed to increment warns: %w", err)
	}
	return count, nil
}

func (c *sqliteClient) GetWarns(ctx context.Context, groupID, userID int64) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	err := c.db.GetContext(ctx, &count, `SELECT count FROM warns WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get warns: %w", err)
	}
	return count, nil
}

func (c *sqliteClient) ResetWarns(ctx context.Context, groupID, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx,
		`UPDATE warns SET count = 0, updated_at = ? WHERE group_id = ? AND user_id = ?`,
		time.Now().UTC(), groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset warns: %w", err)
	}
	return nil
}
