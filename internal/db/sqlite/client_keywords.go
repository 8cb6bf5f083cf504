package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iamwavecut/grouppolice/internal/db"
)

func (c *sqliteClient) GetKeywords(ctx context.Context, list string) ([]string, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	words := []string{}
	if err := c.db.SelectContext(ctx, &words, `SELECT word FROM keywords WHERE list = ? ORDER BY created_at, word`, list); err != nil {
		return nil, fmt.Errorf("failed to get keywords %s: %w", list, err)
	}
	return words, nil
}

func (c *sqliteClient) AddKeywords(ctx context.Context, list string, words []string) (int, error) {
	words = db.NormalizeKeywords(words)
	if len(words) == 0 {
		return 0, nil
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `INSERT OR IGNORE INTO keywords (list, word, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	added := 0
	now := time.Now().UTC()
	for _, w := range words {
		res, err := stmt.ExecContext(ctx, list, w, now)
		if err != nil {
			return 0, fmt.Errorf("failed to add keyword: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

func (c *sqliteClient) RemoveKeywords(ctx context.Context, list string, words []string) (int, error) {
	words = db.NormalizeKeywords(words)
	if len(words) == 0 {
		return 0, nil
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query, args, err := sqlx.In(`DELETE FROM keywords WHERE list = ? AND word IN (?)`, list, words)
	if err != nil {
		return 0, err
	}
	res, err := c.db.ExecContext(ctx, c.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to remove keywords: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
