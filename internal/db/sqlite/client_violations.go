package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/iamwavecut/grouppolice/internal/db"
)

func (c *sqliteClient) AddViolation(ctx context.Context, v *db.Violation) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO violations (case_id, user_id, username, group_id, group_name, kind, content, case_name, message_deleted, created_at)
		VALUES (:case_id, :user_id, :username, :group_id, :group_name, :kind, :content, :case_name, :message_deleted, :created_at)
	`
	res, err := c.db.NamedExecContext(ctx, query, v)
	if err != nil {
		return fmt.Errorf("failed to add violation: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		v.ID = id
	}
	return nil
}

func (c *sqliteClient) CountViolations(ctx context.Context) (int64, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var n int64
	if err := c.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM violations`); err != nil {
		return 0, fmt.Errorf("failed to count violations: %w", err)
	}
	return n, nil
}

func (c *sqliteClient) CountViolationsByKind(ctx context.Context) (map[db.ViolationKind]int64, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var rows []struct {
		Kind db.ViolationKind `db:"kind"`
		N    int64            `db:"n"`
	}
	if err := c.db.SelectContext(ctx, &rows, `SELECT kind, COUNT(*) AS n FROM violations GROUP BY kind`); err != nil {
		return nil, fmt.Errorf("failed to count violations by kind: %w", err)
	}
	res := make(map[db.ViolationKind]int64, len(rows))
	for _, r := range rows {
		res[r.Kind] = r.N
	}
	return res, nil
}

func (c *sqliteClient) AddLogEntry(ctx context.Context, entry *db.LogEntry) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO logs (type, entity_id, name, inviter_id, inviter_username, created_at)
		VALUES (:type, :entity_id, :name, :inviter_id, :inviter_username, :created_at)
	`
	res, err := c.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("failed to add log entry: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}
