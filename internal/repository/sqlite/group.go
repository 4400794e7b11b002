package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/leadharvest/internal/domain"
)

// GroupLedger records which groups were already harvested for a niche.
type GroupLedger struct {
	db  *sql.DB
	now func() time.Time
}

// NewGroupLedger creates a SQLite-backed parsed-group ledger.
func NewGroupLedger(db *sql.DB) *GroupLedger {
	return &GroupLedger{db: db, now: time.Now}
}

// RecordGroup adds (groupID, niche); repeats are ignored.
func (l *GroupLedger) RecordGroup(ctx context.Context, groupID int64, niche string) error {
	if _, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO groups (group_id, niche, parsed_at) VALUES (?, ?, ?)`,
		groupID, niche, formatTime(l.now())); err != nil {
		return fmt.Errorf("record group: %w", err)
	}
	return nil
}

// IsGroupParsed reports whether groupID was already harvested for niche.
func (l *GroupLedger) IsGroupParsed(ctx context.Context, groupID int64, niche string) (bool, error) {
	var n int
	if err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM groups WHERE group_id = ? AND niche = ?`, groupID, niche).Scan(&n); err != nil {
		return false, fmt.Errorf("check group: %w", err)
	}
	return n > 0, nil
}

// ParsedGroups lists ledger rows for a niche, or all rows when niche is empty.
func (l *GroupLedger) ParsedGroups(ctx context.Context, niche string) ([]domain.ParsedGroup, error) {
	q := `SELECT id, group_id, niche, parsed_at FROM groups`
	var args []interface{}
	if niche != "" {
		q += ` WHERE niche = ?`
		args = append(args, niche)
	}
	q += ` ORDER BY id`

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list parsed groups: %w", err)
	}
	defer rows.Close()

	var out []domain.ParsedGroup
	for rows.Next() {
		var (
			g        domain.ParsedGroup
			parsedAt sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.GroupID, &g.Niche, &parsedAt); err != nil {
			return nil, fmt.Errorf("scan parsed group: %w", err)
		}
		if t := scanTime(parsedAt); t != nil {
			g.ParsedAt = *t
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
