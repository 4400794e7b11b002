package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/leadharvest/internal/domain"
	"github.com/ignite/leadharvest/internal/service/candidate"
)

// CandidateRepo implements candidate.Repository against the users table.
type CandidateRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewCandidateRepo creates a SQLite-backed candidate repository.
func NewCandidateRepo(db *sql.DB) *CandidateRepo {
	return &CandidateRepo{db: db, now: time.Now}
}

const candidateColumns = `id, first_name, last_name, url, sent, created_at, sent_at, reminder_sent,
	sex, city_id, city_title, can_message, has_mobile, last_seen_at`

func scanCandidate(row interface{ Scan(...interface{}) error }) (*domain.Candidate, error) {
	var (
		c                         domain.Candidate
		createdAt, sentAt, seenAt sql.NullString
		sex                       int
	)
	if err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.ProfileURL, &c.Contacted, &createdAt, &sentAt, &c.ReminderSent,
		&sex, &c.CityID, &c.CityTitle, &c.CanMessage, &c.HasMobile, &seenAt,
	); err != nil {
		return nil, err
	}
	c.Sex = domain.Sex(sex)
	if t := scanTime(createdAt); t != nil {
		c.CreatedAt = *t
	}
	c.ContactedAt = scanTime(sentAt)
	c.LastSeenAt = scanTime(seenAt)
	return &c, nil
}

func (r *CandidateRepo) list(ctx context.Context, op, query string, args ...interface{}) ([]domain.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *CandidateRepo) Insert(ctx context.Context, cs []domain.Candidate) (int, error) {
	if len(cs) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert candidates: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO users
			(id, first_name, last_name, url, created_at, sex, city_id, city_title, can_message, has_mobile, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert candidates: %w", err)
	}
	defer stmt.Close()

	created := formatTime(r.now())
	inserted := 0
	for i := range cs {
		c := &cs[i]
		res, err := stmt.ExecContext(ctx,
			c.ID, c.FirstName, c.LastName, c.ProfileURL, created,
			int(c.Sex), c.CityID, c.CityTitle, c.CanMessage, c.HasMobile, nullTime(c.LastSeenAt))
		if err != nil {
			return 0, fmt.Errorf("insert candidate %d: %w", c.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert candidates: %w", err)
	}
	return inserted, nil
}

func (r *CandidateRepo) Get(ctx context.Context, id int64) (*domain.Candidate, error) {
	c, err := scanCandidate(r.db.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, candidate.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	return c, nil
}

func (r *CandidateRepo) MarkContacted(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET sent = 1, sent_at = COALESCE(sent_at, ?)
		WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("mark contacted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return candidate.ErrNotFound
	}
	return nil
}

func (r *CandidateRepo) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET reminder_sent = 1, reminded_at = COALESCE(reminded_at, ?)
		WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return candidate.ErrNotFound
	}
	return nil
}

func (r *CandidateRepo) ListUncontacted(ctx context.Context, limit int) ([]domain.Candidate, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.list(ctx, "list uncontacted", `
		SELECT `+candidateColumns+`
		FROM users
		WHERE sent = 0
		ORDER BY created_at, rowid
		LIMIT ?`, limit)
}

func (r *CandidateRepo) ListReminderDue(ctx context.Context, cutoff time.Time, limit int) ([]domain.Candidate, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.list(ctx, "list reminder due", `
		SELECT `+candidateColumns+`
		FROM users
		WHERE sent = 1 AND reminder_sent = 0 AND sent_at IS NOT NULL AND sent_at <= ?
		ORDER BY sent_at, rowid
		LIMIT ?`, formatTime(cutoff), limit)
}

func (r *CandidateRepo) CountSentSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	ts := formatTime(since)
	if err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE sent_at >= ?) +
			(SELECT COUNT(*) FROM users WHERE reminded_at >= ?)`, ts, ts).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sent: %w", err)
	}
	return n, nil
}

func (r *CandidateRepo) Counts(ctx context.Context) (candidate.StoreCounts, error) {
	var sc candidate.StoreCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(sent), 0), COALESCE(SUM(reminder_sent), 0)
		FROM users`).Scan(&sc.Total, &sc.Contacted, &sc.Reminded)
	if err != nil {
		return sc, fmt.Errorf("count candidates: %w", err)
	}
	return sc, nil
}

func (r *CandidateRepo) All(ctx context.Context) ([]domain.Candidate, error) {
	return r.list(ctx, "list candidates", `SELECT `+candidateColumns+` FROM users ORDER BY created_at, rowid`)
}
