package candidate

import (
	"context"
	"time"

	"github.com/ignite/leadharvest/internal/domain"
)

// Repository defines the data access contract for stored candidates.
type Repository interface {
	// Insert stores candidates, ignoring ids that already exist. Existing
	// rows are never modified. Returns the number of new rows.
	Insert(ctx context.Context, cs []domain.Candidate) (int, error)

	// Get returns one candidate or ErrNotFound.
	Get(ctx context.Context, id int64) (*domain.Candidate, error)

	// MarkContacted sets the contacted flag and, on the first flip only,
	// the contacted timestamp. Returns ErrNotFound for unknown ids.
	MarkContacted(ctx context.Context, id int64, at time.Time) error

	// MarkReminded sets the reminder flag and, on the first flip only, the
	// reminder timestamp.
	MarkReminded(ctx context.Context, id int64, at time.Time) error

	// ListUncontacted returns candidates not yet contacted, oldest first.
	ListUncontacted(ctx context.Context, limit int) ([]domain.Candidate, error)

	// ListReminderDue returns contacted candidates whose contact time is at
	// or before cutoff and who have not been reminded.
	ListReminderDue(ctx context.Context, cutoff time.Time, limit int) ([]domain.Candidate, error)

	// CountSentSince counts messages sent at or after since: first contacts
	// and reminders alike.
	CountSentSince(ctx context.Context, since time.Time) (int, error)

	// Counts returns store-level totals.
	Counts(ctx context.Context) (StoreCounts, error)

	// All returns every stored candidate ordered by insertion.
	All(ctx context.Context) ([]domain.Candidate, error)
}

// Snapshotter takes a point-in-time copy of the store.
type Snapshotter interface {
	Snapshot(ctx context.Context) (string, error)
}

// StoreCounts are aggregate totals over the store.
type StoreCounts struct {
	Total     int `json:"total"`
	Contacted int `json:"contacted"`
	Reminded  int `json:"reminded"`
}
