package candidate

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/leadharvest/internal/domain"
	"github.com/ignite/leadharvest/internal/pkg/logger"
)

// ReminderDelay is how long after first contact a reminder becomes due.
const ReminderDelay = 72 * time.Hour

// Service implements candidate store business logic.
type Service struct {
	repo     Repository
	snapshot Snapshotter
	now      func() time.Time
}

// NewService creates a candidate service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithSnapshotter makes Persist take a best-effort backup before each
// non-empty bulk write.
func (s *Service) WithSnapshotter(snap Snapshotter) *Service {
	s.snapshot = snap
	return s
}

// Persist dedupes cs and inserts the survivors. Existing ids are left
// untouched. Returns the number of newly stored candidates.
func (s *Service) Persist(ctx context.Context, cs []domain.Candidate) (int, error) {
	unique := Dedupe(cs)
	if len(unique) == 0 {
		return 0, nil
	}
	for i := range unique {
		if unique[i].ProfileURL == "" {
			unique[i].ProfileURL = domain.ProfileURL(unique[i].ID)
		}
	}

	if s.snapshot != nil {
		if path, err := s.snapshot.Snapshot(ctx); err != nil {
			logger.Warn("candidate: snapshot before write failed", "error", err)
		} else {
			logger.Info("candidate: snapshot taken", "path", path)
		}
	}

	n, err := s.repo.Insert(ctx, unique)
	if err != nil {
		return 0, fmt.Errorf("persist candidates: %w", err)
	}
	logger.Info("candidate: persisted", "received", len(cs), "unique", len(unique), "inserted", n)
	return n, nil
}

// MarkContacted flips the contacted flag. Setting it again is a no-op;
// clearing it is refused.
func (s *Service) MarkContacted(ctx context.Context, id int64, value bool) error {
	if !value {
		return ErrContactedIrreversible
	}
	return s.repo.MarkContacted(ctx, id, s.now().UTC())
}

// MarkReminded records that the follow-up reminder went out.
func (s *Service) MarkReminded(ctx context.Context, id int64) error {
	return s.repo.MarkReminded(ctx, id, s.now().UTC())
}

// ListUncontacted returns up to limit candidates that were never contacted.
func (s *Service) ListUncontacted(ctx context.Context, limit int) ([]domain.Candidate, error) {
	return s.repo.ListUncontacted(ctx, limit)
}

// ListReminderDue returns contacted, not yet reminded candidates whose first
// contact is older than ReminderDelay.
func (s *Service) ListReminderDue(ctx context.Context, limit int) ([]domain.Candidate, error) {
	return s.repo.ListReminderDue(ctx, s.now().UTC().Add(-ReminderDelay), limit)
}

// SentToday counts first contacts and reminders sent since local midnight.
func (s *Service) SentToday(ctx context.Context) (int, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.repo.CountSentSince(ctx, midnight.UTC())
}

// RecordSent is a no-op: the timestamps written by MarkContacted and
// MarkReminded are the store's daily counter.
func (s *Service) RecordSent(context.Context) error { return nil }

// Counts returns store-level totals.
func (s *Service) Counts(ctx context.Context) (StoreCounts, error) {
	return s.repo.Counts(ctx)
}

// All returns every stored candidate.
func (s *Service) All(ctx context.Context) ([]domain.Candidate, error) {
	return s.repo.All(ctx)
}
