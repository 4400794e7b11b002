package outreach

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/leadharvest/internal/domain"
	"github.com/ignite/leadharvest/internal/media"
	"github.com/ignite/leadharvest/internal/pkg/logger"
	"github.com/ignite/leadharvest/internal/vk"
	"github.com/ignite/leadharvest/internal/worker"
)

// Messenger is the remote messaging surface.
type Messenger interface {
	SendMessage(ctx context.Context, userID int64, text string, attachments []string, randomID int64) (int64, error)
	UploadMessagePhoto(ctx context.Context, peerID int64, filename string, data []byte) (string, error)
	MessageAvailability(ctx context.Context, ids []int64) (map[int64]bool, error)
}

// Waiter gates every remote call. *worker.Pacer implements it.
type Waiter interface {
	Wait(ctx context.Context) (time.Duration, error)
}

// DailyCounter tracks sends across runs. Both *worker.SendLimiter and
// *candidate.Service implement it.
type DailyCounter interface {
	SentToday(ctx context.Context) (int, error)
	RecordSent(ctx context.Context) error
}

// Marker records delivery in the candidate store.
type Marker interface {
	MarkContacted(ctx context.Context, id int64, value bool) error
	MarkReminded(ctx context.Context, id int64) error
}

// MediaPreparer loads attachment files. *media.Preparer implements it.
type MediaPreparer interface {
	Prepare(path string) (*media.Attachment, error)
}

// Options tunes a send run.
type Options struct {
	DailyCap        int
	MessageDelayMin time.Duration
	MessageDelayMax time.Duration
	Cooldown        time.Duration
	DryRun          bool
}

const (
	defaultDailyCap        = 20
	defaultMessageDelayMin = 60 * time.Second
	defaultMessageDelayMax = 120 * time.Second
	defaultCooldown        = time.Hour
	maxRandomID            = 1 << 31
)

func (o Options) withDefaults() Options {
	if o.DailyCap <= 0 {
		o.DailyCap = defaultDailyCap
	}
	if o.MessageDelayMin <= 0 && o.MessageDelayMax <= 0 {
		o.MessageDelayMin, o.MessageDelayMax = defaultMessageDelayMin, defaultMessageDelayMax
	}
	if o.Cooldown <= 0 {
		o.Cooldown = defaultCooldown
	}
	return o
}

// Service runs send batches.
type Service struct {
	messenger Messenger
	pacer     Waiter
	templates *TemplateService
	opts      Options

	marker  Marker
	counter DailyCounter
	media   MediaPreparer

	sleep worker.SleepFunc
	now   func() time.Time
	rng   *rand.Rand
}

// NewService creates an outreach service.
func NewService(messenger Messenger, pacer Waiter, opts Options) *Service {
	return &Service{
		messenger: messenger,
		pacer:     pacer,
		templates: NewTemplateService(),
		opts:      opts.withDefaults(),
		sleep:     worker.SleepContext,
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithMarker records successful sends in the candidate store.
func (s *Service) WithMarker(m Marker) *Service { s.marker = m; return s }

// WithCounter enforces the daily cap across runs.
func (s *Service) WithCounter(c DailyCounter) *Service { s.counter = c; return s }

// WithMedia enables image attachments.
func (s *Service) WithMedia(p MediaPreparer) *Service { s.media = p; return s }

// WithSleep replaces the blocking sleep used for delays and cooldowns.
func (s *Service) WithSleep(fn worker.SleepFunc) *Service { s.sleep = fn; return s }

// Templates exposes the template service for validation.
func (s *Service) Templates() *TemplateService { return s.templates }

// SendBatch messages candidates in order and marks each delivered one
// contacted.
func (s *Service) SendBatch(ctx context.Context, candidates []domain.Candidate, template string, attachments []string) domain.SendStats {
	return s.run(ctx, candidates, template, attachments, func(ctx context.Context, id int64) error {
		return s.marker.MarkContacted(ctx, id, true)
	})
}

// SendReminders sends the follow-up template and marks each delivered
// candidate reminded.
func (s *Service) SendReminders(ctx context.Context, candidates []domain.Candidate, template string) domain.SendStats {
	return s.run(ctx, candidates, template, nil, func(ctx context.Context, id int64) error {
		return s.marker.MarkReminded(ctx, id)
	})
}

func (s *Service) run(ctx context.Context, candidates []domain.Candidate, template string, attachments []string, record func(context.Context, int64) error) domain.SendStats {
	stats := domain.SendStats{BatchID: uuid.NewString(), Total: len(candidates)}
	log.Printf("[Outreach] batch %s: %d candidates, cap %d, dry run %v", stats.BatchID, stats.Total, s.opts.DailyCap, s.opts.DryRun)

	alreadySent := 0
	if s.counter != nil {
		n, err := s.counter.SentToday(ctx)
		if err != nil {
			logger.Warn("outreach: daily counter unavailable", "error", err)
		} else {
			alreadySent = n
		}
	}

	skipRest := func(reason string) {
		stats.Skipped = stats.Total - stats.Sent - stats.Failed
		log.Printf("[Outreach] batch %s: %s, %d left untried", stats.BatchID, reason, stats.Skipped)
	}

	for i := range candidates {
		c := &candidates[i]

		if ctx.Err() != nil {
			skipRest("cancelled")
			break
		}
		if alreadySent+stats.Sent >= s.opts.DailyCap {
			skipRest("daily cap reached")
			break
		}
		if !c.CanMessage {
			stats.Skipped++
			continue
		}

		text, err := s.templates.Render(template, c, s.now())
		if err != nil {
			stats.Failed++
			stats.Errors = append(stats.Errors, domain.SendError{CandidateID: c.ID, Error: err.Error()})
			continue
		}

		if s.opts.DryRun {
			stats.Sent++
			log.Printf("[Outreach] dry run: would send to %d (%s)", c.ID, c.FullName())
			continue
		}

		refs := s.uploadAttachments(ctx, c.ID, attachments)

		if _, err := s.pacer.Wait(ctx); err != nil {
			skipRest("cancelled")
			break
		}
		randomID := s.rng.Int63n(maxRandomID) + 1
		if _, err := s.messenger.SendMessage(ctx, c.ID, text, refs, randomID); err != nil {
			if ctx.Err() != nil {
				skipRest("cancelled")
				break
			}
			stats.Failed++
			stats.Errors = append(stats.Errors, domain.SendError{CandidateID: c.ID, Error: err.Error()})
			log.Printf("[Outreach] send to %d failed: %v", c.ID, err)

			if vk.IsSenderBlocked(err) {
				skipRest("sender account blocked")
				break
			}
			if vk.IsFloodControl(err) {
				log.Printf("[Outreach] flood control, cooling down for %s", s.opts.Cooldown)
				if err := s.sleep(ctx, s.opts.Cooldown); err != nil {
					skipRest("cancelled")
					break
				}
			}
			continue
		}

		stats.Sent++
		log.Printf("[Outreach] sent to %d (%s)", c.ID, c.FullName())
		if s.marker != nil {
			if err := record(ctx, c.ID); err != nil {
				logger.Error("outreach: store update failed after send", "candidate_id", c.ID, "error", err)
			}
		}
		if s.counter != nil {
			if err := s.counter.RecordSent(ctx); err != nil {
				logger.Warn("outreach: daily counter update failed", "error", err)
			}
		}

		delay := worker.RandomDuration(s.rng, s.opts.MessageDelayMin, s.opts.MessageDelayMax)
		// Cancellation during the delay is picked up at the top of the loop.
		_ = s.sleep(ctx, delay)
	}

	log.Printf("[Outreach] batch %s done: total %d, sent %d, failed %d, skipped %d",
		stats.BatchID, stats.Total, stats.Sent, stats.Failed, stats.Skipped)
	return stats
}

// uploadAttachments prepares and uploads each file for one recipient,
// returning the references that succeeded.
func (s *Service) uploadAttachments(ctx context.Context, peerID int64, paths []string) []string {
	if len(paths) == 0 || s.media == nil {
		return nil
	}
	var refs []string
	for _, p := range paths {
		a, err := s.media.Prepare(p)
		if err != nil {
			logger.Warn("outreach: attachment skipped", "path", p, "error", err)
			continue
		}
		if _, err := s.pacer.Wait(ctx); err != nil {
			return refs
		}
		ref, err := s.messenger.UploadMessagePhoto(ctx, peerID, a.Filename, a.Data)
		if err != nil {
			logger.Warn("outreach: attachment upload failed", "path", p, "candidate_id", peerID, "error", err)
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}
