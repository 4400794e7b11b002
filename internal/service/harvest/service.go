package harvest

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/ignite/leadharvest/internal/domain"
	"github.com/ignite/leadharvest/internal/vk"
	"github.com/ignite/leadharvest/internal/worker"
)

// Source is the remote API surface the harvester reads from.
type Source interface {
	GroupMembers(ctx context.Context, groupRef string, offset, count int) (*vk.MembersPage, error)
	Group(ctx context.Context, groupRef string) (*domain.Group, error)
	SearchGroups(ctx context.Context, query string, count int) ([]domain.Group, error)
	WallPosts(ctx context.Context, groupRef string, offset, count int) ([]domain.Post, error)
	PostComments(ctx context.Context, ownerID, postID int64, count int) ([]domain.Comment, error)
}

// Waiter gates every remote call. *worker.Pacer implements it.
type Waiter interface {
	Wait(ctx context.Context) (time.Duration, error)
}

// Persister stores harvested candidates.
type Persister interface {
	Persist(ctx context.Context, cs []domain.Candidate) (int, error)
}

// Ledger remembers which groups were harvested for which niche.
type Ledger interface {
	RecordGroup(ctx context.Context, groupID int64, niche string) error
	IsGroupParsed(ctx context.Context, groupID int64, niche string) (bool, error)
}

// Exporter writes per-group and overall spreadsheets.
type Exporter interface {
	ExportGroup(niche string, groupID int64, cs []domain.Candidate) (string, error)
	ExportOverall(cs []domain.Candidate) (string, error)
}

// SkipToken lets an operator end the current group's fetch early. The
// fetch loop consumes the request, so the next group starts clean.
type SkipToken struct {
	flag atomic.Bool
}

// Set requests a skip.
func (t *SkipToken) Set() { t.flag.Store(true) }

// Take reports and clears a pending skip. A nil token never skips.
func (t *SkipToken) Take() bool {
	if t == nil {
		return false
	}
	return t.flag.Swap(false)
}

// Options tunes the harvester. Zero values fall back to the defaults below.
type Options struct {
	PageSize             int
	RetryDelay           time.Duration
	MaxConsecutiveErrors int
	GroupSearchCount     int
	MaxActiveGroups      int
	GroupPauseMin        time.Duration
	GroupPauseMax        time.Duration
	CommentKeywords      []string
	CommentMonths        int
}

const (
	defaultPageSize             = 200
	defaultRetryDelay           = 5 * time.Second
	defaultMaxConsecutiveErrors = 3
	defaultGroupSearchCount     = 100
	defaultMaxActiveGroups      = 10
	defaultCommentMonths        = 3
)

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = defaultPageSize
	}
	if o.PageSize > vk.MaxMembersPage {
		o.PageSize = vk.MaxMembersPage
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
	if o.MaxConsecutiveErrors <= 0 {
		o.MaxConsecutiveErrors = defaultMaxConsecutiveErrors
	}
	if o.GroupSearchCount <= 0 {
		o.GroupSearchCount = defaultGroupSearchCount
	}
	if o.MaxActiveGroups <= 0 {
		o.MaxActiveGroups = defaultMaxActiveGroups
	}
	if o.CommentMonths <= 0 {
		o.CommentMonths = defaultCommentMonths
	}
	return o
}

// Service harvests candidates and comments.
type Service struct {
	source Source
	pacer  Waiter
	opts   Options

	store    Persister
	ledger   Ledger
	exporter Exporter

	sleep worker.SleepFunc
	now   func() time.Time
	rng   *rand.Rand
}

// NewService creates a harvester reading from source, pacing every call
// through pacer.
func NewService(source Source, pacer Waiter, opts Options) *Service {
	return &Service{
		source: source,
		pacer:  pacer,
		opts:   opts.withDefaults(),
		sleep:  worker.SleepContext,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithStore attaches persistence for niche harvesting.
func (s *Service) WithStore(store Persister, ledger Ledger, exporter Exporter) *Service {
	s.store = store
	s.ledger = ledger
	s.exporter = exporter
	return s
}

// WithSleep replaces the blocking sleep used for retry and inter-group pauses.
func (s *Service) WithSleep(fn worker.SleepFunc) *Service {
	s.sleep = fn
	return s
}

// Options returns the effective options.
func (s *Service) Options() Options { return s.opts }
