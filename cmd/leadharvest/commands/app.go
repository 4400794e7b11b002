package commands

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ignite/leadharvest/internal/config"
	"github.com/ignite/leadharvest/internal/export"
	"github.com/ignite/leadharvest/internal/media"
	"github.com/ignite/leadharvest/internal/pkg/httpretry"
	"github.com/ignite/leadharvest/internal/repository/sqlite"
	"github.com/ignite/leadharvest/internal/service/candidate"
	"github.com/ignite/leadharvest/internal/service/harvest"
	"github.com/ignite/leadharvest/internal/service/outreach"
	"github.com/ignite/leadharvest/internal/storage"
	"github.com/ignite/leadharvest/internal/vk"
	"github.com/ignite/leadharvest/internal/worker"
)

// app holds the dependencies of one command run.
type app struct {
	cfg *config.Config

	db         *sqlite.DB
	candidates *candidate.Service
	ledger     *sqlite.GroupLedger
	backups    *storage.Storage

	client  *vk.Client
	pacer   *worker.Pacer
	limiter *worker.SendLimiter
}

// openStore opens and migrates the database and wires backups.
func (a *app) openStore(ctx context.Context) error {
	db, err := sqlite.Open(ctx, a.cfg.Database.Path, a.cfg.Database.Password)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.db = db
	if n, err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	} else if n > 0 {
		log.Printf("[Store] applied %d migrations", n)
	}

	backups, err := storage.New(ctx, a.cfg.Storage, db)
	if err != nil {
		return err
	}
	a.backups = backups.WithPassword(a.cfg.Database.Password)
	a.candidates = candidate.NewService(sqlite.NewCandidateRepo(db.DB)).WithSnapshotter(a.backups)
	a.ledger = sqlite.NewGroupLedger(db.DB)
	return nil
}

// connect builds the API client and verifies the token. An invalid token is
// a fatal setup error.
func (a *app) connect(ctx context.Context) error {
	if a.cfg.VK.Token == "" {
		return fmt.Errorf("VK access token is not configured (vk.token or VK_ACCESS_TOKEN)")
	}
	doer := httpretry.Wrap(
		&http.Client{Timeout: a.cfg.VK.Timeout()},
		a.cfg.VK.MaxRetries,
		httpretry.WithBackoff(time.Second, 10*time.Second),
	)
	a.client = vk.NewClient(vk.Config{
		BaseURL: a.cfg.VK.APIURL,
		Token:   a.cfg.VK.Token,
		Version: a.cfg.VK.APIVersion,
		Timeout: a.cfg.VK.Timeout(),
	}, doer)
	a.pacer = worker.NewPacer(pacingPolicy(a.cfg.Pacing), worker.SleepContext)

	me, err := a.client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("check access token: %w", err)
	}
	log.Printf("[VK] authenticated as %s (id %d)", me.FullName(), me.ID)
	return nil
}

func pacingPolicy(p config.PacingConfig) worker.PacingPolicy {
	return worker.PacingPolicy{
		ShortMin:  config.Ms(p.ShortMinMs),
		ShortMax:  config.Ms(p.ShortMaxMs),
		SlowMin:   config.Ms(p.SlowMinMs),
		SlowMax:   config.Ms(p.SlowMaxMs),
		SlowEvery: p.SlowEvery,
		LongEvery: p.LongEvery,
		LongPause: config.Ms(p.LongPauseMs),
	}
}

func (a *app) harvester() *harvest.Service {
	h := a.cfg.Harvest
	pauseMin, pauseMax := h.GroupPause()
	return harvest.NewService(a.client, a.pacer, harvest.Options{
		PageSize:             h.PageSize,
		RetryDelay:           h.RetryDelay(),
		MaxConsecutiveErrors: h.MaxConsecutiveErrors,
		GroupSearchCount:     h.GroupSearchCount,
		MaxActiveGroups:      h.MaxActiveGroups,
		GroupPauseMin:        pauseMin,
		GroupPauseMax:        pauseMax,
		CommentKeywords:      h.CommentKeywords,
		CommentMonths:        h.CommentMonths,
	}).WithStore(a.candidates, a.ledger, a.exportDir())
}

func (a *app) exportDir() export.Dir {
	return export.Dir{Path: a.cfg.Export.Dir, Overall: a.cfg.Export.Overall}
}

// sender builds the outreach service. The shared Redis counter is used when
// configured, otherwise the store's contacted timestamps.
func (a *app) sender(dryRun bool) (*outreach.Service, error) {
	o := a.cfg.Outreach
	delayMin, delayMax := o.MessageDelay()
	svc := outreach.NewService(a.client, a.pacer, outreach.Options{
		DailyCap:        o.DailyCap,
		MessageDelayMin: delayMin,
		MessageDelayMax: delayMax,
		Cooldown:        o.Cooldown(),
		DryRun:          dryRun || o.DryRun,
	}).WithMarker(a.candidates).WithMedia(media.NewPreparer(o.MaxImageSide))

	if a.cfg.Redis.URL != "" {
		limiter, err := worker.NewSendLimiterFromURL(a.cfg.Redis.URL, o.Account)
		if err != nil {
			return nil, err
		}
		a.limiter = limiter
		svc.WithCounter(limiter)
	} else {
		svc.WithCounter(a.candidates)
	}
	return svc, nil
}

// Close releases everything the run opened. The database is sealed again
// when encryption is enabled.
func (a *app) Close() {
	if a.limiter != nil {
		_ = a.limiter.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("[Store] close failed: %v", err)
		}
	}
}

func newApp(cmd *cobra.Command) *app {
	return &app{cfg: configFrom(cmd)}
}
