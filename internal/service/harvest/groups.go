package harvest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"

	"github.com/ignite/leadharvest/internal/domain"
	"github.com/ignite/leadharvest/internal/service/candidate"
	"github.com/ignite/leadharvest/internal/worker"
)

// activityProbePosts covers a pinned post sitting above the newest one.
const activityProbePosts = 2

// IsGroupActive reports whether the group posted within
// domain.GroupActivityWindow. Lookup failures count as inactive.
func (s *Service) IsGroupActive(ctx context.Context, groupRef string) bool {
	if _, err := s.pacer.Wait(ctx); err != nil {
		return false
	}
	posts, err := s.source.WallPosts(ctx, groupRef, 0, activityProbePosts)
	if err != nil {
		log.Printf("[Harvest] group %s: activity check failed: %v", groupRef, err)
		return false
	}
	g := domain.Group{}
	for _, p := range posts {
		if p.Date.IsZero() {
			continue
		}
		if g.LastPostAt == nil || p.Date.After(*g.LastPostAt) {
			d := p.Date
			g.LastPostAt = &d
		}
	}
	return g.IsActive(s.now())
}

// GroupResult is the outcome for one harvested group.
type GroupResult struct {
	Group    domain.Group
	Fetched  int
	Inserted int
	Export   string
	Err      error
}

// NicheResult summarises a niche harvest.
type NicheResult struct {
	RunID        string
	Niche        string
	GroupsFound  int
	GroupsActive int
	Groups       []GroupResult
	Candidates   []domain.Candidate
	Overall      string
}

// HarvestNiche finds groups for niche, harvests up to maxCandidates members
// from active groups not yet in the ledger, and persists and exports each
// group's batch as soon as it is fetched. At most MaxActiveGroups unparsed
// groups are checked. The deduped union is exported at the end.
func (s *Service) HarvestNiche(ctx context.Context, niche string, maxCandidates int, criteria domain.Criteria, skip *SkipToken) (*NicheResult, error) {
	if s.store == nil || s.ledger == nil || s.exporter == nil {
		return nil, fmt.Errorf("harvest niche: store, ledger and exporter are required")
	}
	res := &NicheResult{RunID: uuid.NewString(), Niche: niche}
	log.Printf("[Harvest] run %s: niche %q, budget %d", res.RunID, niche, maxCandidates)

	groups, err := s.FindGroupsByNiche(ctx, niche, s.opts.GroupSearchCount)
	if err != nil {
		return res, err
	}
	res.GroupsFound = len(groups)
	if len(groups) == 0 {
		return res, ErrNoGroups
	}

	var all []domain.Candidate
	checked := 0
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return s.finishNiche(res, all), err
		}
		remaining := maxCandidates - len(all)
		if maxCandidates > 0 && remaining <= 0 {
			break
		}
		if checked >= s.opts.MaxActiveGroups {
			break
		}

		parsed, err := s.ledger.IsGroupParsed(ctx, g.ID, niche)
		if err != nil {
			return s.finishNiche(res, all), fmt.Errorf("check ledger: %w", err)
		}
		if parsed {
			log.Printf("[Harvest] group %d already harvested for %q", g.ID, niche)
			continue
		}
		if checked > 0 {
			s.pauseBetweenGroups(ctx)
		}
		checked++

		ref := strconv.FormatInt(g.ID, 10)
		if !s.IsGroupActive(ctx, ref) {
			log.Printf("[Harvest] group %d inactive, skipping", g.ID)
			continue
		}
		res.GroupsActive++

		members, fetchErr := s.FetchMembers(ctx, ref, remaining, criteria, skip)
		gr := GroupResult{Group: g, Fetched: len(members), Err: fetchErr}

		if len(members) > 0 {
			n, err := s.store.Persist(ctx, members)
			if err != nil {
				return s.finishNiche(res, all), fmt.Errorf("persist group %d: %w", g.ID, err)
			}
			gr.Inserted = n
			if path, err := s.exporter.ExportGroup(niche, g.ID, members); err != nil {
				log.Printf("[Harvest] group %d: export failed: %v", g.ID, err)
			} else {
				gr.Export = path
			}
			all = append(all, members...)
		}
		res.Groups = append(res.Groups, gr)

		if errors.Is(fetchErr, context.Canceled) || errors.Is(fetchErr, context.DeadlineExceeded) {
			return s.finishNiche(res, all), fetchErr
		}
		if fetchErr != nil {
			log.Printf("[Harvest] group %d: %v", g.ID, fetchErr)
			continue
		}
		if err := s.ledger.RecordGroup(ctx, g.ID, niche); err != nil {
			log.Printf("[Harvest] group %d: ledger write failed: %v", g.ID, err)
		}
	}

	return s.finishNiche(res, all), nil
}

func (s *Service) finishNiche(res *NicheResult, all []domain.Candidate) *NicheResult {
	res.Candidates = candidate.Dedupe(all)
	if len(res.Candidates) == 0 {
		return res
	}
	path, err := s.exporter.ExportOverall(res.Candidates)
	if err != nil {
		log.Printf("[Harvest] overall export failed: %v", err)
	} else {
		res.Overall = path
	}
	log.Printf("[Harvest] run %s: %d candidates from %d groups", res.RunID, len(res.Candidates), len(res.Groups))
	return res
}

func (s *Service) pauseBetweenGroups(ctx context.Context) {
	if s.opts.GroupPauseMax <= 0 {
		return
	}
	d := worker.RandomDuration(s.rng, s.opts.GroupPauseMin, s.opts.GroupPauseMax)
	_ = s.sleep(ctx, d)
}
