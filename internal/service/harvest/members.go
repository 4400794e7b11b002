package harvest

import (
	"context"
	"fmt"
	"log"

	"github.com/ignite/leadharvest/internal/domain"
	"github.com/ignite/leadharvest/internal/service/filter"
	"github.com/ignite/leadharvest/internal/vk"
)

// FetchMembers pages through groupRef's members and returns those passing
// criteria (and the comment screen, when keywords are configured), stopping
// once target are accepted. target <= 0 means no cap.
//
// The loop ends on a short or empty page, a skip request, or a closed group
// without error. After MaxConsecutiveErrors failed pages it returns what it
// has with ErrTooManyFailures. Cancellation returns what it has with ctx.Err().
func (s *Service) FetchMembers(ctx context.Context, groupRef string, target int, criteria domain.Criteria, skip *SkipToken) ([]domain.Candidate, error) {
	pageSize := s.opts.PageSize

	var screen *commentIndex
	if len(s.opts.CommentKeywords) > 0 {
		idx, err := s.loadCommentIndex(ctx, groupRef)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[Harvest] group %s: comment screen unavailable, no member can pass: %v", groupRef, err)
		}
		screen = idx
	}

	var (
		out      []domain.Candidate
		offset   int
		failures int
		scanned  int
	)
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if skip.Take() {
			log.Printf("[Harvest] group %s: skipped by operator after %d members", groupRef, scanned)
			return out, nil
		}
		if _, err := s.pacer.Wait(ctx); err != nil {
			return out, err
		}

		page, err := s.source.GroupMembers(ctx, groupRef, offset, pageSize)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			if vk.IsAccessDenied(err) {
				log.Printf("[Harvest] group %s: access denied, skipping group", groupRef)
				return out, nil
			}
			failures++
			if failures >= s.opts.MaxConsecutiveErrors {
				log.Printf("[Harvest] group %s: giving up at offset %d after %d failures: %v", groupRef, offset, failures, err)
				return out, fmt.Errorf("fetch members of %s: %w: %w", groupRef, ErrTooManyFailures, err)
			}
			log.Printf("[Harvest] group %s: offset %d failed (%d/%d), retrying in %s: %v",
				groupRef, offset, failures, s.opts.MaxConsecutiveErrors, s.opts.RetryDelay, err)
			if err := s.sleep(ctx, s.opts.RetryDelay); err != nil {
				return out, err
			}
			continue
		}
		failures = 0

		if len(page.Items) == 0 {
			break
		}
		now := s.now()
		for i := range page.Items {
			scanned++
			c := &page.Items[i]
			if !filter.Accepts(c, criteria, now) {
				continue
			}
			if screen != nil && !screen.relevant(c.ID) {
				continue
			}
			out = append(out, *c)
			if target > 0 && len(out) >= target {
				log.Printf("[Harvest] group %s: target %d reached after %d members", groupRef, target, scanned)
				return out, nil
			}
		}
		if len(page.Items) < pageSize {
			break
		}
		offset += pageSize
	}

	log.Printf("[Harvest] group %s: scanned %d members, accepted %d", groupRef, scanned, len(out))
	return out, nil
}
