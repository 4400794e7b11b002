package outreach

import (
	"context"
	"log"
)

// AvailabilityBatch is how many ids one availability lookup carries.
const AvailabilityBatch = 100

// CheckMessageAvailability reports, per id, whether a direct message can be
// sent. Every id of a failed batch is reported false.
func (s *Service) CheckMessageAvailability(ctx context.Context, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(ids))
	for start := 0; start < len(ids); start += AvailabilityBatch {
		end := start + AvailabilityBatch
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		if _, err := s.pacer.Wait(ctx); err != nil {
			return out, err
		}
		got, err := s.messenger.MessageAvailability(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			log.Printf("[Outreach] availability batch %d-%d failed: %v", start, end, err)
		}
		for _, id := range batch {
			out[id] = got[id]
		}
	}

	open := 0
	for _, ok := range out {
		if ok {
			open++
		}
	}
	log.Printf("[Outreach] %d of %d candidates accept messages", open, len(ids))
	return out, nil
}
