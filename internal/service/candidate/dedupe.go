package candidate

import "github.com/ignite/leadharvest/internal/domain"

// Dedupe drops repeated ids, keeping the first occurrence and the input
// order. Candidates without an id are dropped.
func Dedupe(cs []domain.Candidate) []domain.Candidate {
	seen := make(map[int64]struct{}, len(cs))
	out := make([]domain.Candidate, 0, len(cs))
	for _, c := range cs {
		if c.ID == 0 {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
