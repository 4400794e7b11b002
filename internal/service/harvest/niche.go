package harvest

import (
	"context"
	"log"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/ignite/leadharvest/internal/domain"
)

// fuzzyThreshold is the minimum similarity (0-100) for a misspelt niche to
// borrow a known niche's synonyms.
const fuzzyThreshold = 80

var synonyms = map[string]map[string][]string{
	"ru": {
		"фитнес": {"fitness", "спортзал", "тренажерный зал", "бодибилдинг", "кроссфит"},
	},
	"en": {
		"fitness": {"gym", "workout", "тренажерный зал", "бодибилдинг"},
	},
}

// nicheLanguage is "ru" when the text has any Cyrillic letter, else "en".
func nicheLanguage(s string) string {
	for _, r := range s {
		if r >= 'а' && r <= 'я' {
			return "ru"
		}
	}
	return "en"
}

// ExpandNiche turns a niche into search queries: the niche itself plus its
// synonyms, the synonyms of the closest known niche, or a wildcard form.
func ExpandNiche(niche string) []string {
	niche = strings.ToLower(strings.TrimSpace(niche))
	if niche == "" {
		return nil
	}
	out := []string{niche}
	known := synonyms[nicheLanguage(niche)]

	if syns, ok := known[niche]; ok {
		return appendUnique(out, syns...)
	}

	best, bestScore := "", 0.0
	for key := range known {
		score := matchr.JaroWinkler(niche, key, false) * 100
		if score > bestScore || (score == bestScore && key < best) {
			best, bestScore = key, score
		}
	}
	if bestScore > fuzzyThreshold {
		return appendUnique(out, known[best]...)
	}
	return appendUnique(out, niche+"*")
}

func appendUnique(out []string, items ...string) []string {
	seen := make(map[string]struct{}, len(out)+len(items))
	for _, s := range out {
		seen[s] = struct{}{}
	}
	for _, s := range items {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// FindGroupsByNiche searches every expanded query and returns the union of
// groups in first-seen order. Failed queries are logged and skipped.
func (s *Service) FindGroupsByNiche(ctx context.Context, niche string, count int) ([]domain.Group, error) {
	if count <= 0 {
		count = s.opts.GroupSearchCount
	}
	seen := make(map[int64]struct{})
	var out []domain.Group
	for _, q := range ExpandNiche(niche) {
		if _, err := s.pacer.Wait(ctx); err != nil {
			return out, err
		}
		groups, err := s.source.SearchGroups(ctx, q, count)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			log.Printf("[Harvest] group search %q failed: %v", q, err)
			continue
		}
		for _, g := range groups {
			if _, dup := seen[g.ID]; dup || g.ID == 0 {
				continue
			}
			seen[g.ID] = struct{}{}
			out = append(out, g)
		}
	}
	log.Printf("[Harvest] niche %q: %d groups found", niche, len(out))
	return out, nil
}

// KeywordCombinations returns every combination of minSize..maxSize distinct
// keywords, space-joined, preserving the input order within each phrase.
func KeywordCombinations(keywords []string, minSize, maxSize int) []string {
	var words []string
	seen := make(map[string]struct{})
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		words = append(words, k)
	}
	if minSize < 1 {
		minSize = 1
	}
	if maxSize > len(words) {
		maxSize = len(words)
	}

	var out []string
	var pick func(start int, acc []string, size int)
	pick = func(start int, acc []string, size int) {
		if len(acc) == size {
			out = append(out, strings.Join(acc, " "))
			return
		}
		for i := start; i < len(words); i++ {
			pick(i+1, append(acc, words[i]), size)
		}
	}
	for size := minSize; size <= maxSize; size++ {
		pick(0, make([]string, 0, size), size)
	}
	return out
}
