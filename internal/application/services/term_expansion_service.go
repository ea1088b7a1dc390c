package services

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/repositories"
)

const (
	maxSynonymsPerTerm = 2
	maxHistoryTerms    = 3
	expansionLogWindow = 200
)

// TermExpansionService suggests additional query terms from a small static
// synonym table and from terms that co-occurred with the query's tokens in
// past successful searches. Expansion is advisory: failures degrade to
// nothing, never to an error.
type TermExpansionService struct {
	searchLogs repositories.SearchLogRepository
	synonyms   map[string][]string
}

// NewTermExpansionService creates a new term expansion service. searchLogs
// may be nil, in which case history-based terms are unavailable.
func NewTermExpansionService(searchLogs repositories.SearchLogRepository) *TermExpansionService {
	return &TermExpansionService{
		searchLogs: searchLogs,
		synonyms: map[string][]string{
			"sneakers":   {"trainers", "shoes"},
			"trainers":   {"sneakers"},
			"laptop":     {"notebook"},
			"notebook":   {"laptop"},
			"phone":      {"smartphone"},
			"smartphone": {"phone"},
			"headphones": {"earphones"},
			"earbuds":    {"earphones"},
			"jacket":     {"coat"},
			"tv":         {"television"},
			"sofa":       {"couch"},
			"couch":      {"sofa"},
			"backpack":   {"rucksack"},
		},
	}
}

// Synonyms returns static synonym terms for the query's tokens, at most
// maxSynonymsPerTerm per matched token. Brand tokens are never expanded and
// never replaced; the caller keeps them alongside the result.
func (s *TermExpansionService) Synonyms(query string, brands []string) []string {
	queryTokens := tokenSet(strings.ToLower(query))
	if len(queryTokens) == 0 {
		return nil
	}
	brandTokens := make(map[string]struct{}, len(brands))
	for _, b := range brands {
		brandTokens[strings.ToLower(b)] = struct{}{}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, token := range strings.Fields(strings.ToLower(query)) {
		if _, isBrand := brandTokens[token]; isBrand {
			continue
		}
		added := 0
		for _, synonym := range s.synonyms[token] {
			if added == maxSynonymsPerTerm {
				break
			}
			if _, inQuery := queryTokens[synonym]; inQuery {
				continue
			}
			if _, dup := seen[synonym]; dup {
				continue
			}
			seen[synonym] = struct{}{}
			out = append(out, synonym)
			added++
		}
	}
	return out
}

// HistoryTerms returns up to maxHistoryTerms terms that co-occurred with the
// query's tokens in recent successful searches, most frequent first. Lookup
// failures degrade to nothing with a warning.
func (s *TermExpansionService) HistoryTerms(ctx context.Context, query string) []string {
	if s.searchLogs == nil {
		return nil
	}
	queryTokens := tokenSet(strings.ToLower(query))
	if len(queryTokens) == 0 {
		return nil
	}

	entries, err := s.searchLogs.RecentSuccessful(ctx, expansionLogWindow)
	if err != nil {
		log.Warn().Err(err).Msg("term expansion history lookup failed")
		return nil
	}

	counts := make(map[string]int)
	for _, entry := range entries {
		past := tokenSet(strings.ToLower(entry.EffectiveQuery))
		shared := false
		for token := range past {
			if _, ok := queryTokens[token]; ok {
				shared = true
				break
			}
		}
		if !shared {
			continue
		}
		for token := range past {
			if _, ok := queryTokens[token]; !ok {
				counts[token]++
			}
		}
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > maxHistoryTerms {
		terms = terms[:maxHistoryTerms]
	}
	return terms
}
