package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
)

// memorySearchLogRepo is an in-memory search log for tests. Appends may come
// from the analytics service's fire-and-forget goroutine.
type memorySearchLogRepo struct {
	mu      sync.Mutex
	entries []*entities.SearchLogEntry
	err     error
}

func (r *memorySearchLogRepo) Append(ctx context.Context, entry *entities.SearchLogEntry) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memorySearchLogRepo) ZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchLogEntry, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.SearchLogEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].ResultCount == 0 {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func (r *memorySearchLogRepo) RecentSuccessful(ctx context.Context, limit int) ([]*entities.SearchLogEntry, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.SearchLogEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].ResultCount > 0 {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func (r *memorySearchLogRepo) snapshot() []*entities.SearchLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.SearchLogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func TestSynonyms_StaticTable(t *testing.T) {
	svc := NewTermExpansionService(nil)

	assert.Equal(t, []string{"trainers", "shoes"}, svc.Synonyms("white sneakers", nil))
	assert.Equal(t, []string{"notebook"}, svc.Synonyms("laptop bag", nil))
	assert.Empty(t, svc.Synonyms("  ", nil))
}

func TestSynonyms_SkipsBrandTokensAndQueryEchoes(t *testing.T) {
	svc := NewTermExpansionService(nil)
	// "sony" could shadow a synonym entry some day; brand tokens are never
	// expanded.
	svc.synonyms["sony"] = []string{"playstation"}

	out := svc.Synonyms("sony sneakers trainers", []string{"Sony"})
	// "sneakers" offers trainers and shoes; trainers is already in the query.
	assert.Equal(t, []string{"shoes"}, out)
}

func TestSynonyms_CapPerTerm(t *testing.T) {
	svc := NewTermExpansionService(nil)
	svc.synonyms["gadget"] = []string{"device", "gizmo", "widget"}

	out := svc.Synonyms("gadget", nil)
	assert.Len(t, out, maxSynonymsPerTerm)
	assert.Equal(t, []string{"device", "gizmo"}, out)
}

func TestHistoryTerms_OrderedByFrequency(t *testing.T) {
	logs := &memorySearchLogRepo{entries: []*entities.SearchLogEntry{
		{EffectiveQuery: "running watch garmin", ResultCount: 5},
		{EffectiveQuery: "running watch garmin", ResultCount: 3},
		{EffectiveQuery: "running socks", ResultCount: 2},
		{EffectiveQuery: "espresso machine", ResultCount: 7},
	}}
	svc := NewTermExpansionService(logs)

	terms := svc.HistoryTerms(context.Background(), "running gear")
	// garmin and watch co-occurred twice, socks once; espresso never shared a token.
	assert.Equal(t, []string{"garmin", "watch", "socks"}, terms)
}

func TestHistoryTerms_CapAndNoQueryEcho(t *testing.T) {
	logs := &memorySearchLogRepo{entries: []*entities.SearchLogEntry{
		{EffectiveQuery: "sneakers red canvas retro classic", ResultCount: 1},
	}}
	svc := NewTermExpansionService(logs)

	terms := svc.HistoryTerms(context.Background(), "sneakers")
	assert.Len(t, terms, maxHistoryTerms)
	assert.NotContains(t, terms, "sneakers")
}

func TestHistoryTerms_ErrorDegradesToNothing(t *testing.T) {
	logs := &memorySearchLogRepo{err: errors.New("db down")}
	svc := NewTermExpansionService(logs)

	assert.Empty(t, svc.HistoryTerms(context.Background(), "laptop bag"))
}
