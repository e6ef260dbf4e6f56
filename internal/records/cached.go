package records

import (
	"context"
	"log/slog"

	"sfms/internal/cache"
	"sfms/internal/core"
)

const categoriesKey = "relief_categories"

// CachedStore serves relief category definitions from a cache. They change
// rarely and are shared by every user; all other reads go to the store.
type CachedStore struct {
	Store
	categories cache.Cache[[]core.TaxReliefCategory]
}

func NewCachedStore(store Store, categories cache.Cache[[]core.TaxReliefCategory]) *CachedStore {
	return &CachedStore{Store: store, categories: categories}
}

func (s *CachedStore) ListReliefCategories(ctx context.Context) ([]core.TaxReliefCategory, error) {
	if cats, ok := s.categories.Get(categoriesKey); ok {
		return append([]core.TaxReliefCategory(nil), cats...), nil
	}

	cats, err := s.Store.ListReliefCategories(ctx)
	if err != nil {
		return nil, err
	}
	s.categories.Set(categoriesKey, append([]core.TaxReliefCategory(nil), cats...))
	slog.DebugContext(ctx, "Relief categories cached", "count", len(cats))
	return cats, nil
}

// Invalidate drops cached category definitions.
func (s *CachedStore) Invalidate() {
	s.categories.Delete(categoriesKey)
}
