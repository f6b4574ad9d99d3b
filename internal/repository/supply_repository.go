package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"restock-sync/internal/cache"
	"restock-sync/internal/domain"
	"restock-sync/internal/remote"

	"go.uber.org/zap"
)

const (
	suppliesCacheKey   = "supplies:all"
	categoriesCacheKey = "supplies:categories"
	suppliesKeyPattern = "supplies:*"
)

// SupplyRepository reads the catalog with cache-aside and keeps the last
// successful answer for when both the cache and the backend fail.
type SupplyRepository struct {
	remote remote.Client
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger

	mu         sync.RWMutex
	supplies   []domain.Supply
	categories []domain.Category
}

func NewSupplyRepository(client remote.Client, c cache.Cache, ttl time.Duration, logger *zap.Logger) *SupplyRepository {
	return &SupplyRepository{
		remote:     client,
		cache:      c,
		ttl:        ttl,
		logger:     logger,
		supplies:   []domain.Supply{},
		categories: []domain.Category{},
	}
}

// ListSupplies returns the catalog, filtered by category when categoryID > 0
func (r *SupplyRepository) ListSupplies(ctx context.Context, categoryID int64) (supplies []domain.Supply, stale bool) {
	var cached []domain.Supply
	if err := cache.GetJSON(ctx, r.cache, suppliesCacheKey, &cached); err == nil {
		r.logger.Debug("Supplies served from cache", zap.Int("count", len(cached)))
		return filterByCategory(cached, categoryID), false
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn("Supply cache read failed", zap.Error(err))
	}

	fetched, err := r.remote.ListSupplies(ctx)
	if err != nil {
		r.logger.Warn("Backend supply fetch failed, serving snapshot", zap.Error(err))
		r.mu.RLock()
		snapshot := r.supplies
		r.mu.RUnlock()
		return filterByCategory(snapshot, categoryID), true
	}

	if fetched == nil {
		fetched = []domain.Supply{}
	}
	r.mu.Lock()
	r.supplies = fetched
	r.mu.Unlock()

	if err := cache.SetJSON(ctx, r.cache, suppliesCacheKey, fetched, r.ttl); err != nil {
		r.logger.Warn("Failed to cache supplies", zap.Error(err))
	}
	return filterByCategory(fetched, categoryID), false
}

func (r *SupplyRepository) ListCategories(ctx context.Context) (categories []domain.Category, stale bool) {
	var cached []domain.Category
	if err := cache.GetJSON(ctx, r.cache, categoriesCacheKey, &cached); err == nil {
		return cached, false
	}

	fetched, err := r.remote.ListCategories(ctx)
	if err != nil {
		r.logger.Warn("Backend category fetch failed, serving snapshot", zap.Error(err))
		r.mu.RLock()
		defer r.mu.RUnlock()
		return r.categories, true
	}

	if fetched == nil {
		fetched = []domain.Category{}
	}
	r.mu.Lock()
	r.categories = fetched
	r.mu.Unlock()

	if err := cache.SetJSON(ctx, r.cache, categoriesCacheKey, fetched, r.ttl); err != nil {
		r.logger.Warn("Failed to cache categories", zap.Error(err))
	}
	return fetched, false
}

// Invalidate drops the cached catalog so the next read goes to the backend
func (r *SupplyRepository) Invalidate(ctx context.Context) error {
	return r.cache.DeleteByPattern(ctx, suppliesKeyPattern)
}

func filterByCategory(supplies []domain.Supply, categoryID int64) []domain.Supply {
	if categoryID <= 0 {
		return supplies
	}
	out := make([]domain.Supply, 0)
	for _, supply := range supplies {
		if supply.InCategory(categoryID) {
			out = append(out, supply)
		}
	}
	return out
}
