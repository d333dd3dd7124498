package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"puntoventa/pkg/api"
)

const productsCacheKey = "catalog:products"

// API is the slice of the backend client the catalog reads from.
type API interface {
	ListProducts(ctx context.Context) ([]api.Product, error)
	ListCustomers(ctx context.Context) ([]api.Customer, error)
}

// Cache is a byte-level cache with TTL, redis in production.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Service serves catalog reads with a cache in front of the backend. Product
// stock goes stale quickly, so the cache TTL is short and checkout
// invalidates it explicitly.
type Service struct {
	api      API
	cache    Cache
	cacheTTL time.Duration
	sfg      singleflight.Group // Prevents cache stampede
	logger   *zap.Logger
}

func New(apiClient API, cache Cache, cacheTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		api:      apiClient,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Products returns the product catalog, cache-first. Concurrent misses for
// the list are collapsed into a single backend call.
func (s *Service) Products(ctx context.Context) ([]api.Product, error) {
	v, err, _ := s.sfg.Do(productsCacheKey, func() (any, error) {
		if data, err := s.cache.Get(ctx, productsCacheKey); err == nil {
			var products []api.Product
			if err := json.Unmarshal(data, &products); err == nil {
				return products, nil
			}
		}

		products, err := s.api.ListProducts(ctx)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(products); err == nil {
			if err := s.cache.Set(ctx, productsCacheKey, data, s.cacheTTL); err != nil {
				s.logger.Warn("Failed to cache product list", zap.Error(err))
			}
		}
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]api.Product), nil
}

// FindProduct looks a product up by id in the current catalog.
func (s *Service) FindProduct(ctx context.Context, productID int64) (*api.Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == productID {
			return &products[i], nil
		}
	}
	return nil, fmt.Errorf("product %d not found", productID)
}

// Customers is a passthrough; the customer list is small and not cached.
func (s *Service) Customers(ctx context.Context) ([]api.Customer, error) {
	return s.api.ListCustomers(ctx)
}

// InvalidateProducts drops the cached catalog. Called after a completed sale
// since the backend has decremented stock.
func (s *Service) InvalidateProducts(ctx context.Context) {
	if err := s.cache.Del(ctx, productsCacheKey); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
}

// LowStock filters products flagged by the backend, falling back to the
// stock/min_stock comparison when the flag is absent.
func LowStock(products []api.Product) []api.Product {
	var low []api.Product
	for _, p := range products {
		if p.IsLowStock || (p.MinStock > 0 && p.Stock < p.MinStock) {
			low = append(low, p)
		}
	}
	return low
}
