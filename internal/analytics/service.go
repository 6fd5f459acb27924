package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shopledger/shopledger/internal/shared"
)

// RepositoryPort runs the aggregate queries behind the cache.
type RepositoryPort interface {
	SalesTrend(ctx context.Context, from, to time.Time) ([]TrendPoint, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductSales, error)
	SlowMoving(ctx context.Context, cutoff time.Time) ([]SlowMover, error)
}

// Service coordinates analytics queries with the cache layer. Concurrent
// requests for the same key collapse into one database round trip.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	group singleflight.Group
}

// NewService wires a repository with the cache helper.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// SalesTrend returns per-day sales totals over the window.
func (s *Service) SalesTrend(ctx context.Context, from, to time.Time) ([]TrendPoint, error) {
	if err := validateWindow(from, to); err != nil {
		return nil, err
	}
	key, err := s.cache.BuildKey(ctx, "analytics", "trend", dayToken(from), dayToken(to))
	if err != nil {
		return nil, err
	}
	var points []TrendPoint
	err = s.fetch(ctx, key, &points, func(ctx context.Context) (any, error) {
		return s.repo.SalesTrend(ctx, from, to)
	})
	return points, err
}

// TopProducts ranks products by revenue over the window.
func (s *Service) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductSales, error) {
	if err := validateWindow(from, to); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	key, err := s.cache.BuildKey(ctx, "analytics", "top", dayToken(from), dayToken(to), fmt.Sprint(limit))
	if err != nil {
		return nil, err
	}
	var out []ProductSales
	err = s.fetch(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.repo.TopProducts(ctx, from, to, limit)
	})
	return out, err
}

// SlowMoving lists stocked products without a sale in the given number of
// days.
func (s *Service) SlowMoving(ctx context.Context, days int) ([]SlowMover, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	key, err := s.cache.BuildKey(ctx, "analytics", "slow", dayToken(cutoff))
	if err != nil {
		return nil, err
	}
	var out []SlowMover
	err = s.fetch(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.repo.SlowMoving(ctx, cutoff)
	})
	return out, err
}

// fetch funnels identical cache keys through one singleflight slot before
// hitting the cache and, on a miss, the database.
func (s *Service) fetch(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	raw, err, _ := s.group.Do(key, func() (any, error) {
		var value any
		err := s.cache.FetchJSON(ctx, key, &value, loader)
		return value, err
	})
	if err != nil {
		return err
	}
	return remarshal(raw, dest)
}

func remarshal(src, dest any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func validateWindow(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: start and end dates required", shared.ErrValidation)
	}
	if to.Before(from) {
		return fmt.Errorf("%w: date range reversed", shared.ErrValidation)
	}
	return nil
}

func dayToken(t time.Time) string {
	return t.Format("2006-01-02")
}
