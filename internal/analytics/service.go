package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ariefcatur/icebay-pos/internal/catalog"
	"github.com/ariefcatur/icebay-pos/internal/orders"
	"github.com/ariefcatur/icebay-pos/internal/redisx"
	"github.com/redis/go-redis/v9"
)

type OrderLister interface {
	ListOrders(ctx context.Context, f orders.ListFilter) ([]orders.Order, error)
}

type VarietyLister interface {
	List(ctx context.Context) ([]catalog.Variety, error)
}

// Service loads orders and catalog and caches the computed figures in
// Redis for a short while. Cache is optional.
type Service struct {
	Orders            OrderLister
	Varieties         VarietyLister
	Cache             *redis.Client
	Loc               *time.Location
	LowStockThreshold int
	Log               *slog.Logger
}

func (s *Service) loc() *time.Location {
	if s.Loc != nil {
		return s.Loc
	}
	return time.UTC
}

func (s *Service) Daily(ctx context.Context, day time.Time) (DailySummary, error) {
	day = day.In(s.loc())
	key := fmt.Sprintf(redisx.KeyAnalytics, "daily", day.Format(dateLayout))
	return cached(ctx, s, key, func() (DailySummary, error) {
		from, to := dayBounds(day)
		paid, vs, err := s.load(ctx, from, to)
		if err != nil {
			return DailySummary{}, err
		}
		return Daily(day, paid, vs, s.LowStockThreshold), nil
	})
}

func (s *Service) Series(ctx context.Context, end time.Time, days int) ([]DayPoint, error) {
	end = end.In(s.loc())
	key := fmt.Sprintf(redisx.KeyAnalytics, "series", end.Format(dateLayout)+":"+strconv.Itoa(days))
	return cached(ctx, s, key, func() ([]DayPoint, error) {
		_, to := dayBounds(end)
		paid, vs, err := s.load(ctx, to.AddDate(0, 0, -days), to)
		if err != nil {
			return nil, err
		}
		return Series(end, days, paid, vs), nil
	})
}

func (s *Service) load(ctx context.Context, from, to time.Time) ([]orders.Order, []catalog.Variety, error) {
	paid, err := s.Orders.ListOrders(ctx, orders.ListFilter{Status: orders.StatusPaid, From: from, To: to})
	if err != nil {
		return nil, nil, fmt.Errorf("list orders: %w", err)
	}
	vs, err := s.Varieties.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list varieties: %w", err)
	}
	return paid, vs, nil
}

// cached serves key from Redis when present; cache failures only cost a
// recomputation.
func cached[T any](ctx context.Context, s *Service, key string, compute func() (T, error)) (T, error) {
	if s.Cache != nil {
		if b, err := s.Cache.Get(ctx, key).Bytes(); err == nil {
			var v T
			if json.Unmarshal(b, &v) == nil {
				return v, nil
			}
		}
	}

	v, err := compute()
	if err != nil || s.Cache == nil {
		return v, err
	}
	b, err := json.Marshal(v)
	if err == nil {
		err = s.Cache.Set(ctx, key, b, redisx.TTLAnalytics).Err()
	}
	if err != nil && s.Log != nil {
		s.Log.Warn("analytics cache write failed", "key", key, "err", err)
	}
	return v, nil
}
