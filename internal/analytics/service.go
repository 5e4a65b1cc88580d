package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kopi-pos/internal/cache"
	"github.com/noah-isme/kopi-pos/internal/db"
)

// Querier defines the database access required for the dashboard.
type Querier interface {
	SalesSummary(ctx context.Context, from, to time.Time) ([]db.SalesSummaryRow, error)
	CountProducts(ctx context.Context) (int64, error)
}

// Summary is the admin dashboard for one store day.
type Summary struct {
	Date       string               `json:"date"`
	PaidOrders int64                `json:"paidOrders"`
	Revenue    int64                `json:"revenue"`
	Products   int64                `json:"products"`
	ByMethod   []db.SalesSummaryRow `json:"byMethod"`
}

// Service provides briefly cached sales summaries.
type Service struct {
	Q        Querier
	Cache    *cache.JSON
	Location *time.Location
	Now      func() time.Time
	Logger   zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

// Today summarises paid orders since local midnight.
func (s *Service) Today(ctx context.Context) (Summary, error) {
	if s == nil || s.Q == nil {
		return Summary{}, fmt.Errorf("analytics service not configured")
	}
	now := s.now().In(s.location())
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, 1)

	key := cache.KeyDashboard(from)
	var cached Summary
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("dashboard_cache_read_failed")
	} else if ok {
		return cached, nil
	}

	rows, err := s.Q.SalesSummary(ctx, from, to)
	if err != nil {
		return Summary{}, fmt.Errorf("sales summary: %w", err)
	}
	products, err := s.Q.CountProducts(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count products: %w", err)
	}
	sum := Summary{Date: from.Format("2006-01-02"), Products: products, ByMethod: rows}
	if sum.ByMethod == nil {
		sum.ByMethod = []db.SalesSummaryRow{}
	}
	for _, r := range rows {
		sum.PaidOrders += r.Orders
		sum.Revenue += r.Revenue
	}
	if err := s.Cache.SetJSON(ctx, key, sum); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("dashboard_cache_write_failed")
	}
	return sum, nil
}
