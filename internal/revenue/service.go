package revenue

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"
)

// RepositoryPort is the read surface the service aggregates over.
type RepositoryPort interface {
	StandSalesBetween(ctx context.Context, from, to time.Time) ([]Row, error)
	ConsignmentBetween(ctx context.Context, from, to time.Time) ([]Row, error)
	WebOrdersBetween(ctx context.Context, from, to time.Time) ([]Row, error)
}

// Service builds the consolidated revenue view.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	flight singleflight.Group
}

// NewService constructs the revenue service.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// GetRevenueSummary merges the three channels for [from, to] inclusive.
// Concurrent identical requests collapse onto one build.
func (s *Service) GetRevenueSummary(ctx context.Context, from, to time.Time) (Summary, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return Summary{}, ErrInvalidRange
	}
	fromDay := from.Truncate(24 * time.Hour)
	toEnd := to.Truncate(24 * time.Hour).Add(24 * time.Hour)

	key, err := s.cache.BuildKey(ctx, "revenue", "summary", fromDay.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return Summary{}, err
	}
	result, err, _ := s.flight.Do(key, func() (any, error) {
		var summary Summary
		err := s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
			return s.build(ctx, fromDay, toEnd)
		})
		return summary, err
	})
	if err != nil {
		return Summary{}, err
	}
	return result.(Summary), nil
}

// Bump invalidates cached summaries; called by the write-side modules.
func (s *Service) Bump(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) build(ctx context.Context, from, toEnd time.Time) (Summary, error) {
	var all []Row
	for _, load := range []func(context.Context, time.Time, time.Time) ([]Row, error){
		s.repo.StandSalesBetween,
		s.repo.ConsignmentBetween,
		s.repo.WebOrdersBetween,
	} {
		rows, err := load(ctx, from, toEnd)
		if err != nil {
			return Summary{}, fmt.Errorf("revenue: load rows: %w", err)
		}
		all = append(all, rows...)
	}

	summary := Summary{
		From: from.Format("2006-01-02"),
		To:   toEnd.Add(-24 * time.Hour).Format("2006-01-02"),
	}
	byChannel := map[string]float64{}
	byProduct := map[int64]*ProductSummary{}
	byDay := map[string]float64{}
	var total float64

	for _, row := range all {
		total += row.Amount
		byChannel[row.Channel] += row.Amount
		day := row.Day.Format("2006-01-02")
		byDay[day] += row.Amount
		prod, ok := byProduct[row.ProductID]
		if !ok {
			prod = &ProductSummary{ProductID: row.ProductID}
			byProduct[row.ProductID] = prod
		}
		prod.Quantity += row.Quantity
		prod.Revenue += row.Amount
	}

	summary.TotalRevenue = Round2(total)
	summary.DisplayTotal = FormatMoney(summary.TotalRevenue)

	// channels in a stable reporting order
	for _, channel := range []string{ChannelStand, ChannelConsignment, ChannelWeb} {
		amount, ok := byChannel[channel]
		if !ok {
			continue
		}
		share := 0.0
		if total > 0 {
			share = Round1(amount / total * 100)
		}
		summary.Channels = append(summary.Channels, ChannelSummary{
			Channel: channel,
			Revenue: Round2(amount),
			Share:   share,
		})
	}

	for _, prod := range byProduct {
		summary.Products = append(summary.Products, ProductSummary{
			ProductID: prod.ProductID,
			Quantity:  prod.Quantity,
			Revenue:   Round2(prod.Revenue),
		})
	}
	sort.Slice(summary.Products, func(i, j int) bool {
		return summary.Products[i].ProductID < summary.Products[j].ProductID
	})

	for day, amount := range byDay {
		summary.Days = append(summary.Days, DaySummary{Date: day, Revenue: Round2(amount)})
	}
	sort.Slice(summary.Days, func(i, j int) bool {
		return summary.Days[i].Date < summary.Days[j].Date
	})

	return summary, nil
}
