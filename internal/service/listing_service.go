// internal/service/listing_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	appErrors "github.com/unclebandit/audience-campaigns/internal/errors"
	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/repository"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500

	statsConcurrency = 8
)

// Page is a validated page/limit pair. Page numbers start at 1.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// NewPage validates page and limit. Zero values take the defaults; limits
// above MaxPageLimit are capped.
func NewPage(page, limit int) (Page, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	if page < 1 {
		return Page{}, appErrors.NewInvalidArgument("page", "must be at least 1")
	}
	if limit < 1 {
		return Page{}, appErrors.NewInvalidArgument("limit", "must be at least 1")
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Page: page, Limit: limit}, nil
}

// Offset is the number of rows before p. It saturates at math.MaxInt so a
// page far past the end reads as empty instead of wrapping around.
func (p Page) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Pagination describes a page of campaigns.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// ListingService serves the read side: delivery logs and campaigns with
// stats, plus the campaign purge.
type ListingService struct {
	CampaignRepo    repository.CampaignRepositoryInterface
	DeliveryLogRepo repository.DeliveryLogRepositoryInterface
	Outcomes        *OutcomeService
	Log             *slog.Logger
}

func (s *ListingService) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

// ListDeliveryLogs returns up to p.Limit rows after skipping
// (p.Page-1)*p.Limit, optionally for a single campaign. A page past the end
// is empty.
func (s *ListingService) ListDeliveryLogs(ctx context.Context, campaignID *int64, p Page) ([]*model.DeliveryLog, error) {
	logs, err := s.DeliveryLogRepo.List(ctx, campaignID, p.Offset(), p.Limit)
	if err != nil {
		return nil, fmt.Errorf("list delivery logs: %w", err)
	}
	return logs, nil
}

// ListCampaigns returns campaigns newest first, each with its stats. A nil
// page returns every campaign.
func (s *ListingService) ListCampaigns(ctx context.Context, p *Page) ([]*model.CampaignWithStats, Pagination, error) {
	offset, limit := 0, 0
	if p != nil {
		offset, limit = p.Offset(), p.Limit
	}

	campaigns, total, err := s.CampaignRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list campaigns: %w", err)
	}

	out := make([]*model.CampaignWithStats, len(campaigns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statsConcurrency)
	for i, c := range campaigns {
		g.Go(func() error {
			stats, err := s.Outcomes.AggregateCampaignStats(gctx, c)
			if err != nil {
				return err
			}
			out[i] = &model.CampaignWithStats{Campaign: *c, CampaignStats: stats}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Pagination{}, err
	}

	pagination := Pagination{Page: 1, Limit: total, TotalCount: total}
	if total > 0 {
		pagination.TotalPages = 1
	}
	if p != nil {
		pagination = Pagination{
			Page:       p.Page,
			Limit:      p.Limit,
			TotalCount: total,
			TotalPages: (total + p.Limit - 1) / p.Limit,
		}
	}
	return out, pagination, nil
}

func (s *ListingService) GetCampaign(ctx context.Context, campaignID int64) (*model.CampaignWithStats, error) {
	return s.Outcomes.StatsForCampaign(ctx, campaignID)
}

// PurgeCampaigns deletes every campaign. Delivery logs are not removed.
func (s *ListingService) PurgeCampaigns(ctx context.Context) (int64, error) {
	n, err := s.CampaignRepo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge campaigns: %w", err)
	}
	s.logger().InfoContext(ctx, "campaigns purged", "count", n)
	return n, nil
}
