// internal/service/campaign_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	appErrors "github.com/unclebandit/audience-campaigns/internal/errors"
	"github.com/unclebandit/audience-campaigns/internal/metrics"
	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/queue"
	"github.com/unclebandit/audience-campaigns/internal/repository"
)

const DefaultDispatchConcurrency = 16

// CampaignService creates campaigns and fans out one delivery task per
// member of the bound audience group.
type CampaignService struct {
	CampaignRepo    repository.CampaignRepositoryInterface
	AudienceRepo    repository.AudienceRepositoryInterface
	DeliveryLogRepo repository.DeliveryLogRepositoryInterface
	Queue           queue.Producer
	TaskQueue       string
	Concurrency     int
	Metrics         *metrics.Metrics
	Log             *slog.Logger
}

// DispatchResult reports a created campaign and how its fan-out went.
// Failures lists the recipients whose task never reached the queue.
type DispatchResult struct {
	Campaign *model.Campaign             `json:"campaign"`
	Queued   int                         `json:"queued"`
	Failed   int                         `json:"failed"`
	Failures []*appErrors.EnqueueFailure `json:"-"`
}

func (s *CampaignService) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

// CreateCampaign persists a campaign bound to audienceGroupID and dispatches
// it. A missing group fails with GroupNotFoundError before anything is
// written. Enqueue failures do not fail the call; they are counted in the
// result and the affected rows stay PENDING.
func (s *CampaignService) CreateCampaign(ctx context.Context, name string, audienceGroupID int64, message string) (*DispatchResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErrors.NewInvalidArgument("name", "must not be empty")
	}
	if strings.TrimSpace(message) == "" {
		return nil, appErrors.NewInvalidArgument("message", "must not be empty")
	}

	group, err := s.AudienceRepo.GetByID(ctx, audienceGroupID)
	if err != nil {
		return nil, err
	}

	c := &model.Campaign{
		Name:            name,
		AudienceGroupID: group.ID,
		Message:         message,
	}
	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	// Fan-out is detached from request cancellation.
	failures := s.dispatch(context.WithoutCancel(ctx), c, group.CustomerIDs)

	result := &DispatchResult{
		Campaign: c,
		Queued:   len(group.CustomerIDs) - len(failures),
		Failed:   len(failures),
		Failures: failures,
	}

	log := s.logger().With("campaign_id", c.ID, "audience_group_id", group.ID)
	if result.Failed > 0 {
		log.WarnContext(ctx, "campaign partially dispatched", "queued", result.Queued, "failed", result.Failed)
	} else {
		log.InfoContext(ctx, "campaign dispatched", "queued", result.Queued)
	}
	return result, nil
}

// dispatch runs one independent unit of work per recipient with at most
// Concurrency in flight. A failing recipient never stops the others.
func (s *CampaignService) dispatch(ctx context.Context, c *model.Campaign, customerIDs []int64) []*appErrors.EnqueueFailure {
	limit := s.Concurrency
	if limit <= 0 {
		limit = DefaultDispatchConcurrency
	}

	var (
		g        errgroup.Group
		mu       sync.Mutex
		failures []*appErrors.EnqueueFailure
	)
	g.SetLimit(limit)

	for _, customerID := range customerIDs {
		g.Go(func() error {
			if f := s.dispatchOne(ctx, c, customerID); f != nil {
				mu.Lock()
				failures = append(failures, f)
				mu.Unlock()
				s.Metrics.DispatchFailed()
				return nil
			}
			s.Metrics.DispatchQueued()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].CustomerID < failures[j].CustomerID })
	return failures
}

func (s *CampaignService) dispatchOne(ctx context.Context, c *model.Campaign, customerID int64) *appErrors.EnqueueFailure {
	l := &model.DeliveryLog{
		CampaignID: c.ID,
		CustomerID: customerID,
		Message:    c.Message,
		Status:     model.StatusPending,
	}
	if err := s.DeliveryLogRepo.Create(ctx, l); err != nil {
		s.logger().ErrorContext(ctx, "failed to persist delivery log", "campaign_id", c.ID, "customer_id", customerID, "error", err)
		return &appErrors.EnqueueFailure{CustomerID: customerID, Err: err}
	}

	if err := EnqueueTask(ctx, s.Queue, s.TaskQueue, l); err != nil {
		s.logger().ErrorContext(ctx, "failed to enqueue delivery task", "delivery_log_id", l.ID, "customer_id", customerID, "error", err)
		return &appErrors.EnqueueFailure{DeliveryLogID: l.ID, CustomerID: customerID, Err: err}
	}
	return nil
}

// EnqueueTask publishes the delivery task for one log row.
func EnqueueTask(ctx context.Context, p queue.Producer, queueName string, l *model.DeliveryLog) error {
	payload, err := json.Marshal(model.DeliveryTask{
		DeliveryLogID: l.ID,
		CampaignID:    l.CampaignID,
		CustomerID:    l.CustomerID,
		Message:       l.Message,
	})
	if err != nil {
		return fmt.Errorf("encode delivery task: %w", err)
	}
	return p.Enqueue(ctx, queueName, payload)
}
