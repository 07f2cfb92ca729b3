// internal/service/outcome_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	appErrors "github.com/unclebandit/audience-campaigns/internal/errors"
	"github.com/unclebandit/audience-campaigns/internal/metrics"
	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/repository"
)

// OutcomeService records delivery receipts and aggregates campaign stats.
type OutcomeService struct {
	DeliveryLogRepo repository.DeliveryLogRepositoryInterface
	CampaignRepo    repository.CampaignRepositoryInterface
	AudienceRepo    repository.AudienceRepositoryInterface
	Metrics         *metrics.Metrics
	Log             *slog.Logger
}

func (s *OutcomeService) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

// RecordOutcome sets the terminal status of one delivery log. Recording the
// same outcome again leaves the row unchanged apart from updated_at.
func (s *OutcomeService) RecordOutcome(ctx context.Context, logID int64, status model.DeliveryStatus, reason string) error {
	if !status.IsTerminal() {
		return appErrors.NewInvalidArgument("status", fmt.Sprintf("%q is not a delivery outcome", status))
	}
	if status == model.StatusSent {
		reason = ""
	}

	if err := s.DeliveryLogRepo.UpdateStatus(ctx, logID, status, reason); err != nil {
		return err
	}
	s.Metrics.Outcome(string(status))
	s.logger().DebugContext(ctx, "delivery outcome recorded", "delivery_log_id", logID, "status", status)
	return nil
}

// HandleReceipt is the queue handler for inbound delivery receipts.
// Malformed receipts and unknown log ids are logged and dropped; any other
// failure is returned so the transport redelivers.
func (s *OutcomeService) HandleReceipt(ctx context.Context, payload []byte) error {
	var receipt model.DeliveryReceipt
	if err := json.Unmarshal(payload, &receipt); err != nil {
		s.logger().WarnContext(ctx, "dropping malformed delivery receipt", "error", err)
		return nil
	}

	err := s.RecordOutcome(ctx, receipt.DeliveryLogID, receipt.Status, receipt.Error)
	switch appErrors.KindOf(err) {
	case "":
		return nil
	case appErrors.KindValidation, appErrors.KindNotFound:
		s.logger().WarnContext(ctx, "dropping delivery receipt", "delivery_log_id", receipt.DeliveryLogID, "status", receipt.Status, "error", err)
		return nil
	default:
		return err
	}
}

// AggregateCampaignStats counts the delivery logs of c by status. The
// audience size comes from the bound group and is zero when the group has
// been purged.
func (s *OutcomeService) AggregateCampaignStats(ctx context.Context, c *model.Campaign) (model.CampaignStats, error) {
	var stats model.CampaignStats

	size, err := s.AudienceRepo.Size(ctx, c.AudienceGroupID)
	switch {
	case err == nil:
		stats.AudienceSize = size
	case appErrors.IsNotFound(err):
		stats.AudienceSize = 0
	default:
		return stats, fmt.Errorf("audience size for campaign %d: %w", c.ID, err)
	}

	counts, err := s.DeliveryLogRepo.CountByStatus(ctx, c.ID)
	if err != nil {
		return stats, fmt.Errorf("delivery stats for campaign %d: %w", c.ID, err)
	}
	stats.SentCount = counts[model.StatusSent]
	stats.FailedCount = counts[model.StatusFailed]
	stats.PendingCount = counts[model.StatusPending]
	return stats, nil
}

// StatsForCampaign loads one campaign with its aggregates.
func (s *OutcomeService) StatsForCampaign(ctx context.Context, campaignID int64) (*model.CampaignWithStats, error) {
	c, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	stats, err := s.AggregateCampaignStats(ctx, c)
	if err != nil {
		return nil, err
	}
	return &model.CampaignWithStats{Campaign: *c, CampaignStats: stats}, nil
}
