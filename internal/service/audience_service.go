// internal/service/audience_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/unclebandit/audience-campaigns/internal/metrics"
	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/repository"
	"github.com/unclebandit/audience-campaigns/internal/rules"
)

// AudienceService turns rule sets into persisted audience snapshots.
type AudienceService struct {
	CustomerRepo repository.CustomerRepositoryInterface
	AudienceRepo repository.AudienceRepositoryInterface
	Metrics      *metrics.Metrics
	Log          *slog.Logger
}

// AudienceResult is what a materialization returns. AudienceGroupID is zero
// when nothing matched and no group was stored.
type AudienceResult struct {
	Count           int   `json:"count"`
	AudienceGroupID int64 `json:"audienceGroupId,string,omitempty"`
}

func (s *AudienceService) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

// SubmitRules compiles rs and materializes the result. Compilation errors
// are returned before the customer store is touched.
func (s *AudienceService) SubmitRules(ctx context.Context, rs []model.Rule) (*AudienceResult, error) {
	pred, err := rules.Compile(rs)
	if err != nil {
		return nil, err
	}
	return s.Materialize(ctx, pred)
}

// Materialize evaluates pred against every customer and stores the matching
// ids as a new immutable group. An empty match is never persisted.
func (s *AudienceService) Materialize(ctx context.Context, pred rules.Predicate) (*AudienceResult, error) {
	if rules.IsNever(pred) {
		s.Metrics.MaterializedEmpty()
		return &AudienceResult{Count: 0}, nil
	}

	ids, err := s.CustomerRepo.FindIDs(ctx, pred)
	if err != nil {
		return nil, fmt.Errorf("evaluate audience: %w", err)
	}
	if len(ids) == 0 {
		s.Metrics.MaterializedEmpty()
		return &AudienceResult{Count: 0}, nil
	}

	group := &model.AudienceGroup{CustomerIDs: ids}
	if err := s.AudienceRepo.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("persist audience group: %w", err)
	}
	s.Metrics.Materialized(group.Size())
	s.logger().InfoContext(ctx, "audience materialized", "audience_group_id", group.ID, "size", group.Size())

	return &AudienceResult{Count: group.Size(), AudienceGroupID: group.ID}, nil
}

// PurgeGroups deletes every audience group. Campaigns bound to them keep
// their reference and report an audience size of zero afterwards.
func (s *AudienceService) PurgeGroups(ctx context.Context) (int64, error) {
	n, err := s.AudienceRepo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge audience groups: %w", err)
	}
	s.logger().InfoContext(ctx, "audience groups purged", "count", n)
	return n, nil
}
