package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/audience-campaigns/internal/errors"
	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/repository"
)

func dispatched(t *testing.T, f *fixture, n int) (*model.Campaign, []*model.DeliveryLog) {
	t.Helper()
	groupID, _ := f.seedGroup(t, n)
	res, err := f.dispatch.CreateCampaign(context.Background(), "C", groupID, "hi")
	require.NoError(t, err)
	logs, err := f.logs.List(context.Background(), &res.Campaign.ID, 0, 1000)
	require.NoError(t, err)
	return res.Campaign, logs
}

func TestRecordOutcome_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, logs := dispatched(t, f, 3)

	require.NoError(t, f.outcomes.RecordOutcome(ctx, logs[0].ID, model.StatusSent, ""))
	once, err := f.outcomes.AggregateCampaignStats(ctx, c)
	require.NoError(t, err)

	require.NoError(t, f.outcomes.RecordOutcome(ctx, logs[0].ID, model.StatusSent, ""))
	twice, err := f.outcomes.AggregateCampaignStats(ctx, c)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, 1, twice.SentCount)

	l, err := f.logs.GetByID(ctx, logs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, l.Status)
}

func TestRecordOutcome_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, logs := dispatched(t, f, 1)

	err := f.outcomes.RecordOutcome(ctx, 99, model.StatusSent, "")
	var nf *appErrors.LogNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(99), nf.LogID)

	err = f.outcomes.RecordOutcome(ctx, logs[0].ID, model.StatusPending, "")
	assert.True(t, appErrors.IsValidation(err))
}

func TestAggregateCampaignStats_Bounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, logs := dispatched(t, f, 5)

	require.NoError(t, f.outcomes.RecordOutcome(ctx, logs[0].ID, model.StatusSent, ""))
	require.NoError(t, f.outcomes.RecordOutcome(ctx, logs[1].ID, model.StatusSent, ""))
	require.NoError(t, f.outcomes.RecordOutcome(ctx, logs[2].ID, model.StatusFailed, "bounced"))

	stats, err := f.outcomes.AggregateCampaignStats(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStats{AudienceSize: 5, SentCount: 2, FailedCount: 1, PendingCount: 2}, stats)
	assert.LessOrEqual(t, stats.SentCount+stats.FailedCount, len(logs))
	assert.LessOrEqual(t, len(logs), stats.AudienceSize)

	failed, err := f.logs.GetByID(ctx, logs[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "bounced", failed.LastError)
}

func TestAggregateCampaignStats_PurgedGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, logs := dispatched(t, f, 2)
	require.NoError(t, f.outcomes.RecordOutcome(ctx, logs[0].ID, model.StatusSent, ""))

	_, err := f.audience.PurgeGroups(ctx)
	require.NoError(t, err)

	stats, err := f.outcomes.AggregateCampaignStats(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.AudienceSize)
	assert.Equal(t, 1, stats.SentCount)
}

func TestHandleReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, logs := dispatched(t, f, 2)

	receipt, _ := json.Marshal(model.DeliveryReceipt{DeliveryLogID: logs[0].ID, Status: model.StatusFailed, Error: "mock sending failed"})
	require.NoError(t, f.outcomes.HandleReceipt(ctx, receipt))

	unknown, _ := json.Marshal(model.DeliveryReceipt{DeliveryLogID: 1, Status: model.StatusSent})
	assert.NoError(t, f.outcomes.HandleReceipt(ctx, unknown))
	assert.NoError(t, f.outcomes.HandleReceipt(ctx, []byte("{not json")))

	bogus, _ := json.Marshal(model.DeliveryReceipt{DeliveryLogID: logs[1].ID, Status: "DELIVERED"})
	assert.NoError(t, f.outcomes.HandleReceipt(ctx, bogus))

	stats, err := f.outcomes.AggregateCampaignStats(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FailedCount)
	assert.Equal(t, 1, stats.PendingCount)
}

type brokenLogs struct {
	repository.DeliveryLogRepositoryInterface
}

var errStore = errors.New("connection reset")

func (brokenLogs) UpdateStatus(context.Context, int64, model.DeliveryStatus, string) error {
	return errStore
}

func TestHandleReceipt_StoreErrorIsRedelivered(t *testing.T) {
	f := newFixture(t)
	f.outcomes.DeliveryLogRepo = brokenLogs{f.logs}

	receipt, _ := json.Marshal(model.DeliveryReceipt{DeliveryLogID: 7, Status: model.StatusSent})
	assert.ErrorIs(t, f.outcomes.HandleReceipt(context.Background(), receipt), errStore)
}

func TestStatsForCampaign_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.outcomes.StatsForCampaign(context.Background(), 5)
	var nf *appErrors.CampaignNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestRecordOutcome_ConcurrentRecipients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, logs := dispatched(t, f, 200)
	require.Len(t, logs, 200)

	var (
		wg      sync.WaitGroup
		errs    = make(chan error, 2*len(logs))
		sent    int
		failed  int
		pending int
	)
	for i, l := range logs {
		switch i % 3 {
		case 0:
			sent++
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- f.outcomes.RecordOutcome(ctx, l.ID, model.StatusSent, "")
			}()
		case 1:
			failed++
			payload, err := json.Marshal(model.DeliveryReceipt{DeliveryLogID: l.ID, Status: model.StatusFailed, Error: "bounced"})
			require.NoError(t, err)
			// Redelivered receipts race with the first copy.
			for range 2 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- f.outcomes.HandleReceipt(ctx, payload)
				}()
			}
		default:
			pending++
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 20 {
			stats, err := f.outcomes.AggregateCampaignStats(ctx, c)
			if err != nil {
				errs <- err
				return
			}
			if stats.SentCount+stats.FailedCount+stats.PendingCount != len(logs) {
				errs <- errors.New("stats do not add up to the audience")
				return
			}
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stats, err := f.outcomes.AggregateCampaignStats(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 200, stats.AudienceSize)
	assert.Equal(t, sent, stats.SentCount)
	assert.Equal(t, failed, stats.FailedCount)
	assert.Equal(t, pending, stats.PendingCount)

	for i, l := range logs {
		got, err := f.logs.GetByID(ctx, l.ID)
		require.NoError(t, err)
		switch i % 3 {
		case 0:
			assert.Equal(t, model.StatusSent, got.Status)
		case 1:
			assert.Equal(t, model.StatusFailed, got.Status)
			assert.Equal(t, "bounced", got.LastError)
		default:
			assert.Equal(t, model.StatusPending, got.Status)
		}
	}
}
