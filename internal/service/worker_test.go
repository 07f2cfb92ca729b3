package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/audience-campaigns/internal/logger"
	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/queue"
	"github.com/unclebandit/audience-campaigns/internal/repository"
	"github.com/unclebandit/audience-campaigns/internal/service"
)

const receiptQueue = "delivery-receipt"

func receipts(t *testing.T, q *queue.InMemoryQueue) []model.DeliveryReceipt {
	t.Helper()
	var out []model.DeliveryReceipt
	for _, raw := range q.Drain(receiptQueue) {
		var r model.DeliveryReceipt
		require.NoError(t, json.Unmarshal(raw, &r))
		out = append(out, r)
	}
	return out
}

func TestWorker_SendsRenderedMessage(t *testing.T) {
	customers := repository.NewMemoryCustomerRepository()
	c := &model.Customer{Name: "Alice", Email: "alice@example.com", Phone: "+254700000000"}
	require.NoError(t, customers.Create(context.Background(), c))

	q := queue.NewInMemoryQueue(8)
	var sent string
	w := service.NewWorker(customers, q, receiptQueue, func(ctx context.Context, cust *model.Customer, msg string) error {
		sent = msg
		return nil
	})
	w.Log = logger.Discard()

	task, _ := json.Marshal(model.DeliveryTask{DeliveryLogID: 11, CampaignID: 1, CustomerID: c.ID, Message: "Hi {name}, we'll text {phone}"})
	require.NoError(t, w.Handle(context.Background(), task))

	assert.Equal(t, "Hi Alice, we'll text +254700000000", sent)
	assert.Equal(t, []model.DeliveryReceipt{{DeliveryLogID: 11, Status: model.StatusSent}}, receipts(t, q))
}

func TestWorker_FailedSendAndMissingCustomer(t *testing.T) {
	customers := repository.NewMemoryCustomerRepository()
	c := &model.Customer{Name: "Bob"}
	require.NoError(t, customers.Create(context.Background(), c))

	q := queue.NewInMemoryQueue(8)
	w := service.NewWorker(customers, q, receiptQueue, service.MockSender(0))
	w.Log = logger.Discard()

	failing, _ := json.Marshal(model.DeliveryTask{DeliveryLogID: 1, CustomerID: c.ID, Message: "x"})
	missing, _ := json.Marshal(model.DeliveryTask{DeliveryLogID: 2, CustomerID: 999, Message: "x"})
	require.NoError(t, w.Handle(context.Background(), failing))
	require.NoError(t, w.Handle(context.Background(), missing))
	require.NoError(t, w.Handle(context.Background(), []byte("garbage")))

	assert.Equal(t, []model.DeliveryReceipt{
		{DeliveryLogID: 1, Status: model.StatusFailed, Error: service.ErrMockSendFailed.Error()},
		{DeliveryLogID: 2, Status: model.StatusFailed, Error: "customer not found"},
	}, receipts(t, q))
}

type downProducer struct{}

func (downProducer) Enqueue(context.Context, string, []byte) error {
	return errors.New("broker down")
}

func TestWorker_ReceiptPublishFailureIsRetried(t *testing.T) {
	w := service.NewWorker(repository.NewMemoryCustomerRepository(), downProducer{}, receiptQueue, service.MockSender(1))
	w.Log = logger.Discard()

	task, _ := json.Marshal(model.DeliveryTask{DeliveryLogID: 1, CustomerID: 5, Message: "x"})
	assert.Error(t, w.Handle(context.Background(), task))
}

func TestWorker_EndToEndThroughReceipts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, _ := dispatched(t, f, 5)

	w := service.NewWorker(f.customers, f.queue, receiptQueue, service.MockSender(1))
	w.Log = logger.Discard()
	for _, raw := range f.queue.Drain(taskQueue) {
		require.NoError(t, w.Handle(ctx, raw))
	}
	for _, raw := range f.queue.Drain(receiptQueue) {
		require.NoError(t, f.outcomes.HandleReceipt(ctx, raw))
	}

	stats, err := f.outcomes.AggregateCampaignStats(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStats{AudienceSize: 5, SentCount: 5}, stats)
}

func TestRenderTemplate(t *testing.T) {
	c := &model.Customer{Name: "Alice", Email: "a@example.com"}
	got := service.RenderTemplate("Dear {name} <{email}> {unknown}", service.CustomerPlaceholders(c))
	assert.Equal(t, "Dear Alice <a@example.com> {unknown}", got)
}
