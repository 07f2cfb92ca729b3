package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unclebandit/audience-campaigns/internal/logger"
	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/queue"
	"github.com/unclebandit/audience-campaigns/internal/repository"
	"github.com/unclebandit/audience-campaigns/internal/rules"
	"github.com/unclebandit/audience-campaigns/internal/service"
)

const taskQueue = "communication"

type fixture struct {
	customers *countingCustomers
	audiences *repository.MemoryAudienceRepository
	campaigns *repository.MemoryCampaignRepository
	logs      *repository.MemoryDeliveryLogRepository
	queue     *queue.InMemoryQueue

	audience *service.AudienceService
	dispatch *service.CampaignService
	outcomes *service.OutcomeService
	listing  *service.ListingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		customers: &countingCustomers{MemoryCustomerRepository: repository.NewMemoryCustomerRepository()},
		audiences: repository.NewMemoryAudienceRepository(),
		campaigns: repository.NewMemoryCampaignRepository(),
		logs:      repository.NewMemoryDeliveryLogRepository(),
		queue:     queue.NewInMemoryQueue(4096),
	}
	log := logger.Discard()
	f.queue.Log = log

	f.audience = &service.AudienceService{CustomerRepo: f.customers, AudienceRepo: f.audiences, Log: log}
	f.dispatch = &service.CampaignService{
		CampaignRepo:    f.campaigns,
		AudienceRepo:    f.audiences,
		DeliveryLogRepo: f.logs,
		Queue:           f.queue,
		TaskQueue:       taskQueue,
		Concurrency:     4,
		Log:             log,
	}
	f.outcomes = &service.OutcomeService{
		DeliveryLogRepo: f.logs,
		CampaignRepo:    f.campaigns,
		AudienceRepo:    f.audiences,
		Log:             log,
	}
	f.listing = &service.ListingService{
		CampaignRepo:    f.campaigns,
		DeliveryLogRepo: f.logs,
		Outcomes:        f.outcomes,
		Log:             log,
	}
	return f
}

func (f *fixture) addCustomer(t *testing.T, c model.Customer) int64 {
	t.Helper()
	require.NoError(t, f.customers.Create(context.Background(), &c))
	return c.ID
}

// seedGroup stores an audience group of n fresh customers.
func (f *fixture) seedGroup(t *testing.T, n int) (int64, []int64) {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, f.addCustomer(t, model.Customer{Name: "c", Email: "c@example.com", TotalSpend: 5000}))
	}
	g := &model.AudienceGroup{CustomerIDs: ids}
	require.NoError(t, f.audiences.Create(context.Background(), g))
	return g.ID, ids
}

func (f *fixture) tasks(t *testing.T) []model.DeliveryTask {
	t.Helper()
	var out []model.DeliveryTask
	for _, raw := range f.queue.Drain(taskQueue) {
		var task model.DeliveryTask
		require.NoError(t, json.Unmarshal(raw, &task))
		out = append(out, task)
	}
	return out
}

func (f *fixture) groupCount(t *testing.T) int64 {
	t.Helper()
	n, err := f.audiences.DeleteAll(context.Background())
	require.NoError(t, err)
	return n
}

type countingCustomers struct {
	*repository.MemoryCustomerRepository
	findCalls int
}

func (c *countingCustomers) FindIDs(ctx context.Context, pred rules.Predicate) ([]int64, error) {
	c.findCalls++
	return c.MemoryCustomerRepository.FindIDs(ctx, pred)
}

// flakyProducer fails enqueues for selected customers.
type flakyProducer struct {
	inner   queue.Producer
	failFor map[int64]bool
}

var errBroker = errors.New("broker unavailable")

func (p *flakyProducer) Enqueue(ctx context.Context, name string, payload []byte) error {
	var task model.DeliveryTask
	if err := json.Unmarshal(payload, &task); err == nil && p.failFor[task.CustomerID] {
		return errBroker
	}
	return p.inner.Enqueue(ctx, name, payload)
}

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}
