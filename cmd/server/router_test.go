package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/audience-campaigns/internal/logger"
	"github.com/unclebandit/audience-campaigns/internal/metrics"
	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/queue"
	"github.com/unclebandit/audience-campaigns/internal/repository"
	"github.com/unclebandit/audience-campaigns/internal/service"
)

func newTestRouter(t *testing.T) (http.Handler, repository.Repositories, *queue.InMemoryQueue) {
	t.Helper()
	repos := repository.NewMemory()
	q := queue.NewInMemoryQueue(256)
	log := logger.Discard()
	q.Log = log
	m := metrics.New()

	outcomes := &service.OutcomeService{DeliveryLogRepo: repos.DeliveryLogs, CampaignRepo: repos.Campaigns, AudienceRepo: repos.Audiences, Metrics: m, Log: log}
	r := NewRouter(Services{
		Audiences: &service.AudienceService{CustomerRepo: repos.Customers, AudienceRepo: repos.Audiences, Metrics: m, Log: log},
		Customers: &service.CustomerService{CustomerRepo: repos.Customers},
		Campaigns: &service.CampaignService{
			CampaignRepo:    repos.Campaigns,
			AudienceRepo:    repos.Audiences,
			DeliveryLogRepo: repos.DeliveryLogs,
			Queue:           q,
			TaskQueue:       "communication",
			Metrics:         m,
			Log:             log,
		},
		Listing: &service.ListingService{CampaignRepo: repos.Campaigns, DeliveryLogRepo: repos.DeliveryLogs, Outcomes: outcomes, Log: log},
		Metrics: m,
	})
	return r, repos, q
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestRouter_AudienceToCampaign(t *testing.T) {
	h, repos, q := newTestRouter(t)
	ctx := context.Background()
	for _, spend := range []float64{100, 2000, 3000} {
		require.NoError(t, repos.Customers.Create(ctx, &model.Customer{Name: "c", Email: "c@example.com", Phone: "1", TotalSpend: spend}))
	}

	w := do(t, h, http.MethodPost, "/api/audience", `{"rules":[{"field":"totalSpend","operator":">=","value":2000,"useType":"AND"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var audience struct {
		Count           int    `json:"count"`
		AudienceGroupID string `json:"audienceGroupId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &audience))
	require.Equal(t, 2, audience.Count)

	w = do(t, h, http.MethodPost, "/api/campaigns",
		`{"name":"Winback","audienceGroupId":"`+audience.AudienceGroupID+`","message":"Hi {name}"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, q.Len("communication"))

	w = do(t, h, http.MethodGet, "/api/delivery-logs", "")
	require.Equal(t, http.StatusOK, w.Code)
	var logs struct {
		Data []model.DeliveryLog `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs.Data, 2)
	for _, l := range logs.Data {
		assert.Equal(t, model.StatusPending, l.Status)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	h, _, _ := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `path="/health"`)
}

func TestRouter_UnknownCampaign(t *testing.T) {
	h, _, _ := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/api/campaigns/42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/api/campaigns/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoadRuleFile(t *testing.T) {
	rs, err := loadRuleFile(strings.NewReader(`
rules:
  - field: totalSpend
    operator: ">"
    value: 10000
    useType: AND
  - field: lastVisit
    operator: "<"
    value: "2024-01-01"
    useType: OR
`))
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, model.OpGreater, rs[0].Operator)
	assert.Equal(t, 10000, rs[0].Value)
	assert.Equal(t, model.CombinatorOr, rs[1].UseType)

	_, err = loadRuleFile(strings.NewReader("rules:\n  - feild: visits\n"))
	assert.Error(t, err)

	rs, err = loadRuleFile(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rs)
}
