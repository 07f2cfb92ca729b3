package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/audience-campaigns/internal/errors"
	"github.com/unclebandit/audience-campaigns/internal/handler"
	"github.com/unclebandit/audience-campaigns/internal/logger"
	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/repository"
	"github.com/unclebandit/audience-campaigns/internal/service"
)

func newAudienceRouter(t *testing.T) (chi.Router, repository.Repositories) {
	t.Helper()
	repos := repository.NewMemory()
	ah := &handler.AudienceHandler{Service: &service.AudienceService{
		CustomerRepo: repos.Customers,
		AudienceRepo: repos.Audiences,
		Log:          logger.Discard(),
	}}
	ch := &handler.CustomerHandler{Service: &service.CustomerService{CustomerRepo: repos.Customers}}

	r := chi.NewRouter()
	r.Post("/api/audience", ah.SubmitRules)
	r.Delete("/api/audience-groups", ah.PurgeGroups)
	r.Post("/api/customers", ch.CreateCustomer)
	r.Get("/api/customers", ch.ListCustomers)
	return r, repos
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestSubmitRules(t *testing.T) {
	r, repos := newAudienceRouter(t)
	ctx := context.Background()
	rich := &model.Customer{Name: "Rich", TotalSpend: 1500}
	require.NoError(t, repos.Customers.Create(ctx, rich))
	require.NoError(t, repos.Customers.Create(ctx, &model.Customer{Name: "Modest", TotalSpend: 500}))

	w := serve(r, http.MethodPost, "/api/audience",
		`{"rules":[{"field":"totalSpend","operator":">","value":1000,"useType":"AND"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		Count           int    `json:"count"`
		AudienceGroupID string `json:"audienceGroupId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Count)
	require.NotEmpty(t, res.AudienceGroupID)

	var groupID int64
	_, err := fmt.Sscan(res.AudienceGroupID, &groupID)
	require.NoError(t, err)
	g, err := repos.Audiences.GetByID(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, []int64{rich.ID}, g.CustomerIDs)
}

func TestSubmitRules_EmptyMatchOmitsGroup(t *testing.T) {
	r, _ := newAudienceRouter(t)

	w := serve(r, http.MethodPost, "/api/audience", `{"rules":[]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0}`, w.Body.String())
}

func TestSubmitRules_ValidationErrors(t *testing.T) {
	r, _ := newAudienceRouter(t)

	cases := map[string]string{
		"unsupported operator": `{"rules":[{"field":"totalSpend","operator":"~=","value":1}]}`,
		"bad date":             `{"rules":[{"field":"lastVisit","operator":">","value":"someday"}]}`,
		"unknown field":        `{"rules":[{"field":"password","operator":"=","value":"x"}]}`,
		"malformed body":       `{"rules":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := serve(r, http.MethodPost, "/api/audience", body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var eb handler.ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &eb))
			assert.Equal(t, appErrors.KindValidation, eb.Kind)
			assert.NotEmpty(t, eb.Error)
		})
	}
}

func TestPurgeGroups(t *testing.T) {
	r, repos := newAudienceRouter(t)
	require.NoError(t, repos.Audiences.Create(context.Background(), &model.AudienceGroup{CustomerIDs: []int64{1}}))

	w := serve(r, http.MethodDelete, "/api/audience-groups", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":1`)
}

func TestCustomers(t *testing.T) {
	r, _ := newAudienceRouter(t)

	w := serve(r, http.MethodPost, "/api/customers",
		`{"name":"Alice","email":"alice@example.com","phone":"+254700000001","totalSpend":1200.5,"visits":4,"lastVisit":"2024-05-01T10:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created model.Customer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, 1200.5, created.TotalSpend)
	require.NotNil(t, created.LastVisit)

	w = serve(r, http.MethodPost, "/api/customers", `{"name":"NoPhone","email":"x@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodGet, "/api/customers?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []model.Customer `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Alice", list.Data[0].Name)
}

func TestWriteError_StatusByKind(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   appErrors.Kind
	}{
		{appErrors.NewUnsupportedOperator("~="), http.StatusBadRequest, appErrors.KindValidation},
		{fmt.Errorf("wrapped: %w", appErrors.NewGroupNotFound(3)), http.StatusNotFound, appErrors.KindNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError, appErrors.KindInternal},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		handler.WriteError(w, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		assert.Equal(t, tc.status, w.Code)

		var body handler.ErrorBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.kind, body.Kind)
		if tc.kind == appErrors.KindInternal {
			assert.Equal(t, "internal server error", body.Error)
		}
	}
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
