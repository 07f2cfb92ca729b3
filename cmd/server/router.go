// cmd/server/router.go
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unclebandit/audience-campaigns/internal/controller"
	"github.com/unclebandit/audience-campaigns/internal/handler"
	"github.com/unclebandit/audience-campaigns/internal/metrics"
	"github.com/unclebandit/audience-campaigns/internal/service"
)

// Services is everything the HTTP surface needs.
type Services struct {
	Audiences *service.AudienceService
	Customers *service.CustomerService
	Campaigns *service.CampaignService
	Listing   *service.ListingService
	Metrics   *metrics.Metrics
}

func NewRouter(s Services) http.Handler {
	audienceHandler := &handler.AudienceHandler{Service: s.Audiences}
	customerHandler := &handler.CustomerHandler{Service: s.Customers}
	campaignHandler := handler.NewCampaignHandler(s.Listing)
	campaignController := &controller.CampaignController{
		CampaignService: s.Campaigns,
		Listing:         s.Listing,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if s.Metrics != nil {
		r.Use(s.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	r.Get("/health", handler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/audience", audienceHandler.SubmitRules)
		r.Delete("/audience-groups", audienceHandler.PurgeGroups)

		r.Post("/customers", customerHandler.CreateCustomer)
		r.Get("/customers", customerHandler.ListCustomers)

		r.Post("/campaigns", campaignController.CreateCampaign)
		r.Get("/campaigns", campaignController.ListCampaigns)
		r.Delete("/campaigns", campaignController.PurgeCampaigns)
		r.Get("/campaigns/{id}", campaignHandler.GetCampaignWithStats)

		r.Get("/delivery-logs", campaignHandler.ListDeliveryLogs)
		r.Get("/delivery-logs/{campaignId}", campaignHandler.ListDeliveryLogs)
	})

	return r
}
