// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	appErrors "github.com/unclebandit/audience-campaigns/internal/errors"
	"github.com/unclebandit/audience-campaigns/internal/handler"
	"github.com/unclebandit/audience-campaigns/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	Listing         *service.ListingService
}

// CreateCampaign handles POST /api/campaigns. The audience group id may be
// sent as a JSON number or a string.
func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name            string      `json:"name"`
		AudienceGroupID json.Number `json:"audienceGroupId"`
		Message         string      `json:"message"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, r, err)
		return
	}

	groupID, err := strconv.ParseInt(body.AudienceGroupID.String(), 10, 64)
	if err != nil || groupID <= 0 {
		handler.WriteError(w, r, appErrors.NewInvalidArgument("audienceGroupId", "must be a positive integer id"))
		return
	}

	result, err := c.CampaignService.CreateCampaign(r.Context(), body.Name, groupID, body.Message)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, result)
}

// ListCampaigns handles GET /api/campaigns. Without page or limit every
// campaign is returned.
func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	var page *service.Page
	q := r.URL.Query()
	if q.Get("page") != "" || q.Get("limit") != "" {
		p, err := handler.PageFromQuery(r)
		if err != nil {
			handler.WriteError(w, r, err)
			return
		}
		page = &p
	}

	campaigns, pagination, err := c.Listing.ListCampaigns(r.Context(), page)
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"data":       campaigns,
		"pagination": pagination,
	})
}

// PurgeCampaigns handles DELETE /api/campaigns.
func (c *CampaignController) PurgeCampaigns(w http.ResponseWriter, r *http.Request) {
	n, err := c.Listing.PurgeCampaigns(r.Context())
	if err != nil {
		handler.WriteError(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"message": "All campaigns deleted", "deleted": n})
}
