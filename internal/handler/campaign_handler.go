// internal/handler/campaign_handler.go
package handler

import (
	"log/slog"
	"net/http"

	"github.com/unclebandit/audience-campaigns/internal/service"
)

// CampaignHandler serves the read-only campaign and delivery log views.
type CampaignHandler struct {
	Listing *service.ListingService
}

func NewCampaignHandler(listing *service.ListingService) *CampaignHandler {
	return &CampaignHandler{Listing: listing}
}

// GetCampaignWithStats handles GET /api/campaigns/{id}.
func (h *CampaignHandler) GetCampaignWithStats(w http.ResponseWriter, r *http.Request) {
	id, err := IDParam(r, "id")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	details, err := h.Listing.GetCampaign(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	slog.DebugContext(r.Context(), "returning campaign with stats", "campaign_id", id,
		"audience_size", details.AudienceSize, "sent", details.SentCount, "failed", details.FailedCount)
	WriteJSON(w, http.StatusOK, details)
}

// ListDeliveryLogs handles GET /api/delivery-logs and
// GET /api/delivery-logs/{campaignId}.
func (h *CampaignHandler) ListDeliveryLogs(w http.ResponseWriter, r *http.Request) {
	page, err := PageFromQuery(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var campaignID *int64
	if chiParam(r, "campaignId") != "" {
		id, err := IDParam(r, "campaignId")
		if err != nil {
			WriteError(w, r, err)
			return
		}
		campaignID = &id
	}

	logs, err := h.Listing.ListDeliveryLogs(r.Context(), campaignID, page)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": logs, "pagination": page})
}
