// internal/handler/audience_handler.go
package handler

import (
	"net/http"

	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/service"
)

type AudienceHandler struct {
	Service *service.AudienceService
}

// SubmitRules handles POST /api/audience.
func (h *AudienceHandler) SubmitRules(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rules []model.Rule `json:"rules"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, r, err)
		return
	}

	res, err := h.Service.SubmitRules(r.Context(), body.Rules)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// PurgeGroups handles DELETE /api/audience-groups.
func (h *AudienceHandler) PurgeGroups(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.PurgeGroups(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "All audience groups deleted", "deleted": n})
}
