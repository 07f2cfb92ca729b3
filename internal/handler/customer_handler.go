// internal/handler/customer_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/service"
)

type CustomerHandler struct {
	Service *service.CustomerService
}

// CreateCustomer handles POST /api/customers.
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name       string     `json:"name"`
		Email      string     `json:"email"`
		Phone      string     `json:"phone"`
		TotalSpend float64    `json:"totalSpend"`
		Visits     int        `json:"visits"`
		LastVisit  *time.Time `json:"lastVisit,omitempty"`
	}
	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	c := &model.Customer{
		Name:       payload.Name,
		Email:      payload.Email,
		Phone:      payload.Phone,
		TotalSpend: payload.TotalSpend,
		Visits:     payload.Visits,
		LastVisit:  payload.LastVisit,
	}
	if err := h.Service.CreateCustomer(r.Context(), c); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, c)
}

// ListCustomers handles GET /api/customers?page&limit.
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	page, err := PageFromQuery(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	customers, err := h.Service.ListCustomers(r.Context(), page)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": customers, "pagination": page})
}

// PageFromQuery reads page and limit, applying the listing defaults.
func PageFromQuery(r *http.Request) (service.Page, error) {
	page, err := IntQuery(r, "page")
	if err != nil {
		return service.Page{}, err
	}
	limit, err := IntQuery(r, "limit")
	if err != nil {
		return service.Page{}, err
	}
	return service.NewPage(page, limit)
}
