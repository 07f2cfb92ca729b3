// internal/service/customer_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	appErrors "github.com/unclebandit/audience-campaigns/internal/errors"
	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/repository"
)

// CustomerService is the ingestion entry point for segmentation targets.
type CustomerService struct {
	CustomerRepo repository.CustomerRepositoryInterface
}

func (s *CustomerService) CreateCustomer(ctx context.Context, c *model.Customer) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)

	switch {
	case c.Name == "":
		return appErrors.NewInvalidArgument("name", "must not be empty")
	case c.Email == "":
		return appErrors.NewInvalidArgument("email", "must not be empty")
	case c.Phone == "":
		return appErrors.NewInvalidArgument("phone", "must not be empty")
	case c.TotalSpend < 0:
		return appErrors.NewInvalidArgument("totalSpend", "must not be negative")
	case c.Visits < 0:
		return appErrors.NewInvalidArgument("visits", "must not be negative")
	}

	c.ID = 0
	if err := s.CustomerRepo.Create(ctx, c); err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (s *CustomerService) ListCustomers(ctx context.Context, p Page) ([]*model.Customer, error) {
	customers, err := s.CustomerRepo.List(ctx, p.Offset(), p.Limit)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}
