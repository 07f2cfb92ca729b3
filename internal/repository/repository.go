// internal/repository/repository.go
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/rules"
)

// CustomerRepositoryInterface defines the customer queries used by services.
type CustomerRepositoryInterface interface {
	Create(ctx context.Context, c *model.Customer) error
	GetByID(ctx context.Context, id int64) (*model.Customer, error)
	List(ctx context.Context, offset, limit int) ([]*model.Customer, error)
	// FindIDs returns the ids of every customer matching pred, in id order.
	FindIDs(ctx context.Context, pred rules.Predicate) ([]int64, error)
}

type AudienceRepositoryInterface interface {
	Create(ctx context.Context, g *model.AudienceGroup) error
	GetByID(ctx context.Context, id int64) (*model.AudienceGroup, error)
	// Size returns the member count without loading the snapshot.
	Size(ctx context.Context, id int64) (int, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	// List returns campaigns newest first. A non-positive limit returns all.
	List(ctx context.Context, offset, limit int) ([]*model.Campaign, int, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type DeliveryLogRepositoryInterface interface {
	Create(ctx context.Context, l *model.DeliveryLog) error
	GetByID(ctx context.Context, id int64) (*model.DeliveryLog, error)
	// UpdateStatus overwrites the status of one row and fails with
	// LogNotFoundError if the row does not exist.
	UpdateStatus(ctx context.Context, id int64, status model.DeliveryStatus, lastError string) error
	// List returns rows in storage order, optionally restricted to one campaign.
	List(ctx context.Context, campaignID *int64, offset, limit int) ([]*model.DeliveryLog, error)
	CountByStatus(ctx context.Context, campaignID int64) (map[model.DeliveryStatus]int, error)
	// ListStalePending returns PENDING rows not touched since before.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*model.DeliveryLog, error)
	// Touch bumps updated_at on a row that is still PENDING.
	Touch(ctx context.Context, id int64) error
}

// Repositories bundles the store used by the services.
type Repositories struct {
	Customers    CustomerRepositoryInterface
	Audiences    AudienceRepositoryInterface
	Campaigns    CampaignRepositoryInterface
	DeliveryLogs DeliveryLogRepositoryInterface
}

func NewPostgres(db *sql.DB) Repositories {
	return Repositories{
		Customers:    &CustomerRepository{DB: db},
		Audiences:    &AudienceRepository{DB: db},
		Campaigns:    &CampaignRepository{DB: db},
		DeliveryLogs: &DeliveryLogRepository{DB: db},
	}
}

func NewMemory() Repositories {
	return Repositories{
		Customers:    NewMemoryCustomerRepository(),
		Audiences:    NewMemoryAudienceRepository(),
		Campaigns:    NewMemoryCampaignRepository(),
		DeliveryLogs: NewMemoryDeliveryLogRepository(),
	}
}
