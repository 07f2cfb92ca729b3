// internal/repository/memory.go
package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	appErrors "github.com/unclebandit/audience-campaigns/internal/errors"
	"github.com/unclebandit/audience-campaigns/internal/id"
	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/rules"
)

// The memory repositories back STORE_DRIVER=memory and the service tests.
// Records are copied in and out so callers never share state with the store.

type MemoryCustomerRepository struct {
	mu        sync.RWMutex
	customers []*model.Customer
}

func NewMemoryCustomerRepository() *MemoryCustomerRepository {
	return &MemoryCustomerRepository{}
}

func (r *MemoryCustomerRepository) Create(ctx context.Context, c *model.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == 0 {
		c.ID = id.New()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	cp := *c
	r.customers = append(r.customers, &cp)
	return nil
}

// Update replaces a customer's attributes, as upstream ingestion would.
func (r *MemoryCustomerRepository) Update(ctx context.Context, c *model.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.customers {
		if existing.ID == c.ID {
			cp := *c
			cp.UpdatedAt = time.Now().UTC()
			r.customers[i] = &cp
			return nil
		}
	}
	return appErrors.NewCustomerNotFound(c.ID)
}

func (r *MemoryCustomerRepository) GetByID(ctx context.Context, customerID int64) (*model.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.customers {
		if c.ID == customerID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryCustomerRepository) List(ctx context.Context, offset, limit int) ([]*model.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := make([]*model.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		cp := *c
		sorted = append(sorted, &cp)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return window(sorted, offset, limit), nil
}

func (r *MemoryCustomerRepository) FindIDs(ctx context.Context, pred rules.Predicate) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := []int64{}
	for _, c := range r.customers {
		if pred.Match(c) {
			ids = append(ids, c.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type MemoryAudienceRepository struct {
	mu     sync.RWMutex
	groups map[int64]*model.AudienceGroup
}

func NewMemoryAudienceRepository() *MemoryAudienceRepository {
	return &MemoryAudienceRepository{groups: make(map[int64]*model.AudienceGroup)}
}

func (r *MemoryAudienceRepository) Create(ctx context.Context, g *model.AudienceGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g.ID = id.New()
	g.CreatedAt = time.Now().UTC()
	r.groups[g.ID] = &model.AudienceGroup{
		ID:          g.ID,
		CustomerIDs: append([]int64(nil), g.CustomerIDs...),
		CreatedAt:   g.CreatedAt,
	}
	return nil
}

func (r *MemoryAudienceRepository) GetByID(ctx context.Context, groupID int64) (*model.AudienceGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[groupID]
	if !ok {
		return nil, appErrors.NewGroupNotFound(groupID)
	}
	return &model.AudienceGroup{
		ID:          g.ID,
		CustomerIDs: append([]int64(nil), g.CustomerIDs...),
		CreatedAt:   g.CreatedAt,
	}, nil
}

func (r *MemoryAudienceRepository) Size(ctx context.Context, groupID int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[groupID]
	if !ok {
		return 0, appErrors.NewGroupNotFound(groupID)
	}
	return g.Size(), nil
}

func (r *MemoryAudienceRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.groups))
	r.groups = make(map[int64]*model.AudienceGroup)
	return n, nil
}

type MemoryCampaignRepository struct {
	mu        sync.RWMutex
	campaigns []*model.Campaign
}

func NewMemoryCampaignRepository() *MemoryCampaignRepository {
	return &MemoryCampaignRepository{}
}

func (r *MemoryCampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.ID = id.New()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	r.campaigns = append(r.campaigns, &cp)
	return nil
}

func (r *MemoryCampaignRepository) GetByID(ctx context.Context, campaignID int64) (*model.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.campaigns {
		if c.ID == campaignID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, appErrors.NewCampaignNotFound(campaignID)
}

func (r *MemoryCampaignRepository) List(ctx context.Context, offset, limit int) ([]*model.Campaign, int, error) {
	r.mu.RLock()
	sorted := make([]*model.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		cp := *c
		sorted = append(sorted, &cp)
	}
	r.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})

	total := len(sorted)
	if limit <= 0 {
		return sorted, total, nil
	}
	return window(sorted, offset, limit), total, nil
}

func (r *MemoryCampaignRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.campaigns))
	r.campaigns = nil
	return n, nil
}

type MemoryDeliveryLogRepository struct {
	mu   sync.RWMutex
	logs []*model.DeliveryLog
	byID map[int64]*model.DeliveryLog
}

func NewMemoryDeliveryLogRepository() *MemoryDeliveryLogRepository {
	return &MemoryDeliveryLogRepository{byID: make(map[int64]*model.DeliveryLog)}
}

func (r *MemoryDeliveryLogRepository) Create(ctx context.Context, l *model.DeliveryLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.logs {
		if existing.CampaignID == l.CampaignID && existing.CustomerID == l.CustomerID {
			return appErrors.NewInvalidArgument("delivery log", "duplicate recipient for campaign")
		}
	}

	l.ID = id.New()
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now
	if l.Status == "" {
		l.Status = model.StatusPending
	}
	cp := *l
	r.logs = append(r.logs, &cp)
	r.byID[cp.ID] = &cp
	return nil
}

func (r *MemoryDeliveryLogRepository) GetByID(ctx context.Context, logID int64) (*model.DeliveryLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.byID[logID]
	if !ok {
		return nil, appErrors.NewLogNotFound(logID)
	}
	cp := *l
	return &cp, nil
}

func (r *MemoryDeliveryLogRepository) UpdateStatus(ctx context.Context, logID int64, status model.DeliveryStatus, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byID[logID]
	if !ok {
		return appErrors.NewLogNotFound(logID)
	}
	l.Status = status
	l.LastError = lastError
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryDeliveryLogRepository) List(ctx context.Context, campaignID *int64, offset, limit int) ([]*model.DeliveryLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*model.DeliveryLog{}
	for _, l := range r.logs {
		if campaignID != nil && l.CampaignID != *campaignID {
			continue
		}
		cp := *l
		matched = append(matched, &cp)
	}
	return window(matched, offset, limit), nil
}

func (r *MemoryDeliveryLogRepository) CountByStatus(ctx context.Context, campaignID int64) (map[model.DeliveryStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := map[model.DeliveryStatus]int{model.StatusPending: 0, model.StatusSent: 0, model.StatusFailed: 0}
	for _, l := range r.logs {
		if l.CampaignID == campaignID {
			stats[l.Status]++
		}
	}
	return stats, nil
}

func (r *MemoryDeliveryLogRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*model.DeliveryLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stale := []*model.DeliveryLog{}
	for _, l := range r.logs {
		if l.Status == model.StatusPending && l.UpdatedAt.Before(before) {
			cp := *l
			stale = append(stale, &cp)
		}
	}
	sort.SliceStable(stale, func(i, j int) bool { return stale[i].UpdatedAt.Before(stale[j].UpdatedAt) })
	return window(stale, 0, limit), nil
}

func (r *MemoryDeliveryLogRepository) Touch(ctx context.Context, logID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.byID[logID]; ok && l.Status == model.StatusPending {
		l.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// Backdate moves a row's updated_at into the past, for reconciliation tests
// and local simulations.
func (r *MemoryDeliveryLogRepository) Backdate(logID int64, age time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.byID[logID]; ok {
		l.UpdatedAt = l.UpdatedAt.Add(-age)
	}
}

func window[T any](items []T, offset, limit int) []T {
	if offset < 0 || offset >= len(items) || limit <= 0 {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

var (
	_ CustomerRepositoryInterface    = (*MemoryCustomerRepository)(nil)
	_ AudienceRepositoryInterface    = (*MemoryAudienceRepository)(nil)
	_ CampaignRepositoryInterface    = (*MemoryCampaignRepository)(nil)
	_ DeliveryLogRepositoryInterface = (*MemoryDeliveryLogRepository)(nil)
)
