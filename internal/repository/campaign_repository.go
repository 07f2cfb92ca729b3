// internal/repository/campaign_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/audience-campaigns/internal/errors"
	"github.com/unclebandit/audience-campaigns/internal/id"
	"github.com/unclebandit/audience-campaigns/internal/model"
)

type CampaignRepository struct {
	DB *sql.DB
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	c.ID = id.New()
	c.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO campaigns (id, name, audience_group_id, message, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	if _, err := r.DB.ExecContext(ctx, query, c.ID, c.Name, c.AudienceGroupID, c.Message, c.CreatedAt); err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, campaignID int64) (*model.Campaign, error) {
	query := `
        SELECT id, name, audience_group_id, message, created_at
        FROM campaigns WHERE id = $1
    `
	var c model.Campaign
	err := r.DB.QueryRowContext(ctx, query, campaignID).Scan(&c.ID, &c.Name, &c.AudienceGroupID, &c.Message, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(campaignID)
		}
		return nil, fmt.Errorf("get campaign %d: %w", campaignID, err)
	}
	return &c, nil
}

func (r *CampaignRepository) List(ctx context.Context, offset, limit int) ([]*model.Campaign, int, error) {
	query := `SELECT id, name, audience_group_id, message, created_at FROM campaigns ORDER BY created_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1 OFFSET $2"
		args = append(args, limit, offset)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c := &model.Campaign{}
		if err := rows.Scan(&c.ID, &c.Name, &c.AudienceGroupID, &c.Message, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Count total
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	return campaigns, total, nil
}

// DeleteAll removes every campaign. Delivery logs are left in place.
func (r *CampaignRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM campaigns`)
	if err != nil {
		return 0, fmt.Errorf("delete campaigns: %w", err)
	}
	return res.RowsAffected()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
