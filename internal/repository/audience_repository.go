// internal/repository/audience_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/audience-campaigns/internal/errors"
	"github.com/unclebandit/audience-campaigns/internal/id"
	"github.com/unclebandit/audience-campaigns/internal/model"
)

// AudienceRepository stores group snapshots as a BIGINT[] of customer ids.
type AudienceRepository struct {
	DB *sql.DB
}

func (r *AudienceRepository) Create(ctx context.Context, g *model.AudienceGroup) error {
	g.ID = id.New()
	g.CreatedAt = time.Now().UTC()

	query := `INSERT INTO audience_groups (id, customer_ids, created_at) VALUES ($1, $2, $3)`
	if _, err := r.DB.ExecContext(ctx, query, g.ID, pq.Int64Array(g.CustomerIDs), g.CreatedAt); err != nil {
		return fmt.Errorf("insert audience group: %w", err)
	}
	return nil
}

func (r *AudienceRepository) GetByID(ctx context.Context, groupID int64) (*model.AudienceGroup, error) {
	query := `SELECT id, customer_ids, created_at FROM audience_groups WHERE id = $1`

	var g model.AudienceGroup
	var members pq.Int64Array
	err := r.DB.QueryRowContext(ctx, query, groupID).Scan(&g.ID, &members, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewGroupNotFound(groupID)
		}
		return nil, fmt.Errorf("get audience group %d: %w", groupID, err)
	}
	g.CustomerIDs = []int64(members)
	return &g, nil
}

func (r *AudienceRepository) Size(ctx context.Context, groupID int64) (int, error) {
	query := `SELECT COALESCE(cardinality(customer_ids), 0) FROM audience_groups WHERE id = $1`

	var size int
	if err := r.DB.QueryRowContext(ctx, query, groupID).Scan(&size); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.NewGroupNotFound(groupID)
		}
		return 0, fmt.Errorf("size audience group %d: %w", groupID, err)
	}
	return size, nil
}

func (r *AudienceRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM audience_groups`)
	if err != nil {
		return 0, fmt.Errorf("delete audience groups: %w", err)
	}
	return res.RowsAffected()
}

var _ AudienceRepositoryInterface = (*AudienceRepository)(nil)
