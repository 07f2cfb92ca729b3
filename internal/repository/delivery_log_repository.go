// internal/repository/delivery_log_repository.go
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

type DeliveryLogRepository struct {
	DB *sql.DB
}

const deliveryLogColumns = `id, campaign_id, customer_id, message, status, last_error, created_at, updated_at`

// Create inserts a new PENDING row. The (campaign_id, customer_id) unique
// constraint rejects a second row for the same recipient.
func (r *DeliveryLogRepository) Create(ctx context.Context, l *model.DeliveryLog) error {
	l.ID = id.New()
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now
	if l.Status == "" {
		l.Status = model.StatusPending
	}

	query := `
        INSERT INTO delivery_logs (` + deliveryLogColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.DB.ExecContext(ctx, query,
		l.ID, l.CampaignID, l.CustomerID, l.Message, l.Status, l.LastError, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery log: %w", err)
	}
	return nil
}

func (r *DeliveryLogRepository) GetByID(ctx context.Context, logID int64) (*model.DeliveryLog, error) {
	query := `SELECT ` + deliveryLogColumns + ` FROM delivery_logs WHERE id = $1`

	l, err := scanDeliveryLog(r.DB.QueryRowContext(ctx, query, logID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewLogNotFound(logID)
		}
		return nil, fmt.Errorf("get delivery log %d: %w", logID, err)
	}
	return l, nil
}

func (r *DeliveryLogRepository) UpdateStatus(ctx context.Context, logID int64, status model.DeliveryStatus, lastError string) error {
	query := `UPDATE delivery_logs SET status = $1, last_error = $2, updated_at = $3 WHERE id = $4`
	res, err := r.DB.ExecContext(ctx, query, status, lastError, time.Now().UTC(), logID)
	if err != nil {
		return fmt.Errorf("update delivery log %d: %w", logID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewLogNotFound(logID)
	}
	return nil
}

func (r *DeliveryLogRepository) List(ctx context.Context, campaignID *int64, offset, limit int) ([]*model.DeliveryLog, error) {
	query := `SELECT ` + deliveryLogColumns + ` FROM delivery_logs`
	args := []interface{}{}
	argPos := 1

	if campaignID != nil {
		query += fmt.Sprintf(" WHERE campaign_id = $%d", argPos)
		args = append(args, *campaignID)
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	return r.query(ctx, query, args...)
}

func (r *DeliveryLogRepository) CountByStatus(ctx context.Context, campaignID int64) (map[model.DeliveryStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM delivery_logs WHERE campaign_id = $1 GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("count delivery logs: %w", err)
	}
	defer rows.Close()

	stats := map[model.DeliveryStatus]int{model.StatusPending: 0, model.StatusSent: 0, model.StatusFailed: 0}
	for rows.Next() {
		var status model.DeliveryStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func (r *DeliveryLogRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*model.DeliveryLog, error) {
	query := `SELECT ` + deliveryLogColumns + `
        FROM delivery_logs
        WHERE status = $1 AND updated_at < $2
        ORDER BY updated_at, id
        LIMIT $3`
	return r.query(ctx, query, model.StatusPending, before, limit)
}

func (r *DeliveryLogRepository) Touch(ctx context.Context, logID int64) error {
	query := `UPDATE delivery_logs SET updated_at = $1 WHERE id = $2 AND status = $3`
	if _, err := r.DB.ExecContext(ctx, query, time.Now().UTC(), logID, model.StatusPending); err != nil {
		return fmt.Errorf("touch delivery log %d: %w", logID, err)
	}
	return nil
}

func (r *DeliveryLogRepository) query(ctx context.Context, query string, args ...interface{}) ([]*model.DeliveryLog, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query delivery logs: %w", err)
	}
	defer rows.Close()

	logs := []*model.DeliveryLog{}
	for rows.Next() {
		l, err := scanDeliveryLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeliveryLog(s rowScanner) (*model.DeliveryLog, error) {
	var l model.DeliveryLog
	err := s.Scan(&l.ID, &l.CampaignID, &l.CustomerID, &l.Message, &l.Status, &l.LastError, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

var _ DeliveryLogRepositoryInterface = (*DeliveryLogRepository)(nil)
