// internal/repository/customer_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/unclebandit/audience-campaigns/internal/id"
	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/rules"
)

// CustomerRepository is the Postgres implementation.
type CustomerRepository struct {
	DB *sql.DB
}

func (r *CustomerRepository) Create(ctx context.Context, c *model.Customer) error {
	if c.ID == 0 {
		c.ID = id.New()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
        INSERT INTO customers (id, name, email, phone, total_spend, visits, last_visit, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := r.DB.ExecContext(ctx, query, c.ID, c.Name, c.Email, c.Phone, c.TotalSpend, c.Visits, c.LastVisit, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetByID returns (nil, nil) when the customer does not exist.
func (r *CustomerRepository) GetByID(ctx context.Context, customerID int64) (*model.Customer, error) {
	query := `
        SELECT id, name, email, phone, total_spend, visits, last_visit, created_at, updated_at
        FROM customers
        WHERE id = $1
    `
	var c model.Customer
	err := r.DB.QueryRowContext(ctx, query, customerID).Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.TotalSpend, &c.Visits, &c.LastVisit, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer %d: %w", customerID, err)
	}
	return &c, nil
}

func (r *CustomerRepository) FindIDs(ctx context.Context, pred rules.Predicate) ([]int64, error) {
	where, args := rules.SQL(pred)
	query := "SELECT id FROM customers WHERE " + where + " ORDER BY id"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find customers: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var customerID int64
		if err := rows.Scan(&customerID); err != nil {
			return nil, err
		}
		ids = append(ids, customerID)
	}
	return ids, rows.Err()
}

// List returns customers in id order.
func (r *CustomerRepository) List(ctx context.Context, offset, limit int) ([]*model.Customer, error) {
	query := `
        SELECT id, name, email, phone, total_spend, visits, last_visit, created_at, updated_at
        FROM customers
        ORDER BY id
        LIMIT $1 OFFSET $2
    `
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := []*model.Customer{}
	for rows.Next() {
		c := &model.Customer{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.TotalSpend, &c.Visits, &c.LastVisit, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

var _ CustomerRepositoryInterface = (*CustomerRepository)(nil)
