// internal/model/customer.go
package model

import "time"

// Customer is a segmentation target. Identity fields never change once
// ingested; the behavioral fields are refreshed by upstream ingestion.
type Customer struct {
	ID         int64      `db:"id" json:"id,string"`
	Name       string     `db:"name" json:"name"`
	Email      string     `db:"email" json:"email"`
	Phone      string     `db:"phone" json:"phone"`
	TotalSpend float64    `db:"total_spend" json:"totalSpend"`
	Visits     int        `db:"visits" json:"visits"`
	LastVisit  *time.Time `db:"last_visit" json:"lastVisit,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
}
