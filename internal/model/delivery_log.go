// internal/model/delivery_log.go
package model

import "time"

type DeliveryStatus string

const (
	StatusPending DeliveryStatus = "PENDING"
	StatusSent    DeliveryStatus = "SENT"
	StatusFailed  DeliveryStatus = "FAILED"
)

// IsTerminal reports whether the status is a final delivery outcome.
func (s DeliveryStatus) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

// DeliveryLog tracks one recipient of one campaign.
type DeliveryLog struct {
	ID         int64          `db:"id" json:"id,string"`
	CampaignID int64          `db:"campaign_id" json:"campaignId,string"`
	CustomerID int64          `db:"customer_id" json:"customerId,string"`
	Message    string         `db:"message" json:"message"`
	Status     DeliveryStatus `db:"status" json:"status"`
	LastError  string         `db:"last_error" json:"lastError,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updatedAt"`
}
