// internal/model/delivery_task.go
package model

// DeliveryTask is the payload placed on the outbound task queue, one per recipient.
type DeliveryTask struct {
	DeliveryLogID int64  `json:"delivery_log_id"`
	CampaignID    int64  `json:"campaign_id"`
	CustomerID    int64  `json:"customer_id"`
	Message       string `json:"message"`
}

// DeliveryReceipt is produced by delivery workers once a task terminates.
type DeliveryReceipt struct {
	DeliveryLogID int64          `json:"delivery_log_id"`
	Status        DeliveryStatus `json:"status"`
	Error         string         `json:"error,omitempty"`
}
