// internal/model/campaign.go
package model

import "time"

type Campaign struct {
	ID              int64     `db:"id" json:"id,string"`
	Name            string    `db:"name" json:"name"`
	AudienceGroupID int64     `db:"audience_group_id" json:"audienceGroupId,string"`
	Message         string    `db:"message" json:"message"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// CampaignStats are the delivery aggregates shown next to a campaign.
// AudienceSize comes from the bound group, the rest from delivery logs, so a
// partially dispatched campaign has AudienceSize > Sent+Failed+Pending.
type CampaignStats struct {
	AudienceSize int `json:"audienceSize"`
	SentCount    int `json:"sentSize"`
	FailedCount  int `json:"failedSize"`
	PendingCount int `json:"pendingSize"`
}

type CampaignWithStats struct {
	Campaign
	CampaignStats
}
