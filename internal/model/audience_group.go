// internal/model/audience_group.go
package model

import "time"

// AudienceGroup is the frozen set of customers that matched a rule set.
// It is written once and never updated.
type AudienceGroup struct {
	ID          int64     `db:"id" json:"id,string"`
	CustomerIDs []int64   `db:"customer_ids" json:"customerIds"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

func (g *AudienceGroup) Size() int {
	return len(g.CustomerIDs)
}
