package events

import "time"

// SliceViewed records a slice impression for engagement analytics.
type SliceViewed struct {
	SliceURI     string    `json:"slice_uri"`
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	ActivityType string    `json:"activity_type"`
	State        string    `json:"state"`
	ViewedAt     time.Time `json:"viewed_at"`
}
