// Package events defines the cross-service event payloads this service
// consumes and produces.
package events

import "time"

// ActivityCreated is the message emitted by the activity service when a new
// activity is accepted. This service consumes it into the local slice store.
type ActivityCreated struct {
	ActivityID     string    `json:"activity_id"`
	TenantID       string    `json:"tenant_id"`
	UserID         string    `json:"user_id"`
	ActivityType   string    `json:"activity_type"`
	StartedAt      time.Time `json:"started_at"`
	DurationMillis int64     `json:"duration_millis"`
	DistanceMeters float64   `json:"distance_meters"`
	Source         string    `json:"source"`
}
