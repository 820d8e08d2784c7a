package domain

import (
	"strings"
	"time"
)

// ActivityType classifies a tracked workout.
type ActivityType string

const (
	ActivityTypeRun     ActivityType = "RUN"
	ActivityTypeWalk    ActivityType = "WALK"
	ActivityTypeRide    ActivityType = "RIDE"
	ActivityTypeHike    ActivityType = "HIKE"
	ActivityTypeUnknown ActivityType = "UNKNOWN"
)

// ParseActivityType maps a raw query-parameter value onto an ActivityType.
// Empty or unrecognised values degrade to ActivityTypeUnknown rather than failing.
func ParseActivityType(raw string) ActivityType {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "RUN", "RUNNING":
		return ActivityTypeRun
	case "WALK", "WALKING":
		return ActivityTypeWalk
	case "RIDE", "CYCLING":
		return ActivityTypeRide
	case "HIKE", "HIKING":
		return ActivityTypeHike
	default:
		return ActivityTypeUnknown
	}
}

// DisplayName returns the human-readable name shown in slice headers.
func (t ActivityType) DisplayName() string {
	switch t {
	case ActivityTypeRun:
		return "Running"
	case ActivityTypeWalk:
		return "Walking"
	case ActivityTypeRide:
		return "Cycling"
	case ActivityTypeHike:
		return "Hiking"
	default:
		return "Activity"
	}
}

// ActivityRecord is the canonical workout record kept in the local store.
// Records are immutable once persisted.
type ActivityRecord struct {
	ID             string
	TenantID       string
	UserID         string
	Type           ActivityType
	StartedAt      time.Time
	DurationMillis int64
	DistanceMeters float64
	Source         string
	CreatedAt      time.Time
}
