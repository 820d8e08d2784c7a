// Package domain defines the business logic for the activity slice service.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrIdempotentReplay indicates an existing record was found for the provided idempotency key.
	ErrIdempotentReplay = errors.New("activity record already exists for idempotency key")
	// ErrRecordNotFound is returned when an activity record cannot be located.
	ErrRecordNotFound = errors.New("activity record not found")
)

// Repository captures persistence operations for activity records.
type Repository interface {
	FindByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*ActivityRecord, error)
	Create(ctx context.Context, record ActivityRecord, idempotencyKey string) error
	FetchRecent(ctx context.Context, tenantID, userID string, count int, filter ActivityType) ([]ActivityRecord, error)
	ListByUser(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]ActivityRecord, *Cursor, error)
}

// Cursor models the pagination token for listing.
type Cursor struct {
	StartedAt time.Time
	ID        string
}

// Service orchestrates activity record workflows.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordActivityInput captures the payload from the API layer.
type RecordActivityInput struct {
	TenantID       string
	UserID         string
	Type           ActivityType
	StartedAt      time.Time
	DurationMillis int64
	DistanceMeters float64
	Source         string
	IdempotencyKey string
}

// RecordActivity handles idempotent create semantics. The bool result reports
// whether an existing record was replayed.
func (s *Service) RecordActivity(ctx context.Context, input RecordActivityInput) (*ActivityRecord, bool, error) {
	if existing, err := s.repo.FindByIdempotency(ctx, input.TenantID, input.UserID, input.IdempotencyKey); err == nil && existing != nil {
		return existing, true, nil
	}

	record := ActivityRecord{
		ID:             uuid.NewString(),
		TenantID:       input.TenantID,
		UserID:         input.UserID,
		Type:           input.Type,
		StartedAt:      input.StartedAt.UTC(),
		DurationMillis: input.DurationMillis,
		DistanceMeters: input.DistanceMeters,
		Source:         input.Source,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, record, input.IdempotencyKey); err != nil {
		return nil, false, err
	}

	return &record, false, nil
}

// FetchRecent returns the newest records for the user, optionally filtered by type.
func (s *Service) FetchRecent(ctx context.Context, tenantID, userID string, count int, filter ActivityType) ([]ActivityRecord, error) {
	return s.repo.FetchRecent(ctx, tenantID, userID, count, filter)
}

// ListActivities fetches records with cursor pagination.
func (s *Service) ListActivities(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]ActivityRecord, *Cursor, error) {
	return s.repo.ListByUser(ctx, tenantID, userID, cursor, limit)
}
