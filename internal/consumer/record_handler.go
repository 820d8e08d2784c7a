package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kevicsalazar/appactions-kotlin/internal/domain"
	"github.com/kevicsalazar/appactions-kotlin/internal/events"
	"github.com/kevicsalazar/appactions-kotlin/internal/observability"
)

// EventTypeActivityCreated is the only event type materialised into records;
// everything else lands in the consumed event log untouched.
const EventTypeActivityCreated = "activity.created"

// Notifier is poked after each persisted record so pinned slice views
// re-check their data.
type Notifier interface {
	Broadcast()
}

// RecordHandler materialises consumed activity events into the local store
// and notifies live slices.
type RecordHandler struct {
	pool     *pgxpool.Pool
	notifier Notifier
}

// NewRecordHandler constructs a handler backed by the provided pool.
func NewRecordHandler(pool *pgxpool.Pool, notifier Notifier) *RecordHandler {
	return &RecordHandler{pool: pool, notifier: notifier}
}

// Handle logs the raw event and, for activity.created, upserts the record.
func (h *RecordHandler) Handle(ctx context.Context, event Event) error {
	conn, err := h.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx,
		`INSERT INTO consumed_event_log (event_type, tenant_id, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		event.EventType,
		event.TenantID,
		event.SchemaID,
		event.SchemaSubject,
		event.Topic,
		event.Partition,
		event.Offset,
		event.Payload,
		event.Timestamp,
	)
	if err != nil {
		return err
	}

	if event.EventType != EventTypeActivityCreated {
		return nil
	}

	var created events.ActivityCreated
	if err := json.Unmarshal(event.Payload, &created); err != nil {
		return fmt.Errorf("malformed %s payload: %w", EventTypeActivityCreated, err)
	}

	record := domain.ActivityRecord{
		ID:             created.ActivityID,
		TenantID:       created.TenantID,
		UserID:         created.UserID,
		Type:           domain.ParseActivityType(created.ActivityType),
		StartedAt:      created.StartedAt.UTC(),
		DurationMillis: created.DurationMillis,
		DistanceMeters: created.DistanceMeters,
		Source:         created.Source,
		CreatedAt:      time.Now().UTC(),
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	_, err = conn.Exec(ctx,
		`INSERT INTO activity_records (record_id, tenant_id, user_id, activity_type, started_at, duration_millis, distance_meters, source, created_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
         ON CONFLICT (record_id) DO NOTHING`,
		record.ID,
		record.TenantID,
		record.UserID,
		string(record.Type),
		record.StartedAt,
		record.DurationMillis,
		record.DistanceMeters,
		record.Source,
		record.CreatedAt,
	)
	if err != nil {
		return err
	}

	observability.RecordActivityPersisted(record.CreatedAt)
	if h.notifier != nil {
		h.notifier.Broadcast()
	}
	return nil
}
