// Package postgres provides the pgx-backed activity record store.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kevicsalazar/appactions-kotlin/internal/domain"
	"github.com/kevicsalazar/appactions-kotlin/internal/observability"
)

const recordColumns = `record_id, tenant_id, user_id, activity_type, started_at, duration_millis, distance_meters, source, created_at`

// Repository provides Postgres-backed persistence for activity records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindByIdempotency checks if a record already exists for the supplied idempotency key.
func (r *Repository) FindByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*domain.ActivityRecord, error) {
	if idempotencyKey == "" {
		return nil, nil
	}

	const query = `SELECT ` + recordColumns + `
        FROM activity_records WHERE tenant_id=$1 AND user_id=$2 AND idempotency_key=$3`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, query, tenantID, userID, idempotencyKey)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tx.Commit(ctx)
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

// Create persists the record.
func (r *Repository) Create(ctx context.Context, record domain.ActivityRecord, idempotencyKey string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", record.TenantID); err != nil {
		return err
	}

	const insertRecord = `INSERT INTO activity_records (record_id, tenant_id, user_id, activity_type, started_at, duration_millis, distance_meters, source, idempotency_key, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err = tx.Exec(ctx, insertRecord,
		record.ID,
		record.TenantID,
		record.UserID,
		string(record.Type),
		record.StartedAt,
		record.DurationMillis,
		record.DistanceMeters,
		record.Source,
		nullIfEmpty(idempotencyKey),
		record.CreatedAt,
	)
	if err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	observability.RecordActivityPersisted(record.CreatedAt)
	return nil
}

// FetchRecent returns the newest records for a user, most recent first. The
// unknown type acts as a catch-all rather than a filter.
func (r *Repository) FetchRecent(ctx context.Context, tenantID, userID string, count int, filter domain.ActivityType) ([]domain.ActivityRecord, error) {
	args := []interface{}{tenantID, userID, count}
	query := `SELECT ` + recordColumns + `
        FROM activity_records WHERE tenant_id=$1 AND user_id=$2`

	if filter != domain.ActivityTypeUnknown {
		query += ` AND activity_type=$4`
		args = append(args, string(filter))
	}

	query += ` ORDER BY started_at DESC, record_id DESC LIMIT $3`

	return r.queryRecords(ctx, tenantID, query, args)
}

// ListByUser returns records for a user ordered by time with cursor pagination.
func (r *Repository) ListByUser(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.ActivityRecord, *domain.Cursor, error) {
	args := []interface{}{tenantID, userID, limit}
	query := `SELECT ` + recordColumns + `
        FROM activity_records WHERE tenant_id=$1 AND user_id=$2`

	if cursor != nil {
		query += ` AND (started_at, record_id) < ($4, $5)`
		args = append(args, cursor.StartedAt, cursor.ID)
	}

	query += ` ORDER BY started_at DESC, record_id DESC LIMIT $3`

	results, err := r.queryRecords(ctx, tenantID, query, args)
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{StartedAt: last.StartedAt, ID: last.ID}
	}

	return results, nextCursor, nil
}

func (r *Repository) queryRecords(ctx context.Context, tenantID, query string, args []interface{}) ([]domain.ActivityRecord, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ActivityRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

func scanRecord(row pgx.Row) (*domain.ActivityRecord, error) {
	var record domain.ActivityRecord
	var activityType string
	if err := row.Scan(
		&record.ID,
		&record.TenantID,
		&record.UserID,
		&activityType,
		&record.StartedAt,
		&record.DurationMillis,
		&record.DistanceMeters,
		&record.Source,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}
	record.Type = domain.ActivityType(activityType)
	return &record, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
