package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"reservations/internal/app/middleware"
)

type IdempotencyStore struct {
	Pool *Pool
}

func (s IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var rec middleware.IdempotencyRecord
	err := s.Pool.QueryRow(ctx, `
		SELECT key, command, payload, error, error_code, occurred_at
		FROM idempotency_keys
		WHERE key = $1
	`, key).Scan(&rec.Key, &rec.Command, &rec.Payload, &rec.Error, &rec.ErrorCode, &rec.OccurredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return rec, true, nil
}

// Save keeps the first record stored for a key.
func (s IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, command, payload, error, error_code, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO NOTHING
	`, rec.Key, rec.Command, rec.Payload, rec.Error, rec.ErrorCode, rec.OccurredAt)
	return err
}

// Purge removes records older than the retention window.
func (s IdempotencyStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ middleware.IdempotencyStore = IdempotencyStore{}

// Inbox records consumed event ids per consumer.
type Inbox struct {
	Pool     *Pool
	Consumer string
}

func (i Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	tag, err := i.Pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, consumer)
		VALUES ($1, $2)
		ON CONFLICT (event_id, consumer) DO NOTHING
	`, eventID, i.Consumer)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 0, nil
}

func (i Inbox) Forget(ctx context.Context, eventID string) error {
	_, err := i.Pool.Exec(ctx, `DELETE FROM inbox_events WHERE event_id = $1 AND consumer = $2`, eventID, i.Consumer)
	return err
}
