package postgres

import (
	"context"
	"time"

	appoutbox "reservations/internal/app/outbox"
	"reservations/internal/app/uow"
)

// claimTimeout hands a claimed record to another worker once its claimer has
// been silent this long.
const claimTimeout = 5 * time.Minute

// OutboxStore keeps event records in outbox_events. Add joins the unit's
// transaction when the context carries one, so events commit with the state
// change that produced them.
type OutboxStore struct {
	Pool *Pool
}

func (s OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers := record.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	_, err := s.querier(ctx).Exec(ctx, `
		INSERT INTO outbox_events (id, name, aggregate_id, payload, headers, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, record.ID, record.Name, record.Aggregate, record.Payload, headers, record.OccurredAt)
	return translate(err)
}

// Flush keeps sent rows; they are the publish log.
func (s OutboxStore) Flush(context.Context) error {
	return nil
}

func (s OutboxStore) Claim(ctx context.Context, workerID string) (*appoutbox.Delivery, error) {
	rows, err := s.Pool.Query(ctx, `
		UPDATE outbox_events SET state = 'CLAIMED', claimed_by = $1, claimed_at = now()
		WHERE id = (
			SELECT id FROM outbox_events
			WHERE (state IN ('NEW', 'FAILED') AND next_attempt_at <= now())
				OR (state = 'CLAIMED' AND claimed_at < now() - make_interval(secs => $2))
			ORDER BY seq
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, aggregate_id, payload, headers, occurred_at, attempts
	`, workerID, claimTimeout.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var d appoutbox.Delivery
	if err := rows.Scan(&d.ID, &d.Name, &d.Aggregate, &d.Payload, &d.Headers, &d.OccurredAt, &d.Attempts); err != nil {
		return nil, err
	}
	d.OccurredAt = d.OccurredAt.UTC()
	return &d, nil
}

func (s OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE outbox_events SET state = 'SENT', sent_at = now() WHERE id = $1`, id)
	return err
}

func (s OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE outbox_events
		SET state = 'FAILED', next_attempt_at = $2, last_error = $3, attempts = attempts + 1
		WHERE id = $1
	`, id, next, errMsg)
	return err
}

func (s OutboxStore) querier(ctx context.Context) querier {
	if unit, ok := uow.FromContext(ctx); ok {
		if pu, ok := unit.(*Unit); ok && !pu.readOnly {
			return pu.tx
		}
	}
	return s.Pool
}

var (
	_ appoutbox.Outbox = OutboxStore{}
	_ appoutbox.Queue  = OutboxStore{}
)
