package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vetcareplus/vetcare-api/internal/db"
)

const (
	outboxPending = "pending"
	outboxSent    = "sent"
	outboxDead    = "dead"
)

// Record is a persisted notification awaiting delivery.
type Record struct {
	ID            int64
	Kind          Kind
	Recipient     string
	Payload       []byte
	Attempts      int
	NextAttemptAt time.Time
	CreatedAt     time.Time
}

// Outbox stores notifications in the same database as the bookings so a
// booking and its notification commit or roll back together.
type Outbox struct {
	pool db.Pool
}

func NewOutbox(pool db.Pool) *Outbox {
	return &Outbox{pool: pool}
}

// Enqueue writes a pending notification inside the caller's transaction.
func (o *Outbox) Enqueue(ctx context.Context, tx pgx.Tx, msg Message) error {
	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO notification_outbox (kind, recipient, payload, status, attempts, next_attempt_at, created_at)
		VALUES ($1, $2, $3, 'pending', 0, now(), now())
	`, string(msg.Kind), msg.Recipient, payload)
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// FetchDue claims up to limit deliverable rows. Rows are locked with
// SKIP LOCKED so the in-process worker and the standalone worker can run
// side by side without double delivery.
func (o *Outbox) FetchDue(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, kind, recipient, payload, attempts, next_attempt_at, created_at
		FROM notification_outbox
		WHERE status = 'pending'
		  AND next_attempt_at <= now()
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due notifications: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var kind string
		if err := rows.Scan(&rec.ID, &kind, &rec.Recipient, &rec.Payload, &rec.Attempts, &rec.NextAttemptAt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Kind = Kind(kind)
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func (o *Outbox) MarkSent(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'sent', sent_at = now()
		WHERE id = $1
	`, id)
	return err
}

// MarkFailed records a failed attempt. Rows that exhaust maxAttempts are
// parked as dead; the rest get an exponential backoff before the next try.
func (o *Outbox) MarkFailed(ctx context.Context, tx pgx.Tx, rec Record, sendErr error, maxAttempts int) error {
	attempts := rec.Attempts + 1
	if attempts >= maxAttempts {
		_, err := tx.Exec(ctx, `
			UPDATE notification_outbox
			SET status = 'dead', attempts = $2, last_error = $3
			WHERE id = $1
		`, rec.ID, attempts, sendErr.Error())
		return err
	}

	backoff := backoffFor(attempts)
	_, err := tx.Exec(ctx, `
		UPDATE notification_outbox
		SET attempts = $2, last_error = $3, next_attempt_at = now() + $4
		WHERE id = $1
	`, rec.ID, attempts, sendErr.Error(), backoff)
	return err
}

// backoffFor doubles the delay per attempt: 30s, 1m, 2m, 4m, capped at 10m.
func backoffFor(attempts int) time.Duration {
	d := 30 * time.Second
	for i := 1; i < attempts && d < 10*time.Minute; i++ {
		d *= 2
	}
	if d > 10*time.Minute {
		d = 10 * time.Minute
	}
	return d
}
