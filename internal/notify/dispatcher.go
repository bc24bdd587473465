package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/vetcareplus/vetcare-api/internal/db"
	"github.com/vetcareplus/vetcare-api/internal/metrics"
)

const fetchBatchSize = 25

// Dispatcher drains the notification outbox. Delivery is at-least-once:
// a row stays pending until a send succeeds or its attempts run out, and
// failures never propagate to whoever enqueued the notification.
type Dispatcher struct {
	pool        db.Pool
	outbox      *Outbox
	sender      EmailSender
	sendTimeout time.Duration
	maxAttempts int
	nudge       chan struct{}
	metrics     *metrics.BookingMetrics
}

func NewDispatcher(pool db.Pool, outbox *Outbox, sender EmailSender, sendTimeout time.Duration, maxAttempts int, m *metrics.BookingMetrics) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		pool:        pool,
		outbox:      outbox,
		sender:      sender,
		sendTimeout: sendTimeout,
		maxAttempts: maxAttempts,
		nudge:       make(chan struct{}, 1),
		metrics:     m,
	}
}

// Nudge wakes the dispatcher ahead of the next poll tick. Safe to call from
// request handlers; it never blocks.
func (d *Dispatcher) Nudge() {
	select {
	case d.nudge <- struct{}{}:
	default:
	}
}

// Run polls the outbox until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.nudge:
		}

		if err := d.DeliverDue(ctx); err != nil {
			log.Printf("notification delivery run error: %v", err)
		}
	}
}

// DeliverDue processes one batch of due notifications. Each row is claimed,
// sent, and marked inside its own transaction so a crash mid-batch loses
// nothing.
func (d *Dispatcher) DeliverDue(ctx context.Context) error {
	for {
		n, err := d.deliverBatch(ctx)
		if err != nil {
			return err
		}
		if n < fetchBatchSize {
			return nil
		}
	}
}

func (d *Dispatcher) deliverBatch(ctx context.Context) (int, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := d.outbox.FetchDue(ctx, tx, fetchBatchSize)
	if err != nil {
		return 0, err
	}

	for _, rec := range records {
		if err := d.deliver(ctx, rec); err != nil {
			log.Printf("notification %d (%s to %s) attempt %d failed: %v",
				rec.ID, rec.Kind, rec.Recipient, rec.Attempts+1, err)
			if markErr := d.outbox.MarkFailed(ctx, tx, rec, err, d.maxAttempts); markErr != nil {
				return 0, fmt.Errorf("mark notification %d failed: %w", rec.ID, markErr)
			}
			if rec.Attempts+1 >= d.maxAttempts {
				d.metrics.ObserveNotification("dead")
			} else {
				d.metrics.ObserveNotification("failed")
			}
			continue
		}
		if err := d.outbox.MarkSent(ctx, tx, rec.ID); err != nil {
			return 0, fmt.Errorf("mark notification %d sent: %w", rec.ID, err)
		}
		d.metrics.ObserveNotification("sent")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit outbox tx: %w", err)
	}
	return len(records), nil
}

func (d *Dispatcher) deliver(ctx context.Context, rec Record) error {
	var payload Payload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	email, err := RenderEmail(rec.Kind, payload)
	if err != nil {
		return err
	}
	email.To = rec.Recipient

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	return d.sender.Send(sendCtx, email)
}
