package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetcareplus/vetcare-api/internal/metrics"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func outboxRow(t *testing.T, id int64, attempts int) *pgxmock.Rows {
	t.Helper()
	payload, err := json.Marshal(samplePayload())
	require.NoError(t, err)

	return pgxmock.NewRows([]string{"id", "kind", "recipient", "payload", "attempts", "next_attempt_at", "created_at"}).
		AddRow(id, "booked", "owner@example.com", payload, attempts, time.Now(), time.Now())
}

func TestDeliverDue_MarksSent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, kind, recipient, payload").
		WithArgs(fetchBatchSize).
		WillReturnRows(outboxRow(t, 7, 0))
	mock.ExpectExec("SET status = 'sent'").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	sender := &recordingSender{}
	d := NewDispatcher(mock, NewOutbox(mock), sender, time.Second, 5, nil)

	require.NoError(t, d.DeliverDue(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "owner@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Subject, "Biscuit")
}

func TestDeliverDue_FailureBacksOff(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, kind, recipient, payload").
		WithArgs(fetchBatchSize).
		WillReturnRows(outboxRow(t, 7, 0))
	mock.ExpectExec("next_attempt_at = now()").
		WithArgs(int64(7), 1, pgxmock.AnyArg(), 30*time.Second).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	sender := &recordingSender{err: errors.New("smtp down")}
	d := NewDispatcher(mock, NewOutbox(mock), sender, time.Second, 5, nil)

	require.NoError(t, d.DeliverDue(context.Background()), "send failures stay inside the dispatcher")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliverDue_ParksAfterMaxAttempts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, kind, recipient, payload").
		WithArgs(fetchBatchSize).
		WillReturnRows(outboxRow(t, 7, 4))
	mock.ExpectExec("SET status = 'dead'").
		WithArgs(int64(7), 5, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	sender := &recordingSender{err: errors.New("smtp down")}
	d := NewDispatcher(mock, NewOutbox(mock), sender, time.Second, 5, nil)

	require.NoError(t, d.DeliverDue(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliverDue_EmptyOutbox(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, kind, recipient, payload").
		WithArgs(fetchBatchSize).
		WillReturnRows(pgxmock.NewRows([]string{"id", "kind", "recipient", "payload", "attempts", "next_attempt_at", "created_at"}))
	mock.ExpectCommit()

	d := NewDispatcher(mock, NewOutbox(mock), &recordingSender{}, time.Second, 5, nil)

	require.NoError(t, d.DeliverDue(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestDeliverDue_CountsDeliveries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, kind, recipient, payload").
		WithArgs(fetchBatchSize).
		WillReturnRows(outboxRow(t, 7, 0))
	mock.ExpectExec("SET status = 'sent'").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	reg := prometheus.NewRegistry()
	m := metrics.NewBookingMetrics(reg)
	d := NewDispatcher(mock, NewOutbox(mock), &recordingSender{}, time.Second, 5, m)

	require.NoError(t, d.DeliverDue(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 1.0, counterValue(t, reg, "vetcare_notify_deliveries_total", "result", "sent"))
	assert.Zero(t, counterValue(t, reg, "vetcare_notify_deliveries_total", "result", "failed"))
}

func TestDeliverDue_CountsDeadLetters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, kind, recipient, payload").
		WithArgs(fetchBatchSize).
		WillReturnRows(outboxRow(t, 7, 4))
	mock.ExpectExec("SET status = 'dead'").
		WithArgs(int64(7), 5, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	reg := prometheus.NewRegistry()
	m := metrics.NewBookingMetrics(reg)
	sender := &recordingSender{err: errors.New("smtp down")}
	d := NewDispatcher(mock, NewOutbox(mock), sender, time.Second, 5, m)

	require.NoError(t, d.DeliverDue(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 1.0, counterValue(t, reg, "vetcare_notify_deliveries_total", "result", "dead"))
}

func TestNudge_NeverBlocks(t *testing.T) {
	d := NewDispatcher(nil, nil, nil, time.Second, 5, nil)

	for i := 0; i < 10; i++ {
		d.Nudge()
	}
}

func TestBackoffFor(t *testing.T) {
	assert.Equal(t, 30*time.Second, backoffFor(1))
	assert.Equal(t, time.Minute, backoffFor(2))
	assert.Equal(t, 2*time.Minute, backoffFor(3))
	assert.Equal(t, 4*time.Minute, backoffFor(4))
	assert.Equal(t, 8*time.Minute, backoffFor(5))
	assert.Equal(t, 10*time.Minute, backoffFor(6), "backoff is capped")
	assert.Equal(t, 10*time.Minute, backoffFor(50))
}
