package postgres

import (
	"context"
	"encoding/json"
	"time"

	"clinicq/queue-service/internal/models"
	"clinicq/queue-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func insertOutboxBooking(ctx context.Context, tx pgx.Tx, eventType string, booking models.Booking) error {
	payload := map[string]any{
		"booking_id":    booking.BookingID,
		"doctor_id":     booking.DoctorID,
		"center_id":     booking.CenterID,
		"booking_date":  booking.BookingDate,
		"queue_number":  booking.QueueNumber,
		"status":        booking.Status,
		"patient_kind":  booking.Patient.Kind,
		"patient_phone": booking.Patient.Phone,
		"request_id":    booking.RequestID,
	}
	return insertOutboxEvent(ctx, tx, booking.CenterID, eventType, payload)
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, centerID, eventType string, payload map[string]any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, center_id, type, payload_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), centerID, eventType, payloadJSON, time.Now().UTC())
	return err
}

func (s *Store) BroadcastDelay(ctx context.Context, input store.DelayInput) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	err = insertOutboxEvent(ctx, tx, input.CenterID, "queue.delayed", map[string]any{
		"doctor_id":    input.DoctorID,
		"center_id":    input.CenterID,
		"booking_date": input.Date,
		"staff_id":     input.StaffID,
		"reason":       input.Reason,
		"request_id":   input.RequestID,
	})
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListOutboxEvents(ctx context.Context, after time.Time, limit int) ([]store.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, center_id, type, payload_json, created_at
		FROM outbox_events
		WHERE created_at > $1
		ORDER BY created_at ASC
		LIMIT $2
	`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.OutboxEvent
	for rows.Next() {
		var event store.OutboxEvent
		if err := rows.Scan(&event.EventID, &event.CenterID, &event.Type, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Consumer offsets keep the notification worker and the realtime poller
// independent of each other.

func (s *Store) GetConsumerOffset(ctx context.Context, consumer string) (time.Time, error) {
	var last time.Time
	row := s.pool.QueryRow(ctx, `
		SELECT last_event_time
		FROM consumer_offsets
		WHERE consumer = $1
	`, consumer)
	if err := row.Scan(&last); err != nil {
		if err == pgx.ErrNoRows {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return last, nil
}

func (s *Store) UpdateConsumerOffset(ctx context.Context, consumer string, value time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO consumer_offsets (consumer, last_event_time)
		VALUES ($1, $2)
		ON CONFLICT (consumer) DO UPDATE SET last_event_time = EXCLUDED.last_event_time
	`, consumer, value)
	return err
}

func (s *Store) InsertNotification(ctx context.Context, n store.Notification) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (notification_id, booking_id, recipient, channel, body, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.NotificationID, nullIfEmpty(n.BookingID), n.Recipient, n.Channel, n.Body, n.Status, n.Attempts, time.Now().UTC())
	return err
}

func (s *Store) MarkNotificationSent(ctx context.Context, notificationID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'sent'
		WHERE notification_id = $1
	`, notificationID)
	return err
}

func (s *Store) MarkNotificationFailed(ctx context.Context, notificationID, lastError string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'failed', last_error = $2
		WHERE notification_id = $1
	`, notificationID, lastError)
	return err
}
