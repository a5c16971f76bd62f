package postgres

import (
	"context"
	"errors"
	"log"
	"time"

	"clinicq/queue-service/internal/models"
	"clinicq/queue-service/internal/store"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CallNext(ctx context.Context, input store.CallNextInput) (models.Booking, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Booking{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, empty, err := findActionRequest(ctx, tx, "call_next", input.RequestID)
	if err != nil {
		return models.Booking{}, false, err
	}
	if found {
		if err = tx.Commit(ctx); err != nil {
			return models.Booking{}, false, err
		}
		if empty {
			return models.Booking{}, false, store.ErrNoBooking
		}
		return existing, false, nil
	}

	if err = lockQueueScope(ctx, tx, input.DoctorID, input.Date); err != nil {
		return models.Booking{}, false, err
	}

	calledAt := input.CalledAt
	if calledAt.IsZero() {
		calledAt = time.Now().UTC()
	}

	row := tx.QueryRow(ctx, `
		WITH next_booking AS (
			SELECT booking_id
			FROM bookings
			WHERE doctor_id = $1 AND booking_date = $2
				AND status IN ('pending','confirmed')
			ORDER BY queue_number ASC, created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE bookings
		SET status = 'in_progress',
			called_at = $3,
			staff_id = $4
		FROM next_booking
		WHERE bookings.booking_id = next_booking.booking_id
		RETURNING `+prefixedBookingColumns("bookings"), input.DoctorID, input.Date, calledAt, nullIfEmpty(input.StaffID))

	var booking models.Booking
	if booking, err = scanBooking(row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if err = insertActionRequest(ctx, tx, "call_next", input.RequestID, "", input.StaffID); err != nil {
				return models.Booking{}, false, err
			}
			if err = tx.Commit(ctx); err != nil {
				return models.Booking{}, false, err
			}
			return models.Booking{}, false, store.ErrNoBooking
		}
		return models.Booking{}, false, err
	}

	if err = insertActionRequest(ctx, tx, "call_next", input.RequestID, booking.BookingID, input.StaffID); err != nil {
		return models.Booking{}, false, err
	}
	if err = insertOutboxBooking(ctx, tx, "booking.called", booking); err != nil {
		return models.Booking{}, false, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Booking{}, false, err
	}
	return booking, true, nil
}

func (s *Store) ConfirmBooking(ctx context.Context, input store.BookingActionInput) (models.Booking, bool, error) {
	return s.applyAction(ctx, input, "confirm", models.StatusConfirmed, "booking.confirmed", "")
}

func (s *Store) CompleteBooking(ctx context.Context, input store.BookingActionInput) (models.Booking, bool, error) {
	return s.applyAction(ctx, input, "complete", models.StatusCompleted, "booking.completed", "completed_at")
}

func (s *Store) SkipBooking(ctx context.Context, input store.BookingActionInput) (models.Booking, bool, error) {
	return s.applyAction(ctx, input, "skip", models.StatusNoShow, "booking.skipped", "")
}

func (s *Store) CancelBooking(ctx context.Context, input store.BookingActionInput) (models.Booking, bool, error) {
	booking, applied, err := s.applyAction(ctx, input, "cancel", models.StatusCancelled, "booking.cancelled", "")
	if err != nil {
		return models.Booking{}, false, err
	}
	if applied {
		// Cancellation can open a gap anywhere in the run; renumbering is
		// best-effort and must not fail the cancel itself.
		if err := s.Reorganize(ctx, booking.DoctorID, booking.BookingDate); err != nil {
			log.Printf("reorganize after cancel doctor=%s date=%s: %v", booking.DoctorID, booking.BookingDate, err)
		}
	}
	return booking, applied, nil
}

func (s *Store) applyAction(ctx context.Context, input store.BookingActionInput, action, toStatus, eventType, tsColumn string) (models.Booking, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Booking{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, empty, err := findActionRequest(ctx, tx, action, input.RequestID)
	if err != nil {
		return models.Booking{}, false, err
	}
	if found {
		if err = tx.Commit(ctx); err != nil {
			return models.Booking{}, false, err
		}
		if empty {
			return models.Booking{}, false, store.ErrInvalidTransition
		}
		return existing, false, nil
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	query := `
		UPDATE bookings
		SET status = $1
		WHERE booking_id = $2 AND status = ANY($3)
		RETURNING ` + bookingColumns
	if tsColumn != "" {
		query = `
		UPDATE bookings
		SET status = $1, ` + tsColumn + ` = $4
		WHERE booking_id = $2 AND status = ANY($3)
		RETURNING ` + bookingColumns
	}

	args := []any{toStatus, input.BookingID, store.AllowedStatuses(action)}
	if tsColumn != "" {
		args = append(args, occurredAt)
	}

	row := tx.QueryRow(ctx, query, args...)
	var booking models.Booking
	if booking, err = scanBooking(row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var status string
			var exists bool
			status, exists, err = loadBookingStatus(ctx, tx, input.BookingID)
			if err != nil {
				return models.Booking{}, false, err
			}
			if !exists {
				err = store.ErrBookingNotFound
				return models.Booking{}, false, err
			}
			if store.ValidTransition(action, status) {
				log.Printf("action %s raced a concurrent status change booking=%s status=%s", action, input.BookingID, status)
			}
			err = store.ErrInvalidTransition
			return models.Booking{}, false, err
		}
		return models.Booking{}, false, err
	}

	if err = insertActionRequest(ctx, tx, action, input.RequestID, booking.BookingID, input.StaffID); err != nil {
		return models.Booking{}, false, err
	}
	if err = insertOutboxBooking(ctx, tx, eventType, booking); err != nil {
		return models.Booking{}, false, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Booking{}, false, err
	}
	return booking, true, nil
}

func loadBookingStatus(ctx context.Context, tx pgx.Tx, bookingID string) (string, bool, error) {
	var status string
	row := tx.QueryRow(ctx, `
		SELECT status
		FROM bookings
		WHERE booking_id = $1
	`, bookingID)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return status, true, nil
}

func findActionRequest(ctx context.Context, tx pgx.Tx, action, requestID string) (models.Booking, bool, bool, error) {
	var bookingID string
	row := tx.QueryRow(ctx, `
		SELECT COALESCE(booking_id, '')
		FROM action_requests
		WHERE action = $1 AND request_id = $2
	`, action, requestID)
	if err := row.Scan(&bookingID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Booking{}, false, false, nil
		}
		return models.Booking{}, false, false, err
	}
	if bookingID == "" {
		return models.Booking{}, true, true, nil
	}
	bRow := tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE booking_id = $1
	`, bookingID)
	booking, err := scanBooking(bRow)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Booking{}, true, true, nil
		}
		return models.Booking{}, false, false, err
	}
	return booking, true, false, nil
}

func insertActionRequest(ctx context.Context, tx pgx.Tx, action, requestID, bookingID, staffID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO action_requests (action, request_id, booking_id, staff_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, action, requestID, nullIfEmpty(bookingID), nullIfEmpty(staffID), time.Now().UTC())
	return err
}

func prefixedBookingColumns(alias string) string {
	return alias + `.booking_id, ` + alias + `.doctor_id, ` + alias + `.center_id, ` + alias + `.booking_date::text, ` +
		alias + `.queue_number, ` + alias + `.status, ` + alias + `.patient_kind, ` + alias + `.patient_id, ` +
		alias + `.patient_name, ` + alias + `.patient_phone, ` + alias + `.patient_note, ` + alias + `.staff_id, ` +
		alias + `.request_id, ` + alias + `.created_at, ` + alias + `.called_at, ` + alias + `.completed_at`
}
