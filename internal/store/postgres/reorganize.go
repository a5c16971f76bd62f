package postgres

import (
	"context"
	"fmt"
	"log"

	"clinicq/queue-service/internal/models"
	"clinicq/queue-service/internal/store"

	"github.com/jackc/pgx/v5"
)

// Reorganize restores the contiguous 1..N run for a scope's active
// non-emergency bookings, ordered by creation time. Individual write
// failures are rolled back to a savepoint and logged so the remaining
// bookings still get renumbered.
func (s *Store) Reorganize(ctx context.Context, doctorID, date string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = lockQueueScope(ctx, tx, doctorID, date); err != nil {
		return err
	}

	active, err := listActive(ctx, tx, doctorID, date)
	if err != nil {
		return err
	}

	plan := store.RenumberPlan(active)
	failed := 0
	for _, change := range plan {
		var inner pgx.Tx
		inner, err = tx.Begin(ctx)
		if err != nil {
			return err
		}
		_, execErr := inner.Exec(ctx, `
			UPDATE bookings
			SET queue_number = $1
			WHERE booking_id = $2
				AND status IN ('pending','confirmed','in_progress')
		`, change.Number, change.BookingID)
		if execErr != nil {
			_ = inner.Rollback(ctx)
			log.Printf("renumber booking=%s to=%d: %v", change.BookingID, change.Number, execErr)
			failed++
			continue
		}
		if err = inner.Commit(ctx); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d writes failed", store.ErrReorganizePartial, failed, len(plan))
	}
	return nil
}

// ReconcileBooking recomputes one booking's rank among its scope's active
// bookings by creation order and heals the stored number when it has
// drifted. Emergency and already-terminal bookings are left untouched.
func (s *Store) ReconcileBooking(ctx context.Context, bookingID string) (models.Booking, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Booking{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE booking_id = $1
	`, bookingID)
	booking, err := scanBooking(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			err = store.ErrBookingNotFound
		}
		return models.Booking{}, false, err
	}

	if !booking.Active() || booking.Emergency() {
		if err = tx.Commit(ctx); err != nil {
			return models.Booking{}, false, err
		}
		return booking, false, nil
	}

	if err = lockQueueScope(ctx, tx, booking.DoctorID, booking.BookingDate); err != nil {
		return models.Booking{}, false, err
	}
	active, err := listActive(ctx, tx, booking.DoctorID, booking.BookingDate)
	if err != nil {
		return models.Booking{}, false, err
	}

	// The first read ran before the scope lock; a concurrent renumber may
	// have changed the stored number since. Compare against the locked row.
	for _, b := range active {
		if b.BookingID == booking.BookingID {
			booking = b
			break
		}
	}

	rank, ok := store.RankByCreation(active, booking.BookingID)
	if !ok || rank == booking.QueueNumber {
		if err = tx.Commit(ctx); err != nil {
			return models.Booking{}, false, err
		}
		return booking, false, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE bookings
		SET queue_number = $1
		WHERE booking_id = $2
	`, rank, booking.BookingID)
	if err != nil {
		return models.Booking{}, false, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Booking{}, false, err
	}

	log.Printf("queue drift corrected booking=%s from=%d to=%d", booking.BookingID, booking.QueueNumber, rank)
	booking.QueueNumber = rank
	return booking, true, nil
}

func (s *Store) GetQueueStatus(ctx context.Context, bookingID string) (models.QueueStatus, error) {
	booking, _, err := s.ReconcileBooking(ctx, bookingID)
	if err != nil {
		return models.QueueStatus{}, err
	}

	status := models.QueueStatus{
		BookingID: booking.BookingID,
		MyNumber:  booking.QueueNumber,
	}
	if !booking.Active() {
		return status, nil
	}

	active, err := s.ListActiveBookings(ctx, booking.DoctorID, booking.BookingDate)
	if err != nil {
		return models.QueueStatus{}, err
	}
	status.CurrentServing = store.CurrentServing(active)
	status.WaitingAhead, status.IsMyTurn = store.ComputeStatus(booking.QueueNumber, status.CurrentServing)
	return status, nil
}
