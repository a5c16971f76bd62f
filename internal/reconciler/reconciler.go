package reconciler

import (
	"context"
	"log"
	"time"

	"clinicq/queue-service/internal/models"
)

// Store is the slice of the booking store the watcher needs.
type Store interface {
	ReconcileBooking(ctx context.Context, bookingID string) (models.Booking, bool, error)
	GetQueueStatus(ctx context.Context, bookingID string) (models.QueueStatus, error)
}

// Watcher runs a per-booking reconciliation loop while a patient view is
// open. Each cycle re-ranks the booking by creation order and heals a
// drifted queue number, so the displayed position converges even when a
// concurrent renumbering raced the original assignment.
type Watcher struct {
	store    Store
	interval time.Duration
	onStatus func(models.QueueStatus)
}

func NewWatcher(st Store, interval time.Duration, onStatus func(models.QueueStatus)) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{store: st, interval: interval, onStatus: onStatus}
}

// Watch blocks until ctx is cancelled. Cycle errors are logged and the
// loop keeps going; a vanished booking stops it.
func (w *Watcher) Watch(ctx context.Context, bookingID string) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			done, err := w.cycle(ctx, bookingID)
			if err != nil {
				log.Printf("reconcile booking=%s: %v", bookingID, err)
				continue
			}
			if done {
				return
			}
		}
	}
}

func (w *Watcher) cycle(ctx context.Context, bookingID string) (bool, error) {
	cycleCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	booking, _, err := w.store.ReconcileBooking(cycleCtx, bookingID)
	if err != nil {
		return false, err
	}
	if !booking.Active() {
		return true, nil
	}
	if w.onStatus == nil {
		return false, nil
	}
	status, err := w.store.GetQueueStatus(cycleCtx, bookingID)
	if err != nil {
		return false, err
	}
	w.onStatus(status)
	return false, nil
}
