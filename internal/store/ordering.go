package store

import (
	"sort"

	"clinicq/queue-service/internal/models"
)

// The ordering rules for a doctor's daily queue. Positions 1..N belong to
// ordinary active bookings in creation order; 0 is reserved for emergency
// bookings and always served first. The stored queue_number can drift
// (concurrent inserts, partial renumbering), so creation time is the
// canonical ordering everywhere a rank is recomputed.

// NextPosition returns the queue number for a new ordinary booking: one
// past the highest active non-emergency number, or 1 for an empty queue.
func NextPosition(active []models.Booking) int {
	max := 0
	for _, b := range active {
		if !b.Active() || b.Emergency() {
			continue
		}
		if b.QueueNumber > max {
			max = b.QueueNumber
		}
	}
	return max + 1
}

type NumberChange struct {
	BookingID string
	Number    int
}

// RenumberPlan computes the writes that restore a contiguous 1..N run over
// the active non-emergency bookings, ordered by creation time. Bookings
// whose stored number already matches are skipped, which makes applying
// the plan twice in a row a no-op.
func RenumberPlan(active []models.Booking) []NumberChange {
	ordered := make([]models.Booking, 0, len(active))
	for _, b := range active {
		if b.Active() && !b.Emergency() {
			ordered = append(ordered, b)
		}
	}
	sortByCreation(ordered)

	var changes []NumberChange
	for i, b := range ordered {
		want := i + 1
		if b.QueueNumber != want {
			changes = append(changes, NumberChange{BookingID: b.BookingID, Number: want})
		}
	}
	return changes
}

// SortQueue orders bookings for serving: emergency sentinel first, then by
// queue number, creation time breaking ties.
func SortQueue(bookings []models.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		if bookings[i].QueueNumber != bookings[j].QueueNumber {
			return bookings[i].QueueNumber < bookings[j].QueueNumber
		}
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})
}

// SelectNext picks the booking a "call next" should serve: the lowest
// queue number among waiting (pending or confirmed) bookings. The 0
// sentinel wins automatically.
func SelectNext(active []models.Booking) (models.Booking, bool) {
	waiting := make([]models.Booking, 0, len(active))
	for _, b := range active {
		if b.Status == models.StatusPending || b.Status == models.StatusConfirmed {
			waiting = append(waiting, b)
		}
	}
	if len(waiting) == 0 {
		return models.Booking{}, false
	}
	SortQueue(waiting)
	return waiting[0], true
}

// RankByCreation returns the booking's true position among the active
// non-emergency bookings of its scope, counted from 1 in creation order.
// Emergency bookings keep the sentinel and are never ranked.
func RankByCreation(active []models.Booking, bookingID string) (int, bool) {
	ordered := make([]models.Booking, 0, len(active))
	for _, b := range active {
		if b.Active() && !b.Emergency() {
			ordered = append(ordered, b)
		}
	}
	sortByCreation(ordered)
	for i, b := range ordered {
		if b.BookingID == bookingID {
			return i + 1, true
		}
	}
	return 0, false
}

// CurrentServing returns the lowest queue number currently in progress,
// or 0 when the doctor is between patients.
func CurrentServing(active []models.Booking) int {
	serving := 0
	found := false
	for _, b := range active {
		if b.Status != models.StatusInProgress {
			continue
		}
		if !found || b.QueueNumber < serving {
			serving = b.QueueNumber
			found = true
		}
	}
	if !found {
		return 0
	}
	return serving
}

// ComputeStatus derives the patient-facing waiting figures. An emergency
// booking is immediately up regardless of the serving number.
func ComputeStatus(myNumber, currentServing int) (waitingAhead int, isMyTurn bool) {
	if myNumber == models.EmergencyNumber {
		return 0, true
	}
	waitingAhead = myNumber - currentServing
	if waitingAhead < 0 {
		waitingAhead = 0
	}
	return waitingAhead, currentServing >= myNumber
}

func sortByCreation(bookings []models.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].BookingID < bookings[j].BookingID
		}
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})
}
