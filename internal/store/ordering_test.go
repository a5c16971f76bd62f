package store

import (
	"sync"
	"testing"
	"time"

	"clinicq/queue-service/internal/models"
)

func booking(id string, number int, status string, created time.Time) models.Booking {
	return models.Booking{
		BookingID:   id,
		QueueNumber: number,
		Status:      status,
		CreatedAt:   created,
	}
}

func TestNextPosition(t *testing.T) {
	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		active []models.Booking
		want   int
	}{
		{"empty queue", nil, 1},
		{"single booking", []models.Booking{
			booking("a", 1, models.StatusPending, base),
		}, 2},
		{"gap after cancellation keeps max", []models.Booking{
			booking("a", 1, models.StatusPending, base),
			booking("c", 3, models.StatusConfirmed, base.Add(2 * time.Minute)),
		}, 4},
		{"emergency sentinel ignored", []models.Booking{
			booking("e", 0, models.StatusConfirmed, base),
			booking("a", 1, models.StatusPending, base.Add(time.Minute)),
		}, 2},
		{"completed bookings ignored", []models.Booking{
			booking("a", 1, models.StatusCompleted, base),
			booking("b", 2, models.StatusPending, base.Add(time.Minute)),
		}, 3},
	}

	for _, tt := range cases {
		if got := NextPosition(tt.active); got != tt.want {
			t.Fatalf("%s: NextPosition=%d, want %d", tt.name, got, tt.want)
		}
	}
}

// Concurrent bookers racing for a position must never share a number once
// each assignment observes the previous ones, as the scope lock guarantees.
func TestNextPositionSerializedAssignments(t *testing.T) {
	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	var mu sync.Mutex
	var active []models.Booking
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			number := NextPosition(active)
			active = append(active, booking(string(rune('A'+i)), number, models.StatusPending, base.Add(time.Duration(i)*time.Second)))
		}(i)
	}
	wg.Wait()

	seen := make(map[int]string, len(active))
	for _, b := range active {
		if other, dup := seen[b.QueueNumber]; dup {
			t.Fatalf("bookings %s and %s share queue number %d", other, b.BookingID, b.QueueNumber)
		}
		seen[b.QueueNumber] = b.BookingID
	}
	for n := 1; n <= len(active); n++ {
		if _, ok := seen[n]; !ok {
			t.Fatalf("queue number %d missing from 1..%d run", n, len(active))
		}
	}
}

func TestRenumberPlan(t *testing.T) {
	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	active := []models.Booking{
		booking("first", 1, models.StatusInProgress, base),
		booking("third", 4, models.StatusPending, base.Add(2*time.Minute)),
		booking("second", 3, models.StatusConfirmed, base.Add(time.Minute)),
		booking("emergency", 0, models.StatusConfirmed, base.Add(30*time.Second)),
		booking("gone", 2, models.StatusCancelled, base.Add(90*time.Second)),
	}

	plan := RenumberPlan(active)
	want := []NumberChange{
		{BookingID: "second", Number: 2},
		{BookingID: "third", Number: 3},
	}
	if len(plan) != len(want) {
		t.Fatalf("plan has %d changes, want %d: %v", len(plan), len(want), plan)
	}
	for i, change := range plan {
		if change != want[i] {
			t.Fatalf("change %d = %+v, want %+v", i, change, want[i])
		}
	}
}

func TestRenumberPlanIdempotent(t *testing.T) {
	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	active := []models.Booking{
		booking("a", 1, models.StatusPending, base),
		booking("b", 5, models.StatusPending, base.Add(time.Minute)),
	}
	for _, change := range RenumberPlan(active) {
		for i := range active {
			if active[i].BookingID == change.BookingID {
				active[i].QueueNumber = change.Number
			}
		}
	}
	if plan := RenumberPlan(active); len(plan) != 0 {
		t.Fatalf("second plan should be empty, got %v", plan)
	}
}

func TestSelectNext(t *testing.T) {
	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	active := []models.Booking{
		booking("serving", 1, models.StatusInProgress, base),
		booking("second", 2, models.StatusConfirmed, base.Add(time.Minute)),
		booking("third", 3, models.StatusPending, base.Add(2*time.Minute)),
	}
	next, ok := SelectNext(active)
	if !ok || next.BookingID != "second" {
		t.Fatalf("SelectNext=%q ok=%v, want second", next.BookingID, ok)
	}

	// Emergency sentinel jumps the whole line.
	active = append(active, booking("emergency", 0, models.StatusConfirmed, base.Add(3*time.Minute)))
	next, ok = SelectNext(active)
	if !ok || next.BookingID != "emergency" {
		t.Fatalf("SelectNext=%q ok=%v, want emergency", next.BookingID, ok)
	}

	if _, ok := SelectNext([]models.Booking{booking("busy", 1, models.StatusInProgress, base)}); ok {
		t.Fatal("SelectNext should report no waiting booking")
	}
}

func TestRankByCreation(t *testing.T) {
	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	active := []models.Booking{
		booking("late", 7, models.StatusPending, base.Add(2*time.Minute)),
		booking("early", 9, models.StatusPending, base),
		booking("mid", 1, models.StatusConfirmed, base.Add(time.Minute)),
		booking("emergency", 0, models.StatusConfirmed, base.Add(10*time.Second)),
	}

	cases := []struct {
		id   string
		rank int
		ok   bool
	}{
		{"early", 1, true},
		{"mid", 2, true},
		{"late", 3, true},
		{"emergency", 0, false},
		{"missing", 0, false},
	}
	for _, tt := range cases {
		rank, ok := RankByCreation(active, tt.id)
		if rank != tt.rank || ok != tt.ok {
			t.Fatalf("RankByCreation(%q)=(%d,%v), want (%d,%v)", tt.id, rank, ok, tt.rank, tt.ok)
		}
	}
}

func TestCurrentServing(t *testing.T) {
	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	if got := CurrentServing(nil); got != 0 {
		t.Fatalf("empty queue serving=%d, want 0", got)
	}

	active := []models.Booking{
		booking("a", 2, models.StatusInProgress, base),
		booking("b", 5, models.StatusInProgress, base.Add(time.Minute)),
		booking("c", 1, models.StatusPending, base.Add(2*time.Minute)),
	}
	if got := CurrentServing(active); got != 2 {
		t.Fatalf("serving=%d, want 2", got)
	}

	active = append(active, booking("e", 0, models.StatusInProgress, base.Add(3*time.Minute)))
	if got := CurrentServing(active); got != 0 {
		t.Fatalf("serving with emergency in progress=%d, want 0", got)
	}
}

func TestComputeStatus(t *testing.T) {
	cases := []struct {
		name         string
		myNumber     int
		serving      int
		waitingAhead int
		isMyTurn     bool
	}{
		{"ahead of serving", 5, 2, 3, false},
		{"serving me", 3, 3, 0, true},
		{"serving passed me", 2, 4, 0, true},
		{"nobody serving", 1, 0, 1, false},
		{"emergency always up", models.EmergencyNumber, 7, 0, true},
	}

	for _, tt := range cases {
		waiting, turn := ComputeStatus(tt.myNumber, tt.serving)
		if waiting != tt.waitingAhead || turn != tt.isMyTurn {
			t.Fatalf("%s: ComputeStatus(%d,%d)=(%d,%v), want (%d,%v)",
				tt.name, tt.myNumber, tt.serving, waiting, turn, tt.waitingAhead, tt.isMyTurn)
		}
	}
}

func TestSortQueue(t *testing.T) {
	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	bookings := []models.Booking{
		booking("b", 2, models.StatusPending, base.Add(time.Minute)),
		booking("emergency", 0, models.StatusConfirmed, base.Add(5*time.Minute)),
		booking("a", 1, models.StatusInProgress, base),
		booking("dup-late", 3, models.StatusPending, base.Add(3*time.Minute)),
		booking("dup-early", 3, models.StatusPending, base.Add(2*time.Minute)),
	}
	SortQueue(bookings)

	wantOrder := []string{"emergency", "a", "b", "dup-early", "dup-late"}
	for i, id := range wantOrder {
		if bookings[i].BookingID != id {
			t.Fatalf("position %d = %q, want %q", i, bookings[i].BookingID, id)
		}
	}
}
