package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinicq/queue-service/internal/models"
	"clinicq/queue-service/internal/store"
)

const (
	testRequestID = "11111111-1111-1111-1111-111111111111"
	testDoctorID  = "22222222-2222-2222-2222-222222222222"
	testCenterID  = "33333333-3333-3333-3333-333333333333"
	testPatientID = "44444444-4444-4444-4444-444444444444"
	testBookingID = "55555555-5555-5555-5555-555555555555"
)

type fakeStore struct {
	createFn    func(ctx context.Context, input store.CreateBookingInput) (models.Booking, bool, error)
	manualFn    func(ctx context.Context, input store.PriorityBookingInput) (models.Booking, bool, error)
	emergencyFn func(ctx context.Context, input store.PriorityBookingInput) (models.Booking, bool, error)
	getFn       func(ctx context.Context, bookingID string) (models.Booking, error)
	listFn      func(ctx context.Context, doctorID, date string) ([]models.Booking, error)
	callNextFn  func(ctx context.Context, input store.CallNextInput) (models.Booking, bool, error)
	actionFn    func(ctx context.Context, input store.BookingActionInput) (models.Booking, bool, error)
	statusFn    func(ctx context.Context, bookingID string) (models.QueueStatus, error)
	sessionFn   func(ctx context.Context, sessionID string) (store.Session, error)
}

func (f fakeStore) CreateBooking(ctx context.Context, input store.CreateBookingInput) (models.Booking, bool, error) {
	if f.createFn == nil {
		return models.Booking{}, false, nil
	}
	return f.createFn(ctx, input)
}

func (f fakeStore) AddManualBooking(ctx context.Context, input store.PriorityBookingInput) (models.Booking, bool, error) {
	if f.manualFn == nil {
		return models.Booking{}, false, nil
	}
	return f.manualFn(ctx, input)
}

func (f fakeStore) AddEmergencyBooking(ctx context.Context, input store.PriorityBookingInput) (models.Booking, bool, error) {
	if f.emergencyFn == nil {
		return models.Booking{}, false, nil
	}
	return f.emergencyFn(ctx, input)
}

func (f fakeStore) GetBooking(ctx context.Context, bookingID string) (models.Booking, error) {
	if f.getFn == nil {
		return models.Booking{}, store.ErrBookingNotFound
	}
	return f.getFn(ctx, bookingID)
}

func (f fakeStore) ListActiveBookings(ctx context.Context, doctorID, date string) ([]models.Booking, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx, doctorID, date)
}

func (f fakeStore) CallNext(ctx context.Context, input store.CallNextInput) (models.Booking, bool, error) {
	if f.callNextFn == nil {
		return models.Booking{}, false, store.ErrNoBooking
	}
	return f.callNextFn(ctx, input)
}

func (f fakeStore) ConfirmBooking(ctx context.Context, input store.BookingActionInput) (models.Booking, bool, error) {
	return f.applyAction(ctx, input)
}

func (f fakeStore) CompleteBooking(ctx context.Context, input store.BookingActionInput) (models.Booking, bool, error) {
	return f.applyAction(ctx, input)
}

func (f fakeStore) SkipBooking(ctx context.Context, input store.BookingActionInput) (models.Booking, bool, error) {
	return f.applyAction(ctx, input)
}

func (f fakeStore) CancelBooking(ctx context.Context, input store.BookingActionInput) (models.Booking, bool, error) {
	return f.applyAction(ctx, input)
}

func (f fakeStore) applyAction(ctx context.Context, input store.BookingActionInput) (models.Booking, bool, error) {
	if f.actionFn == nil {
		return models.Booking{}, false, store.ErrBookingNotFound
	}
	return f.actionFn(ctx, input)
}

func (f fakeStore) DeleteBooking(ctx context.Context, bookingID string) error { return nil }

func (f fakeStore) Reorganize(ctx context.Context, doctorID, date string) error { return nil }

func (f fakeStore) ReconcileBooking(ctx context.Context, bookingID string) (models.Booking, bool, error) {
	return models.Booking{}, false, nil
}

func (f fakeStore) GetQueueStatus(ctx context.Context, bookingID string) (models.QueueStatus, error) {
	if f.statusFn == nil {
		return models.QueueStatus{}, store.ErrBookingNotFound
	}
	return f.statusFn(ctx, bookingID)
}

func (f fakeStore) BroadcastDelay(ctx context.Context, input store.DelayInput) error { return nil }

func (f fakeStore) ListOutboxEvents(ctx context.Context, after time.Time, limit int) ([]store.OutboxEvent, error) {
	return nil, nil
}

func (f fakeStore) CreateCenter(ctx context.Context, center models.MedicalCenter) (models.MedicalCenter, error) {
	return center, nil
}

func (f fakeStore) UpdateCenter(ctx context.Context, center models.MedicalCenter) (models.MedicalCenter, error) {
	return center, nil
}

func (f fakeStore) DeleteCenter(ctx context.Context, centerID string) error { return nil }

func (f fakeStore) ListCenters(ctx context.Context) ([]models.MedicalCenter, error) { return nil, nil }

func (f fakeStore) CreateDoctor(ctx context.Context, doctor models.Doctor) (models.Doctor, error) {
	return doctor, nil
}

func (f fakeStore) ListDoctors(ctx context.Context, centerID string) ([]models.Doctor, error) {
	return nil, nil
}

func (f fakeStore) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	if f.sessionFn == nil {
		return store.Session{}, store.ErrSessionNotFound
	}
	return f.sessionFn(ctx, sessionID)
}

func staffSession(role string) func(context.Context, string) (store.Session, error) {
	return func(_ context.Context, sessionID string) (store.Session, error) {
		return store.Session{
			SessionID: sessionID,
			StaffID:   "66666666-6666-6666-6666-666666666666",
			CenterID:  testCenterID,
			Role:      role,
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}, nil
	}
}

func serve(st fakeStore, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	AuthMiddleware(st, NewHandler(st).Routes()).ServeHTTP(resp, req)
	return resp
}

func postJSON(path string, payload map[string]any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCreateBookingSuccess(t *testing.T) {
	st := fakeStore{
		createFn: func(_ context.Context, input store.CreateBookingInput) (models.Booking, bool, error) {
			if input.PatientID != testPatientID {
				t.Fatalf("unexpected patient id %s", input.PatientID)
			}
			return models.Booking{
				BookingID:   testBookingID,
				DoctorID:    input.DoctorID,
				QueueNumber: 4,
				Status:      models.StatusPending,
			}, true, nil
		},
	}

	req := postJSON("/api/bookings", map[string]any{
		"request_id":   testRequestID,
		"doctor_id":    testDoctorID,
		"center_id":    testCenterID,
		"booking_date": "2026-03-09",
		"patient_id":   testPatientID,
	})

	resp := serve(st, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var booking models.Booking
	if err := json.Unmarshal(resp.Body.Bytes(), &booking); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if booking.QueueNumber != 4 {
		t.Fatalf("queue number=%d, want 4", booking.QueueNumber)
	}
}

func TestCreateBookingRejectsBadDate(t *testing.T) {
	req := postJSON("/api/bookings", map[string]any{
		"request_id":   testRequestID,
		"doctor_id":    testDoctorID,
		"center_id":    testCenterID,
		"booking_date": "09/03/2026",
		"patient_id":   testPatientID,
	})

	resp := serve(fakeStore{}, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCreateBookingUnknownDoctor(t *testing.T) {
	st := fakeStore{
		createFn: func(context.Context, store.CreateBookingInput) (models.Booking, bool, error) {
			return models.Booking{}, false, store.ErrDoctorNotFound
		},
	}

	req := postJSON("/api/bookings", map[string]any{
		"request_id":   testRequestID,
		"doctor_id":    testDoctorID,
		"center_id":    testCenterID,
		"booking_date": "2026-03-09",
		"patient_id":   testPatientID,
	})

	resp := serve(st, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestManualBookingRequiresSession(t *testing.T) {
	req := postJSON("/api/bookings/manual", map[string]any{
		"request_id":   testRequestID,
		"doctor_id":    testDoctorID,
		"center_id":    testCenterID,
		"booking_date": "2026-03-09",
		"name":         "Walk-in Patient",
	})

	resp := serve(fakeStore{}, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestEmergencyBookingCarriesStaffIdentity(t *testing.T) {
	var gotStaffID string
	st := fakeStore{
		sessionFn: staffSession("staff"),
		emergencyFn: func(_ context.Context, input store.PriorityBookingInput) (models.Booking, bool, error) {
			gotStaffID = input.StaffID
			return models.Booking{
				BookingID:   testBookingID,
				QueueNumber: models.EmergencyNumber,
				Status:      models.StatusConfirmed,
			}, true, nil
		},
	}

	req := postJSON("/api/bookings/emergency", map[string]any{
		"request_id":   testRequestID,
		"doctor_id":    testDoctorID,
		"center_id":    testCenterID,
		"booking_date": "2026-03-09",
		"name":         "Emergency Patient",
	})
	req.Header.Set("Authorization", "Bearer sess-1")

	resp := serve(st, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotStaffID != "66666666-6666-6666-6666-666666666666" {
		t.Fatalf("staff id=%q, want session staff id", gotStaffID)
	}
	var booking models.Booking
	if err := json.Unmarshal(resp.Body.Bytes(), &booking); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if booking.QueueNumber != models.EmergencyNumber {
		t.Fatalf("queue number=%d, want sentinel 0", booking.QueueNumber)
	}
}

func TestCallNextQueueEmpty(t *testing.T) {
	st := fakeStore{
		sessionFn: staffSession("staff"),
		callNextFn: func(context.Context, store.CallNextInput) (models.Booking, bool, error) {
			return models.Booking{}, false, store.ErrNoBooking
		},
	}

	req := postJSON("/api/queues/actions/call-next", map[string]any{
		"request_id":   testRequestID,
		"doctor_id":    testDoctorID,
		"booking_date": "2026-03-09",
	})
	req.Header.Set("Authorization", "Bearer sess-1")

	resp := serve(st, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	var errResp errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Error.Code != "queue_empty" {
		t.Fatalf("error code=%q, want queue_empty", errResp.Error.Code)
	}
}

func TestCompleteInvalidTransition(t *testing.T) {
	st := fakeStore{
		sessionFn: staffSession("staff"),
		actionFn: func(context.Context, store.BookingActionInput) (models.Booking, bool, error) {
			return models.Booking{}, false, store.ErrInvalidTransition
		},
	}

	req := postJSON("/api/bookings/"+testBookingID+"/actions/complete", map[string]any{
		"request_id": testRequestID,
	})
	req.Header.Set("Authorization", "Bearer sess-1")

	resp := serve(st, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestCancelWithoutSession(t *testing.T) {
	var gotInput store.BookingActionInput
	st := fakeStore{
		actionFn: func(_ context.Context, input store.BookingActionInput) (models.Booking, bool, error) {
			gotInput = input
			return models.Booking{BookingID: input.BookingID, Status: models.StatusCancelled}, false, nil
		},
	}

	req := postJSON("/api/bookings/"+testBookingID+"/actions/cancel", map[string]any{
		"request_id": testRequestID,
	})

	resp := serve(st, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotInput.StaffID != "" {
		t.Fatalf("patient cancel should carry no staff id, got %q", gotInput.StaffID)
	}
}

func TestQueueStatusPublic(t *testing.T) {
	st := fakeStore{
		statusFn: func(context.Context, string) (models.QueueStatus, error) {
			return models.QueueStatus{
				BookingID:      testBookingID,
				MyNumber:       5,
				CurrentServing: 2,
				WaitingAhead:   3,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/bookings/"+testBookingID+"/queue-status", nil)
	resp := serve(st, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var status models.QueueStatus
	if err := json.Unmarshal(resp.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status.WaitingAhead != 3 || status.IsMyTurn {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestListQueueReturnsServingOrder(t *testing.T) {
	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	st := fakeStore{
		sessionFn: staffSession("staff"),
		listFn: func(context.Context, string, string) ([]models.Booking, error) {
			return []models.Booking{
				{BookingID: "second", QueueNumber: 2, Status: models.StatusPending, CreatedAt: base.Add(time.Minute)},
				{BookingID: "emergency", QueueNumber: 0, Status: models.StatusConfirmed, CreatedAt: base.Add(2 * time.Minute)},
				{BookingID: "first", QueueNumber: 1, Status: models.StatusInProgress, CreatedAt: base},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/queues?doctor_id="+testDoctorID+"&date=2026-03-09", nil)
	req.Header.Set("Authorization", "Bearer sess-1")

	resp := serve(st, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var bookings []models.Booking
	if err := json.Unmarshal(resp.Body.Bytes(), &bookings); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	wantOrder := []string{"emergency", "first", "second"}
	for i, id := range wantOrder {
		if bookings[i].BookingID != id {
			t.Fatalf("position %d = %q, want %q", i, bookings[i].BookingID, id)
		}
	}
}

func TestCreateCenterRequiresAdmin(t *testing.T) {
	st := fakeStore{sessionFn: staffSession("staff")}

	req := postJSON("/api/centers", map[string]any{"name": "Downtown Clinic"})
	req.Header.Set("Authorization", "Bearer sess-1")

	resp := serve(st, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}
