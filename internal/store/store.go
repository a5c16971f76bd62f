package store

import (
	"context"
	"encoding/json"
	"time"

	"clinicq/queue-service/internal/models"
)

type CreateBookingInput struct {
	RequestID string
	DoctorID  string
	CenterID  string
	Date      string
	PatientID string
	CreatedAt time.Time
}

// PriorityBookingInput covers the two front-desk insertion modes. StaffID
// is the acting staff member and is required; there is no fallback
// identity.
type PriorityBookingInput struct {
	RequestID string
	DoctorID  string
	CenterID  string
	Date      string
	StaffID   string
	Name      string
	Phone     string
	Note      string
	CreatedAt time.Time
}

type CallNextInput struct {
	RequestID string
	DoctorID  string
	Date      string
	StaffID   string
	CalledAt  time.Time
}

type BookingActionInput struct {
	RequestID  string
	BookingID  string
	StaffID    string
	OccurredAt time.Time
}

type DelayInput struct {
	RequestID string
	DoctorID  string
	CenterID  string
	Date      string
	StaffID   string
	Reason    string
}

type BookingStore interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (models.Booking, bool, error)
	AddManualBooking(ctx context.Context, input PriorityBookingInput) (models.Booking, bool, error)
	AddEmergencyBooking(ctx context.Context, input PriorityBookingInput) (models.Booking, bool, error)
	GetBooking(ctx context.Context, bookingID string) (models.Booking, error)
	ListActiveBookings(ctx context.Context, doctorID, date string) ([]models.Booking, error)
	CallNext(ctx context.Context, input CallNextInput) (models.Booking, bool, error)
	ConfirmBooking(ctx context.Context, input BookingActionInput) (models.Booking, bool, error)
	CompleteBooking(ctx context.Context, input BookingActionInput) (models.Booking, bool, error)
	SkipBooking(ctx context.Context, input BookingActionInput) (models.Booking, bool, error)
	CancelBooking(ctx context.Context, input BookingActionInput) (models.Booking, bool, error)
	DeleteBooking(ctx context.Context, bookingID string) error
	Reorganize(ctx context.Context, doctorID, date string) error
	ReconcileBooking(ctx context.Context, bookingID string) (models.Booking, bool, error)
	GetQueueStatus(ctx context.Context, bookingID string) (models.QueueStatus, error)
	BroadcastDelay(ctx context.Context, input DelayInput) error
	ListOutboxEvents(ctx context.Context, after time.Time, limit int) ([]OutboxEvent, error)

	CreateCenter(ctx context.Context, center models.MedicalCenter) (models.MedicalCenter, error)
	UpdateCenter(ctx context.Context, center models.MedicalCenter) (models.MedicalCenter, error)
	DeleteCenter(ctx context.Context, centerID string) error
	ListCenters(ctx context.Context) ([]models.MedicalCenter, error)
	CreateDoctor(ctx context.Context, doctor models.Doctor) (models.Doctor, error)
	ListDoctors(ctx context.Context, centerID string) ([]models.Doctor, error)

	GetSession(ctx context.Context, sessionID string) (Session, error)
}

type Session struct {
	SessionID string
	StaffID   string
	CenterID  string
	Role      string
	ExpiresAt time.Time
}

type Notification struct {
	NotificationID string
	BookingID      string
	Recipient      string
	Channel        string
	Body           string
	Status         string
	Attempts       int
	LastError      string
	CreatedAt      time.Time
}

type OutboxEvent struct {
	EventID   string          `json:"event_id"`
	CenterID  string          `json:"center_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
