package models

import "time"

// EmergencyNumber is the reserved queue number for emergency bookings.
// It sorts ahead of every ordinary position and is never touched by
// renumbering.
const EmergencyNumber = 0

type Booking struct {
	BookingID   string     `json:"booking_id"`
	DoctorID    string     `json:"doctor_id"`
	CenterID    string     `json:"center_id"`
	BookingDate string     `json:"booking_date"`
	QueueNumber int        `json:"queue_number"`
	Status      string     `json:"status"`
	Patient     PatientRef `json:"patient"`
	StaffID     string     `json:"staff_id,omitempty"`
	RequestID   string     `json:"request_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CalledAt    *time.Time `json:"called_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
)

// Active reports whether the booking still occupies a queue position.
func (b Booking) Active() bool {
	switch b.Status {
	case StatusPending, StatusConfirmed, StatusInProgress:
		return true
	default:
		return false
	}
}

func (b Booking) Emergency() bool {
	return b.QueueNumber == EmergencyNumber
}

// PatientRef identifies who the booking is for. Registered patients carry
// an account id; manual walk-ins and emergency arrivals carry name and
// phone captured at the front desk instead.
type PatientRef struct {
	Kind      string `json:"kind"`
	PatientID string `json:"patient_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Note      string `json:"note,omitempty"`
}

const (
	PatientRegistered = "registered"
	PatientManual     = "manual"
	PatientEmergency  = "emergency"
)

// QueueStatus is the patient-facing view of a booking's place in line.
type QueueStatus struct {
	BookingID      string `json:"booking_id"`
	MyNumber       int    `json:"my_number"`
	CurrentServing int    `json:"current_serving"`
	WaitingAhead   int    `json:"waiting_ahead"`
	IsMyTurn       bool   `json:"is_my_turn"`
}
