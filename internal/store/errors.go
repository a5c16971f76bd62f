package store

import "errors"

var (
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrCenterNotFound    = errors.New("medical center not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrNoBooking         = errors.New("no booking available")
	ErrInvalidTransition = errors.New("invalid booking transition")
	ErrAssignmentFailed  = errors.New("queue position assignment failed")
	ErrReorganizePartial = errors.New("queue reorganization incomplete")
	ErrSessionNotFound   = errors.New("session not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrCenterHasDoctors  = errors.New("center has active doctors")
)
