package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"clinicq/queue-service/internal/models"
	"clinicq/queue-service/internal/store"

	"github.com/google/uuid"
)

type Handler struct {
	store store.BookingStore
}

func NewHandler(st store.BookingStore) *Handler {
	return &Handler{store: st}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/bookings", h.handleBookings)
	mux.HandleFunc("/api/bookings/manual", h.handleManualBooking)
	mux.HandleFunc("/api/bookings/emergency", h.handleEmergencyBooking)
	mux.HandleFunc("/api/bookings/", h.handleBookingSubtree)
	mux.HandleFunc("/api/queues", h.handleQueue)
	mux.HandleFunc("/api/queues/actions/call-next", h.handleCallNext)
	mux.HandleFunc("/api/queues/actions/delay", h.handleDelay)
	mux.HandleFunc("/api/queues/actions/reorganize", h.handleReorganize)
	mux.HandleFunc("/api/events", h.handleEvents)
	mux.HandleFunc("/api/centers", h.handleCenters)
	mux.HandleFunc("/api/centers/", h.handleCenterByID)
	mux.HandleFunc("/api/doctors", h.handleDoctors)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type createBookingRequest struct {
	RequestID string `json:"request_id"`
	DoctorID  string `json:"doctor_id"`
	CenterID  string `json:"center_id"`
	Date      string `json:"booking_date"`
	PatientID string `json:"patient_id"`
}

func (h *Handler) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.CenterID = strings.TrimSpace(req.CenterID)
	req.Date = strings.TrimSpace(req.Date)
	req.PatientID = strings.TrimSpace(req.PatientID)

	if req.RequestID == "" || req.DoctorID == "" || req.CenterID == "" || req.Date == "" || req.PatientID == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id, doctor_id, center_id, booking_date, and patient_id are required")
		return
	}
	if !isValidUUID(req.RequestID) || !isValidUUID(req.DoctorID) || !isValidUUID(req.CenterID) || !isValidUUID(req.PatientID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id, doctor_id, center_id, and patient_id must be UUIDs")
		return
	}
	if !isValidDate(req.Date) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "booking_date must be YYYY-MM-DD")
		return
	}

	booking, _, err := h.store.CreateBooking(r.Context(), store.CreateBookingInput{
		RequestID: req.RequestID,
		DoctorID:  req.DoctorID,
		CenterID:  req.CenterID,
		Date:      req.Date,
		PatientID: req.PatientID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type priorityBookingRequest struct {
	RequestID string `json:"request_id"`
	DoctorID  string `json:"doctor_id"`
	CenterID  string `json:"center_id"`
	Date      string `json:"booking_date"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Note      string `json:"note"`
}

func (h *Handler) handleManualBooking(w http.ResponseWriter, r *http.Request) {
	h.handlePriorityBooking(w, r, h.store.AddManualBooking)
}

func (h *Handler) handleEmergencyBooking(w http.ResponseWriter, r *http.Request) {
	h.handlePriorityBooking(w, r, h.store.AddEmergencyBooking)
}

func (h *Handler) handlePriorityBooking(w http.ResponseWriter, r *http.Request, insert func(ctx context.Context, input store.PriorityBookingInput) (models.Booking, bool, error)) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	session, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var req priorityBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.CenterID = strings.TrimSpace(req.CenterID)
	req.Date = strings.TrimSpace(req.Date)
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Note = strings.TrimSpace(req.Note)

	if req.RequestID == "" || req.DoctorID == "" || req.CenterID == "" || req.Date == "" || req.Name == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id, doctor_id, center_id, booking_date, and name are required")
		return
	}
	if !isValidUUID(req.RequestID) || !isValidUUID(req.DoctorID) || !isValidUUID(req.CenterID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id, doctor_id, and center_id must be UUIDs")
		return
	}
	if !isValidDate(req.Date) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "booking_date must be YYYY-MM-DD")
		return
	}
	if req.Phone != "" && !isValidPhone(req.Phone) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "phone must be 8-16 digits")
		return
	}

	booking, _, err := insert(r.Context(), store.PriorityBookingInput{
		RequestID: req.RequestID,
		DoctorID:  req.DoctorID,
		CenterID:  req.CenterID,
		Date:      req.Date,
		StaffID:   session.StaffID,
		Name:      req.Name,
		Phone:     req.Phone,
		Note:      req.Note,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) handleBookingSubtree(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/bookings/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	bookingID := parts[0]
	if !isValidUUID(bookingID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "booking_id must be a UUID")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleGetBooking(w, r, bookingID)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.handleDeleteBooking(w, r, bookingID)
	case len(parts) == 2 && parts[1] == "queue-status" && r.Method == http.MethodGet:
		h.handleQueueStatus(w, r, bookingID)
	case len(parts) == 3 && parts[1] == "actions" && r.Method == http.MethodPost:
		h.handleBookingAction(w, r, bookingID, parts[2])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGetBooking(w http.ResponseWriter, r *http.Request, bookingID string) {
	booking, err := h.store.GetBooking(r.Context(), bookingID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) handleDeleteBooking(w http.ResponseWriter, r *http.Request, bookingID string) {
	if _, ok := requireStaff(w, r); !ok {
		return
	}
	if err := h.store.DeleteBooking(r.Context(), bookingID); err != nil && !errors.Is(err, store.ErrReorganizePartial) {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleQueueStatus(w http.ResponseWriter, r *http.Request, bookingID string) {
	status, err := h.store.GetQueueStatus(r.Context(), bookingID)
	if err != nil {
		code, errCode, msg := mapError(err)
		writeError(w, "", code, errCode, msg)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type bookingActionRequest struct {
	RequestID string `json:"request_id"`
}

func (h *Handler) handleBookingAction(w http.ResponseWriter, r *http.Request, bookingID, action string) {
	var apply func(ctx context.Context, input store.BookingActionInput) (models.Booking, bool, error)
	switch action {
	case "confirm":
		apply = h.store.ConfirmBooking
	case "complete":
		apply = h.store.CompleteBooking
	case "skip":
		apply = h.store.SkipBooking
	case "cancel":
		apply = h.store.CancelBooking
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	staffID := ""
	if session, ok := sessionFromContext(r.Context()); ok {
		staffID = session.StaffID
	} else if action != "cancel" {
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req bookingActionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, "", http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.RequestID = strings.TrimSpace(req.RequestID)
	if req.RequestID == "" || !isValidUUID(req.RequestID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id must be a UUID")
		return
	}

	booking, _, err := apply(r.Context(), store.BookingActionInput{
		RequestID:  req.RequestID,
		BookingID:  bookingID,
		StaffID:    staffID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if doctorID == "" || date == "" {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "doctor_id and date are required")
		return
	}
	if !isValidUUID(doctorID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "doctor_id must be a UUID")
		return
	}
	if !isValidDate(date) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
		return
	}

	bookings, err := h.store.ListActiveBookings(r.Context(), doctorID, date)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	store.SortQueue(bookings)
	writeJSON(w, http.StatusOK, bookings)
}

type callNextRequest struct {
	RequestID string `json:"request_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"booking_date"`
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	session, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var req callNextRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.RequestID = strings.TrimSpace(req.RequestID)
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.Date = strings.TrimSpace(req.Date)

	if req.RequestID == "" || req.DoctorID == "" || req.Date == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id, doctor_id, and booking_date are required")
		return
	}
	if !isValidUUID(req.RequestID) || !isValidUUID(req.DoctorID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id and doctor_id must be UUIDs")
		return
	}
	if !isValidDate(req.Date) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "booking_date must be YYYY-MM-DD")
		return
	}

	booking, _, err := h.store.CallNext(r.Context(), store.CallNextInput{
		RequestID: req.RequestID,
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		StaffID:   session.StaffID,
		CalledAt:  time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrNoBooking) {
			writeError(w, req.RequestID, http.StatusConflict, "queue_empty", "no bookings waiting")
			return
		}
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type delayRequest struct {
	RequestID string `json:"request_id"`
	DoctorID  string `json:"doctor_id"`
	CenterID  string `json:"center_id"`
	Date      string `json:"booking_date"`
	Reason    string `json:"reason"`
}

func (h *Handler) handleDelay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	session, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var req delayRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.RequestID = strings.TrimSpace(req.RequestID)
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.CenterID = strings.TrimSpace(req.CenterID)
	req.Date = strings.TrimSpace(req.Date)
	req.Reason = strings.TrimSpace(req.Reason)

	if req.RequestID == "" || req.DoctorID == "" || req.CenterID == "" || req.Date == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id, doctor_id, center_id, and booking_date are required")
		return
	}
	if !isValidUUID(req.RequestID) || !isValidUUID(req.DoctorID) || !isValidUUID(req.CenterID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id, doctor_id, and center_id must be UUIDs")
		return
	}
	if !isValidDate(req.Date) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "booking_date must be YYYY-MM-DD")
		return
	}

	err := h.store.BroadcastDelay(r.Context(), store.DelayInput{
		RequestID: req.RequestID,
		DoctorID:  req.DoctorID,
		CenterID:  req.CenterID,
		Date:      req.Date,
		StaffID:   session.StaffID,
		Reason:    req.Reason,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type reorganizeRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"booking_date"`
}

func (h *Handler) handleReorganize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	var req reorganizeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, "", http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.Date = strings.TrimSpace(req.Date)
	if req.DoctorID == "" || req.Date == "" {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "doctor_id and booking_date are required")
		return
	}
	if !isValidUUID(req.DoctorID) || !isValidDate(req.Date) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "doctor_id must be a UUID and booking_date YYYY-MM-DD")
		return
	}

	if err := h.store.Reorganize(r.Context(), req.DoctorID, req.Date); err != nil {
		if errors.Is(err, store.ErrReorganizePartial) {
			writeError(w, "", http.StatusAccepted, "reorganize_partial", "some bookings were not renumbered")
			return
		}
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	afterRaw := strings.TrimSpace(r.URL.Query().Get("after"))
	var after time.Time
	if afterRaw != "" {
		parsed, err := time.Parse(time.RFC3339, afterRaw)
		if err != nil {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "after must be RFC3339 timestamp")
			return
		}
		after = parsed
	}

	limit := 100
	if limitRaw := strings.TrimSpace(r.URL.Query().Get("limit")); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed <= 0 {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := h.store.ListOutboxEvents(r.Context(), after, limit)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) handleCenters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		centers, err := h.store.ListCenters(r.Context())
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, "", status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, centers)
	case http.MethodPost:
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		var center models.MedicalCenter
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&center); err != nil {
			writeError(w, "", http.StatusBadRequest, "invalid_json", "invalid JSON payload")
			return
		}
		center.Name = strings.TrimSpace(center.Name)
		if center.Name == "" {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		created, err := h.store.CreateCenter(r.Context(), center)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, "", status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCenterByID(w http.ResponseWriter, r *http.Request) {
	centerID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/centers/"), "/")
	if !isValidUUID(centerID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "center_id must be a UUID")
		return
	}

	switch r.Method {
	case http.MethodPut:
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		var center models.MedicalCenter
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&center); err != nil {
			writeError(w, "", http.StatusBadRequest, "invalid_json", "invalid JSON payload")
			return
		}
		center.CenterID = centerID
		center.Name = strings.TrimSpace(center.Name)
		if center.Name == "" {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		updated, err := h.store.UpdateCenter(r.Context(), center)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, "", status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		if err := h.store.DeleteCenter(r.Context(), centerID); err != nil {
			status, code, msg := mapError(err)
			writeError(w, "", status, code, msg)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleDoctors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		centerID := strings.TrimSpace(r.URL.Query().Get("center_id"))
		if centerID == "" || !isValidUUID(centerID) {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "center_id must be a UUID")
			return
		}
		doctors, err := h.store.ListDoctors(r.Context(), centerID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, "", status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, doctors)
	case http.MethodPost:
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		var doctor models.Doctor
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&doctor); err != nil {
			writeError(w, "", http.StatusBadRequest, "invalid_json", "invalid JSON payload")
			return
		}
		doctor.Name = strings.TrimSpace(doctor.Name)
		doctor.CenterID = strings.TrimSpace(doctor.CenterID)
		if doctor.Name == "" || doctor.CenterID == "" {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "name and center_id are required")
			return
		}
		if !isValidUUID(doctor.CenterID) {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "center_id must be a UUID")
			return
		}
		created, err := h.store.CreateDoctor(r.Context(), doctor)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, "", status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func isValidDate(value string) bool {
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}

func isValidPhone(value string) bool {
	if len(value) < 8 || len(value) > 16 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrDoctorNotFound):
		return http.StatusNotFound, "doctor_not_found", "doctor not found"
	case errors.Is(err, store.ErrCenterNotFound):
		return http.StatusNotFound, "center_not_found", "medical center not found"
	case errors.Is(err, store.ErrBookingNotFound):
		return http.StatusNotFound, "booking_not_found", "booking not found"
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", "booking status does not allow this action"
	case errors.Is(err, store.ErrAssignmentFailed):
		return http.StatusConflict, "assignment_failed", "queue position could not be assigned"
	case errors.Is(err, store.ErrCenterHasDoctors):
		return http.StatusConflict, "center_has_doctors", "center still has active doctors"
	case errors.Is(err, store.ErrAccessDenied):
		return http.StatusForbidden, "access_denied", "access denied"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
