package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clinicq/queue-service/internal/models"
	"clinicq/queue-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const bookingColumns = `booking_id, doctor_id, center_id, booking_date::text, queue_number, status,
	patient_kind, patient_id, patient_name, patient_phone, patient_note,
	staff_id, request_id, created_at, called_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (models.Booking, error) {
	var b models.Booking
	var patientID, patientName, patientPhone, patientNote sql.NullString
	var staffID, requestID sql.NullString
	var calledAt, completedAt sql.NullTime
	err := row.Scan(
		&b.BookingID, &b.DoctorID, &b.CenterID, &b.BookingDate, &b.QueueNumber, &b.Status,
		&b.Patient.Kind, &patientID, &patientName, &patientPhone, &patientNote,
		&staffID, &requestID, &b.CreatedAt, &calledAt, &completedAt,
	)
	if err != nil {
		return models.Booking{}, err
	}
	b.Patient.PatientID = patientID.String
	b.Patient.Name = patientName.String
	b.Patient.Phone = patientPhone.String
	b.Patient.Note = patientNote.String
	b.StaffID = staffID.String
	b.RequestID = requestID.String
	b.CalledAt = nullTimePtr(calledAt)
	b.CompletedAt = nullTimePtr(completedAt)
	return b, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// lockQueueScope serializes every queue mutation for a (doctor, date)
// pair through a single row lock, so concurrent position assignments and
// renumbering runs cannot interleave.
func lockQueueScope(ctx context.Context, tx pgx.Tx, doctorID, date string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO queue_scopes (doctor_id, booking_date)
		VALUES ($1, $2)
		ON CONFLICT (doctor_id, booking_date) DO NOTHING
	`, doctorID, date)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		SELECT 1
		FROM queue_scopes
		WHERE doctor_id = $1 AND booking_date = $2
		FOR UPDATE
	`, doctorID, date)
	return err
}

func listActive(ctx context.Context, q querier, doctorID, date string) ([]models.Booking, error) {
	rows, err := q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE doctor_id = $1 AND booking_date = $2
			AND status IN ('pending','confirmed','in_progress')
		ORDER BY created_at ASC
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func findBookingByRequestID(ctx context.Context, tx pgx.Tx, requestID string) (models.Booking, bool, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE request_id = $1
	`, requestID)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Booking{}, false, nil
		}
		return models.Booking{}, false, err
	}
	return b, true, nil
}

func ensureDoctorExists(ctx context.Context, tx pgx.Tx, doctorID, centerID string) error {
	var id string
	row := tx.QueryRow(ctx, `
		SELECT d.doctor_id
		FROM doctors d
		JOIN medical_centers c ON c.center_id = d.center_id
		WHERE d.doctor_id = $1 AND d.center_id = $2 AND d.active = TRUE AND c.active = TRUE
	`, doctorID, centerID)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrDoctorNotFound
		}
		return err
	}
	return nil
}

func (s *Store) CreateBooking(ctx context.Context, input store.CreateBookingInput) (models.Booking, bool, error) {
	patient := models.PatientRef{Kind: models.PatientRegistered, PatientID: input.PatientID}
	return s.insertBooking(ctx, insertBookingParams{
		RequestID: input.RequestID,
		DoctorID:  input.DoctorID,
		CenterID:  input.CenterID,
		Date:      input.Date,
		Status:    models.StatusPending,
		Patient:   patient,
		CreatedAt: input.CreatedAt,
		EventType: "booking.created",
	})
}

func (s *Store) AddManualBooking(ctx context.Context, input store.PriorityBookingInput) (models.Booking, bool, error) {
	patient := models.PatientRef{
		Kind:  models.PatientManual,
		Name:  input.Name,
		Phone: input.Phone,
		Note:  input.Note,
	}
	return s.insertBooking(ctx, insertBookingParams{
		RequestID: input.RequestID,
		DoctorID:  input.DoctorID,
		CenterID:  input.CenterID,
		Date:      input.Date,
		Status:    models.StatusConfirmed,
		Patient:   patient,
		StaffID:   input.StaffID,
		CreatedAt: input.CreatedAt,
		EventType: "booking.created",
	})
}

func (s *Store) AddEmergencyBooking(ctx context.Context, input store.PriorityBookingInput) (models.Booking, bool, error) {
	patient := models.PatientRef{
		Kind:  models.PatientEmergency,
		Name:  input.Name,
		Phone: input.Phone,
		Note:  input.Note,
	}
	return s.insertBooking(ctx, insertBookingParams{
		RequestID: input.RequestID,
		DoctorID:  input.DoctorID,
		CenterID:  input.CenterID,
		Date:      input.Date,
		Status:    models.StatusConfirmed,
		Patient:   patient,
		StaffID:   input.StaffID,
		CreatedAt: input.CreatedAt,
		EventType: "booking.emergency",
		Emergency: true,
	})
}

type insertBookingParams struct {
	RequestID string
	DoctorID  string
	CenterID  string
	Date      string
	Status    string
	Patient   models.PatientRef
	StaffID   string
	CreatedAt time.Time
	EventType string
	Emergency bool
}

func (s *Store) insertBooking(ctx context.Context, params insertBookingParams) (models.Booking, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Booking{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, err := findBookingByRequestID(ctx, tx, params.RequestID)
	if err != nil {
		return models.Booking{}, false, err
	}
	if found {
		if err = tx.Commit(ctx); err != nil {
			return models.Booking{}, false, err
		}
		return existing, false, nil
	}

	if err = ensureDoctorExists(ctx, tx, params.DoctorID, params.CenterID); err != nil {
		return models.Booking{}, false, err
	}

	if err = lockQueueScope(ctx, tx, params.DoctorID, params.Date); err != nil {
		err = fmt.Errorf("%w: %v", store.ErrAssignmentFailed, err)
		return models.Booking{}, false, err
	}

	number := models.EmergencyNumber
	if !params.Emergency {
		var active []models.Booking
		active, err = listActive(ctx, tx, params.DoctorID, params.Date)
		if err != nil {
			err = fmt.Errorf("%w: %v", store.ErrAssignmentFailed, err)
			return models.Booking{}, false, err
		}
		number = store.NextPosition(active)
	}

	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	bookingID := uuid.NewString()

	row := tx.QueryRow(ctx, `
		INSERT INTO bookings (
			booking_id, request_id, doctor_id, center_id, booking_date, queue_number, status,
			patient_kind, patient_id, patient_name, patient_phone, patient_note, staff_id, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (request_id) DO NOTHING
		RETURNING `+bookingColumns+`
	`, bookingID, params.RequestID, params.DoctorID, params.CenterID, params.Date, number, params.Status,
		params.Patient.Kind, nullIfEmpty(params.Patient.PatientID), nullIfEmpty(params.Patient.Name),
		nullIfEmpty(params.Patient.Phone), nullIfEmpty(params.Patient.Note), nullIfEmpty(params.StaffID), createdAt)

	var booking models.Booking
	if booking, err = scanBooking(row); err != nil {
		return models.Booking{}, false, err
	}

	if err = insertOutboxBooking(ctx, tx, params.EventType, booking); err != nil {
		return models.Booking{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Booking{}, false, err
	}
	return booking, true, nil
}

func (s *Store) GetBooking(ctx context.Context, bookingID string) (models.Booking, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE booking_id = $1
	`, bookingID)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Booking{}, store.ErrBookingNotFound
		}
		return models.Booking{}, err
	}
	return b, nil
}

func (s *Store) ListActiveBookings(ctx context.Context, doctorID, date string) ([]models.Booking, error) {
	return listActive(ctx, s.pool, doctorID, date)
}

func (s *Store) DeleteBooking(ctx context.Context, bookingID string) error {
	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		DELETE FROM bookings
		WHERE booking_id = $1
	`, bookingID)
	if err != nil {
		return err
	}
	return s.Reorganize(ctx, booking.DoctorID, booking.BookingDate)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}
