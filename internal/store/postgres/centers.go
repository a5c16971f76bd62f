package postgres

import (
	"context"
	"errors"
	"time"

	"clinicq/queue-service/internal/models"
	"clinicq/queue-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateCenter(ctx context.Context, center models.MedicalCenter) (models.MedicalCenter, error) {
	if center.CenterID == "" {
		center.CenterID = uuid.NewString()
	}
	center.Active = true
	_, err := s.pool.Exec(ctx, `
		INSERT INTO medical_centers (center_id, name, address, phone, active)
		VALUES ($1, $2, $3, $4, TRUE)
	`, center.CenterID, center.Name, nullIfEmpty(center.Address), nullIfEmpty(center.Phone))
	if err != nil {
		return models.MedicalCenter{}, err
	}
	return center, nil
}

func (s *Store) UpdateCenter(ctx context.Context, center models.MedicalCenter) (models.MedicalCenter, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE medical_centers
		SET name = $1, address = $2, phone = $3, active = $4
		WHERE center_id = $5
	`, center.Name, nullIfEmpty(center.Address), nullIfEmpty(center.Phone), center.Active, center.CenterID)
	if err != nil {
		return models.MedicalCenter{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.MedicalCenter{}, store.ErrCenterNotFound
	}
	return center, nil
}

func (s *Store) DeleteCenter(ctx context.Context, centerID string) error {
	var count int
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM doctors
		WHERE center_id = $1 AND active = TRUE
	`, centerID)
	if err := row.Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return store.ErrCenterHasDoctors
	}
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM medical_centers
		WHERE center_id = $1
	`, centerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrCenterNotFound
	}
	return nil
}

func (s *Store) ListCenters(ctx context.Context) ([]models.MedicalCenter, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT center_id, name, COALESCE(address, ''), COALESCE(phone, ''), active
		FROM medical_centers
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var centers []models.MedicalCenter
	for rows.Next() {
		var center models.MedicalCenter
		if err := rows.Scan(&center.CenterID, &center.Name, &center.Address, &center.Phone, &center.Active); err != nil {
			return nil, err
		}
		centers = append(centers, center)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return centers, nil
}

func (s *Store) CreateDoctor(ctx context.Context, doctor models.Doctor) (models.Doctor, error) {
	if doctor.DoctorID == "" {
		doctor.DoctorID = uuid.NewString()
	}
	doctor.Active = true
	_, err := s.pool.Exec(ctx, `
		INSERT INTO doctors (doctor_id, center_id, name, specialty, active)
		VALUES ($1, $2, $3, $4, TRUE)
	`, doctor.DoctorID, doctor.CenterID, doctor.Name, nullIfEmpty(doctor.Specialty))
	if err != nil {
		return models.Doctor{}, err
	}
	return doctor, nil
}

func (s *Store) ListDoctors(ctx context.Context, centerID string) ([]models.Doctor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT doctor_id, center_id, name, COALESCE(specialty, ''), active
		FROM doctors
		WHERE center_id = $1
		ORDER BY name ASC
	`, centerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var doctors []models.Doctor
	for rows.Next() {
		var doctor models.Doctor
		if err := rows.Scan(&doctor.DoctorID, &doctor.CenterID, &doctor.Name, &doctor.Specialty, &doctor.Active); err != nil {
			return nil, err
		}
		doctors = append(doctors, doctor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	var session store.Session
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, staff_id, center_id, role, expires_at
		FROM sessions
		WHERE session_id = $1
	`, sessionID)
	if err := row.Scan(&session.SessionID, &session.StaffID, &session.CenterID, &session.Role, &session.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Session{}, store.ErrSessionNotFound
		}
		return store.Session{}, err
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		return store.Session{}, store.ErrSessionNotFound
	}
	return session, nil
}
