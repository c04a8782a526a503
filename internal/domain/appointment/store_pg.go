package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/domain/directory"
	"github.com/clinic/clinic/internal/platform/db"
)

const slotConstraint = "appointment_doctor_slot_key"

const apptCols = `id, doctor_id, patient_id, start_time, status, cancellation_reason,
	cancelled_at, notes, version_id, created_at, updated_at`

// PGStore keeps appointments in PostgreSQL and reads doctors and patients
// through the directory repositories.
type PGStore struct {
	pool     *pgxpool.Pool
	doctors  directory.DoctorRepository
	patients directory.PatientRepository
}

func NewPGStore(pool *pgxpool.Pool, doctors directory.DoctorRepository, patients directory.PatientRepository) *PGStore {
	return &PGStore{pool: pool, doctors: doctors, patients: patients}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.StartTime, &a.Status, &a.CancellationReason,
		&a.CancelledAt, &a.Notes, &a.VersionID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *PGStore) FindDoctor(ctx context.Context, id int64) (*directory.Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *PGStore) FindPatient(ctx context.Context, id int64) (*directory.Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *PGStore) FindAppointment(ctx context.Context, id int64) (*Appointment, error) {
	return scanAppointment(s.pool.QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (s *PGStore) FindAppointmentsForDoctorInRange(ctx context.Context, doctorID int64, from, to time.Time) ([]*Appointment, error) {
	return s.list(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE doctor_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time ASC`, doctorID, from, to)
}

func (s *PGStore) FindAppointmentsForPatient(ctx context.Context, patientID int64) ([]*Appointment, error) {
	return s.list(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE patient_id = $1
		ORDER BY start_time DESC`, patientID)
}

func (s *PGStore) list(ctx context.Context, query string, args ...interface{}) ([]*Appointment, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// written holds the columns the database assigns on a write. They are copied
// onto the caller's Appointment only after the transaction commits.
type written struct {
	id        int64
	versionID int
	createdAt time.Time
	updatedAt time.Time
}

// Save serialises writers per doctor with a transaction-scoped advisory lock
// and re-checks the buffer window inside the transaction. The partial unique
// index on (doctor_id, start_time) backs this up for identical starts.
func (s *PGStore) Save(ctx context.Context, a *Appointment, buffer time.Duration) error {
	var w written
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, a.DoctorID); err != nil {
			return fmt.Errorf("lock doctor %d: %w", a.DoctorID, err)
		}
		if a.ID == 0 {
			if a.Active() {
				if err := checkConflict(ctx, tx, a, buffer); err != nil {
					return err
				}
			}
			var err error
			w, err = insert(ctx, tx, a)
			return err
		}

		var curStart time.Time
		var curVersion int
		err := tx.QueryRow(ctx, `SELECT start_time, version_id FROM appointment WHERE id = $1 FOR UPDATE`, a.ID).
			Scan(&curStart, &curVersion)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if curVersion != a.VersionID {
			return ErrStaleVersion
		}
		if a.Active() && !a.StartTime.Equal(curStart) {
			if err := checkConflict(ctx, tx, a, buffer); err != nil {
				return err
			}
		}
		w, err = update(ctx, tx, a)
		return err
	})
	if db.IsUniqueViolation(err, slotConstraint) {
		return ErrSlotTaken
	}
	if err != nil {
		return err
	}

	if a.ID == 0 {
		a.ID = w.id
		a.CreatedAt = w.createdAt
	}
	a.VersionID = w.versionID
	a.UpdatedAt = w.updatedAt
	return nil
}

func checkConflict(ctx context.Context, tx pgx.Tx, a *Appointment, buffer time.Duration) error {
	window := Duration + buffer
	var taken bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE doctor_id = $1 AND id <> $2 AND status <> 'cancelled'
			  AND start_time > $3 AND start_time < $4
		)`,
		a.DoctorID, a.ID, a.StartTime.Add(-window), a.StartTime.Add(window),
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("check slot conflict: %w", err)
	}
	if taken {
		return ErrSlotTaken
	}
	return nil
}

func insert(ctx context.Context, tx pgx.Tx, a *Appointment) (written, error) {
	var w written
	err := tx.QueryRow(ctx, `
		INSERT INTO appointment (doctor_id, patient_id, start_time, status, cancellation_reason, cancelled_at, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, version_id, created_at, updated_at`,
		a.DoctorID, a.PatientID, a.StartTime, a.Status, a.CancellationReason, a.CancelledAt, a.Notes,
	).Scan(&w.id, &w.versionID, &w.createdAt, &w.updatedAt)
	return w, err
}

func update(ctx context.Context, tx pgx.Tx, a *Appointment) (written, error) {
	var w written
	err := tx.QueryRow(ctx, `
		UPDATE appointment SET start_time=$3, status=$4, cancellation_reason=$5, cancelled_at=$6,
			notes=$7, version_id=version_id+1, updated_at=NOW()
		WHERE id = $1 AND version_id = $2
		RETURNING version_id, updated_at`,
		a.ID, a.VersionID, a.StartTime, a.Status, a.CancellationReason, a.CancelledAt, a.Notes,
	).Scan(&w.versionID, &w.updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return w, ErrStaleVersion
	}
	return w, err
}
