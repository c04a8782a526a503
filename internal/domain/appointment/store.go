package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/clinic/clinic/internal/domain/directory"
)

var (
	// ErrNotFound is returned by Store lookups that match nothing.
	ErrNotFound = errors.New("record not found")
	// ErrSlotTaken means Save lost the race for a conflicting slot.
	ErrSlotTaken = errors.New("slot already taken")
	// ErrStaleVersion means the appointment changed since it was read.
	ErrStaleVersion = errors.New("stale appointment version")
)

// Store is the engine's persistence port.
type Store interface {
	FindDoctor(ctx context.Context, id int64) (*directory.Doctor, error)
	FindPatient(ctx context.Context, id int64) (*directory.Patient, error)
	FindAppointment(ctx context.Context, id int64) (*Appointment, error)
	// FindAppointmentsForDoctorInRange returns appointments of every status
	// starting in [from, to), ordered by start.
	FindAppointmentsForDoctorInRange(ctx context.Context, doctorID int64, from, to time.Time) ([]*Appointment, error)
	// FindAppointmentsForPatient returns the patient's appointments, newest
	// first.
	FindAppointmentsForPatient(ctx context.Context, patientID int64) ([]*Appointment, error)
	// Save inserts a when a.ID is zero and otherwise updates it, guarded by
	// a.VersionID. When an active appointment is inserted or moved to a new
	// start, Save atomically rejects it with ErrSlotTaken if another active
	// appointment of the same doctor lies within Duration+buffer.
	Save(ctx context.Context, a *Appointment, buffer time.Duration) error
}

// conflicts reports whether appointments starting at a and b overlap once
// each is padded by buffer.
func conflicts(a, b time.Time, buffer time.Duration) bool {
	window := Duration + buffer
	return a.Before(b.Add(window)) && b.Before(a.Add(window))
}
