package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clinic/clinic/internal/domain/appointment"
	"github.com/clinic/clinic/internal/platform/auth"
)

// ErrNotEligible means the appointment is not in a state that allows
// prescribing.
var ErrNotEligible = errors.New("appointment must be confirmed or completed")

// AppointmentReader is the guarded appointment lookup; *appointment.Engine
// satisfies it.
type AppointmentReader interface {
	Get(ctx context.Context, caller auth.Identity, id int64) (*appointment.Appointment, error)
}

type Service struct {
	repo  Repository
	appts AppointmentReader
}

func NewService(repo Repository, appts AppointmentReader) *Service {
	return &Service{repo: repo, appts: appts}
}

// Create issues a prescription for an appointment owned by the calling
// doctor.
func (s *Service) Create(ctx context.Context, caller auth.Identity, appointmentID int64, in Input) (*Prescription, error) {
	if !caller.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}
	if !auth.HasRole(caller, auth.RoleDoctor) {
		return nil, auth.ErrUnauthorized
	}
	a, err := s.appts.Get(ctx, caller, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != appointment.StatusConfirmed && a.Status != appointment.StatusCompleted {
		return nil, fmt.Errorf("%w: status is %s", ErrNotEligible, a.Status)
	}
	p := &Prescription{
		AppointmentID: a.ID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		Medication:    strings.TrimSpace(in.Medication),
		Dosage:        strings.TrimSpace(in.Dosage),
		Instructions:  in.Instructions,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create prescription: %w", err)
	}
	return p, nil
}

// Get returns a prescription to anyone allowed to read its appointment.
func (s *Service) Get(ctx context.Context, caller auth.Identity, id int64) (*Prescription, error) {
	if !caller.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.appts.Get(ctx, caller, p.AppointmentID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListForAppointment(ctx context.Context, caller auth.Identity, appointmentID int64) ([]*Prescription, error) {
	if _, err := s.appts.Get(ctx, caller, appointmentID); err != nil {
		return nil, err
	}
	return s.repo.ListByAppointment(ctx, appointmentID)
}

// ListForPatient returns a patient's prescription history to the patient or
// an admin.
func (s *Service) ListForPatient(ctx context.Context, caller auth.Identity, patientID int64, limit, offset int) ([]*Prescription, int, error) {
	if !caller.Authenticated() {
		return nil, 0, auth.ErrUnauthenticated
	}
	if !caller.IsAdmin() && (caller.Role != auth.RolePatient || caller.UserID != patientID) {
		return nil, 0, auth.ErrUnauthorized
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
