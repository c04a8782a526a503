package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinic/clinic/internal/platform/auth"
)

// Book validates and persists a new appointment. Checks run in a fixed
// order and the first failure is returned: doctor, patient, lead time, slot.
func (e *Engine) Book(ctx context.Context, caller auth.Identity, req BookingRequest) (*Confirmation, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	var patientID int64
	switch caller.Role {
	case auth.RolePatient:
		patientID = caller.UserID
	case auth.RoleAdmin:
		patientID = req.PatientID
	default:
		return nil, ErrUnauthorized
	}

	d, err := e.store.FindDoctor(ctx, req.DoctorID)
	if errors.Is(err, ErrNotFound) || (err == nil && !d.Active) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}

	p, err := e.store.FindPatient(ctx, patientID)
	if errors.Is(err, ErrNotFound) || (err == nil && !p.Active()) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}

	start := req.StartTime
	if e.tooSoon(start) {
		return nil, fmt.Errorf("%w: must be at least %s from now", ErrLeadTimeViolation, e.policy.LeadTime)
	}

	clash, err := e.hasConflict(ctx, d.ID, start, 0)
	if err != nil {
		return nil, err
	}
	if clash {
		return nil, e.conflictError(ctx, d, start)
	}

	a := &Appointment{
		DoctorID:  d.ID,
		PatientID: p.ID,
		StartTime: start.UTC(),
		Status:    StatusScheduled,
		Notes:     req.Notes,
	}
	if err := e.store.Save(ctx, a, e.policy.Buffer); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, e.conflictError(ctx, d, start)
		}
		return nil, storeErr(err)
	}

	return &Confirmation{
		AppointmentID: a.ID,
		Code:          ConfirmationCode(d.ID, a.StartTime, e.policy.Location, a.ID),
		DoctorID:      d.ID,
		DoctorName:    d.Name,
		PatientID:     p.ID,
		PatientName:   p.Name,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime(),
		Status:        a.Status,
	}, nil
}
