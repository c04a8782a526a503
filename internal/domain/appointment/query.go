package appointment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clinic/clinic/internal/platform/auth"
)

// Get returns one appointment to its patient, its doctor or an admin.
func (e *Engine) Get(ctx context.Context, caller auth.Identity, id int64) (*Appointment, error) {
	return e.load(ctx, caller, id, auth.RolePatient, auth.RoleDoctor)
}

// ListForPatient returns a patient's appointments, newest first, optionally
// limited to one status. A zero patientID means the calling patient.
func (e *Engine) ListForPatient(ctx context.Context, caller auth.Identity, patientID int64, status Status) ([]*Appointment, error) {
	if patientID == 0 && caller.Role == auth.RolePatient {
		patientID = caller.UserID
	}
	if err := authorize(caller, &Appointment{PatientID: patientID}, auth.RolePatient); err != nil {
		return nil, err
	}
	appts, err := e.store.FindAppointmentsForPatient(ctx, patientID)
	if err != nil {
		return nil, storeErr(err)
	}
	out := make([]*Appointment, 0, len(appts))
	for _, a := range appts {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

// ListForDoctorDay returns the doctor's appointments on the given day in
// start order, with patient names. patientName filters by case-insensitive
// substring.
func (e *Engine) ListForDoctorDay(ctx context.Context, caller auth.Identity, doctorID int64, date time.Time, patientName string) ([]*DoctorDayEntry, error) {
	if err := authorize(caller, &Appointment{DoctorID: doctorID}, auth.RoleDoctor); err != nil {
		return nil, err
	}
	if _, err := e.store.FindDoctor(ctx, doctorID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, storeErr(err)
	}

	from, to := e.dayBounds(date)
	appts, err := e.store.FindAppointmentsForDoctorInRange(ctx, doctorID, from, to)
	if err != nil {
		return nil, storeErr(err)
	}

	needle := strings.ToLower(strings.TrimSpace(patientName))
	names := make(map[int64]string)
	out := make([]*DoctorDayEntry, 0, len(appts))
	for _, a := range appts {
		name, ok := names[a.PatientID]
		if !ok {
			p, err := e.store.FindPatient(ctx, a.PatientID)
			switch {
			case err == nil:
				name = p.Name
			case !errors.Is(err, ErrNotFound):
				return nil, storeErr(err)
			}
			names[a.PatientID] = name
		}
		if needle != "" && !strings.Contains(strings.ToLower(name), needle) {
			continue
		}
		out = append(out, &DoctorDayEntry{Appointment: a, PatientName: name})
	}
	return out, nil
}
