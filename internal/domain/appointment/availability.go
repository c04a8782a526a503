package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/clinic/clinic/internal/domain/directory"
)

// Availability returns the doctor's free slot labels on the given day, in
// template order. Inactive doctors have no availability.
func (e *Engine) Availability(ctx context.Context, doctorID int64, date time.Time) ([]string, error) {
	d, err := e.store.FindDoctor(ctx, doctorID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}
	if !d.Active {
		return []string{}, nil
	}
	return e.freeSlots(ctx, d, date)
}

func (e *Engine) template(d *directory.Doctor) []string {
	if len(d.AvailableTimes) > 0 {
		return d.AvailableTimes
	}
	return e.policy.Template
}

func (e *Engine) freeSlots(ctx context.Context, d *directory.Doctor, date time.Time) ([]string, error) {
	from, to := e.dayBounds(date)
	appts, err := e.store.FindAppointmentsForDoctorInRange(ctx, d.ID, from, to)
	if err != nil {
		return nil, storeErr(err)
	}
	taken := make(map[string]bool, len(appts))
	for _, a := range appts {
		if a.Active() {
			taken[a.StartTime.In(e.policy.Location).Format(SlotLayout)] = true
		}
	}
	out := []string{}
	for _, label := range e.template(d) {
		if !taken[label] {
			out = append(out, label)
		}
	}
	return out, nil
}

// conflictError re-computes the day's free slots for a rejected start.
func (e *Engine) conflictError(ctx context.Context, d *directory.Doctor, start time.Time) error {
	slots, err := e.freeSlots(ctx, d, start)
	if err != nil {
		return err
	}
	day, _ := e.dayBounds(start)
	return &SlotConflictError{DoctorID: d.ID, Date: day, Available: slots}
}

// hasConflict reports whether start collides with an active appointment of
// the doctor other than exclude.
func (e *Engine) hasConflict(ctx context.Context, doctorID int64, start time.Time, exclude int64) (bool, error) {
	window := Duration + e.policy.Buffer
	appts, err := e.store.FindAppointmentsForDoctorInRange(ctx, doctorID, start.Add(-window), start.Add(window))
	if err != nil {
		return false, storeErr(err)
	}
	for _, a := range appts {
		if a.ID != exclude && a.Active() && conflicts(start, a.StartTime, e.policy.Buffer) {
			return true, nil
		}
	}
	return false, nil
}
