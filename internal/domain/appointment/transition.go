package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clinic/clinic/internal/platform/auth"
)

// load fetches an appointment and runs the access check for it.
func (e *Engine) load(ctx context.Context, caller auth.Identity, id int64, allowed ...auth.Role) (*Appointment, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	a, err := e.store.FindAppointment(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}
	if err := authorize(caller, a, allowed...); err != nil {
		return nil, err
	}
	return a, nil
}

// Cancel marks the appointment cancelled. Only the booking patient or an
// admin may cancel, and only while the start is at least the lead time away.
// The record is kept.
func (e *Engine) Cancel(ctx context.Context, caller auth.Identity, id int64, reason string) (*Appointment, error) {
	a, err := e.load(ctx, caller, id, auth.RolePatient)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransitionTo(StatusCancelled) {
		return nil, fmt.Errorf("%w: status is %s", ErrNotCancellable, a.Status)
	}
	if e.tooSoon(a.StartTime) {
		return nil, fmt.Errorf("%w: less than %s before start", ErrNotCancellable, e.policy.LeadTime)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCancellationReason
	}
	now := e.now().UTC()
	a.Status = StatusCancelled
	a.CancellationReason = &reason
	a.CancelledAt = &now
	if err := e.store.Save(ctx, a, e.policy.Buffer); err != nil {
		return nil, mapSaveErr(err, ErrNotCancellable)
	}
	return a, nil
}

// Confirm is performed by the appointment's doctor.
func (e *Engine) Confirm(ctx context.Context, caller auth.Identity, id int64) (*Appointment, error) {
	a, err := e.load(ctx, caller, id, auth.RoleDoctor)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransitionTo(StatusConfirmed) {
		return nil, fmt.Errorf("%w: status is %s", ErrNotConfirmable, a.Status)
	}
	a.Status = StatusConfirmed
	if err := e.store.Save(ctx, a, e.policy.Buffer); err != nil {
		return nil, mapSaveErr(err, ErrNotConfirmable)
	}
	return a, nil
}

// Reschedule moves a scheduled or confirmed appointment to newStart, keeping
// its id and status. Like Cancel, the current start must still be at least
// the lead time away. The new start is subject to the same lead time and
// conflict rules as a booking, ignoring the appointment itself.
func (e *Engine) Reschedule(ctx context.Context, caller auth.Identity, id int64, newStart time.Time) (*Appointment, error) {
	a, err := e.load(ctx, caller, id, auth.RolePatient)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled && a.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: status is %s", ErrNotReschedulable, a.Status)
	}
	if e.tooSoon(a.StartTime) {
		return nil, fmt.Errorf("%w: less than %s before start", ErrNotReschedulable, e.policy.LeadTime)
	}

	d, err := e.store.FindDoctor(ctx, a.DoctorID)
	if errors.Is(err, ErrNotFound) || (err == nil && !d.Active) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}
	if e.tooSoon(newStart) {
		return nil, fmt.Errorf("%w: must be at least %s from now", ErrLeadTimeViolation, e.policy.LeadTime)
	}
	clash, err := e.hasConflict(ctx, a.DoctorID, newStart, a.ID)
	if err != nil {
		return nil, err
	}
	if clash {
		return nil, e.conflictError(ctx, d, newStart)
	}

	a.StartTime = newStart.UTC()
	if err := e.store.Save(ctx, a, e.policy.Buffer); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, e.conflictError(ctx, d, newStart)
		}
		return nil, mapSaveErr(err, ErrNotReschedulable)
	}
	return a, nil
}

// Complete records that a confirmed appointment took place. Callers are
// expected to invoke it after the scheduled time; that is not enforced.
func (e *Engine) Complete(ctx context.Context, caller auth.Identity, id int64) (*Appointment, error) {
	return e.finish(ctx, caller, id, StatusCompleted)
}

// MarkNoShow records that the patient did not attend a confirmed appointment.
func (e *Engine) MarkNoShow(ctx context.Context, caller auth.Identity, id int64) (*Appointment, error) {
	return e.finish(ctx, caller, id, StatusNoShow)
}

func (e *Engine) finish(ctx context.Context, caller auth.Identity, id int64, to Status) (*Appointment, error) {
	a, err := e.load(ctx, caller, id, auth.RoleDoctor)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusConfirmed || !a.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, to)
	}
	a.Status = to
	if err := e.store.Save(ctx, a, e.policy.Buffer); err != nil {
		return nil, mapSaveErr(err, ErrInvalidTransition)
	}
	return a, nil
}
