package appointment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clinic/clinic/internal/platform/auth"
)

var (
	ErrUnauthenticated = auth.ErrUnauthenticated
	ErrUnauthorized    = auth.ErrUnauthorized

	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrLeadTimeViolation   = errors.New("appointment starts too soon")
	ErrSlotConflict        = errors.New("slot conflicts with an existing appointment")
	ErrNotCancellable      = errors.New("appointment cannot be cancelled")
	ErrNotConfirmable      = errors.New("appointment cannot be confirmed")
	ErrNotReschedulable    = errors.New("appointment cannot be rescheduled")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrStoreUnavailable    = errors.New("appointment store unavailable")
)

// SlotConflictError is returned when the requested start collides with
// another appointment. Available holds the doctor's free slots for that day.
type SlotConflictError struct {
	DoctorID  int64
	Date      time.Time
	Available []string
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("%s: doctor %d on %s, available [%s]",
		ErrSlotConflict, e.DoctorID, e.Date.Format("2006-01-02"), strings.Join(e.Available, ", "))
}

func (e *SlotConflictError) Is(target error) bool {
	return target == ErrSlotConflict
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
