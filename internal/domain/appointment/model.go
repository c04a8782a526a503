package appointment

import (
	"fmt"
	"time"
)

// Duration is the fixed length of every appointment.
const Duration = 60 * time.Minute

// SlotLayout formats a start instant as a template label.
const SlotLayout = "15:04"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "noshow"
)

// transitions lists every legal status change. Statuses without an entry are
// terminal.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted, StatusNoShow},
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown appointment status %q", s)
	}
	return st, nil
}

// Appointment maps to the appointment table. The end instant is always
// StartTime + Duration and is never stored.
type Appointment struct {
	ID                 int64      `db:"id" json:"id"`
	DoctorID           int64      `db:"doctor_id" json:"doctor_id"`
	PatientID          int64      `db:"patient_id" json:"patient_id"`
	StartTime          time.Time  `db:"start_time" json:"start_time"`
	Status             Status     `db:"status" json:"status"`
	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	VersionID          int        `db:"version_id" json:"version_id"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(Duration)
}

// Active reports whether the appointment still occupies its slot.
func (a *Appointment) Active() bool {
	return a.Status != StatusCancelled
}

// BookingRequest is the input to Engine.Book. PatientID is only honoured for
// admin callers; patients always book for themselves.
type BookingRequest struct {
	DoctorID  int64     `json:"doctor_id" validate:"required,gt=0"`
	PatientID int64     `json:"patient_id,omitempty" validate:"omitempty,gt=0"`
	StartTime time.Time `json:"start_time" validate:"required"`
	Notes     *string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// Confirmation is returned after a successful booking.
type Confirmation struct {
	AppointmentID int64     `json:"appointment_id"`
	Code          string    `json:"confirmation_code"`
	DoctorID      int64     `json:"doctor_id"`
	DoctorName    string    `json:"doctor_name"`
	PatientID     int64     `json:"patient_id"`
	PatientName   string    `json:"patient_name"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        Status    `json:"status"`
}

// ConfirmationCode renders APT-<doctor>-<YYYYMMDD>-<id padded to 6 digits>,
// with the date taken in the clinic's time zone.
func ConfirmationCode(doctorID int64, start time.Time, loc *time.Location, id int64) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("APT-%d-%s-%06d", doctorID, start.In(loc).Format("20060102"), id)
}

// DoctorDayEntry is one row of a doctor's daily schedule.
type DoctorDayEntry struct {
	*Appointment
	PatientName string `json:"patient_name"`
}
