package prescription

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("prescription not found")

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id int64) (*Prescription, error)
	ListByAppointment(ctx context.Context, appointmentID int64) ([]*Prescription, error)
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Prescription, int, error)
}
