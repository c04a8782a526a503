package prescription

import "time"

// Prescription maps to the prescription table.
type Prescription struct {
	ID            int64     `db:"id" json:"id"`
	AppointmentID int64     `db:"appointment_id" json:"appointment_id"`
	DoctorID      int64     `db:"doctor_id" json:"doctor_id"`
	PatientID     int64     `db:"patient_id" json:"patient_id"`
	Medication    string    `db:"medication" json:"medication"`
	Dosage        string    `db:"dosage" json:"dosage"`
	Instructions  *string   `db:"instructions" json:"instructions,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type Input struct {
	Medication   string  `json:"medication" validate:"required,max=255"`
	Dosage       string  `json:"dosage" validate:"required,max=255"`
	Instructions *string `json:"instructions,omitempty" validate:"omitempty,max=2000"`
}
