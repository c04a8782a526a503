package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "appointment_doctor_slot_key"}
	exclusion := &pgconn.PgError{Code: "23P01", ConstraintName: "appointment_no_overlap"}
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "appointment_doctor_id_fkey"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"unique any", unique, "", true},
		{"unique named", unique, "appointment_doctor_slot_key", true},
		{"unique other name", unique, "doctor_email_key", false},
		{"wrapped", fmt.Errorf("insert: %w", unique), "", true},
		{"exclusion", exclusion, "", true},
		{"foreign key", fk, "", false},
		{"plain error", errors.New("boom"), "", false},
		{"nil", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}
