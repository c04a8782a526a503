package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinic/clinic/internal/domain/appointment"
	"github.com/clinic/clinic/internal/domain/prescription"
)

func TestPrescriptionRepo(t *testing.T) {
	ctx := context.Background()
	pool := newSchema(t)
	doc := createDoctor(t, ctx, pool, "Dana Reyes")
	pat := createPatient(t, ctx, pool, "Pat Smith")

	a := &appointment.Appointment{DoctorID: doc.ID, PatientID: pat.ID, StartTime: at("10:00"), Status: appointment.StatusConfirmed}
	if err := newStore(pool).Save(ctx, a, 30*time.Minute); err != nil {
		t.Fatalf("Save appointment: %v", err)
	}

	repo := prescription.NewRepoPG(pool)
	for _, med := range []string{"Amoxicillin", "Ibuprofen"} {
		p := &prescription.Prescription{AppointmentID: a.ID, DoctorID: doc.ID, PatientID: pat.ID,
			Medication: med, Dosage: "1 tablet twice daily"}
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Create %s: %v", med, err)
		}
		if p.ID == 0 || p.CreatedAt.IsZero() {
			t.Fatalf("expected id and created_at, got %+v", p)
		}
	}

	t.Run("Create_FK_Violation", func(t *testing.T) {
		p := &prescription.Prescription{AppointmentID: a.ID + 1000, DoctorID: doc.ID, PatientID: pat.ID,
			Medication: "Nothing", Dosage: "none"}
		if err := repo.Create(ctx, p); err == nil {
			t.Fatal("expected FK violation for an unknown appointment")
		}
	})

	t.Run("ListByAppointment", func(t *testing.T) {
		items, err := repo.ListByAppointment(ctx, a.ID)
		if err != nil || len(items) != 2 {
			t.Fatalf("expected 2 prescriptions, got %d (%v)", len(items), err)
		}
		got, err := repo.GetByID(ctx, items[0].ID)
		if err != nil || got.Medication != items[0].Medication {
			t.Errorf("GetByID mismatch: %+v (%v)", got, err)
		}
	})

	t.Run("ListByPatient_Paged", func(t *testing.T) {
		items, total, err := repo.ListByPatient(ctx, pat.ID, 1, 0)
		if err != nil || total != 2 || len(items) != 1 {
			t.Fatalf("expected 1 of 2, got %d of %d (%v)", len(items), total, err)
		}
	})

	if _, err := repo.GetByID(ctx, 99999); !errors.Is(err, prescription.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
