package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/clinic/clinic/internal/domain/directory"
)

func TestDoctorRepo(t *testing.T) {
	ctx := context.Background()
	pool := newSchema(t)
	repo := directory.NewDoctorRepoPG(pool)

	dana := createDoctor(t, ctx, pool, "Dana Reyes")
	evening := &directory.Doctor{Name: "Evan Night", Specialty: "Cardiology", Email: "evan@clinic.test",
		Phone: "555-0199", PasswordHash: "x", AvailableTimes: []string{"16:00", "16:30"}, Active: true}
	if err := repo.Create(ctx, evening); err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("Duplicate_Email", func(t *testing.T) {
		dup := *evening
		dup.ID = 0
		dup.Phone = "555-0200"
		if err := repo.Create(ctx, &dup); !errors.Is(err, directory.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("GetByEmail_CaseInsensitive", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "EVAN@CLINIC.TEST")
		if err != nil || got.ID != evening.ID {
			t.Fatalf("expected doctor %d, got %v (%v)", evening.ID, got, err)
		}
		if _, err := repo.GetByID(ctx, evening.ID+1000); !errors.Is(err, directory.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("List_Filters", func(t *testing.T) {
		tests := []struct {
			name   string
			filter directory.DoctorFilter
			want   []int64
		}{
			{"all", directory.DoctorFilter{}, []int64{dana.ID, evening.ID}},
			{"name substring", directory.DoctorFilter{Name: "reY"}, []int64{dana.ID}},
			{"specialty", directory.DoctorFilter{Specialty: "cardiology"}, []int64{evening.ID}},
			{"morning", directory.DoctorFilter{Period: "AM"}, []int64{dana.ID}},
			{"afternoon", directory.DoctorFilter{Period: "PM"}, []int64{dana.ID, evening.ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				items, total, err := repo.List(ctx, tt.filter, 20, 0)
				if err != nil {
					t.Fatalf("List: %v", err)
				}
				if total != len(tt.want) || len(items) != len(tt.want) {
					t.Fatalf("expected %d doctors, got %d (total %d)", len(tt.want), len(items), total)
				}
				for i, id := range tt.want {
					if items[i].ID != id {
						t.Errorf("position %d: expected doctor %d, got %d", i, id, items[i].ID)
					}
				}
			})
		}
	})

	t.Run("Deactivate", func(t *testing.T) {
		evening.Active = false
		if err := repo.Update(ctx, evening); err != nil {
			t.Fatalf("Update: %v", err)
		}
		items, total, err := repo.List(ctx, directory.DoctorFilter{ActiveOnly: true}, 20, 0)
		if err != nil || total != 1 || items[0].ID != dana.ID {
			t.Fatalf("expected only the active doctor, got %d (%v)", total, err)
		}
		specialties, err := repo.Specialties(ctx)
		if err != nil || len(specialties) != 1 || specialties[0] != "General Practice" {
			t.Errorf("unexpected specialties %v (%v)", specialties, err)
		}
	})
}

func TestPatientRepo(t *testing.T) {
	ctx := context.Background()
	pool := newSchema(t)
	repo := directory.NewPatientRepoPG(pool)

	pat := createPatient(t, ctx, pool, "Pat Smith")
	createPatient(t, ctx, pool, "Quinn Lee")

	if _, err := repo.GetByID(ctx, pat.ID+1000); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	pat.Status = directory.PatientInactive
	pat.Address = ptrStr("1 Main St")
	if err := repo.Update(ctx, pat); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := repo.GetByEmail(ctx, "PAT.SMITH@patient.test")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.Status != directory.PatientInactive || got.Address == nil || *got.Address != "1 Main St" {
		t.Errorf("update not persisted: %+v", got)
	}

	items, total, err := repo.Search(ctx, "quinn", 20, 0)
	if err != nil || total != 1 || items[0].Name != "Quinn Lee" {
		t.Fatalf("expected Quinn Lee, got %d (%v)", total, err)
	}
}
