// Package integration runs the Postgres-backed stores against a real
// database. Set CLINIC_TEST_DATABASE_URL to use an existing server; otherwise
// a postgres:16-alpine container is started through Docker. With neither
// available every test is skipped.
package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/domain/appointment"
	"github.com/clinic/clinic/internal/domain/directory"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/migrations"
)

type testDB struct {
	Pool    *pgxpool.Pool
	ConnStr string
}

// globalDB is nil when no database could be reached.
var globalDB *testDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	tdb, cleanup, err := setupDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration tests skipped: %v\n", err)
	} else {
		globalDB = tdb
	}

	code := m.Run()
	if cleanup != nil {
		cleanup()
	}
	os.Exit(code)
}

func setupDatabase(ctx context.Context) (*testDB, func(), error) {
	connStr := os.Getenv("CLINIC_TEST_DATABASE_URL")
	stop := func() {}
	if connStr == "" {
		var err error
		connStr, stop, err = startPostgresContainer(ctx)
		if err != nil {
			return nil, nil, err
		}
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		stop()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	return &testDB{Pool: pool, ConnStr: connStr}, func() {
		pool.Close()
		stop()
	}, nil
}

// newSchema creates an isolated schema, applies the embedded migrations to it
// and returns a pool whose connections resolve tables there. The schema is
// dropped when the test ends.
func newSchema(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if globalDB == nil {
		t.Skip("no database available")
	}
	ctx := context.Background()
	schema := "it_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")

	if _, err := globalDB.Pool.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema %s: %v", schema, err)
	}

	cfg, err := pgxpool.ParseConfig(globalDB.ConnStr)
	if err != nil {
		t.Fatalf("parse conn string: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	cfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	cfg.MaxConns = 10
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("create schema pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if _, err := globalDB.Pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("warning: failed to drop schema %s: %v", schema, err)
		}
	})

	if _, err := db.NewMigrator(pool, migrations.FS).Up(ctx); err != nil {
		t.Fatalf("migrate schema %s: %v", schema, err)
	}
	return pool
}

func createDoctor(t *testing.T, ctx context.Context, pool *pgxpool.Pool, name string) *directory.Doctor {
	t.Helper()
	key := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	d := &directory.Doctor{
		Name:           name,
		Specialty:      "General Practice",
		Email:          key + "@clinic.test",
		Phone:          "555-" + uuid.NewString()[:8],
		PasswordHash:   "x",
		AvailableTimes: []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00"},
		Active:         true,
	}
	if err := directory.NewDoctorRepoPG(pool).Create(ctx, d); err != nil {
		t.Fatalf("create doctor %s: %v", name, err)
	}
	return d
}

func createPatient(t *testing.T, ctx context.Context, pool *pgxpool.Pool, name string) *directory.Patient {
	t.Helper()
	key := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	p := &directory.Patient{
		Name:         name,
		Email:        key + "@patient.test",
		Phone:        "555-0100",
		PasswordHash: "x",
		Status:       directory.PatientActive,
	}
	if err := directory.NewPatientRepoPG(pool).Create(ctx, p); err != nil {
		t.Fatalf("create patient %s: %v", name, err)
	}
	return p
}

func newStore(pool *pgxpool.Pool) *appointment.PGStore {
	return appointment.NewPGStore(pool, directory.NewDoctorRepoPG(pool), directory.NewPatientRepoPG(pool))
}

// day is a fixed clinic day far enough ahead that no lead-time rule trips.
var day = time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

func at(hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

func ptrStr(s string) *string { return &s }
